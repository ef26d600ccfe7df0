package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"redink/internal/api"
	"redink/internal/config"
	"redink/internal/logging"
	"redink/internal/queue"
	"redink/internal/services"
)

const maxUploadBytes = 32 << 20

type apiServer struct {
	bind        string
	token       string
	logger      *slog.Logger
	daemon      *Daemon
	tasks       *api.TaskService
	images      *api.ImageService
	annotations *api.AnnotationService
	exports     *api.ExportService

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, store *queue.Store, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:        strings.TrimSpace(cfg.Paths.APIBind),
		token:       strings.TrimSpace(cfg.Paths.APIToken),
		logger:      logger,
		daemon:      d,
		tasks:       api.NewTaskService(cfg, store, logger),
		images:      api.NewImageService(cfg, store, logger),
		annotations: api.NewAnnotationService(cfg, store, logger),
		exports:     api.NewExportService(cfg, store, logger),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", srv.guard(srv.handleHealth))
	mux.HandleFunc("/api/status", srv.guard(srv.handleStatus))
	mux.HandleFunc("/api/tasks", srv.guard(srv.handleTasks))
	mux.HandleFunc("/api/tasks/", srv.guard(srv.handleTask))
	mux.HandleFunc("/api/images/", srv.guard(srv.handleImage))
	mux.HandleFunc("/api/annotations/", srv.guard(srv.handleAnnotation))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) guard(next http.HandlerFunc) http.HandlerFunc {
	return authMiddleware(s.token, next)
}

// Start begins serving. A blank bind address disables the API.
func (s *apiServer) Start() error {
	if s.bind == "" {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) Stop() {
	if s.listener == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
	s.listener = nil
}

// Addr returns the bound address, or "" when the API is disabled or
// not yet started.
func (s *apiServer) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Handler exposes the route table for tests.
func (s *apiServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	health, err := s.daemon.QueueHealth(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, health)
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status(r.Context())
	payload := api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		QueueDBPath:  status.QueueDBPath,
		LockFilePath: status.LockFilePath,
		Workflow:     api.FromStatusSummary(status.Workflow),
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		query := r.URL.Query()
		offset, _ := strconv.Atoi(query.Get("offset"))
		limit, _ := strconv.Atoi(query.Get("limit"))
		page, err := s.tasks.List(offset, limit)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, page)
	case http.MethodPost:
		var req api.CreateTaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		task, err := s.tasks.Create(req)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, api.TaskResponse{Task: *task})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleTask(w http.ResponseWriter, r *http.Request) {
	id, action, ok := splitResourcePath(r.URL.Path, "/api/tasks/")
	if !ok {
		s.writeError(w, http.StatusNotFound, "task not found")
		return
	}

	switch action {
	case "":
		s.handleTaskRoot(w, r, id)
	case "images":
		s.handleTaskImages(w, r, id)
	case "reorder":
		s.handleTaskReorder(w, r, id)
	case "process":
		s.handleTaskProcess(w, r, id)
	case "stats":
		s.handleTaskStats(w, r, id)
	case "export":
		s.handleTaskExport(w, r, id)
	default:
		s.writeError(w, http.StatusNotFound, "task not found")
	}
}

func (s *apiServer) handleTaskRoot(w http.ResponseWriter, r *http.Request, id int64) {
	switch r.Method {
	case http.MethodGet:
		task, err := s.tasks.Describe(id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.TaskResponse{Task: *task})
	case http.MethodPatch:
		var req api.UpdateTaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		task, err := s.tasks.Update(id, req)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.TaskResponse{Task: *task})
	case http.MethodDelete:
		if err := s.tasks.Delete(id); err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleTaskImages(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart payload")
		return
	}
	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		s.writeError(w, http.StatusBadRequest, "no files in upload")
		return
	}

	uploaded := make([]api.Image, 0, len(files))
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "unreadable upload part")
			return
		}
		data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
		file.Close()
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "unreadable upload part")
			return
		}
		img, err := s.images.Upload(id, header.Filename, data)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		uploaded = append(uploaded, *img)
	}
	s.writeJSON(w, http.StatusCreated, map[string][]api.Image{"images": uploaded})
}

func (s *apiServer) handleTaskReorder(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		ImageIDs []int64 `json:"imageIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.images.Reorder(id, req.ImageIDs); err != nil {
		s.writeServiceError(w, err)
		return
	}
	task, err := s.tasks.Describe(id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.TaskResponse{Task: *task})
}

func (s *apiServer) handleTaskProcess(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	force := r.URL.Query().Get("force") == "1" || strings.EqualFold(r.URL.Query().Get("force"), "true")
	task, err := s.tasks.Process(id, force)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.TaskResponse{Task: *task})
}

func (s *apiServer) handleTaskStats(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	stats, err := s.tasks.Stats(id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *apiServer) handleTaskExport(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	path, name, err := s.exports.Archive(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, path)
}

func (s *apiServer) handleImage(w http.ResponseWriter, r *http.Request) {
	id, action, ok := splitResourcePath(r.URL.Path, "/api/images/")
	if !ok {
		s.writeError(w, http.StatusNotFound, "image not found")
		return
	}

	switch action {
	case "":
		s.handleImageRoot(w, r, id)
	case "text":
		s.handleImageText(w, r, id)
	case "annotations":
		s.handleImageAnnotations(w, r, id)
	case "render":
		s.handleImageRender(w, r, id)
	default:
		s.writeError(w, http.StatusNotFound, "image not found")
	}
}

func (s *apiServer) handleImageRoot(w http.ResponseWriter, r *http.Request, id int64) {
	switch r.Method {
	case http.MethodGet:
		img, err := s.images.Describe(id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.ImageResponse{Image: *img})
	case http.MethodDelete:
		if err := s.images.Remove(id); err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleImageText(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodPatch {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	img, err := s.images.CorrectText(id, req.Text)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ImageResponse{Image: *img})
}

func (s *apiServer) handleImageAnnotations(w http.ResponseWriter, r *http.Request, id int64) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.annotations.List(id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.AnnotationListResponse{Annotations: list})
	case http.MethodPost:
		var input api.Annotation
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		ann, err := s.annotations.Add(id, input)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, api.AnnotationResponse{Annotation: *ann})
	case http.MethodPut:
		var inputs []api.Annotation
		if err := json.NewDecoder(r.Body).Decode(&inputs); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		list, err := s.annotations.ReplaceAll(id, inputs)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.AnnotationListResponse{Annotations: list})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleImageRender(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	scale := 1.0
	if raw := strings.TrimSpace(r.URL.Query().Get("scale")); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid scale factor")
			return
		}
		scale = parsed
	}
	path, err := s.exports.RenderPage(r.Context(), id, scale)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	http.ServeFile(w, r, path)
}

func (s *apiServer) handleAnnotation(w http.ResponseWriter, r *http.Request) {
	id, action, ok := splitResourcePath(r.URL.Path, "/api/annotations/")
	if !ok || action != "" {
		s.writeError(w, http.StatusNotFound, "annotation not found")
		return
	}

	switch r.Method {
	case http.MethodPatch:
		var input api.Annotation
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		ann, err := s.annotations.Update(id, input)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.AnnotationResponse{Annotation: *ann})
	case http.MethodDelete:
		if err := s.annotations.Delete(id); err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// splitResourcePath parses "/api/tasks/42/stats" into (42, "stats").
// A trailing slash after the action or a deeper path does not match.
func splitResourcePath(path, prefix string) (int64, string, bool) {
	rest := strings.TrimPrefix(path, prefix)
	if rest == path || rest == "" {
		return 0, "", false
	}
	idPart, action := rest, ""
	if i := strings.Index(rest, "/"); i >= 0 {
		idPart, action = rest[:i], rest[i+1:]
	}
	if strings.Contains(action, "/") {
		return 0, "", false
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return 0, "", false
	}
	return id, action, true
}

func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, api.ErrConflict):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrValidation):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, queue.ErrTaskNotFound),
		errors.Is(err, queue.ErrImageNotFound),
		errors.Is(err, queue.ErrAnnotationNotFound),
		errors.Is(err, services.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
