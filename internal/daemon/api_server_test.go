package daemon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"redink/internal/api"
	"redink/internal/config"
	"redink/internal/logging"
	"redink/internal/queue"
	"redink/internal/testsupport"
	"redink/internal/workflow"
)

func newTestServer(t *testing.T, opts ...testsupport.ConfigOption) (*apiServer, *queue.Store, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()

	manager := workflow.NewManager(cfg, store, logger)
	d, err := New(cfg, store, logger, manager)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d.api, store, cfg
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	srv, _, _ := newTestServer(t)
	handler := srv.Handler()

	created := doJSON(t, handler, http.MethodPost, "/api/tasks", api.CreateTaskRequest{
		Title:         "Week 1",
		ReferenceText: "alpha beta gamma",
	})
	if created.Code != http.StatusCreated {
		t.Fatalf("create status = %d body %s", created.Code, created.Body)
	}
	var createdResp api.TaskResponse
	if err := json.Unmarshal(created.Body.Bytes(), &createdResp); err != nil {
		t.Fatalf("decode create: %v", err)
	}
	taskID := createdResp.Task.ID

	list := doJSON(t, handler, http.MethodGet, "/api/tasks", nil)
	if list.Code != http.StatusOK {
		t.Fatalf("list status = %d", list.Code)
	}
	var listResp api.TaskListResponse
	if err := json.Unmarshal(list.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if listResp.Total != 1 || len(listResp.Tasks) != 1 {
		t.Fatalf("list = %+v", listResp)
	}

	show := doJSON(t, handler, http.MethodGet, fmt.Sprintf("/api/tasks/%d", taskID), nil)
	if show.Code != http.StatusOK {
		t.Fatalf("show status = %d", show.Code)
	}

	title := "Week 1 (revised)"
	patched := doJSON(t, handler, http.MethodPatch, fmt.Sprintf("/api/tasks/%d", taskID), api.UpdateTaskRequest{Title: &title})
	if patched.Code != http.StatusOK {
		t.Fatalf("patch status = %d body %s", patched.Code, patched.Body)
	}

	deleted := doJSON(t, handler, http.MethodDelete, fmt.Sprintf("/api/tasks/%d", taskID), nil)
	if deleted.Code != http.StatusOK {
		t.Fatalf("delete status = %d", deleted.Code)
	}
	missing := doJSON(t, handler, http.MethodGet, fmt.Sprintf("/api/tasks/%d", taskID), nil)
	if missing.Code != http.StatusNotFound {
		t.Fatalf("show after delete = %d, want 404", missing.Code)
	}
}

func TestUploadAndProcessOverHTTP(t *testing.T) {
	srv, store, _ := newTestServer(t)
	handler := srv.Handler()

	created := doJSON(t, handler, http.MethodPost, "/api/tasks", api.CreateTaskRequest{
		Title:         "t",
		ReferenceText: "alpha beta",
	})
	var createdResp api.TaskResponse
	if err := json.Unmarshal(created.Body.Bytes(), &createdResp); err != nil {
		t.Fatalf("decode create: %v", err)
	}
	taskID := createdResp.Task.ID

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "page1.jpg")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write([]byte("jpeg-bytes")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/tasks/%d/images", taskID), &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("upload status = %d body %s", recorder.Code, recorder.Body)
	}

	processed := doJSON(t, handler, http.MethodPost, fmt.Sprintf("/api/tasks/%d/process", taskID), nil)
	if processed.Code != http.StatusAccepted {
		t.Fatalf("process status = %d body %s", processed.Code, processed.Body)
	}
	task, err := store.ByID(taskID)
	if err != nil {
		t.Fatalf("ByID: %v", err)
	}
	if task.Status != queue.StatusPending {
		t.Fatalf("task status = %q, want pending", task.Status)
	}

	conflict := doJSON(t, handler, http.MethodPost, fmt.Sprintf("/api/tasks/%d/process", taskID), nil)
	if conflict.Code != http.StatusConflict {
		t.Fatalf("second process = %d, want 409", conflict.Code)
	}
}

func TestValidationAndNotFoundMapping(t *testing.T) {
	srv, _, _ := newTestServer(t)
	handler := srv.Handler()

	bad := doJSON(t, handler, http.MethodPost, "/api/tasks", api.CreateTaskRequest{Title: "", ReferenceText: "x"})
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("invalid create = %d, want 400", bad.Code)
	}

	missing := doJSON(t, handler, http.MethodGet, "/api/tasks/999", nil)
	if missing.Code != http.StatusNotFound {
		t.Fatalf("unknown task = %d, want 404", missing.Code)
	}

	badPath := doJSON(t, handler, http.MethodGet, "/api/tasks/not-a-number", nil)
	if badPath.Code != http.StatusNotFound {
		t.Fatalf("bad id = %d, want 404", badPath.Code)
	}
}

func TestAnnotationRoutesOverHTTP(t *testing.T) {
	srv, store, _ := newTestServer(t)
	handler := srv.Handler()

	task := testsupport.NewTask(t, store, "t", "alpha beta", []string{"alpha", "beta"})
	img := testsupport.AddPage(t, store, task.ID, "p.jpg", "/tmp/p.jpg")

	input := api.Annotation{ErrorType: "wrong", OcrWord: "betta", ReferenceWord: "beta", X1: 0.1, Y1: 0.1, X2: 0.2, Y2: 0.2}
	added := doJSON(t, handler, http.MethodPost, fmt.Sprintf("/api/images/%d/annotations", img.ID), input)
	if added.Code != http.StatusCreated {
		t.Fatalf("add annotation = %d body %s", added.Code, added.Body)
	}
	var addedResp api.AnnotationResponse
	if err := json.Unmarshal(added.Body.Bytes(), &addedResp); err != nil {
		t.Fatalf("decode annotation: %v", err)
	}

	list := doJSON(t, handler, http.MethodGet, fmt.Sprintf("/api/images/%d/annotations", img.ID), nil)
	var listResp api.AnnotationListResponse
	if err := json.Unmarshal(list.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listResp.Annotations) != 1 {
		t.Fatalf("annotations = %d, want 1", len(listResp.Annotations))
	}

	deleted := doJSON(t, handler, http.MethodDelete, fmt.Sprintf("/api/annotations/%d", addedResp.Annotation.ID), nil)
	if deleted.Code != http.StatusOK {
		t.Fatalf("delete annotation = %d", deleted.Code)
	}
}

func TestBearerTokenGuardsRoutes(t *testing.T) {
	srv, _, _ := newTestServer(t, testsupport.WithAPIToken("secret"))
	handler := srv.Handler()

	denied := doJSON(t, handler, http.MethodGet, "/api/tasks", nil)
	if denied.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated = %d, want 401", denied.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer secret")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Fatalf("authenticated = %d, want 200", recorder.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("bad token = %d, want 401", recorder.Code)
	}
}

func TestSplitResourcePath(t *testing.T) {
	cases := []struct {
		path   string
		id     int64
		action string
		ok     bool
	}{
		{"/api/tasks/42", 42, "", true},
		{"/api/tasks/42/stats", 42, "stats", true},
		{"/api/tasks/", 0, "", false},
		{"/api/tasks/abc", 0, "", false},
		{"/api/tasks/42/stats/extra", 0, "", false},
	}
	for _, tc := range cases {
		id, action, ok := splitResourcePath(tc.path, "/api/tasks/")
		if id != tc.id || action != tc.action || ok != tc.ok {
			t.Errorf("splitResourcePath(%q) = (%d, %q, %v), want (%d, %q, %v)",
				tc.path, id, action, ok, tc.id, tc.action, tc.ok)
		}
	}
}

func TestWorkflowStatusRoute(t *testing.T) {
	srv, _, _ := newTestServer(t)
	handler := srv.Handler()

	resp := doJSON(t, handler, http.MethodGet, "/api/status", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("status route = %d", resp.Code)
	}
	var status api.DaemonStatus
	if err := json.Unmarshal(resp.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Running {
		t.Fatal("daemon should report not running before Start")
	}
	if status.PID == 0 {
		t.Fatal("status should carry the daemon pid")
	}
	if !strings.Contains(status.LockFilePath, "redinkd.lock") {
		t.Fatalf("lock path = %q", status.LockFilePath)
	}
}
