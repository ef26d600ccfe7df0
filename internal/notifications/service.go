package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"redink/internal/config"
)

const userAgent = "Redink/0.1.0"

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyTaskCompleted(ctx context.Context, title string, wrong, missing, extra int) error
	NotifyTaskReview(ctx context.Context, title, reason string) error
	NotifyQueueStarted(ctx context.Context, count int) error
	NotifyQueueCompleted(ctx context.Context, processed, failed int, duration time.Duration) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:     topic,
		client:       &http.Client{Timeout: timeout},
		taskComplete: cfg.Notifications.TaskComplete,
		review:       cfg.Notifications.Review,
		errors:       cfg.Notifications.Errors,
		dedupWindow:  time.Duration(cfg.Notifications.DedupWindowSeconds) * time.Second,
		recent:       make(map[string]time.Time),
		now:          time.Now,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint     string
	client       *http.Client
	taskComplete bool
	review       bool
	errors       bool

	dedupWindow time.Duration
	mu          sync.Mutex
	recent      map[string]time.Time
	now         func() time.Time
}

func (n *ntfyService) NotifyTaskCompleted(ctx context.Context, title string, wrong, missing, extra int) error {
	if !n.taskComplete {
		return nil
	}
	title = strings.TrimSpace(title)
	errors := wrong + missing + extra
	var message string
	if errors == 0 {
		message = fmt.Sprintf("Graded: %s — all words correct", title)
	} else {
		message = fmt.Sprintf("Graded: %s — %d wrong, %d missing, %d extra", title, wrong, missing, extra)
	}
	data := payload{
		title:   "Redink - Task Complete",
		message: message,
		tags:    []string{"redink", "task", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyTaskReview(ctx context.Context, title, reason string) error {
	if !n.review {
		return nil
	}
	title = strings.TrimSpace(title)
	reason = strings.TrimSpace(reason)
	message := fmt.Sprintf("Needs review: %s", title)
	if reason != "" {
		message = fmt.Sprintf("%s\n%s", message, reason)
	}
	data := payload{
		title:    "Redink - Review Needed",
		message:  message,
		tags:     []string{"redink", "review"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyQueueStarted(ctx context.Context, count int) error {
	data := payload{
		title:   "Redink - Queue Started",
		message: fmt.Sprintf("Started grading queue with %d tasks", count),
		tags:    []string{"redink", "queue", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyQueueCompleted(ctx context.Context, processed, failed int, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}

	var title, message string
	if failed == 0 {
		title = "Redink - Queue Complete"
		message = fmt.Sprintf("Queue complete: %d tasks graded in %s", processed, durationText)
	} else {
		title = "Redink - Queue Complete (with errors)"
		message = fmt.Sprintf("Queue complete: %d graded, %d failed in %s", processed, failed, durationText)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"redink", "queue", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Redink - Error",
		message:  builder.String(),
		tags:     []string{"redink", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Redink - Test",
		message:  "Notification system test",
		tags:     []string{"redink", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

// suppressed reports whether an identical message was sent inside the
// dedup window, recording the send time otherwise.
func (n *ntfyService) suppressed(message string) bool {
	if n.dedupWindow <= 0 {
		return false
	}
	now := n.now()
	n.mu.Lock()
	defer n.mu.Unlock()
	if sent, ok := n.recent[message]; ok && now.Sub(sent) < n.dedupWindow {
		return true
	}
	for key, sent := range n.recent {
		if now.Sub(sent) >= n.dedupWindow {
			delete(n.recent, key)
		}
	}
	n.recent[message] = now
	return false
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}
	if n.suppressed(data.message) {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyTaskCompleted(context.Context, string, int, int, int) error    { return nil }
func (noopService) NotifyTaskReview(context.Context, string, string) error              { return nil }
func (noopService) NotifyQueueStarted(context.Context, int) error                       { return nil }
func (noopService) NotifyQueueCompleted(context.Context, int, int, time.Duration) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error                    { return nil }
func (noopService) TestNotification(context.Context) error                              { return nil }
