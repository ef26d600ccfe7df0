package ipc_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"redink/internal/daemon"
	"redink/internal/ipc"
	"redink/internal/logging"
	"redink/internal/queue"
	"redink/internal/stage"
	"redink/internal/testsupport"
	"redink/internal/workflow"
)

type idleHandler struct{}

func (idleHandler) Prepare(ctx context.Context, task *queue.Task) error { return nil }
func (idleHandler) Execute(ctx context.Context, task *queue.Task) error { return nil }
func (idleHandler) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy("idle")
}

func newIPCFixture(t *testing.T) (*ipc.Client, *queue.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()

	manager := workflow.NewManager(cfg, store, logger)
	manager.ConfigureStages(workflow.StageSet{
		Recognizer: idleHandler{},
		Comparer:   idleHandler{},
		Annotator:  idleHandler{},
	})
	d, err := daemon.New(cfg, store, logger, manager)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	socket := filepath.Join(cfg.Paths.LogDir, "redink.sock")
	server, err := ipc.NewServer(ctx, socket, d, logger)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	server.Serve()
	t.Cleanup(func() {
		server.Close()
		cancel()
		d.Stop()
	})

	var client *ipc.Client
	deadline := time.Now().Add(2 * time.Second)
	for {
		client, err = ipc.Dial(socket)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Dial: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Cleanup(func() { client.Close() })
	return client, store
}

func TestStatusOverIPC(t *testing.T) {
	client, _ := newIPCFixture(t)

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Running {
		t.Fatal("daemon should not be running before Start")
	}
	if status.PID == 0 {
		t.Fatal("status should carry the daemon pid")
	}

	started, err := client.Start()
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !started.Started {
		t.Fatalf("start refused: %s", started.Message)
	}

	status, err = client.Status()
	if err != nil {
		t.Fatalf("Status after start: %v", err)
	}
	if !status.Running {
		t.Fatal("daemon should report running")
	}

	stopped, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !stopped.Stopped {
		t.Fatal("stop should be acknowledged")
	}
}

func TestTaskListOverIPC(t *testing.T) {
	client, store := newIPCFixture(t)

	task := testsupport.NewTask(t, store, "Week 2", "alpha beta", []string{"alpha", "beta"})
	testsupport.AddPage(t, store, task.ID, "p.jpg", "/tmp/p.jpg")

	list, err := client.TaskList(nil)
	if err != nil {
		t.Fatalf("TaskList: %v", err)
	}
	if len(list.Tasks) != 1 || list.Tasks[0].Title != "Week 2" {
		t.Fatalf("tasks = %+v", list.Tasks)
	}

	filtered, err := client.TaskList([]string{"completed"})
	if err != nil {
		t.Fatalf("TaskList filtered: %v", err)
	}
	if len(filtered.Tasks) != 0 {
		t.Fatalf("filtered tasks = %d, want 0", len(filtered.Tasks))
	}

	if _, err := client.TaskList([]string{"bogus"}); err == nil {
		t.Fatal("unknown status should error")
	}

	describe, err := client.TaskDescribe(task.ID)
	if err != nil {
		t.Fatalf("TaskDescribe: %v", err)
	}
	if describe.Task.ID != task.ID || len(describe.Task.Images) != 1 {
		t.Fatalf("describe = %+v", describe.Task)
	}
}

func TestQueueMaintenanceOverIPC(t *testing.T) {
	client, store := newIPCFixture(t)

	task := testsupport.NewTask(t, store, "t", "alpha", []string{"alpha"})
	task.Status = queue.StatusFailed
	if err := store.Update(task); err != nil {
		t.Fatalf("Update: %v", err)
	}

	retried, err := client.QueueRetry(nil)
	if err != nil {
		t.Fatalf("QueueRetry: %v", err)
	}
	if retried.Updated != 1 {
		t.Fatalf("retried = %d, want 1", retried.Updated)
	}

	health, err := client.QueueHealth()
	if err != nil {
		t.Fatalf("QueueHealth: %v", err)
	}
	if !health.Healthy || health.TaskCount != 1 {
		t.Fatalf("health = %+v", health)
	}

	cleared, err := client.QueueClear()
	if err != nil {
		t.Fatalf("QueueClear: %v", err)
	}
	if cleared.Removed != 1 {
		t.Fatalf("removed = %d, want 1", cleared.Removed)
	}
}
