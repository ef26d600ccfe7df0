package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"redink/internal/annotating"
	"redink/internal/api"
	"redink/internal/comparison"
	"redink/internal/config"
	"redink/internal/daemon"
	"redink/internal/ipc"
	"redink/internal/logging"
	"redink/internal/notifications"
	"redink/internal/queue"
	"redink/internal/recognition"
	"redink/internal/workflow"
)

// How often expired export archives are swept while the daemon runs.
const exportSweepInterval = 10 * time.Minute

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the redink daemon runtime loop and blocks until the
// process receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("redink-%s.log", runID))
	logger, err := logging.New(logging.Options{
		Level:       opts.LogLevel,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update redink.log link: %v\n", err)
	}

	pidPath := filepath.Join(cfg.Paths.LogDir, "redinkd.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.NewStore(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}
	defer store.Close()

	notifier := notifications.NewService(cfg)
	manager := workflow.NewManagerWithNotifier(cfg, store, logger, notifier)
	manager.ConfigureStages(workflow.StageSet{
		Recognizer: recognition.New(cfg, store, logger),
		Comparer:   comparison.New(cfg, store, logger),
		Annotator:  annotating.New(cfg, store, logger),
	})

	d, err := daemon.New(cfg, store, logger, manager)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	socketPath := SocketPath(cfg)
	ipcServer, err := ipc.NewServer(signalCtx, socketPath, d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		logger.Warn("daemon start failed", logging.Error(err))
	}

	go sweepExports(signalCtx, cfg, store, logger)

	<-signalCtx.Done()
	logger.Info("redink daemon shutting down")
	return nil
}

// SocketPath returns the IPC socket location for a config.
func SocketPath(cfg *config.Config) string {
	if cfg == nil || cfg.Paths.LogDir == "" {
		return "redink.sock"
	}
	return filepath.Join(cfg.Paths.LogDir, "redink.sock")
}

// sweepExports periodically removes expired export archives and renders.
func sweepExports(ctx context.Context, cfg *config.Config, store *queue.Store, logger *slog.Logger) {
	exports := api.NewExportService(cfg, store, logger)
	ticker := time.NewTicker(exportSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed, err := exports.Cleanup(ctx); err != nil {
				logger.Warn("export cleanup failed", logging.Error(err))
			} else if removed > 0 {
				logger.Info("expired exports removed", logging.Int("count", removed))
			}
		}
	}
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "redink.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
