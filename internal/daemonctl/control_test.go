package daemonctl

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
	"testing"

	"redink/internal/config"
)

func TestDeriveLogDir(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = "/var/lib/redink/logs"

	cases := []struct {
		name        string
		lockPath    string
		queueDBPath string
		cfg         *config.Config
		want        string
	}{
		{name: "lock path wins", lockPath: "/data/logs/redinkd.lock", queueDBPath: "/data/queue.db", cfg: &cfg, want: "/data/logs"},
		{name: "queue path fallback", queueDBPath: "/data/queue.db", cfg: &cfg, want: "/data"},
		{name: "config fallback", cfg: &cfg, want: "/var/lib/redink/logs"},
		{name: "no hints", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveLogDir(tc.lockPath, tc.queueDBPath, tc.cfg)
			if got != tc.want {
				t.Fatalf("DeriveLogDir() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestForceKillProcessRefusesSelf(t *testing.T) {
	dir := t.TempDir()
	pidPath := filepath.Join(dir, "redinkd.pid")
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		t.Fatalf("write pid file: %v", err)
	}
	if _, err := ForceKillProcess(pidPath, "", 0); err == nil {
		t.Fatal("expected refusal to kill current process")
	}
}

func TestForceKillProcessWithoutPID(t *testing.T) {
	dir := t.TempDir()
	pidPath := filepath.Join(dir, "redinkd.pid")
	if _, err := ForceKillProcess(pidPath, "", 0); err == nil {
		t.Fatal("expected error when pid cannot be determined")
	}
}

func TestIsDaemonUnavailable(t *testing.T) {
	if !isDaemonUnavailable(syscall.ECONNREFUSED) {
		t.Fatal("ECONNREFUSED should read as daemon unavailable")
	}
	if !isDaemonUnavailable(fmt.Errorf("dial unix: %w", syscall.ENOENT)) {
		t.Fatal("wrapped ENOENT should read as daemon unavailable")
	}
	if isDaemonUnavailable(errors.New("permission denied")) {
		t.Fatal("unrelated errors should not read as daemon unavailable")
	}
}
