package ipc_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"danmaku/internal/config"
	"danmaku/internal/daemon"
	"danmaku/internal/ipc"
	"danmaku/internal/logging"
)

func TestIPCServerClient(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.ProfileDir = filepath.Join(base, "profile")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Player.MPVSocket = ""
	cfg.Dandanplay.BaseURL = "http://127.0.0.1:1"
	cfg.History.Enabled = true

	logger := logging.NewNop()
	d, err := daemon.New(&cfg, daemon.Options{Logger: logger, ConfigPath: filepath.Join(base, "missing.toml")})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	socket := cfg.DaemonSocketPath()
	srv, err := ipc.NewServer(ctx, socket, d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(func() {
		srv.Close()
	})

	time.Sleep(50 * time.Millisecond)

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if !status.Running || status.State != "idle" || status.ProfileDir != cfg.Paths.ProfileDir {
		t.Fatalf("unexpected status %+v", status)
	}
	if len(status.Checks) == 0 {
		t.Fatal("expected preflight checks in status")
	}

	play, err := client.Play("", 0)
	if err != nil {
		t.Fatalf("Play RPC failed: %v", err)
	}
	if play.Accepted {
		t.Fatal("expected empty path to be rejected")
	}

	stop, err := client.Stop()
	if err != nil || !stop.Stopped {
		t.Fatalf("Stop RPC: %+v err=%v", stop, err)
	}

	reload, err := client.Reload()
	if err != nil {
		t.Fatalf("Reload RPC failed: %v", err)
	}
	if !reload.Reloaded {
		t.Fatalf("expected reload with defaults, got %q", reload.Message)
	}

	history, err := client.History(5, "")
	if err != nil {
		t.Fatalf("History RPC failed: %v", err)
	}
	if len(history.Entries) != 0 {
		t.Fatalf("expected empty history, got %d", len(history.Entries))
	}
}
