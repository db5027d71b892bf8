package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"danmaku/internal/config"
	"danmaku/internal/daemon"
	"danmaku/internal/ipc"
	"danmaku/internal/logging"
)

type cliTestEnv struct {
	cfg        *config.Config
	daemon     *daemon.Daemon
	socketPath string
	configPath string
}

// writeTestConfig writes a minimal config pointing at baseURL with all state
// under base.
func writeTestConfig(t *testing.T, base, baseURL string) string {
	t.Helper()
	path := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[service]
enabled = true
show_notifications = false

[dandanplay]
base_url = %q
app_id = "app"
app_secret = "secret"
requests_per_second = 100

[paths]
profile_dir = %q
log_dir = %q

[player]
mpv_socket = ""

[history]
enabled = true
`, baseURL, filepath.Join(base, "profile"), filepath.Join(base, "logs"))
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func setupCLITestEnv(t *testing.T, baseURL string) *cliTestEnv {
	t.Helper()
	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	configPath := writeTestConfig(t, base, baseURL)

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	logger := logging.NewNop()
	d, err := daemon.New(cfg, daemon.Options{Logger: logger, ConfigPath: configPath})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	socket := cfg.DaemonSocketPath()
	srv, err := ipc.NewServer(ctx, socket, d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping CLI test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)
	time.Sleep(50 * time.Millisecond)

	return &cliTestEnv{cfg: cfg, daemon: d, socketPath: socket, configPath: configPath}
}

func runCLI(t *testing.T, args []string, socketPath, configPath string) (string, string, error) {
	t.Helper()
	full := make([]string, 0, len(args)+4)
	if socketPath != "" {
		full = append(full, "--socket", socketPath)
	}
	if configPath != "" {
		full = append(full, "--config", configPath)
	}
	full = append(full, args...)

	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(full)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected %q to contain %q", haystack, needle)
	}
}
