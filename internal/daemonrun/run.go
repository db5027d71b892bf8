// Package daemonrun hosts the danmakud process lifecycle: logger, daemon,
// IPC server and signal handling.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"danmaku/internal/config"
	"danmaku/internal/daemon"
	"danmaku/internal/ipc"
	"danmaku/internal/logging"
)

// Options configures daemon process runtime behavior.
type Options struct {
	ConfigPath  string
	SocketPath  string
	LogLevel    string
	Development bool
}

// Run starts danmakud and blocks until the context is cancelled or the
// process receives SIGINT/SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	level := cfg.Logging.Level
	if strings.TrimSpace(opts.LogLevel) != "" {
		level = opts.LogLevel
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout"},
		FilePath:    cfg.DaemonLogPath(),
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logConfigSnapshot(logger, cfg)
	pidPath := filepath.Join(cfg.Paths.ProfileDir, "danmakud.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	d, err := daemon.New(cfg, daemon.Options{ConfigPath: opts.ConfigPath, Logger: logger})
	if err != nil {
		logging.ErrorWithContext(logger, "daemon setup failed", "daemon_init_failed", logging.Error(err))
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String("lock", cfg.DaemonLockPath()),
			logging.String(logging.FieldErrorHint, "stop the other danmakud instance or remove a stale lock"),
		)
		return fmt.Errorf("start daemon: %w", err)
	}

	socketPath := strings.TrimSpace(opts.SocketPath)
	if socketPath == "" {
		socketPath = cfg.DaemonSocketPath()
	}
	ipcServer, err := ipc.NewServer(signalCtx, socketPath, d, logger)
	if err != nil {
		logging.ErrorWithContext(logger, "IPC server failed to listen", "ipc_listen_failed",
			logging.Error(err),
			logging.String("socket", socketPath),
			logging.String(logging.FieldErrorHint, "check the socket directory permissions"),
		)
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	<-signalCtx.Done()
	logger.Info("danmakud shutting down")
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	logger.Info("configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.Bool("enabled", cfg.Service.Enabled),
		logging.Bool("show_notifications", cfg.Service.ShowNotifications),
		logging.String("base_url", cfg.Dandanplay.BaseURL),
		logging.Bool("credentials_present", cfg.HasCredentials()),
		logging.Bool("with_related", cfg.Dandanplay.WithRelated),
		logging.Int("scroll_duration", cfg.Overlay.ScrollDuration),
		logging.Int("max_comments", cfg.Overlay.MaxComments),
		logging.String("mpv_socket", cfg.Player.MPVSocket),
		logging.Bool("ntfy_configured", cfg.Notifications.NtfyTopic != ""),
		logging.String("profile_dir", cfg.Paths.ProfileDir),
	)
}
