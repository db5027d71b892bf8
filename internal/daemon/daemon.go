package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"danmaku/internal/config"
	"danmaku/internal/dandanplay"
	"danmaku/internal/fingerprint"
	"danmaku/internal/history"
	"danmaku/internal/logging"
	"danmaku/internal/notifications"
	"danmaku/internal/playback"
	"danmaku/internal/player"
	"danmaku/internal/preflight"
)

const eventBuffer = 16

// Options configures a Daemon.
type Options struct {
	// ConfigPath is re-read on Reload. Empty uses the default search path.
	ConfigPath string
	Logger     *slog.Logger
	// HTTPClient overrides the dandanplay transport.
	HTTPClient dandanplay.HTTPDoer
}

// Daemon coordinates the playback services and enforces single-instance execution.
type Daemon struct {
	cfg        *config.Holder
	configPath string
	logger     *slog.Logger

	lockPath string
	lock     *flock.Flock

	events  *player.Channel
	mpv     *player.MPV
	client  *dandanplay.Client
	history *history.Store
	orch    *playback.Orchestrator

	running atomic.Bool
	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started time.Time
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	StartedAt    time.Time
	Playback     playback.Status
	MPVSocket    string
	MPVConnected bool
	LockPath     string
	HistoryPath  string
	ProfileDir   string
	Checks       []preflight.Result
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, opts Options) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	logger := logging.NewComponentLogger(opts.Logger, "daemon")

	clientOpts := []dandanplay.Option{dandanplay.WithLogger(opts.Logger)}
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, dandanplay.WithHTTPClient(opts.HTTPClient))
	}
	client, err := dandanplay.NewClient(cfg.Dandanplay, cfg.TokenPath(), clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create dandanplay client: %w", err)
	}

	holder := config.NewHolder(cfg)
	d := &Daemon{
		cfg:        holder,
		configPath: opts.ConfigPath,
		logger:     logger,
		lockPath:   cfg.DaemonLockPath(),
		lock:       flock.New(cfg.DaemonLockPath()),
		events:     player.NewChannel(eventBuffer),
		client:     client,
	}

	var host player.Host
	sinks := []notifications.Sink{notifications.NewNtfy(cfg.Notifications)}
	if strings.TrimSpace(cfg.Player.MPVSocket) != "" {
		d.mpv = player.NewMPV(cfg.Player.MPVSocket, d.events, opts.Logger)
		host = d.mpv
		sinks = append(sinks, d.mpv)
	} else {
		headless := player.NewHeadless(opts.Logger)
		host = headless
		sinks = append(sinks, headless)
	}
	dispatcher := notifications.NewDispatcher(func() bool {
		snapshot := holder.Snapshot()
		return snapshot.Service.ShowNotifications
	}, opts.Logger, sinks...)

	deps := playback.Deps{
		Config:      holder,
		Source:      d.events,
		Host:        host,
		Matcher:     client,
		Notices:     dispatcher,
		Reload:      d.loadConfig,
		Fingerprint: fingerprint.Compute,
		Logger:      opts.Logger,
	}
	if cfg.History.Enabled {
		store, err := history.Open(context.Background(), cfg.HistoryPath())
		if err != nil {
			logging.WarnWithContext(logger, "history store unavailable", "history_open_failed",
				logging.Error(err),
				logging.String("path", cfg.HistoryPath()),
				logging.String(logging.FieldImpact, "playback outcomes will not be recorded"),
			)
		} else {
			d.history = store
			deps.History = store
		}
	}

	orch, err := playback.New(deps)
	if err != nil {
		d.closeHistory()
		return nil, err
	}
	d.orch = orch
	return d, nil
}

func (d *Daemon) loadConfig() (*config.Config, error) {
	cfg, _, _, err := config.Load(d.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Start acquires the daemon lock and launches the event loops.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another danmakud instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.started = time.Now()

	d.pruneHistory(runCtx)
	cfg := d.cfg.Snapshot()
	for _, failed := range preflight.Failed(preflight.RunAll(runCtx, &cfg, false)) {
		d.logger.Warn("preflight check failed",
			logging.String("check", failed.Name),
			logging.String("detail", failed.Detail),
			logging.String(logging.FieldEventType, "preflight_failed"),
		)
	}

	if d.mpv != nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			_ = d.mpv.Run(runCtx)
		}()
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.orch.Run(runCtx); err != nil {
			logging.ErrorWithContext(d.logger, "playback loop stopped", "playback_loop_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "restart danmakud"),
			)
		}
	}()

	d.running.Store(true)
	d.logger.Info("danmakud started",
		logging.String("lock", d.lockPath),
		logging.Bool("enabled", cfg.Service.Enabled),
		logging.String("mpv_socket", cfg.Player.MPVSocket),
	)
	return nil
}

// Stop cancels the event loops and releases the daemon lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("danmakud stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	d.events.Close()
	return d.closeHistory()
}

func (d *Daemon) closeHistory() error {
	if d.history == nil {
		return nil
	}
	return d.history.Close()
}

func (d *Daemon) pruneHistory(ctx context.Context) {
	cfg := d.cfg.Snapshot()
	if d.history == nil || cfg.History.RetentionDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -cfg.History.RetentionDays)
	removed, err := d.history.Prune(ctx, cutoff)
	if err != nil {
		d.logger.Warn("history prune failed", logging.Error(err))
		return
	}
	if removed > 0 {
		d.logger.Info("pruned playback history", logging.Int64("removed", removed))
	}
}

// Play reports that path started playing. duration is whole seconds, zero
// when unknown.
func (d *Daemon) Play(ctx context.Context, path string, duration int) error {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return errors.New("video path is required")
	}
	if !fingerprint.IsRemote(trimmed) {
		abs, err := filepath.Abs(fingerprint.LocalPath(trimmed))
		if err != nil {
			return fmt.Errorf("resolve video path: %w", err)
		}
		trimmed = abs
	}
	if duration < 0 {
		duration = 0
	}
	return d.publish(ctx, player.Event{Kind: player.VideoStarted, Path: trimmed, Duration: duration})
}

// StopPlayback cancels any in-flight run.
func (d *Daemon) StopPlayback(ctx context.Context) error {
	return d.publish(ctx, player.Event{Kind: player.PlaybackStopped})
}

// Reload re-reads the configuration file.
func (d *Daemon) Reload(ctx context.Context) error {
	if _, err := d.loadConfig(); err != nil {
		return fmt.Errorf("reload config: %w", err)
	}
	return d.publish(ctx, player.Event{Kind: player.SettingsChanged})
}

func (d *Daemon) publish(ctx context.Context, event player.Event) error {
	if !d.running.Load() {
		return errors.New("daemon is not running")
	}
	return d.events.Publish(ctx, event)
}

// History returns recent playback runs, newest first.
func (d *Daemon) History(ctx context.Context, limit int, video string) ([]history.Entry, error) {
	if d.history == nil {
		return nil, errors.New("playback history is disabled")
	}
	return d.history.Recent(ctx, limit, video)
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	cfg := d.cfg.Snapshot()
	status := Status{
		Running:    d.running.Load(),
		PID:        os.Getpid(),
		Playback:   d.orch.Status(),
		MPVSocket:  cfg.Player.MPVSocket,
		LockPath:   d.lockPath,
		ProfileDir: cfg.Paths.ProfileDir,
		Checks:     preflight.RunAll(ctx, &cfg, false),
	}
	d.mu.Lock()
	status.StartedAt = d.started
	d.mu.Unlock()
	if d.history != nil {
		status.HistoryPath = d.history.Path()
	}
	if d.mpv != nil {
		status.MPVConnected = d.mpv.Connected()
	}
	return status
}
