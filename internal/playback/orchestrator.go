package playback

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"danmaku/internal/config"
	"danmaku/internal/dandanplay"
	"danmaku/internal/fingerprint"
	"danmaku/internal/history"
	"danmaku/internal/logging"
	"danmaku/internal/notifications"
	"danmaku/internal/overlay"
	"danmaku/internal/player"
	"danmaku/internal/services"
)

// JoinTimeout bounds how long a cancelled run may take to stop.
const JoinTimeout = 2 * time.Second

const recordTimeout = 5 * time.Second

// Matcher is the remote side of the pipeline. *dandanplay.Client satisfies it.
type Matcher interface {
	Match(ctx context.Context, q dandanplay.MatchQuery) (dandanplay.EpisodeMatch, bool)
	Comments(ctx context.Context, episodeID int64, since *int64) ([]overlay.RawComment, error)
	Reload(cfg config.Dandanplay) error
}

// Publisher announces run outcomes. *notifications.Dispatcher satisfies it.
type Publisher interface {
	Publish(ctx context.Context, notice notifications.Notice) error
}

// Recorder persists run outcomes. *history.Store satisfies it.
type Recorder interface {
	Record(ctx context.Context, entry history.Entry) (history.Entry, error)
}

// FingerprintFunc identifies a media location.
type FingerprintFunc func(ctx context.Context, location string) (fingerprint.Identity, error)

// ReloadFunc loads a fresh configuration for SettingsChanged.
type ReloadFunc func() (*config.Config, error)

// Deps wires an Orchestrator.
type Deps struct {
	Config      *config.Holder
	Source      player.EventSource
	Host        player.Host
	Matcher     Matcher
	Notices     Publisher
	History     Recorder
	Reload      ReloadFunc
	Fingerprint FingerprintFunc
	Logger      *slog.Logger
	Now         func() time.Time
}

// State is the orchestrator's coarse state.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
)

// Status describes the orchestrator for the control socket.
type Status struct {
	State   State
	Video   string
	RunID   string
	Stage   string
	Since   time.Time
	Enabled bool
	Last    *Result
}

// Result summarises a finished run.
type Result struct {
	RunID     string
	Video     string
	Outcome   services.Outcome
	EpisodeID int64
	Episode   string
	Comments  int
	Artifact  string
	Err       error
}

type run struct {
	id      string
	video   string
	started time.Time
	cancel  context.CancelFunc
	done    chan struct{}

	mu    sync.Mutex
	stage string
}

func (r *run) setStage(stage string) {
	r.mu.Lock()
	r.stage = stage
	r.mu.Unlock()
}

func (r *run) currentStage() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stage
}

// Orchestrator owns the playback control loop.
type Orchestrator struct {
	cfg         *config.Holder
	source      player.EventSource
	host        player.Host
	matcher     Matcher
	notices     Publisher
	history     Recorder
	reload      ReloadFunc
	fingerprint FingerprintFunc
	logger      *slog.Logger
	now         func() time.Time

	mu      sync.Mutex
	current *run
	last    *Result
	wg      sync.WaitGroup
}

// New validates deps and returns an Orchestrator.
func New(deps Deps) (*Orchestrator, error) {
	switch {
	case deps.Config == nil:
		return nil, errors.New("playback: config holder is required")
	case deps.Source == nil:
		return nil, errors.New("playback: event source is required")
	case deps.Host == nil:
		return nil, errors.New("playback: player host is required")
	case deps.Matcher == nil:
		return nil, errors.New("playback: matcher is required")
	}
	o := &Orchestrator{
		cfg:         deps.Config,
		source:      deps.Source,
		host:        deps.Host,
		matcher:     deps.Matcher,
		notices:     deps.Notices,
		history:     deps.History,
		reload:      deps.Reload,
		fingerprint: deps.Fingerprint,
		logger:      logging.NewComponentLogger(deps.Logger, "playback"),
		now:         deps.Now,
	}
	if o.fingerprint == nil {
		o.fingerprint = fingerprint.Compute
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o, nil
}

// Run consumes events until ctx is done or the source closes. The current
// run is cancelled and joined before Run returns.
func (o *Orchestrator) Run(ctx context.Context) error {
	events := o.source.Events()
	defer func() {
		o.cancelCurrent()
		o.wg.Wait()
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			o.Handle(ctx, event)
		}
	}
}

// Handle applies one lifecycle event. It is called from the control loop and
// must not be called concurrently with itself.
func (o *Orchestrator) Handle(ctx context.Context, event player.Event) {
	switch event.Kind {
	case player.VideoStarted:
		o.videoStarted(ctx, event)
	case player.PlaybackStopped, player.PlaybackEnded:
		o.logger.Debug("playback finished", logging.String(logging.FieldEventType, string(event.Kind)))
		o.cancelCurrent()
	case player.SettingsChanged:
		o.settingsChanged()
	default:
		o.logger.Debug("ignoring unknown player event", logging.String(logging.FieldEventType, string(event.Kind)))
	}
}

// Status reports what the orchestrator is doing.
func (o *Orchestrator) Status() Status {
	cfg := o.cfg.Snapshot()
	o.mu.Lock()
	defer o.mu.Unlock()
	status := Status{State: StateIdle, Enabled: cfg.Service.Enabled}
	if o.last != nil {
		last := *o.last
		status.Last = &last
	}
	if r := o.current; r != nil {
		status.State = StateRunning
		status.Video = r.video
		status.RunID = r.id
		status.Stage = r.currentStage()
		status.Since = r.started
	}
	return status
}

func (o *Orchestrator) videoStarted(ctx context.Context, event player.Event) {
	cfg := o.cfg.Snapshot()
	if !cfg.Service.Enabled {
		runID := uuid.NewString()
		logger := o.logger.With(logging.String(logging.FieldRunID, runID), logging.String(logging.FieldVideo, event.Path))
		logger.Info("danmaku service disabled via settings")
		now := o.now()
		// Notice delivery and history writes stay off the control loop.
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			o.finish(services.WithRunID(ctx, runID), logger, Result{
				RunID:   runID,
				Video:   event.Path,
				Outcome: services.OutcomeDisabled,
			}, now)
		}()
		return
	}

	o.cancelCurrent()

	runID := uuid.NewString()
	runCtx, cancel := context.WithCancel(ctx)
	runCtx = services.WithRunID(runCtx, runID)
	runCtx = services.WithVideo(runCtx, event.Path)
	r := &run{
		id:      runID,
		video:   event.Path,
		started: o.now(),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	o.mu.Lock()
	o.current = r
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer close(r.done)
		defer cancel()
		o.execute(runCtx, r, event, cfg)
	}()
}

// cancelCurrent cancels the active run and waits for it to stop.
func (o *Orchestrator) cancelCurrent() {
	o.mu.Lock()
	r := o.current
	o.current = nil
	o.mu.Unlock()
	if r == nil {
		return
	}
	r.cancel()
	timer := time.NewTimer(JoinTimeout)
	defer timer.Stop()
	select {
	case <-r.done:
	case <-timer.C:
		logging.WarnWithContext(o.logger, "previous run did not stop in time", "cancel_timeout",
			logging.String(logging.FieldRunID, r.id),
			logging.String(logging.FieldVideo, r.video),
			logging.Duration("waited", JoinTimeout),
			logging.String(logging.FieldImpact, "its result will be discarded"),
		)
	}
}

func (o *Orchestrator) settingsChanged() {
	if o.reload == nil {
		o.logger.Debug("settings changed but no reload source configured")
		return
	}
	cfg, err := o.reload()
	if err != nil {
		logging.WarnWithContext(o.logger, "settings reload failed", "settings_reload_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the config file for errors"),
			logging.String(logging.FieldImpact, "previous settings remain active"),
		)
		return
	}
	o.cfg.Store(cfg)
	if err := o.matcher.Reload(cfg.Dandanplay); err != nil {
		logging.WarnWithContext(o.logger, "dandanplay client reload failed", "settings_reload_failed", logging.Error(err))
		return
	}
	o.logger.Info("settings reloaded",
		logging.Bool("enabled", cfg.Service.Enabled),
		logging.Bool("credentials", cfg.HasCredentials()),
	)
}

func (o *Orchestrator) execute(ctx context.Context, r *run, event player.Event, cfg config.Config) {
	logger := logging.WithContext(ctx, o.logger)
	logger.Info("loading danmaku", logging.Int("duration", event.Duration))

	result, err := o.pipeline(ctx, r, event, cfg)
	result.RunID = r.id
	result.Video = event.Path
	result.Err = err
	result.Outcome = services.OutcomeFor(err)
	if ctx.Err() != nil {
		result.Outcome = services.OutcomeCancelled
	}

	o.mu.Lock()
	if o.current == r {
		o.current = nil
	}
	o.mu.Unlock()

	o.finish(ctx, logger, result, r.started)
}

// finish logs, announces and records one outcome.
func (o *Orchestrator) finish(ctx context.Context, logger *slog.Logger, result Result, started time.Time) {
	switch result.Outcome {
	case services.OutcomeSucceeded:
		logger.Info("danmaku loaded",
			logging.EpisodeID(result.EpisodeID),
			logging.String("episode", result.Episode),
			logging.Int("comments", result.Comments),
			logging.String("artifact", result.Artifact),
		)
	case services.OutcomeCancelled:
		logger.Info("danmaku run cancelled", logging.Error(result.Err))
	case services.OutcomeNoMatch:
		logger.Info("no matching danmaku found", logging.Error(result.Err))
	case services.OutcomeFailed:
		logging.WarnWithContext(logger, "danmaku run failed", "run_failed",
			logging.Error(result.Err),
			logging.String(logging.FieldImpact, "no danmaku for this video"),
		)
	}

	if notice, ok := notifications.NoticeFor(result.Outcome, result.Video, result.Episode, result.Comments); ok && o.notices != nil {
		if err := o.notices.Publish(ctx, notice); err != nil {
			logger.Debug("notice not delivered", logging.Error(err))
		}
	}

	logger.Debug("run finished", logging.Outcome(string(result.Outcome)))

	o.mu.Lock()
	last := result
	o.last = &last
	o.mu.Unlock()

	if o.history == nil {
		return
	}
	entry := history.Entry{
		RunID:      result.RunID,
		Video:      result.Video,
		Outcome:    result.Outcome,
		EpisodeID:  result.EpisodeID,
		Episode:    result.Episode,
		Comments:   result.Comments,
		Artifact:   result.Artifact,
		StartedAt:  started,
		FinishedAt: o.now(),
	}
	if result.Err != nil {
		entry.Error = result.Err.Error()
	}
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if _, err := o.history.Record(recordCtx, entry); err != nil {
		logging.WarnWithContext(logger, "history record failed", "history_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run missing from danmaku history"),
		)
	}
}
