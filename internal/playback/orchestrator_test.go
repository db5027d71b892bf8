package playback

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"danmaku/internal/config"
	"danmaku/internal/dandanplay"
	"danmaku/internal/fingerprint"
	"danmaku/internal/history"
	"danmaku/internal/notifications"
	"danmaku/internal/overlay"
	"danmaku/internal/player"
	"danmaku/internal/services"
)

type fakeHost struct {
	mu         sync.Mutex
	playing    bool
	deliveries []string
	deliverErr error
}

func (h *fakeHost) DeliverSubtitle(_ context.Context, path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.deliverErr != nil {
		return h.deliverErr
	}
	h.deliveries = append(h.deliveries, path)
	return nil
}

func (h *fakeHost) Notify(context.Context, notifications.Notice) error { return nil }

func (h *fakeHost) IsPlayingVideo(context.Context) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.playing
}

func (h *fakeHost) delivered() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.deliveries...)
}

type fakeMatcher struct {
	mu       sync.Mutex
	block    map[string]chan struct{}
	noMatch  map[string]bool
	comments []overlay.RawComment
	fetchErr error
	reloads  []config.Dandanplay
}

func (m *fakeMatcher) Match(ctx context.Context, q dandanplay.MatchQuery) (dandanplay.EpisodeMatch, bool) {
	m.mu.Lock()
	entered, blocks := m.block[q.FileName]
	noMatch := m.noMatch[q.FileName]
	m.mu.Unlock()
	if blocks {
		close(entered)
		<-ctx.Done()
		return dandanplay.EpisodeMatch{}, false
	}
	if noMatch {
		return dandanplay.EpisodeMatch{}, false
	}
	return dandanplay.EpisodeMatch{EpisodeID: 1001, AnimeTitle: "Show", EpisodeTitle: "Ep 1", Shift: 1.5}, true
}

func (m *fakeMatcher) Comments(context.Context, int64, *int64) ([]overlay.RawComment, error) {
	return m.comments, m.fetchErr
}

func (m *fakeMatcher) Reload(cfg config.Dandanplay) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reloads = append(m.reloads, cfg)
	return nil
}

type noticeLog struct {
	mu      sync.Mutex
	notices []notifications.Notice
}

func (n *noticeLog) Publish(_ context.Context, notice notifications.Notice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
	return nil
}

func (n *noticeLog) kinds() []services.Outcome {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]services.Outcome, 0, len(n.notices))
	for _, notice := range n.notices {
		out = append(out, notice.Kind)
	}
	return out
}

type memoryHistory struct {
	mu      sync.Mutex
	entries []history.Entry
}

func (h *memoryHistory) Record(_ context.Context, entry history.Entry) (history.Entry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	entry.ID = int64(len(h.entries) + 1)
	h.entries = append(h.entries, entry)
	return entry, nil
}

func (h *memoryHistory) outcomes() []services.Outcome {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]services.Outcome, 0, len(h.entries))
	for _, entry := range h.entries {
		out = append(out, entry.Outcome)
	}
	return out
}

type harness struct {
	orch    *Orchestrator
	host    *fakeHost
	matcher *fakeMatcher
	notices *noticeLog
	history *memoryHistory
	profile string
}

func newHarness(t *testing.T, mutate func(*config.Config)) *harness {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.ProfileDir = t.TempDir()
	cfg.Service.Enabled = true
	if mutate != nil {
		mutate(&cfg)
	}
	h := &harness{
		host:    &fakeHost{playing: true},
		matcher: &fakeMatcher{block: map[string]chan struct{}{}, noMatch: map[string]bool{}},
		notices: &noticeLog{},
		history: &memoryHistory{},
		profile: cfg.Paths.ProfileDir,
	}
	h.matcher.comments = []overlay.RawComment{
		{P: "6.0,1,16777215,1700000000", M: "hello"},
		{P: "8.0,5,16711680,1700000000", M: "top"},
	}
	orch, err := New(Deps{
		Config:  config.NewHolder(&cfg),
		Source:  player.NewChannel(1),
		Host:    h.host,
		Matcher: h.matcher,
		Notices: h.notices,
		History: h.history,
		Fingerprint: func(_ context.Context, location string) (fingerprint.Identity, error) {
			return fingerprint.Identity{Name: filepath.Base(location)}, nil
		},
		Reload: func() (*config.Config, error) {
			next := cfg
			next.Dandanplay.AppID = "reloaded"
			next.Service.Enabled = false
			return &next, nil
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.orch = orch
	return h
}

func (h *harness) start(path string) {
	h.orch.Handle(context.Background(), player.Event{Kind: player.VideoStarted, Path: path, Duration: 1440})
}

func TestNewRequiresDeps(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Fatal("expected error for missing deps")
	}
}

func TestSuccessfulRunDeliversOnce(t *testing.T) {
	h := newHarness(t, nil)
	h.start("/media/Show.S01E01.mkv")
	h.orch.wg.Wait()

	want := filepath.Join(h.profile, overlay.ArtifactName("/media/Show.S01E01.mkv"))
	got := h.host.delivered()
	if len(got) != 1 || got[0] != want {
		t.Fatalf("expected one delivery of %s, got %v", want, got)
	}
	if kinds := h.notices.kinds(); len(kinds) != 1 || kinds[0] != services.OutcomeSucceeded {
		t.Fatalf("expected one success notice, got %v", kinds)
	}
	status := h.orch.Status()
	if status.State != StateIdle || status.Last == nil || status.Last.Comments != 2 || status.Last.Episode != "Show - Ep 1" {
		t.Fatalf("unexpected status %+v", status)
	}
	if outcomes := h.history.outcomes(); len(outcomes) != 1 || outcomes[0] != services.OutcomeSucceeded {
		t.Fatalf("unexpected history %v", outcomes)
	}
	if status.Last.EpisodeID != 1001 {
		t.Fatalf("expected episode id 1001 in result, got %d", status.Last.EpisodeID)
	}
	h.history.mu.Lock()
	recorded := h.history.entries[0].EpisodeID
	h.history.mu.Unlock()
	if recorded != 1001 {
		t.Fatalf("expected episode id 1001 in history, got %d", recorded)
	}
}

func TestNoMatchNotifiesOnce(t *testing.T) {
	h := newHarness(t, nil)
	h.matcher.noMatch["Unknown.mkv"] = true
	h.start("/media/Unknown.mkv")
	h.orch.wg.Wait()

	if len(h.host.delivered()) != 0 {
		t.Fatal("no-match run must not deliver")
	}
	if kinds := h.notices.kinds(); len(kinds) != 1 || kinds[0] != services.OutcomeNoMatch {
		t.Fatalf("expected one no_match notice, got %v", kinds)
	}
}

func TestCommentFetchFailureNotifiesFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.matcher.fetchErr = services.Wrap(services.ErrTransport, "dandanplay", "comments", "request failed", errors.New("boom"))
	h.start("/media/Show.S01E01.mkv")
	h.orch.wg.Wait()

	if kinds := h.notices.kinds(); len(kinds) != 1 || kinds[0] != services.OutcomeFailed {
		t.Fatalf("expected one failed notice, got %v", kinds)
	}
}

func TestDisabledServiceNotifiesWithoutRun(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) { cfg.Service.Enabled = false })
	h.start("/media/Show.S01E01.mkv")
	h.orch.wg.Wait()

	if len(h.host.delivered()) != 0 {
		t.Fatal("disabled service must not deliver")
	}
	if kinds := h.notices.kinds(); len(kinds) != 1 || kinds[0] != services.OutcomeDisabled {
		t.Fatalf("expected one disabled notice, got %v", kinds)
	}
	if h.orch.Status().State != StateIdle {
		t.Fatal("disabled service must not start a run")
	}
}

type gatedPublisher struct {
	entered chan struct{}
	release chan struct{}
}

func (p *gatedPublisher) Publish(context.Context, notifications.Notice) error {
	close(p.entered)
	<-p.release
	return nil
}

func TestDisabledOutcomeDoesNotBlockControlLoop(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) { cfg.Service.Enabled = false })
	gate := &gatedPublisher{entered: make(chan struct{}), release: make(chan struct{})}
	h.orch.notices = gate

	handled := make(chan struct{})
	go func() {
		h.start("/media/Show.S01E01.mkv")
		close(handled)
	}()
	select {
	case <-handled:
	case <-time.After(time.Second):
		close(gate.release)
		t.Fatal("VideoStarted while disabled blocked on notice delivery")
	}

	select {
	case <-gate.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("disabled notice was never published")
	}
	close(gate.release)
	h.orch.wg.Wait()

	if outcomes := h.history.outcomes(); len(outcomes) != 1 || outcomes[0] != services.OutcomeDisabled {
		t.Fatalf("expected one disabled history entry, got %v", outcomes)
	}
}

func TestSecondVideoCancelsFirst(t *testing.T) {
	h := newHarness(t, nil)
	entered := make(chan struct{})
	h.matcher.block["First.mkv"] = entered

	h.start("/media/First.mkv")
	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first run never reached match")
	}
	if status := h.orch.Status(); status.State != StateRunning || status.Video != "/media/First.mkv" || status.Stage != stageMatch {
		t.Fatalf("unexpected running status %+v", status)
	}

	h.start("/media/Second.mkv")
	h.orch.wg.Wait()

	want := filepath.Join(h.profile, overlay.ArtifactName("/media/Second.mkv"))
	got := h.host.delivered()
	if len(got) != 1 || got[0] != want {
		t.Fatalf("expected only the second video delivered, got %v", got)
	}
	if kinds := h.notices.kinds(); len(kinds) != 1 || kinds[0] != services.OutcomeSucceeded {
		t.Fatalf("cancellation must be silent, got notices %v", kinds)
	}
	outcomes := h.history.outcomes()
	if len(outcomes) != 2 || outcomes[0] != services.OutcomeCancelled || outcomes[1] != services.OutcomeSucceeded {
		t.Fatalf("unexpected history %v", outcomes)
	}
}

func TestStopCancelsRun(t *testing.T) {
	h := newHarness(t, nil)
	entered := make(chan struct{})
	h.matcher.block["Show.mkv"] = entered
	h.start("/media/Show.mkv")
	<-entered

	h.orch.Handle(context.Background(), player.Event{Kind: player.PlaybackStopped})
	h.orch.wg.Wait()

	if len(h.host.delivered()) != 0 || len(h.notices.kinds()) != 0 {
		t.Fatal("stopped run must neither deliver nor notify")
	}
}

func TestNotPlayingAtDeliverySkipsSilently(t *testing.T) {
	h := newHarness(t, nil)
	h.host.playing = false
	h.start("/media/Show.mkv")
	h.orch.wg.Wait()

	if len(h.host.delivered()) != 0 || len(h.notices.kinds()) != 0 {
		t.Fatal("expected silent skip when player is idle")
	}
}

func TestSettingsChangedReloadsConfig(t *testing.T) {
	h := newHarness(t, nil)
	h.orch.Handle(context.Background(), player.Event{Kind: player.SettingsChanged})

	if len(h.matcher.reloads) != 1 || h.matcher.reloads[0].AppID != "reloaded" {
		t.Fatalf("expected client reload, got %+v", h.matcher.reloads)
	}
	if h.orch.Status().Enabled {
		t.Fatal("expected reloaded snapshot to disable the service")
	}
}

func TestRunStopsWhenSourceCloses(t *testing.T) {
	h := newHarness(t, nil)
	source := h.orch.source.(*player.Channel)
	if err := source.Publish(context.Background(), player.Event{Kind: player.VideoStarted, Path: "/media/Show.mkv"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	source.Close()

	done := make(chan error, 1)
	go func() { done <- h.orch.Run(context.Background()) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after source closed")
	}
}
