package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/dexterlb/mpvipc"

	"danmaku/internal/logging"
	"danmaku/internal/notifications"
	"danmaku/internal/services"
)

const (
	reconnectInterval = 2 * time.Second
	osdDuration       = 4000
)

var errNotConnected = errors.New("mpv not connected")

// propertyGetter reads an mpv property. mpvipc.Connection satisfies it.
type propertyGetter interface {
	Get(property string) (interface{}, error)
}

// MPV drives an mpv instance over its IPC socket. It forwards translated
// lifecycle events into a Channel and implements Host.
type MPV struct {
	socket string
	sink   *Channel
	logger *slog.Logger

	mu   sync.RWMutex
	conn *mpvipc.Connection
}

// NewMPV returns an adapter for the mpv socket at path. Events are published
// to sink.
func NewMPV(path string, sink *Channel, logger *slog.Logger) *MPV {
	return &MPV{
		socket: strings.TrimSpace(path),
		sink:   sink,
		logger: logging.NewComponentLogger(logger, "mpv"),
	}
}

// Socket returns the configured IPC socket path.
func (m *MPV) Socket() string {
	return m.socket
}

// Connected reports whether an IPC connection is open.
func (m *MPV) Connected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conn != nil && !m.conn.IsClosed()
}

// Run keeps a connection to mpv open and pumps its events until ctx is done.
// mpv restarts are tolerated by reconnecting.
func (m *MPV) Run(ctx context.Context) error {
	if m.socket == "" {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(reconnectInterval)
	defer ticker.Stop()
	warned := false
	for {
		conn := mpvipc.NewConnection(m.socket)
		if err := conn.Open(); err != nil {
			if !warned {
				m.logger.Info("waiting for mpv", logging.String("socket", m.socket), logging.Error(err))
				warned = true
			}
		} else {
			warned = false
			m.logger.Info("connected to mpv", logging.String("socket", m.socket))
			m.setConn(conn)
			m.listen(ctx, conn)
			m.setConn(nil)
			_ = conn.Close()
			m.logger.Info("mpv connection closed")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (m *MPV) setConn(conn *mpvipc.Connection) {
	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()
}

func (m *MPV) connection() (*mpvipc.Connection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.conn == nil || m.conn.IsClosed() {
		return nil, errNotConnected
	}
	return m.conn, nil
}

func (m *MPV) listen(ctx context.Context, conn *mpvipc.Connection) {
	events, stop := conn.NewEventListener()
	defer close(stop)

	closed := make(chan struct{})
	go func() {
		conn.WaitUntilClosed()
		close(closed)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-closed:
			return
		case raw, ok := <-events:
			if !ok {
				return
			}
			event, ok := translate(raw, conn)
			if !ok {
				continue
			}
			m.logger.Debug("player event",
				logging.String(logging.FieldEventType, string(event.Kind)),
				logging.String(logging.FieldVideo, event.Path),
			)
			if err := m.sink.Publish(ctx, event); err != nil {
				return
			}
		}
	}
}

// translate maps an mpv event onto a lifecycle Event.
func translate(raw *mpvipc.Event, props propertyGetter) (Event, bool) {
	if raw == nil {
		return Event{}, false
	}
	switch raw.Name {
	case "file-loaded":
		path := stringProperty(props, "path")
		if path == "" {
			return Event{}, false
		}
		return Event{Kind: VideoStarted, Path: path, Duration: durationProperty(props)}, true
	case "end-file":
		if endReason(raw.ExtraData) == "eof" {
			return Event{Kind: PlaybackEnded}, true
		}
		return Event{Kind: PlaybackStopped}, true
	default:
		return Event{}, false
	}
}

// endReason normalises the end-file reason; older mpv builds report numbers.
func endReason(data map[string]interface{}) string {
	switch r := data["reason"].(type) {
	case string:
		return r
	case float64:
		switch int(r) {
		case 0:
			return "eof"
		case 1:
			return "stop"
		case 2:
			return "quit"
		case 3:
			return "error"
		case 4:
			return "redirect"
		}
	}
	return "unknown"
}

func stringProperty(props propertyGetter, name string) string {
	value, err := props.Get(name)
	if err != nil {
		return ""
	}
	s, _ := value.(string)
	return strings.TrimSpace(s)
}

func durationProperty(props propertyGetter) int {
	value, err := props.Get("duration")
	if err != nil {
		return 0
	}
	seconds, ok := value.(float64)
	if !ok || math.IsNaN(seconds) || seconds <= 0 {
		return 0
	}
	return int(seconds)
}

// DeliverSubtitle loads the overlay file into mpv and selects it.
func (m *MPV) DeliverSubtitle(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return services.Wrap(services.ErrCancelled, "deliver", "sub-add", "delivery cancelled", err)
	}
	conn, err := m.connection()
	if err != nil {
		return services.Wrap(services.ErrTransport, "deliver", "sub-add", "player unavailable", err)
	}
	if _, err := conn.Call("sub-add", path, "select"); err != nil {
		return services.Wrap(services.ErrTransport, "deliver", "sub-add", "load subtitle", err)
	}
	return nil
}

// Notify shows notice on mpv's OSD.
func (m *MPV) Notify(ctx context.Context, notice notifications.Notice) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	conn, err := m.connection()
	if err != nil {
		return err
	}
	text := notice.Heading()
	if notice.Message != "" {
		text = fmt.Sprintf("%s: %s", text, notice.Message)
	}
	if _, err := conn.Call("show-text", text, osdDuration); err != nil {
		return fmt.Errorf("show osd text: %w", err)
	}
	return nil
}

// IsPlayingVideo reports whether mpv currently has a file with a video track.
func (m *MPV) IsPlayingVideo(context.Context) bool {
	conn, err := m.connection()
	if err != nil {
		return false
	}
	return playingVideo(conn)
}

func playingVideo(props propertyGetter) bool {
	if stringProperty(props, "path") == "" {
		return false
	}
	value, err := props.Get("vid")
	if err != nil || value == nil {
		return false
	}
	if flag, ok := value.(bool); ok {
		return flag
	}
	return true
}
