package player

import (
	"context"
	"errors"

	"danmaku/internal/notifications"
)

// EventKind identifies a playback lifecycle event.
type EventKind string

const (
	VideoStarted    EventKind = "video_started"
	PlaybackStopped EventKind = "playback_stopped"
	PlaybackEnded   EventKind = "playback_ended"
	SettingsChanged EventKind = "settings_changed"
)

// Event is one playback lifecycle notification. Path and Duration are only
// set for VideoStarted; Duration is whole seconds and zero when unknown.
type Event struct {
	Kind     EventKind
	Path     string
	Duration int
}

// EventSource yields playback events until it is closed.
type EventSource interface {
	Events() <-chan Event
}

// Host is the subset of the player the orchestrator drives.
type Host interface {
	DeliverSubtitle(ctx context.Context, path string) error
	Notify(ctx context.Context, notice notifications.Notice) error
	IsPlayingVideo(ctx context.Context) bool
}

// ErrClosed is returned when publishing to a closed Channel.
var ErrClosed = errors.New("event channel closed")
