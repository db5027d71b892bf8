package player

import (
	"context"
	"log/slog"

	"danmaku/internal/logging"
	"danmaku/internal/notifications"
)

// Headless is a Host for setups without mpv IPC. It always reports video
// playback and only logs delivered subtitles, leaving the player to pick the
// artifact up from the profile directory.
type Headless struct {
	logger *slog.Logger
}

// NewHeadless returns a logging Host.
func NewHeadless(logger *slog.Logger) *Headless {
	return &Headless{logger: logging.NewComponentLogger(logger, "player")}
}

func (h *Headless) DeliverSubtitle(_ context.Context, path string) error {
	h.logger.Info("subtitle ready", logging.String("artifact", path))
	return nil
}

func (h *Headless) Notify(_ context.Context, notice notifications.Notice) error {
	h.logger.Info(notice.Heading(), logging.String("message", notice.Message))
	return nil
}

func (h *Headless) IsPlayingVideo(context.Context) bool { return true }
