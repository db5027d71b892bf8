package overlay

import "danmaku/internal/config"

const (
	playResX       = 1920
	playResY       = 1080
	margin         = 20
	scrollLeadIn   = 50
	staticDuration = 4.0
	minScroll      = 4.0
)

// Layout sizes the rendered document.
type Layout struct {
	FontName       string
	FontSize       int
	ScrollDuration float64
	MaxComments    int
	ScrollLanes    int
	TopLanes       int
	BottomLanes    int
}

// DefaultLayout returns the stock 1920x1080 sizing.
func DefaultLayout() Layout {
	return Layout{
		FontName:       "Arial",
		FontSize:       48,
		ScrollDuration: 6,
		MaxComments:    3000,
		ScrollLanes:    12,
		TopLanes:       5,
		BottomLanes:    5,
	}
}

// LayoutFromConfig builds a Layout from the overlay configuration section.
func LayoutFromConfig(cfg config.Overlay) Layout {
	layout := DefaultLayout()
	if cfg.FontName != "" {
		layout.FontName = cfg.FontName
	}
	if cfg.FontSize > 0 {
		layout.FontSize = cfg.FontSize
	}
	layout.ScrollDuration = float64(cfg.ScrollDuration)
	layout.MaxComments = cfg.MaxComments
	if cfg.ScrollLanes > 0 {
		layout.ScrollLanes = cfg.ScrollLanes
	}
	if cfg.TopLanes > 0 {
		layout.TopLanes = cfg.TopLanes
	}
	if cfg.BottomLanes > 0 {
		layout.BottomLanes = cfg.BottomLanes
	}
	return layout.normalized()
}

func (l Layout) normalized() Layout {
	if l.ScrollDuration < minScroll {
		l.ScrollDuration = minScroll
	}
	if l.FontSize <= 0 {
		l.FontSize = 48
	}
	if l.FontName == "" {
		l.FontName = "Arial"
	}
	if l.MaxComments < 0 {
		l.MaxComments = 0
	}
	return l
}

// lineHeight is 1.2 font sizes, truncated to whole pixels.
func (l Layout) lineHeight() int {
	return l.FontSize * 12 / 10
}
