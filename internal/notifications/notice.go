package notifications

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"danmaku/internal/services"
)

// Notice is a single user-visible message about one playback run.
type Notice struct {
	Kind    services.Outcome
	Title   string
	Message string
	Video   string
}

// Heading returns the notice title, or "Danmaku - <Kind>" with the kind
// title-cased for notices built without one.
func (n Notice) Heading() string {
	if n.Title != "" {
		return n.Title
	}
	// A Caser holds state and must not be shared across goroutines.
	label := cases.Title(language.English).String(strings.ReplaceAll(string(n.Kind), "_", " "))
	return "Danmaku - " + label
}

// NoticeFor builds the notice for an outcome. It returns false for outcomes
// that stay silent.
func NoticeFor(outcome services.Outcome, video, episode string, count int) (Notice, bool) {
	notice := Notice{Kind: outcome, Video: video}
	switch outcome {
	case services.OutcomeSucceeded:
		notice.Title = "Danmaku loaded"
		if episode != "" {
			notice.Message = fmt.Sprintf("%d comments for %s", count, episode)
		} else {
			notice.Message = fmt.Sprintf("%d comments loaded", count)
		}
	case services.OutcomeNoMatch:
		notice.Title = "Danmaku unavailable"
		notice.Message = "No matching danmaku found"
	case services.OutcomeFailed:
		notice.Title = "Danmaku unavailable"
		notice.Message = "Could not load danmaku"
	case services.OutcomeDisabled:
		notice.Title = "Danmaku disabled"
		notice.Message = "Automatic danmaku loading is turned off"
	default:
		return Notice{}, false
	}
	return notice, true
}

func (n Notice) tags() []string {
	tags := []string{"danmaku", string(n.Kind)}
	switch n.Kind {
	case services.OutcomeSucceeded:
		tags = append(tags, "white_check_mark")
	case services.OutcomeNoMatch, services.OutcomeFailed:
		tags = append(tags, "warning")
	}
	return tags
}

func (n Notice) priority() string {
	if n.Kind == services.OutcomeFailed {
		return "high"
	}
	return ""
}
