package overlay

import (
	"fmt"
	"math"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Compositor renders comments with a fixed Layout.
type Compositor struct {
	layout Layout
}

// NewCompositor returns a Compositor for layout.
func NewCompositor(layout Layout) *Compositor {
	return &Compositor{layout: layout.normalized()}
}

// Layout returns the effective sizing.
func (c *Compositor) Layout() Layout {
	return c.layout
}

type lanes struct {
	scroll *Tracks
	top    *Tracks
	bottom *Tracks
}

// Build renders raws in input order, applying shift seconds to every timestamp.
// Malformed records are skipped and do not count toward MaxComments.
func (c *Compositor) Build(raws []RawComment, shift float64) Document {
	l := c.layout
	pools := lanes{
		scroll: NewTracks(l.ScrollLanes),
		top:    NewTracks(l.TopLanes),
		bottom: NewTracks(l.BottomLanes),
	}
	doc := Document{Header: Header(l)}
	for _, raw := range raws {
		if l.MaxComments > 0 && len(doc.Lines) >= l.MaxComments {
			break
		}
		comment, err := ParseComment(raw)
		if err != nil {
			continue
		}
		start := comment.Time + shift
		if start < 0 {
			start = 0
		}
		doc.Lines = append(doc.Lines, c.dialogue(pools, comment, start))
	}
	return doc
}

func (c *Compositor) dialogue(pools lanes, comment Comment, start float64) string {
	l := c.layout
	color := assColor(comment.Color)
	lh := l.lineHeight()

	var duration float64
	var overrides string
	switch comment.Mode {
	case ModeTop:
		duration = staticDuration
		row := pools.top.Acquire(start, duration)
		y := margin + row*lh
		overrides = fmt.Sprintf(`{\an8\pos(%d,%d)\c%s}`, playResX/2, y, color)
	case ModeBottom:
		duration = staticDuration
		row := pools.bottom.Acquire(start, duration)
		y := playResY - margin - row*lh
		overrides = fmt.Sprintf(`{\an2\pos(%d,%d)\c%s}`, playResX/2, y, color)
	default:
		duration = l.ScrollDuration
		row := pools.scroll.Acquire(start, duration)
		y := margin + row*lh
		startX := playResX + scrollLeadIn
		endX := -textWidth(comment.Text, l.FontSize) - scrollLeadIn
		overrides = fmt.Sprintf(`{\move(%d,%d,%.0f,%d)\c%s}`, startX, y, endX, y, color)
	}
	return fmt.Sprintf("Dialogue: 0,%s,%s,Danmaku,,0,0,0,,%s%s",
		FormatTime(start), FormatTime(start+duration), overrides, escapeText(comment.Text))
}

// textWidth estimates rendered pixels: half a font size per terminal cell, so
// wide CJK glyphs count as a full em.
func textWidth(text string, fontSize int) float64 {
	cells := runewidth.StringWidth(text)
	if cells < 1 {
		cells = 1
	}
	return float64(cells) * float64(fontSize) * 0.5
}

// FormatTime renders seconds as H:MM:SS.CC. Negative values render as zero
// and values past twice MaxCommentTime are clamped there.
func FormatTime(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	if seconds > 2*MaxCommentTime {
		seconds = 2 * MaxCommentTime
	}
	centis := int64(math.Round(seconds * 100))
	hours := centis / 360000
	minutes := centis / 6000 % 60
	secs := centis / 100 % 60
	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, minutes, secs, centis%100)
}

func assColor(rgb uint32) string {
	r := (rgb >> 16) & 0xFF
	g := (rgb >> 8) & 0xFF
	b := rgb & 0xFF
	return fmt.Sprintf("&H00%02X%02X%02X&", b, g, r)
}

var textEscaper = strings.NewReplacer(
	`\`, `\\`,
	`{`, `\{`,
	`}`, `\}`,
	"\r", " ",
	"\n", `\N`,
)

func escapeText(text string) string {
	return textEscaper.Replace(text)
}
