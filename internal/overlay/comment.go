package overlay

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"danmaku/internal/services"
)

// MaxCommentTime is the latest accepted comment time in seconds (100 hours).
const MaxCommentTime = 100 * 3600

// Mode is the motion of a comment on screen.
type Mode int

const (
	ModeScroll Mode = 1
	ModeBottom Mode = 4
	ModeTop    Mode = 5
)

// String returns the mode name used in logs.
func (m Mode) String() string {
	switch m {
	case ModeBottom:
		return "bottom"
	case ModeTop:
		return "top"
	default:
		return "scroll"
	}
}

// modeFor maps a wire mode code to a Mode; unknown codes scroll.
func modeFor(code int64) Mode {
	switch Mode(code) {
	case ModeBottom, ModeTop:
		return Mode(code)
	default:
		return ModeScroll
	}
}

// RawComment is one record as served by the comment endpoint: p carries
// "time,mode,color[,...]" and m the text.
type RawComment struct {
	P string `json:"p"`
	M string `json:"m"`
}

// Comment is a parsed danmaku event. Time is in seconds before any shift.
type Comment struct {
	Time  float64
	Mode  Mode
	Color uint32
	Text  string
}

// ParseComment validates and decodes raw. Errors wrap services.ErrMalformed.
func ParseComment(raw RawComment) (Comment, error) {
	if raw.P == "" || raw.M == "" {
		return Comment{}, services.Wrap(services.ErrMalformed, "overlay", "parse comment", "empty attributes or text", nil)
	}
	parts := strings.Split(raw.P, ",")
	if len(parts) < 3 {
		return Comment{}, services.Wrap(services.ErrMalformed, "overlay", "parse comment", "too few attributes: "+raw.P, nil)
	}
	at, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil || math.IsNaN(at) || math.IsInf(at, 0) {
		return Comment{}, services.Wrap(services.ErrMalformed, "overlay", "parse comment", "bad time "+strconv.Quote(parts[0]), err)
	}
	if at > MaxCommentTime {
		return Comment{}, services.Wrap(services.ErrMalformed, "overlay", "parse comment", "time out of range "+strconv.Quote(parts[0]), nil)
	}
	mode, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return Comment{}, services.Wrap(services.ErrMalformed, "overlay", "parse comment", "bad mode "+strconv.Quote(parts[1]), err)
	}
	color, err := strconv.ParseInt(strings.TrimSpace(parts[2]), 10, 64)
	if err != nil {
		return Comment{}, services.Wrap(services.ErrMalformed, "overlay", "parse comment", "bad color "+strconv.Quote(parts[2]), err)
	}
	text := norm.NFC.String(strings.TrimSpace(raw.M))
	if text == "" {
		return Comment{}, services.Wrap(services.ErrMalformed, "overlay", "parse comment", "blank text", nil)
	}
	return Comment{
		Time:  at,
		Mode:  modeFor(mode),
		Color: uint32(color) & 0xFFFFFF,
		Text:  text,
	}, nil
}

// ParseComments decodes raws in order, dropping malformed records.
func ParseComments(raws []RawComment) []Comment {
	out := make([]Comment, 0, len(raws))
	for _, raw := range raws {
		if comment, err := ParseComment(raw); err == nil {
			out = append(out, comment)
		}
	}
	return out
}
