package logs

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"danmaku/internal/logging"
)

// Record is one decoded JSON log line.
type Record struct {
	Time      string
	Level     string
	Message   string
	Component string
	RunID     string
	Attrs     map[string]any
}

// Parse decodes a JSON log line. ok is false for lines that are not JSON
// objects, such as console output captured in the same file.
func Parse(line string) (Record, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "{") {
		return Record{}, false
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Record{}, false
	}
	rec := Record{Attrs: make(map[string]any, len(raw))}
	for key, value := range raw {
		switch key {
		case "ts":
			rec.Time = fmt.Sprint(value)
		case "level":
			rec.Level = strings.ToLower(fmt.Sprint(value))
		case "msg":
			rec.Message = fmt.Sprint(value)
		case logging.FieldComponent:
			rec.Component = fmt.Sprint(value)
		case logging.FieldRunID:
			rec.RunID = fmt.Sprint(value)
		default:
			rec.Attrs[key] = value
		}
	}
	return rec, true
}

// Filter selects records. Zero fields match everything.
type Filter struct {
	RunID     string
	Component string
	MinLevel  string
}

// Match reports whether rec passes the filter.
func (f Filter) Match(rec Record) bool {
	if f.RunID != "" && rec.RunID != f.RunID {
		return false
	}
	if f.Component != "" && !strings.EqualFold(rec.Component, f.Component) {
		return false
	}
	if f.MinLevel != "" && levelOf(rec.Level) < levelOf(f.MinLevel) {
		return false
	}
	return true
}

// Active reports whether the filter restricts anything.
func (f Filter) Active() bool {
	return f.RunID != "" || f.Component != "" || f.MinLevel != ""
}

func levelOf(name string) slog.Level {
	var level slog.Level
	if name == "warning" {
		name = "warn"
	}
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Format renders rec as a single human readable line.
func Format(rec Record) string {
	var b strings.Builder
	if rec.Time != "" {
		b.WriteString(rec.Time)
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s ", strings.ToUpper(rec.Level))
	if rec.Component != "" {
		fmt.Fprintf(&b, "[%s] ", rec.Component)
	}
	b.WriteString(rec.Message)

	keys := make([]string, 0, len(rec.Attrs))
	for key := range rec.Attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	if rec.RunID != "" {
		fmt.Fprintf(&b, " %s=%s", logging.FieldRunID, rec.RunID)
	}
	for _, key := range keys {
		fmt.Fprintf(&b, " %s=%v", key, rec.Attrs[key])
	}
	return b.String()
}
