package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"danmaku/internal/ipc"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 22
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := fmt.Sprintf("[%s]", statusKindLabel(kind))
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusKindLabel(kind), message)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// daemonLines renders the daemon section of `danmaku status`.
func daemonLines(status *ipc.StatusResponse, now time.Time, colorize bool) []string {
	var lines []string
	if status == nil || !status.Running {
		return append(lines, renderStatusLine("danmakud", statusError, "Not running", colorize))
	}
	uptime := ""
	if !status.StartedAt.IsZero() {
		uptime = fmt.Sprintf(", up %s", now.Sub(status.StartedAt).Round(time.Second))
	}
	lines = append(lines, renderStatusLine("danmakud", statusOK, fmt.Sprintf("Running (pid %d%s)", status.PID, uptime), colorize))

	if status.Enabled {
		lines = append(lines, renderStatusLine("Auto loading", statusOK, "Enabled", colorize))
	} else {
		lines = append(lines, renderStatusLine("Auto loading", statusWarn, "Disabled", colorize))
	}

	switch {
	case status.MPVSocket == "":
		lines = append(lines, renderStatusLine("Player", statusInfo, "Headless (no mpv socket)", colorize))
	case status.MPVConnected:
		lines = append(lines, renderStatusLine("Player", statusOK, "mpv connected at "+status.MPVSocket, colorize))
	default:
		lines = append(lines, renderStatusLine("Player", statusWarn, "waiting for mpv at "+status.MPVSocket, colorize))
	}

	if status.State == "running" {
		detail := fmt.Sprintf("%s (%s)", status.Video, status.Stage)
		lines = append(lines, renderStatusLine("Current run", statusInfo, detail, colorize))
	} else {
		lines = append(lines, renderStatusLine("Current run", statusInfo, "Idle", colorize))
	}

	if last := status.LastRun; last != nil {
		lines = append(lines, renderStatusLine("Last run", outcomeKind(last.Outcome), lastRunDetail(last), colorize))
	}
	return lines
}

func lastRunDetail(last *ipc.RunSummary) string {
	switch last.Outcome {
	case "succeeded":
		return fmt.Sprintf("%s: %d comments (%s)", last.Video, last.Comments, last.Episode)
	case "failed", "no_match":
		if last.Error != "" {
			return fmt.Sprintf("%s: %s (%s)", last.Video, last.Outcome, last.Error)
		}
	}
	return fmt.Sprintf("%s: %s", last.Video, last.Outcome)
}

func outcomeKind(outcome string) statusKind {
	switch outcome {
	case "succeeded":
		return statusOK
	case "no_match", "disabled":
		return statusWarn
	case "failed":
		return statusError
	default:
		return statusInfo
	}
}

func checkLines(checks []ipc.CheckResult, colorize bool) []string {
	lines := make([]string, 0, len(checks))
	for _, check := range checks {
		kind := statusOK
		if !check.Passed {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(check.Name, kind, check.Detail, colorize))
	}
	return lines
}
