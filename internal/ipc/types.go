package ipc

import "time"

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// CheckResult mirrors a preflight result.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunSummary describes the most recent finished run.
type RunSummary struct {
	RunID    string `json:"run_id"`
	Video    string `json:"video"`
	Outcome  string `json:"outcome"`
	Episode  string `json:"episode"`
	Comments int    `json:"comments"`
	Artifact string `json:"artifact"`
	Error    string `json:"error"`
}

// StatusResponse represents combined daemon and playback status.
type StatusResponse struct {
	Running      bool          `json:"running"`
	PID          int           `json:"pid"`
	StartedAt    time.Time     `json:"started_at"`
	Enabled      bool          `json:"enabled"`
	State        string        `json:"state"`
	Video        string        `json:"video"`
	RunID        string        `json:"run_id"`
	Stage        string        `json:"stage"`
	RunningSince time.Time     `json:"running_since"`
	LastRun      *RunSummary   `json:"last_run"`
	MPVSocket    string        `json:"mpv_socket"`
	MPVConnected bool          `json:"mpv_connected"`
	LockPath     string        `json:"lock_path"`
	HistoryPath  string        `json:"history_path"`
	ProfileDir   string        `json:"profile_dir"`
	Checks       []CheckResult `json:"checks"`
}

// PlayRequest reports that a video started playing.
type PlayRequest struct {
	Path     string `json:"path"`
	Duration int    `json:"duration"`
}

// PlayResponse indicates whether the event was queued.
type PlayResponse struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message"`
}

// StopRequest cancels any in-flight run.
type StopRequest struct{}

// StopResponse reports the stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// ReloadRequest re-reads the configuration file.
type ReloadRequest struct{}

// ReloadResponse reports the reload result.
type ReloadResponse struct {
	Reloaded bool   `json:"reloaded"`
	Message  string `json:"message"`
}

// HistoryRequest lists recent runs. Zero Limit uses the store default.
type HistoryRequest struct {
	Limit int    `json:"limit"`
	Video string `json:"video"`
}

// HistoryEntry is one recorded run.
type HistoryEntry struct {
	RunID      string    `json:"run_id"`
	Video      string    `json:"video"`
	Outcome    string    `json:"outcome"`
	EpisodeID  int64     `json:"episode_id"`
	Episode    string    `json:"episode"`
	Comments   int       `json:"comments"`
	Artifact   string    `json:"artifact"`
	Error      string    `json:"error"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// HistoryResponse contains recent runs, newest first.
type HistoryResponse struct {
	Entries []HistoryEntry `json:"entries"`
}
