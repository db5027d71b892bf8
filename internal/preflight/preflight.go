package preflight

import (
	"context"

	"danmaku/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the preflight checks for cfg. The remote API check is only
// run when probeRemote is set.
func RunAll(ctx context.Context, cfg *config.Config, probeRemote bool) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Profile directory", cfg.Paths.ProfileDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckCredentials(cfg),
	}
	if cfg.Player.MPVSocket != "" {
		results = append(results, CheckSocket("mpv socket", cfg.Player.MPVSocket))
	}
	if probeRemote {
		results = append(results, CheckDandanplay(ctx, cfg.Dandanplay.BaseURL, cfg.Dandanplay.UserAgent))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
