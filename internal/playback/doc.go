// Package playback runs the per-video danmaku pipeline.
//
// The Orchestrator consumes player lifecycle events. Each VideoStarted
// spawns one background run (fingerprint, match, comments, render, persist,
// deliver); a newer video or a stop cancels the current run and waits up to
// two seconds for it to wind down before anything else starts. Every run
// ends in exactly one outcome, which is announced once (cancellation stays
// silent) and recorded in the history store.
package playback
