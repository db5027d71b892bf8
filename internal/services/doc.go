// Package services defines shared utilities consumed by the playback pipeline
// and its remote integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers, video paths, and pipeline
//     stage names for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into the outcome a playback run reports (no match, failed, cancelled).
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability, notifications) stays uniform.
package services
