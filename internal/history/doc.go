// Package history records the outcome of every playback run in a SQLite
// database under the profile directory. The CLI reads it back for the
// `danmaku history` table.
package history
