// Package preflight provides readiness checks for the paths and services
// danmakud depends on.
//
// The daemon runs RunAll at startup and logs failures; the CLI "danmaku
// status" command renders the same results. No check is fatal: a missing
// mpv socket or unreachable API only means danmaku will not load yet.
package preflight
