// Package ipc exposes the daemon over JSON-RPC on a Unix socket and ships the
// matching client used by the CLI.
//
// Request and response types are plain DTOs so the wire protocol stays
// stable while daemon internals change.
package ipc
