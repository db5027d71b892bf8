// Command danmaku is the control CLI for danmakud.
//
// It talks to the daemon over its Unix socket (status, play, stop, reload,
// history), launches or terminates the daemon process, and can run the match
// and render pipeline offline for a single file.
package main
