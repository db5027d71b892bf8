// Package daemon assembles the long-running danmakud process: the single
// instance lock, the player event channel, the mpv adapter, the dandanplay
// client, the history store and the playback orchestrator.
//
// The IPC server drives a Daemon through Play, StopPlayback, Reload, History
// and Status; the mpv adapter feeds the same event channel.
package daemon
