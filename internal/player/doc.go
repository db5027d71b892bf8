// Package player is the boundary between danmakud and the host video player.
//
// Playback events arrive through an EventSource; subtitles and on-screen
// notices leave through a Host. The MPV adapter implements both halves over
// mpv's JSON IPC socket, and Channel is an in-process source fed by the
// daemon's control socket.
package player
