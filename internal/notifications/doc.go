// Package notifications turns playback run outcomes into user-visible notices.
//
// A Dispatcher fans each Notice out to its sinks: the player's on-screen
// display and, when a topic is configured, an ntfy push endpoint. Dispatch is
// gated on the show_notifications setting, and cancelled runs never produce a
// notice.
package notifications
