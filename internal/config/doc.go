// Package config loads, normalizes, and validates danmaku configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// DANDANPLAY_APP_ID. The Config type centralizes every knob the daemon and CLI
// need, allowing the profile directory and remote credentials to be discovered
// in one pass.
//
// A Holder publishes the active Config to long-lived components. Reloading
// settings swaps the pointer atomically; readers take a value copy so a run in
// flight never observes a half-applied change.
package config
