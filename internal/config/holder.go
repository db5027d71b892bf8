package config

import "sync/atomic"

// Holder publishes the active configuration to long-lived components.
type Holder struct {
	current atomic.Pointer[Config]
}

// NewHolder returns a Holder seeded with a copy of cfg.
func NewHolder(cfg *Config) *Holder {
	h := &Holder{}
	h.Store(cfg)
	return h
}

// Snapshot returns a value copy of the active configuration.
func (h *Holder) Snapshot() Config {
	if cfg := h.current.Load(); cfg != nil {
		return *cfg
	}
	return Default()
}

// Store swaps in a copy of cfg.
func (h *Holder) Store(cfg *Config) {
	if cfg == nil {
		return
	}
	clone := *cfg
	h.current.Store(&clone)
}
