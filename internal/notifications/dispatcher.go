package notifications

import (
	"context"
	"errors"
	"log/slog"

	"danmaku/internal/logging"
)

// Dispatcher delivers notices to every sink while notifications are enabled.
type Dispatcher struct {
	enabled func() bool
	sinks   []Sink
	logger  *slog.Logger
}

// NewDispatcher returns a Dispatcher. enabled is consulted on every Publish so
// settings reloads take effect immediately; nil means always enabled. Nil sinks
// are ignored.
func NewDispatcher(enabled func() bool, logger *slog.Logger, sinks ...Sink) *Dispatcher {
	kept := make([]Sink, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			kept = append(kept, sink)
		}
	}
	return &Dispatcher{
		enabled: enabled,
		sinks:   kept,
		logger:  logging.NewComponentLogger(logger, "notifications"),
	}
}

// Publish sends notice to every sink. Sink failures are logged and returned
// joined; they never stop delivery to the remaining sinks.
func (d *Dispatcher) Publish(ctx context.Context, notice Notice) error {
	if d == nil {
		return nil
	}
	if d.enabled != nil && !d.enabled() {
		d.logger.Debug("notice suppressed", logging.String("kind", string(notice.Kind)))
		return nil
	}
	var errs []error
	for _, sink := range d.sinks {
		if err := sink.Notify(ctx, notice); err != nil {
			errs = append(errs, err)
		}
	}
	err := errors.Join(errs...)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, d.logger), "notice delivery failed", "notify_failed",
			logging.Error(err),
			logging.String("kind", string(notice.Kind)),
			logging.String(logging.FieldImpact, "user may not see the outcome of this video"),
		)
	}
	return err
}
