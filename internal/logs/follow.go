package logs

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultPollInterval is how often Follow checks the file for new lines.
const DefaultPollInterval = 250 * time.Millisecond

// Follower polls a log file for appended lines.
type Follower struct {
	Path     string
	Offset   int64
	Interval time.Duration
	Clock    clockwork.Clock
}

// Follow calls fn for every line appended after f.Offset until ctx ends.
// It returns nil on cancellation.
func (f *Follower) Follow(ctx context.Context, fn func(string)) error {
	clock := f.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	interval := f.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		lines, offset, err := ReadFrom(f.Path, f.Offset)
		if err != nil {
			return err
		}
		f.Offset = offset
		for _, line := range lines {
			fn(line)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
		}
	}
}
