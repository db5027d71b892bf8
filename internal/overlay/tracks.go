package overlay

// Tracks holds the time at which each lane of one pool becomes free.
type Tracks struct {
	free []float64
}

// NewTracks returns n idle lanes. n below one is raised to one.
func NewTracks(n int) *Tracks {
	if n < 1 {
		n = 1
	}
	return &Tracks{free: make([]float64, n)}
}

// Len returns the lane count.
func (t *Tracks) Len() int {
	return len(t.free)
}

// Acquire reserves a lane from start for duration and returns its index. The
// first lane already free at start wins; when all are busy the lane that frees
// up earliest (lowest index on ties) is overwritten.
func (t *Tracks) Acquire(start, duration float64) int {
	for i, free := range t.free {
		if start >= free {
			t.free[i] = start + duration
			return i
		}
	}
	best := 0
	for i := 1; i < len(t.free); i++ {
		if t.free[i] < t.free[best] {
			best = i
		}
	}
	t.free[best] = start + duration
	return best
}
