package domain

import (
	"errors"
	"time"
)

// Acceptable pickup interval around a preferred instant. Constructed once
// per ride request and never mutated.
type TimeWindow struct {
	Earliest  time.Time
	Preferred time.Time
	Latest    time.Time
}

// WindowAround builds a window from a preferred time and the rider's
// before/after buffers.
func WindowAround(preferred time.Time, before, after time.Duration) TimeWindow {
	return TimeWindow{
		Earliest:  preferred.Add(-before),
		Preferred: preferred,
		Latest:    preferred.Add(after),
	}
}

// Validate enforces earliest <= preferred <= latest with earliest strictly
// before latest.
func (w TimeWindow) Validate() error {
	if w.Earliest.IsZero() || w.Preferred.IsZero() || w.Latest.IsZero() {
		return errors.New("time window: all three timestamps must be set")
	}
	if w.Preferred.Before(w.Earliest) || w.Latest.Before(w.Preferred) {
		return errors.New("time window: requires earliest <= preferred <= latest")
	}
	if !w.Earliest.Before(w.Latest) {
		return errors.New("time window: earliest must be strictly before latest")
	}
	return nil
}

// Overlaps reports whether two windows share a non-empty interval.
// Touching endpoints do not count as overlap.
func (w TimeWindow) Overlaps(other TimeWindow) bool {
	start := laterOf(w.Earliest, other.Earliest)
	end := earlierOf(w.Latest, other.Latest)
	return start.Before(end)
}

// Intersect returns the shared interval of two windows. The second return
// value is false when the windows do not overlap.
func (w TimeWindow) Intersect(other TimeWindow) (start, end time.Time, ok bool) {
	if !w.Overlaps(other) {
		return time.Time{}, time.Time{}, false
	}
	return laterOf(w.Earliest, other.Earliest), earlierOf(w.Latest, other.Latest), true
}

// OverlapQuality scores how well two windows overlap on a 0-1 scale:
// the shared duration relative to the shorter window.
func (w TimeWindow) OverlapQuality(other TimeWindow) float64 {
	start, end, ok := w.Intersect(other)
	if !ok {
		return 0
	}

	overlap := end.Sub(start)
	shorter := w.Latest.Sub(w.Earliest)
	if d := other.Latest.Sub(other.Earliest); d < shorter {
		shorter = d
	}
	if shorter <= 0 {
		return 0
	}

	q := overlap.Seconds() / shorter.Seconds()
	if q > 1 {
		q = 1
	}
	return q
}

// BufferBeforeMinutes is how long before the preferred time the rider is
// willing to depart.
func (w TimeWindow) BufferBeforeMinutes() float64 {
	return w.Preferred.Sub(w.Earliest).Minutes()
}

// BufferAfterMinutes is how long after the preferred time the rider is
// willing to depart.
func (w TimeWindow) BufferAfterMinutes() float64 {
	return w.Latest.Sub(w.Preferred).Minutes()
}

func laterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlierOf(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
