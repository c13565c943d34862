// Package drift decides how to bring a local playhead back to server time.
package drift

import "math"

// DefaultThreshold is the largest drift, in seconds, tolerated without a seek.
const DefaultThreshold = 5.0

// Decision is the correction to apply for one tick.
type Decision struct {
	Drift  float64
	Seek   bool
	SeekTo float64
	Resume bool
}

// Noop reports whether the decision leaves the media untouched.
func (d Decision) Noop() bool {
	return !d.Seek && !d.Resume
}

// Corrector holds the correction policy.
type Corrector struct {
	threshold float64
}

// NewCorrector creates a corrector; a non-positive threshold selects DefaultThreshold.
func NewCorrector(threshold float64) *Corrector {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Corrector{threshold: threshold}
}

// Threshold returns the drift tolerance in seconds.
func (c *Corrector) Threshold() float64 {
	return c.threshold
}

// Decide compares the local position with the server offset.
// Drift strictly above the threshold seeks to exactly the offset, never by a delta.
// A paused media is resumed regardless of drift.
func (c *Corrector) Decide(localPosition, offsetSeconds float64, paused bool) Decision {
	d := Decision{
		Drift:  math.Abs(localPosition - offsetSeconds),
		Resume: paused,
	}
	if d.Drift > c.threshold {
		d.Seek = true
		d.SeekTo = offsetSeconds
	}
	return d
}
