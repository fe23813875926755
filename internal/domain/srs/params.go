package srs

import (
	"errors"
	"fmt"
	"time"

	"github.com/phrazzld/wordmon-api/internal/domain"
)

// ErrInvalidParams is returned when a custom interval table cannot drive the
// scheduler.
var ErrInvalidParams = errors.New("invalid srs params")

// Day is the unit the default interval table is expressed in.
const Day = 24 * time.Hour

// Params defines the Leitner box intervals. Intervals[i] is the wait after a
// review that lands an entry in box i, so the table has MaxLevel+1 slots.
type Params struct {
	Intervals []time.Duration
}

// NewDefaultParams returns the standard five-box schedule:
// 0, 1d, 3d, 7d, 14d, 30d.
func NewDefaultParams() *Params {
	return &Params{
		Intervals: []time.Duration{
			0,
			1 * Day,
			3 * Day,
			7 * Day,
			14 * Day,
			30 * Day,
		},
	}
}

// NewParams builds Params from a custom interval table.
func NewParams(intervals []time.Duration) (*Params, error) {
	if len(intervals) != domain.MaxSRSLevel+1 {
		return nil, fmt.Errorf("%w: need %d boxes, got %d", ErrInvalidParams, domain.MaxSRSLevel+1, len(intervals))
	}
	for i, d := range intervals {
		if d < 0 {
			return nil, fmt.Errorf("%w: intervals cannot be negative", ErrInvalidParams)
		}
		if i > 0 && d < intervals[i-1] {
			return nil, fmt.Errorf("%w: intervals must not decrease", ErrInvalidParams)
		}
	}
	return &Params{Intervals: append([]time.Duration(nil), intervals...)}, nil
}

// MaxLevel returns the highest box index.
func (p *Params) MaxLevel() int {
	return len(p.Intervals) - 1
}

// Interval returns the wait for the given box, clamped to the table.
func (p *Params) Interval(level int) time.Duration {
	if level < 0 {
		level = 0
	}
	if level > p.MaxLevel() {
		level = p.MaxLevel()
	}
	return p.Intervals[level]
}
