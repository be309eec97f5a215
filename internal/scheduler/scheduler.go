// Package scheduler paces frame display at a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"time"

	"termreel/internal/model"
)

// Clock abstracts time so pacing can be tested deterministically.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, whichever comes first.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return ctx.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RealClock is the wall clock.
var RealClock Clock = realClock{}

// EmitFunc displays one frame. It must not return before the frame is visible.
type EmitFunc func(model.FrameUnit) error

// Stats summarizes one Run.
type Stats struct {
	Frames  int
	Bytes   int64
	Elapsed time.Duration // First emission to last emission.
	MaxLag  time.Duration // Largest delay past the due time of a frame.
}

// EffectiveFPS is the average display rate over the run.
func (s Stats) EffectiveFPS() float64 {
	if s.Frames < 2 || s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Frames-1) / s.Elapsed.Seconds()
}

// Scheduler emits frames no faster than one per interval. It never drops or
// reorders frames; drift from decoder lag is not corrected.
type Scheduler struct {
	interval time.Duration
	clock    Clock
}

// New returns a Scheduler for the given frame rate. A nil clock uses RealClock.
func New(fps int, clock Clock) (*Scheduler, error) {
	if fps <= 0 {
		return nil, errors.New("scheduler: fps must be positive")
	}
	if clock == nil {
		clock = RealClock
	}
	return &Scheduler{interval: time.Second / time.Duration(fps), clock: clock}, nil
}

// Interval returns the fixed frame interval.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Run consumes frames until the channel is closed, emit fails, or ctx is
// done. It returns ctx.Err() on cancellation.
func (s *Scheduler) Run(ctx context.Context, frames <-chan model.FrameUnit, emit EmitFunc) (Stats, error) {
	var (
		st    Stats
		first time.Time
		last  time.Time
	)
	for {
		if err := ctx.Err(); err != nil {
			return st, err
		}

		var (
			f  model.FrameUnit
			ok bool
		)
		select {
		case f, ok = <-frames:
		case <-ctx.Done():
			return st, ctx.Err()
		}
		if !ok {
			return st, nil
		}

		if st.Frames > 0 {
			due := last.Add(s.interval)
			if wait := due.Sub(s.clock.Now()); wait > 0 {
				if err := s.clock.Sleep(ctx, wait); err != nil {
					return st, err
				}
			}
			if lag := s.clock.Now().Sub(due); lag > st.MaxLag {
				st.MaxLag = lag
			}
		}
		if err := ctx.Err(); err != nil {
			return st, err
		}

		now := s.clock.Now()
		if st.Frames == 0 {
			first = now
		}
		last = now
		if err := emit(f); err != nil {
			return st, err
		}
		st.Frames++
		st.Bytes += int64(len(f.Data))
		st.Elapsed = last.Sub(first)
	}
}
