// Package throttle provides the randomized delays inserted between network
// operations. Every component takes a Sleeper explicitly so tests can swap in
// a zero-delay implementation instead of sleeping for real.
package throttle

import (
	"context"
	"time"

	"github.com/mazen160/go-random"
)

// Named bases for the delay call sites. The fetch path uses Retry between
// failed attempts and Transport after connection-level errors; walkers use
// Short between ordinary page requests; the ratings path uses RateLimit once
// it suspects the whole client is being limited.
const (
	Short     = 3 * time.Second
	Retry     = 3 * time.Second
	Transport = 2 * time.Minute
	RateLimit = 4 * time.Minute
)

type Sleeper interface {
	// Sleep blocks for a randomized duration whose mean scales with base,
	// returning early with ctx.Err() when the context is cancelled.
	Sleep(ctx context.Context, base time.Duration) error
}

// Jitter draws delays uniformly from [0.5*base, 1.5*base], never going below
// Min. The randomization avoids the fixed-interval signature that scrape
// detection keys on.
type Jitter struct {
	Min time.Duration
}

func (j Jitter) Sleep(ctx context.Context, base time.Duration) error {
	return wait(ctx, j.draw(base))
}

func (j Jitter) draw(base time.Duration) time.Duration {
	lo := int64(base / 2)
	hi := int64(base) + int64(base/2)
	n, err := random.IntRange(int(lo), int(hi))
	d := time.Duration(n)
	if err != nil {
		d = base
	}
	if d < j.Min {
		d = j.Min
	}
	return d
}

// Nop skips delays entirely. Test use only.
type Nop struct{}

func (Nop) Sleep(ctx context.Context, base time.Duration) error {
	return ctx.Err()
}

func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
