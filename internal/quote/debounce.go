package quote

import (
	"context"
	"sync"
	"time"
)

// Debouncer coalesces bursts of quote triggers into a single evaluation
// after a quiet period. Every trigger supersedes the previous one: a pending
// timer is stopped, an in-flight run's context is cancelled, and only the
// generation returned by the newest trigger may apply its result.
type Debouncer struct {
	delay time.Duration

	mu     sync.Mutex
	gen    uint64
	timer  *time.Timer
	cancel context.CancelFunc
}

// NewDebouncer creates a Debouncer with the given quiet period.
func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = 300 * time.Millisecond
	}
	return &Debouncer{delay: delay}
}

// Trigger schedules run after the quiet period and returns the generation it
// will carry. run receives a context that is cancelled if a newer trigger
// arrives while it is in flight.
func (d *Debouncer) Trigger(parent context.Context, run func(ctx context.Context, gen uint64)) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	gen := d.gen

	if d.timer != nil {
		d.timer.Stop()
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}

	ctx, cancel := context.WithCancel(parent)
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if gen != d.gen {
			d.mu.Unlock()
			cancel()
			return
		}
		d.cancel = cancel
		d.mu.Unlock()

		run(ctx, gen)
	})

	return gen
}

// Latest returns the newest issued generation. Results are applied only when
// their generation still matches.
func (d *Debouncer) Latest() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gen
}

// Cancel stops any pending or in-flight run, e.g. on pair change.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}
