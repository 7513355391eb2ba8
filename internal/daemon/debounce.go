package daemon

import (
	"context"
	"time"
)

// Debouncer coalesces bursts of triggers into a single emission after a
// quiet window elapses. It is safe to run as a single goroutine.
type Debouncer struct {
	quiet time.Duration
	in    chan string
	out   chan string
}

// NewDebouncer creates a debouncer with the given quiet window.
func NewDebouncer(quiet time.Duration) *Debouncer {
	if quiet <= 0 {
		quiet = 2 * time.Second
	}
	return &Debouncer{
		quiet: quiet,
		in:    make(chan string, 16),
		out:   make(chan string, 1),
	}
}

// Trigger requests an emission. Triggers arriving within the quiet window
// collapse into one; the most recent reason wins.
func (d *Debouncer) Trigger(reason string) {
	select {
	case d.in <- reason:
	default:
		// Burst already queued; dropping is fine, the window coalesces anyway.
	}
}

// Out delivers coalesced trigger reasons.
func (d *Debouncer) Out() <-chan string {
	return d.out
}

// Run processes triggers until the context is canceled.
func (d *Debouncer) Run(ctx context.Context) {
	var (
		timer  *time.Timer
		expiry <-chan time.Time
		reason string
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case r := <-d.in:
			reason = r
			if timer == nil {
				timer = time.NewTimer(d.quiet)
				expiry = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(d.quiet)
			}
		case <-expiry:
			timer = nil
			expiry = nil
			select {
			case d.out <- reason:
			default:
				// Consumer busy with a run; that run absorbs this trigger.
			}
		}
	}
}
