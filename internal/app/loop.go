package app

import (
	"context"
	"time"
)

// Run drives the presentation loop until the window closes or the
// context is cancelled. Each iteration dispatches whatever events are
// already queued, flushes outgoing requests, then blocks for new data
// and dispatches it; the remainder of the frame budget is slept away.
// An overrunning iteration is not compensated for.
func (a *App) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(a.cfg.TargetFPS)
	started := time.Now()
	var iterations uint64

	for {
		select {
		case <-ctx.Done():
			a.closing = true
		default:
		}
		if a.closing {
			break
		}
		iterStart := time.Now()

		// Dispatching queued events before blocking closes the
		// window where a wakeup already happened but the data sits
		// undispatched in the queue.
		for !a.conn.PrepareRead() {
			if err := a.conn.DispatchPending(); err != nil {
				return err
			}
		}
		if err := a.conn.Flush(); err != nil {
			return err
		}
		if err := a.conn.ReadEvents(); err != nil {
			return err
		}
		if err := a.conn.DispatchPending(); err != nil {
			return err
		}
		if a.fatalErr != nil {
			return a.fatalErr
		}

		iterations++
		if d := sleepBudget(time.Since(iterStart), interval); d > 0 {
			time.Sleep(d)
		}
	}

	a.log.Info("presentation loop finished",
		"iterations", iterations,
		"frames", a.frames,
		"elapsed", time.Since(started).Round(time.Millisecond))
	return nil
}

// sleepBudget returns how long to sleep after an iteration that took
// elapsed out of a budget of interval. Overruns return zero; there is
// no catch-up clock.
func sleepBudget(elapsed, interval time.Duration) time.Duration {
	if elapsed >= interval {
		return 0
	}
	return interval - elapsed
}

// scheduleFrame registers the next one-shot frame callback. Skipping
// this after a callback fires would silently stall the animation.
func (a *App) scheduleFrame() {
	cb := a.surface.Frame()
	cb.Done = a.handleFrameDone
}

// handleFrameDone runs once per displayed frame. It re-registers the
// callback, paints the inactive slot, submits attach+damage+commit as
// one update and toggles the active slot.
func (a *App) handleFrameDone(uint32) {
	a.log.Debug("render requested", "frame", a.frames)
	a.scheduleFrame()

	next := nextSlot(a.active)
	if a.pool.InFlight(next) {
		// The compositor still holds the slot's memory; presenting
		// the previous buffer again beats scribbling over it.
		a.log.Debug("frame skipped, slot awaiting release", "slot", next)
		a.surface.Commit()
		return
	}

	a.producer(a.pool.View(next))
	a.surface.Attach(a.pool.Buffer(next), 0, 0)
	a.surface.Damage(0, 0, int32(a.size.Width), int32(a.size.Height))
	a.surface.Commit()
	a.pool.MarkInFlight(next)

	a.active = next
	a.frames++
}

// nextSlot alternates between the two buffer slots.
func nextSlot(active int) int {
	return 1 - active
}
