package hostsim

import (
	"context"
	"time"
)

// RunTicks drives the bound timer set's tick counter at rate Hz until ctx
// is canceled, or until maxTicks have fired when maxTicks > 0 (0 means run
// forever), mirroring main_host.go's headless "-ticks" bound.
//
// This goroutine only ever calls Set.Tick, which is self-contained and
// safe to call from any goroutine. It deliberately never calls Set.Check:
// expiring a timer can run a callback that reaches back into the
// scheduler and asks the port to park the outgoing thread, and that park
// is only well-defined when performed by that thread's own goroutine.
// Expiry processing is instead driven cooperatively by whichever thread
// goroutine is actually running, via Yield — the same way a real thread
// only gets preempted at a defined re-entry point into the kernel, not at
// an arbitrary instruction.
func (p *Port) RunTicks(ctx context.Context, rateHz uint32, maxTicks uint64) error {
	defer p.Halt()

	if rateHz == 0 {
		rateHz = 1000
	}
	ticker := time.NewTicker(time.Second / time.Duration(rateHz))
	defer ticker.Stop()

	var fired uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.timers.Tick()

			fired++
			if maxTicks > 0 && fired >= maxTicks {
				return nil
			}
		}
	}
}
