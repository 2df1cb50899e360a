package board

import (
	"ironfrail/kthread"
	"ironfrail/ticktimer"
)

// Yield is the cooperative re-entry point every board-simulated thread
// body should call periodically in place of a real timer-IRQ preemption
// point. It drains any timers that have expired since the last call
// (waking sleepers and IPC timeouts) and then attempts a switch, exactly
// as a real tick ISR's deferred PendSV would on return from interrupt.
//
// Must be called from the thread's own goroutine: any resulting switch
// parks the calling goroutine until it is scheduled again.
func Yield(sched *kthread.Scheduler, timers *ticktimer.Set) {
	timers.Check()
	sched.Switch()
}

// YieldTimeslice is Yield plus the per-tick time-slice countdown a real
// board's tick ISR drives: the current thread's remaining slice is
// decremented, and only once it reaches zero does it reload and rotate
// within its priority (kthread.Scheduler.TickSlice). Scenario code that
// wants round-robin behavior calls this once per simulated tick instead of
// plain Yield; a thread with a 5-tick slice runs five calls before another
// same-priority thread gets a turn.
func YieldTimeslice(sched *kthread.Scheduler, timers *ticktimer.Set) {
	timers.Check()
	sched.TickSlice()
}
