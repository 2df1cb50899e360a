// Package ipc implements the waiter-list mechanics shared by every blocking
// kernel primitive and the semaphore, mutex, recursive-mutex, and queue
// objects built on top of them, grounded on
// _examples/original_source/src/ipc.c.
package ipc

import (
	"ironfrail/klist"
	"ironfrail/kthread"
	"ironfrail/ticktimer"
)

// Mode selects how a blocked thread is inserted into an object's wait
// list, mirroring TO_IPC_FLAG_FIFO / TO_IPC_FLAG_PRIO.
type Mode uint8

const (
	// ModeFIFO appends waiters in arrival order.
	ModeFIFO Mode = iota
	// ModePRIO inserts a waiter ahead of the first lower-priority waiter,
	// so the wait list stays priority-sorted.
	ModePRIO
)

// Timeout is a blocking call's wait budget in ticks. Zero means
// non-blocking; Forever means never time out; any other value is a
// positive tick count.
type Timeout int32

// Forever marks a blocking call that never times out.
const Forever Timeout = -1

// suspendLocked removes thread from the ready queue and inserts it into
// waitList according to mode. Caller must already hold sched's critical
// section (via Lock), matching t_ipc_suspend's single IRQ-disable window
// around both the ready-queue removal and the wait-list insertion.
func suspendLocked(sched *kthread.Scheduler, waitList *klist.Node[*kthread.Thread], thread *kthread.Thread, mode Mode, lowerIsHigher bool) {
	sched.RemoveLocked(thread)
	thread.MarkSuspended()

	switch mode {
	case ModePRIO:
		p := waitList
		for p.Next() != waitList {
			next := p.Next().Owner
			if higherPriority(thread, next, lowerIsHigher) {
				break
			}
			p = p.Next()
		}
		p.InsertAfter(thread.Node())
	default: // ModeFIFO and any unrecognized value append FIFO-style.
		waitList.InsertBefore(thread.Node())
	}
}

// higherPriority reports whether a is strictly higher priority than b
// under the configured priority direction.
func higherPriority(a, b *kthread.Thread, lowerIsHigher bool) bool {
	if lowerIsHigher {
		return a.Priority() < b.Priority()
	}
	return a.Priority() > b.Priority()
}

// resumeAllLocked pops every waiter off waitList, marks it READY, and
// reinserts it into the ready queue. Caller must already hold sched's
// critical section.
func resumeAllLocked(sched *kthread.Scheduler, waitList *klist.Node[*kthread.Thread]) {
	for !waitList.Empty() {
		node := waitList.Next()
		node.Remove()
		node.Owner.MarkReady()
		sched.InsertLocked(node.Owner)
	}
}

// startTimeoutLocked arms thread's private timer for a finite wait,
// recording the tick it started at the first time through a retry loop.
func startTimeoutLocked(timers *ticktimer.Set, thread *kthread.Thread, timeout Timeout, startTick *uint32, haveStart *bool) {
	if timeout <= 0 {
		return
	}
	if !*haveStart {
		*startTick = timers.Now()
		*haveStart = true
	}
	thread.Timer().SetInitTick(uint32(timeout))
	timers.Start(thread.Timer())
}

// checkTimeoutExpired reports whether a finite timeout has elapsed since
// startTick. Returns (expired, remaining timeout, tick to use as startTick
// for the next retry iteration).
func checkTimeoutExpired(timers *ticktimer.Set, timeout Timeout, startTick uint32) (bool, Timeout, uint32) {
	if timeout <= 0 {
		return false, timeout, startTick
	}
	now := timers.Now()
	elapsed := now - startTick // unsigned subtraction: wrap-safe within one epoch
	if elapsed >= uint32(timeout) {
		return true, 0, now
	}
	return false, timeout - Timeout(elapsed), now
}
