// Package kthread implements the ready-queue scheduler and thread
// lifecycle together, grounded on
// _examples/original_source/src/scheduler.c and src/thread.c. The two stay
// one Go package (not "sched" and "thread" separately) because the C
// sources are mutually recursive on t_thread_t — thread.c calls
// t_sched_remove_thread/t_sched_switch and scheduler.c walks
// thread->tlist/number_mask directly, a shape Go's acyclic import graph
// cannot express across two packages without an interface layer thinner
// than just keeping them together. scheduler.go and thread.go are kept as
// separate files to preserve the module boundary spec.md draws between
// them.
package kthread

import (
	"ironfrail/kconfig"
	"ironfrail/kcpu"
	"ironfrail/klist"
)

// Scheduler owns the per-priority ready lists, the ready bitmap, and the
// currently running thread. One Scheduler exists per kernel instance.
type Scheduler struct {
	port kcpu.Port
	cfg  kconfig.Config

	ready      []*klist.Node[*Thread]
	readyGroup uint32
	readyCount uint32

	current         *Thread
	currentPriority uint8

	suspendCount uint32

	terminationList *klist.Node[*Thread]
}

// NewScheduler builds an initialized, empty Scheduler: every ready list is
// empty, the bitmap and suspend counter are clear, and there is no current
// thread — mirroring t_sched_init.
func NewScheduler(cfg kconfig.Config, port kcpu.Port) *Scheduler {
	s := &Scheduler{
		port:            port,
		cfg:             cfg,
		ready:           make([]*klist.Node[*Thread], cfg.Priorities),
		terminationList: klist.NewHead[*Thread](),
	}
	for i := range s.ready {
		s.ready[i] = klist.NewHead[*Thread]()
	}
	return s
}

// Current returns the running thread, or nil before Start.
func (s *Scheduler) Current() *Thread { return s.current }

// CurrentPriority returns the running thread's priority, undefined before
// Start.
func (s *Scheduler) CurrentPriority() uint8 { return s.currentPriority }

// highestReadyPriority returns the highest-priority non-empty ready list,
// and whether any list is non-empty at all.
func (s *Scheduler) highestReadyPriority() (uint8, bool) {
	if s.readyGroup == 0 {
		return 0, false
	}
	var idx uint8
	if s.cfg.UseCPUBitscan {
		if s.cfg.LowerIsHigher {
			idx = kcpu.FFS32(s.readyGroup) - 1
		} else {
			idx = kcpu.FLS32(s.readyGroup) - 1
		}
	} else {
		idx = portableScan(s.readyGroup, s.cfg.LowerIsHigher)
	}
	return idx, true
}

// portableScan is the non-CPU-bit-scan fallback: a linear walk over the
// bitmap, used when kconfig.Config.UseCPUBitscan is false.
func portableScan(group uint32, lowerIsHigher bool) uint8 {
	if lowerIsHigher {
		for i := uint8(0); i < 32; i++ {
			if group&(1<<i) != 0 {
				return i
			}
		}
		return 0
	}
	for i := int8(31); i >= 0; i-- {
		if group&(1<<uint8(i)) != 0 {
			return uint8(i)
		}
	}
	return 0
}

// insertLocked appends thread to the tail of its priority's ready list and
// sets the corresponding bitmap bit. Caller must hold the IRQ-disable
// critical section.
func (s *Scheduler) insertLocked(thread *Thread) {
	s.ready[thread.currentPriority].InsertBefore(thread.node)
	s.readyGroup |= thread.numberMask
	s.readyCount++
}

// removeLocked unlinks thread from its ready list and clears the bitmap
// bit if the list becomes empty. Caller must hold the IRQ-disable critical
// section.
func (s *Scheduler) removeLocked(thread *Thread) {
	thread.node.Remove()
	if s.ready[thread.currentPriority].Empty() {
		s.readyGroup &^= thread.numberMask
	}
	s.readyCount--
}

// Lock enters the scheduler's IRQ-disable critical section and returns the
// mask Unlock must be given back. Exported for the ipc package, whose
// suspend/resume/wake paths need to hold the same critical section across
// a ready-list mutation and a wait-list mutation; see InsertLocked and
// RemoveLocked.
func (s *Scheduler) Lock() kcpu.Mask { return s.port.IRQDisable() }

// Unlock leaves the critical section entered by Lock.
func (s *Scheduler) Unlock(mask kcpu.Mask) { s.port.IRQRestore(mask) }

// InsertLocked is InsertThread without taking its own lock: the caller
// must already hold the scheduler via Lock.
func (s *Scheduler) InsertLocked(thread *Thread) { s.insertLocked(thread) }

// RemoveLocked is RemoveThread without taking its own lock: the caller
// must already hold the scheduler via Lock.
func (s *Scheduler) RemoveLocked(thread *Thread) { s.removeLocked(thread) }

// InsertThread makes thread READY-eligible: append to its priority's ready
// list under an IRQ-disable critical section.
func (s *Scheduler) InsertThread(thread *Thread) {
	mask := s.port.IRQDisable()
	s.insertLocked(thread)
	s.port.IRQRestore(mask)
}

// RemoveThread removes thread from the ready list under an IRQ-disable
// critical section.
func (s *Scheduler) RemoveThread(thread *Thread) {
	mask := s.port.IRQDisable()
	s.removeLocked(thread)
	s.port.IRQRestore(mask)
}

// Start selects the highest-priority ready thread, marks it RUNNING with a
// fresh time slice, and invokes the CPU port's first-switch entry. Assumes
// at least one thread is ready; callers must create and start up the idle
// thread before calling Start.
func (s *Scheduler) Start() {
	priority, ok := s.highestReadyPriority()
	if !ok {
		return
	}
	next := s.ready[priority].Next().Owner

	s.current = next
	s.currentPriority = next.currentPriority
	next.status = StatusRunning
	next.remainingTick = next.initTick

	s.port.First()
}

// Suspend increments the scheduler-suspend nesting counter. While nonzero,
// Switch is a no-op; this is a scheduler-only latch, distinct from
// IRQ-disable, and never delays timers or device interrupts.
func (s *Scheduler) Suspend() {
	s.suspendCount++
}

// Resume decrements the nesting counter and, once it reaches zero with at
// least one ready thread, attempts a switch.
func (s *Scheduler) Resume() {
	s.suspendCount--
	if s.suspendCount == 0 && s.readyCount > 0 {
		s.Switch()
	}
}

// Switch attempts a context switch to the highest-priority ready thread.
// A no-op while suspended, while no thread is ready, or when the current
// thread is already the one chosen.
func (s *Scheduler) Switch() {
	if s.suspendCount != 0 {
		return
	}
	priority, ok := s.highestReadyPriority()
	if !ok {
		return
	}
	next := s.ready[priority].Next().Owner
	if s.current == next {
		return
	}

	prev := s.current
	s.current = next
	if prev != nil && prev.status == StatusRunning {
		prev.status = StatusReady
	}
	next.status = StatusRunning
	s.currentPriority = next.currentPriority

	s.port.Normal()
}

// RotateSamePriority moves the current thread to the tail of its own
// priority's ready list (round-robin) and attempts a switch. A no-op if
// fewer than two threads share the current priority.
func (s *Scheduler) RotateSamePriority() {
	mask := s.port.IRQDisable()
	cur := s.current
	if s.ready[cur.currentPriority].Len() <= 1 {
		s.port.IRQRestore(mask)
		return
	}
	cur.node.Remove()
	s.ready[cur.currentPriority].InsertBefore(cur.node)
	s.port.IRQRestore(mask)

	s.Switch()
}

// TickSlice decrements the current thread's remaining time slice by one
// and, only once it reaches zero, reloads it from initTick and rotates the
// ready list within the current priority — grounded on t_tick_increase's
// remaining_tick handling in timer.c, the tick ISR hook that calls
// t_thread_rotate_same_prio precisely (and only) on the tick where the
// slice runs out. The board's tick source cannot call this directly: like
// RotateSamePriority/Switch, it may trigger Port.Normal and so must run on
// the currently-scheduled thread's own goroutine (see board.YieldTimeslice).
func (s *Scheduler) TickSlice() {
	mask := s.port.IRQDisable()
	cur := s.current
	if cur == nil {
		s.port.IRQRestore(mask)
		return
	}
	cur.remainingTick--
	expired := cur.remainingTick == 0
	if expired {
		cur.remainingTick = cur.initTick
	}
	s.port.IRQRestore(mask)

	if expired {
		s.RotateSamePriority()
	}
}
