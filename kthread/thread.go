package kthread

import (
	"ironfrail/kerr"
	"ironfrail/klist"
	"ironfrail/ticktimer"
)

// Entry is a thread's body. It runs until it calls Scheduler.Exit (or
// returns, which a board wires to call Exit on its behalf — see
// board/hostsim's Port.tokenFor).
type Entry func(arg any)

// Thread is a kernel thread control block. Unlike the original's t_thread_t
// it carries no raw stack pointer: Go has no manual context save/restore,
// so the board backing a Scheduler's kcpu.Port owns whatever execution
// primitive (goroutine, run-token channel, ...) actually runs Entry.
// board/hostsim keeps its run tokens in its own map; Handle is a slot for
// such board-owned state, and kthread never inspects it.
type Thread struct {
	node *klist.Node[*Thread]

	entry     Entry
	arg       any
	stackSize uint32

	currentPriority uint8
	initPriority    uint8
	numberMask      uint32

	initTick      uint32
	remainingTick uint32

	status Status
	timer  *ticktimer.Timer

	staticAllocated bool

	// Name is optional, diagnostic-only: it participates in no
	// scheduling or IPC decision.
	Name string

	// Handle is opaque board-owned state (e.g. a run-token channel).
	Handle any
}

func newThreadFields(entry Entry, arg any, stackSize uint32, priority uint8, timeSlice uint32) *Thread {
	t := &Thread{
		entry:           entry,
		arg:             arg,
		stackSize:       stackSize,
		currentPriority: priority,
		initPriority:    priority,
		numberMask:      1 << priority,
		initTick:        timeSlice,
		remainingTick:   timeSlice,
	}
	t.node = &klist.Node[*Thread]{Owner: t}
	t.node.Init()
	return t
}

// Node returns the thread's single list-membership node: the ready list,
// an ipc wait list, and the deferred-termination list all reuse this same
// node, since a thread is on at most one such list at a time.
func (t *Thread) Node() *klist.Node[*Thread] { return t.node }

// Entry returns the thread's body function.
func (t *Thread) Entry() Entry { return t.entry }

// Arg returns the argument passed to Entry.
func (t *Thread) Arg() any { return t.arg }

// Status returns the thread's current lifecycle state.
func (t *Thread) Status() Status { return t.status }

// Priority returns the thread's current (possibly inheritance-boosted)
// priority.
func (t *Thread) Priority() uint8 { return t.currentPriority }

// InitPriority returns the thread's priority as created, ignoring any
// temporary priority-inheritance boost.
func (t *Thread) InitPriority() uint8 { return t.initPriority }

// Timer returns the thread's private sleep/timeout timer.
func (t *Thread) Timer() *ticktimer.Timer { return t.timer }

// IsStaticAllocated reports whether the thread was created with
// CreateStatic (true) or Create (false). CleanupWaitingTermination does
// not consult it; nothing in kthread reclaims backing buffers.
func (t *Thread) IsStaticAllocated() bool { return t.staticAllocated }

// MarkSuspended sets status directly to SUSPEND. For use by the ipc
// package's wait-list suspension path, which removes the thread from the
// ready queue itself (via RemoveLocked) under the same critical section
// rather than going through SuspendThread.
func (t *Thread) MarkSuspended() { t.status = StatusSuspend }

// MarkReady sets status directly to READY. For use by the ipc package
// when waking a waiter it is about to hand to InsertLocked, mirroring the
// original's wake paths which set status before t_sched_insert_thread
// rather than going through Startup.
func (t *Thread) MarkReady() { t.status = StatusReady }

// SetPriorityInherited temporarily raises (or restores) current_priority
// without touching init_priority, for the ipc package's single-level
// mutex priority inheritance.
func (t *Thread) SetPriorityInherited(priority uint8) { t.setPriorityInherited(priority) }

// setPriorityInherited temporarily raises (or restores) current_priority
// without touching init_priority, recomputing number_mask, for mutex
// single-level priority inheritance. Ctrl with CmdSetPriority has the
// same effect (it also leaves init_priority alone); ipc calls this
// directly.
func (t *Thread) setPriorityInherited(priority uint8) {
	t.currentPriority = priority
	t.numberMask = 1 << priority
}

func (s *Scheduler) defaultTimeout(arg any) {
	t := arg.(*Thread)
	t.node.Remove() // detach from whatever wait list (ipc, sleep) is still holding it
	t.status = StatusReady
	s.InsertThread(t)
	s.Switch()
}

func validateCreate(entry Entry, stackSize uint32, priority uint8, timeSlice uint32, maxPriority uint8) kerr.Result {
	if entry == nil || stackSize == 0 {
		return kerr.ErrNull
	}
	if priority >= maxPriority {
		return kerr.ErrInvalid
	}
	if timeSlice == 0 {
		return kerr.ErrInvalid
	}
	return kerr.OK
}

// CreateStatic builds a thread from caller-supplied storage bookkeeping
// (stackSize is recorded but never allocated here — Go has no manual
// stack). Requires kconfig.Config.StaticAllocEnable.
func (s *Scheduler) CreateStatic(entry Entry, arg any, stackSize uint32, priority uint8, timeSlice uint32, timers *ticktimer.Set, name string) (*Thread, kerr.Result) {
	if r := validateCreate(entry, stackSize, priority, timeSlice, s.cfg.Priorities); !r.Ok() {
		return nil, r
	}
	if !s.cfg.StaticAllocEnable {
		return nil, kerr.ErrUnsupported
	}

	t := newThreadFields(entry, arg, stackSize, priority, timeSlice)
	t.timer = ticktimer.New(s.defaultTimeout, t, timeSlice)
	t.staticAllocated = true
	t.Name = name
	t.status = StatusInit
	return t, kerr.OK
}

// Create builds a thread the same way as CreateStatic but marks it as
// dynamically allocated, for cleanup accounting parity with the original's
// TO_USING_DYNAMIC_ALLOCATION path. Requires
// kconfig.Config.DynamicAllocEnable.
func (s *Scheduler) Create(entry Entry, arg any, stackSize uint32, priority uint8, timeSlice uint32, timers *ticktimer.Set, name string) (*Thread, kerr.Result) {
	if r := validateCreate(entry, stackSize, priority, timeSlice, s.cfg.Priorities); !r.Ok() {
		return nil, r
	}
	if !s.cfg.DynamicAllocEnable {
		return nil, kerr.ErrUnsupported
	}

	t := newThreadFields(entry, arg, stackSize, priority, timeSlice)
	t.timer = ticktimer.New(s.defaultTimeout, t, timeSlice)
	t.staticAllocated = false
	t.Name = name
	t.status = StatusInit
	return t, kerr.OK
}

// Startup transitions a thread from INIT to READY and inserts it into the
// ready queue. Refuses DELETED threads.
func (s *Scheduler) Startup(t *Thread) kerr.Result {
	if t == nil {
		return kerr.ErrNull
	}
	if t.status == StatusDeleted {
		return kerr.ErrGeneric
	}

	mask := s.port.IRQDisable()
	t.currentPriority = t.initPriority
	t.status = StatusReady
	t.remainingTick = t.initTick
	s.insertLocked(t)
	s.port.IRQRestore(mask)
	return kerr.OK
}

// Delete marks t TERMINATED and moves it to the deferred-termination list;
// actual reclamation happens later via CleanupWaitingTermination.
// Idempotent: deleting an already-TERMINATED thread is a no-op success.
func (s *Scheduler) Delete(t *Thread, timers *ticktimer.Set) kerr.Result {
	if t == nil {
		return kerr.ErrNull
	}
	if t.status == StatusTerminated {
		return kerr.OK
	}
	if t.status == StatusDeleted {
		return kerr.ErrGeneric
	}

	s.RemoveThread(t)
	timers.Stop(t.timer)

	mask := s.port.IRQDisable()
	t.status = StatusTerminated
	s.terminationList.InsertBefore(t.node)
	s.port.IRQRestore(mask)
	return kerr.OK
}

// Sleep blocks the current thread for tick ticks: removes it from the
// ready queue, arms its private timer, and switches away. Returns once the
// timer's default callback reinserts the thread and it is scheduled again.
func (s *Scheduler) Sleep(timers *ticktimer.Set, tick uint32) {
	cur := s.current
	s.RemoveThread(cur)
	cur.status = StatusSuspend

	timers.Stop(cur.timer)
	cur.timer.SetInitTick(tick)
	timers.Start(cur.timer)

	s.Switch()
}

// SuspendThread removes t from the ready queue without arming a timer —
// callers wake it explicitly via Startup, there is no built-in timeout.
func (s *Scheduler) SuspendThread(t *Thread) kerr.Result {
	if t == nil {
		return kerr.ErrNull
	}
	mask := s.port.IRQDisable()
	s.removeLocked(t)
	t.status = StatusSuspend
	s.port.IRQRestore(mask)
	return kerr.OK
}

// Ctrl is the generic thread property accessor/mutator. For CmdGetStatus,
// arg must be a *Status; for CmdGetPriority/CmdSetPriority, a *uint8.
func (s *Scheduler) Ctrl(t *Thread, cmd Cmd, arg any) kerr.Result {
	if t == nil {
		return kerr.ErrNull
	}
	switch cmd {
	case CmdGetStatus:
		if p, ok := arg.(*Status); ok && p != nil {
			*p = t.status
		}
		return kerr.OK
	case CmdGetPriority:
		if p, ok := arg.(*uint8); ok && p != nil {
			*p = t.currentPriority
		}
		return kerr.OK
	case CmdSetPriority:
		p, ok := arg.(*uint8)
		if !ok || p == nil {
			return kerr.ErrGeneric
		}
		t.currentPriority = *p
		t.numberMask = 1 << *p
		return kerr.OK
	default:
		return kerr.ErrUnsupported
	}
}

// CleanupWaitingTermination reclaims every TERMINATED thread on the
// deferred-termination list, marking each DELETED. A board's idle thread
// calls this in a loop; there is no explicit free step since Go's GC
// reclaims a Thread once the caller drops its last reference.
func (s *Scheduler) CleanupWaitingTermination() {
	mask := s.port.IRQDisable()
	for !s.terminationList.Empty() {
		node := s.terminationList.Next()
		node.Owner.status = StatusDeleted
		node.Remove()
	}
	s.port.IRQRestore(mask)
}

// Restart reinitializes a DELETED thread with its original entry, arg, and
// priority, rearms its timer at the same duration, and starts it up again.
func (s *Scheduler) Restart(t *Thread, timers *ticktimer.Set) kerr.Result {
	if t == nil {
		return kerr.ErrNull
	}
	if t.status != StatusDeleted {
		return kerr.ErrGeneric
	}

	// Node.Remove is a no-op on a node not currently linked anywhere, so
	// this also covers a DELETED thread already off every list.
	t.node.Remove()

	timeSlice := t.timer.InitTick()
	fresh := newThreadFields(t.entry, t.arg, t.stackSize, t.initPriority, timeSlice)
	t.currentPriority = fresh.currentPriority
	t.numberMask = fresh.numberMask
	t.initTick = fresh.initTick
	t.remainingTick = fresh.remainingTick
	t.timer = ticktimer.New(s.defaultTimeout, t, timeSlice)

	t.status = StatusReady
	return s.Startup(t)
}

// Exit terminates the current thread and switches away. It never returns
// to its caller when the switch succeeds.
func (s *Scheduler) Exit(timers *ticktimer.Set) {
	if s.current == nil {
		return
	}

	mask := s.port.IRQDisable()
	cur := s.current
	s.removeLocked(cur)
	timers.Stop(cur.timer)
	cur.status = StatusTerminated
	s.terminationList.InsertBefore(cur.node)
	s.port.IRQRestore(mask)

	s.Switch()

	select {} // unreachable once the switch hands off to another thread
}
