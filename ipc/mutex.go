package ipc

import (
	"ironfrail/kconfig"
	"ironfrail/kerr"
	"ironfrail/klist"
	"ironfrail/kthread"
	"ironfrail/ticktimer"
)

// mutex is the shared implementation behind Mutex and RecursiveMutex,
// grounded on t_mutex_create_base/t_mutex_send_base/t_mutex_recv_base,
// which the original parameterizes by ipc_type rather than duplicating.
type mutex struct {
	sched  *kthread.Scheduler
	timers *ticktimer.Set
	cfg    kconfig.Config

	waitList *klist.Node[*kthread.Thread]
	alive    bool
	mode     Mode
	recurse  bool // true for RecursiveMutex: Send decrements a recursion counter

	holder          *kthread.Thread
	recursion       uint16
	originalPrio    uint8
	originalPrioSet bool

	Name string
}

func newMutex(sched *kthread.Scheduler, timers *ticktimer.Set, cfg kconfig.Config, mode Mode, recurse bool, name string) *mutex {
	return &mutex{
		sched:    sched,
		timers:   timers,
		cfg:      cfg,
		waitList: klist.NewHead[*kthread.Thread](),
		alive:    true,
		mode:     mode,
		recurse:  recurse,
		Name:     name,
	}
}

func (m *mutex) send() kerr.Result {
	if !m.alive {
		return kerr.ErrDeleted
	}

	mask := m.sched.Lock()
	if !m.alive {
		m.sched.Unlock(mask)
		return kerr.ErrDeleted
	}
	if m.sched.Current() != m.holder {
		m.sched.Unlock(mask)
		return kerr.ErrGeneric
	}

	if m.recurse {
		if m.recursion > 0 {
			m.recursion--
		}
		if m.recursion > 0 {
			m.sched.Unlock(mask)
			return kerr.OK
		}
	}

	cur := m.sched.Current()
	m.holder = nil
	m.recursion = 0

	if m.originalPrioSet {
		cur.SetPriorityInherited(m.originalPrio)
		m.originalPrioSet = false
	}

	needSwitch := false
	if !m.waitList.Empty() {
		node := m.waitList.Next()
		node.Remove()
		node.Owner.MarkReady()
		m.sched.InsertLocked(node.Owner)
		needSwitch = true
	}
	m.sched.Unlock(mask)

	if needSwitch {
		m.sched.Switch()
	}
	return kerr.OK
}

// applyInheritance raises the current holder's priority to cur's if cur is
// strictly higher, recording the holder's pre-boost priority the first
// time a boost happens so send can restore it on release. A no-op if cur
// is not higher priority than the holder.
func (m *mutex) applyInheritance(cur *kthread.Thread) {
	if !higherPriority(cur, m.holder, m.cfg.LowerIsHigher) {
		return
	}
	if !m.originalPrioSet {
		m.originalPrio = m.holder.Priority()
		m.originalPrioSet = true
	}
	m.holder.SetPriorityInherited(cur.Priority())
}

func (m *mutex) recv(timeout Timeout) kerr.Result {
	if !m.alive {
		return kerr.ErrDeleted
	}

	var startTick uint32
	haveStart := false

	for {
		mask := m.sched.Lock()
		if !m.alive {
			m.sched.Unlock(mask)
			return kerr.ErrDeleted
		}

		cur := m.sched.Current()
		if m.holder == nil {
			m.holder = cur
			m.recursion = 1
			m.sched.Unlock(mask)
			return kerr.OK
		}
		if m.holder == cur {
			if m.recurse {
				m.recursion++
			}
			m.sched.Unlock(mask)
			return kerr.OK
		}
		if timeout == 0 {
			m.sched.Unlock(mask)
			return kerr.ErrGeneric
		}

		m.applyInheritance(cur)

		suspendLocked(m.sched, m.waitList, cur, m.mode, m.cfg.LowerIsHigher)
		startTimeoutLocked(m.timers, cur, timeout, &startTick, &haveStart)
		m.sched.Unlock(mask)

		m.sched.Switch()

		if !m.alive {
			return kerr.ErrDeleted
		}
		if m.holder == cur {
			return kerr.OK
		}

		var expired bool
		expired, timeout, startTick = checkTimeoutExpired(m.timers, timeout, startTick)
		if expired {
			return kerr.ErrGeneric
		}
	}
}

func (m *mutex) delete() kerr.Result {
	if !m.alive {
		return kerr.OK
	}

	mask := m.sched.Lock()
	needSwitch := !m.waitList.Empty()
	resumeAllLocked(m.sched, m.waitList)
	m.alive = false
	m.holder = nil
	m.recursion = 0
	m.sched.Unlock(mask)

	if needSwitch {
		m.sched.Switch()
	}
	return kerr.OK
}

// Mutex is a non-recursive single-holder lock with single-level priority
// inheritance, grounded on IPC_MUTEX.
type Mutex struct{ m *mutex }

// NewMutex creates an available mutex. Requires kconfig.Config.IPCEnable
// and MutexEnable.
func NewMutex(sched *kthread.Scheduler, timers *ticktimer.Set, cfg kconfig.Config, mode Mode, name string) (*Mutex, kerr.Result) {
	if !cfg.IPCEnable || !cfg.MutexEnable {
		return nil, kerr.ErrUnsupported
	}
	return &Mutex{m: newMutex(sched, timers, cfg, mode, false, name)}, kerr.OK
}

// Send releases the mutex; only the current holder may call this.
func (mu *Mutex) Send() kerr.Result { return mu.m.send() }

// Recv acquires the mutex, blocking up to timeout ticks if held.
func (mu *Mutex) Recv(timeout Timeout) kerr.Result { return mu.m.recv(timeout) }

// Delete invalidates the mutex and wakes every waiter with "deleted".
func (mu *Mutex) Delete() kerr.Result { return mu.m.delete() }

// RecursiveMutex is a mutex that the current holder may re-acquire, with a
// matching number of Send calls required to fully release it, grounded on
// IPC_RECURSIVE_MUTEX.
type RecursiveMutex struct{ m *mutex }

// NewRecursiveMutex creates an available recursive mutex. Requires
// kconfig.Config.IPCEnable and RecursiveMutexEnable.
func NewRecursiveMutex(sched *kthread.Scheduler, timers *ticktimer.Set, cfg kconfig.Config, mode Mode, name string) (*RecursiveMutex, kerr.Result) {
	if !cfg.IPCEnable || !cfg.RecursiveMutexEnable {
		return nil, kerr.ErrUnsupported
	}
	return &RecursiveMutex{m: newMutex(sched, timers, cfg, mode, true, name)}, kerr.OK
}

// Send releases one level of recursion; only once recursion reaches zero
// does the mutex become available to other threads.
func (mu *RecursiveMutex) Send() kerr.Result { return mu.m.send() }

// Recv acquires (or re-acquires) the mutex, blocking up to timeout ticks.
func (mu *RecursiveMutex) Recv(timeout Timeout) kerr.Result { return mu.m.recv(timeout) }

// Delete invalidates the mutex and wakes every waiter with "deleted".
func (mu *RecursiveMutex) Delete() kerr.Result { return mu.m.delete() }
