package ipc

import (
	"ironfrail/kconfig"
	"ironfrail/kerr"
	"ironfrail/klist"
	"ironfrail/kthread"
	"ironfrail/ticktimer"
)

// Semaphore is a counting semaphore bounded by a maximum count, grounded
// on t_sema_create[_static]/t_sema_send/t_sema_recv.
type Semaphore struct {
	sched  *kthread.Scheduler
	timers *ticktimer.Set
	cfg    kconfig.Config

	waitList *klist.Node[*kthread.Thread]
	alive    bool
	mode     Mode
	max      uint16
	count    uint16

	// Name is optional, diagnostic-only.
	Name string
}

// NewSemaphore creates a semaphore with the given bound and initial count.
// Requires kconfig.Config.IPCEnable and SemaphoreEnable.
func NewSemaphore(sched *kthread.Scheduler, timers *ticktimer.Set, cfg kconfig.Config, max, initCount uint16, mode Mode, name string) (*Semaphore, kerr.Result) {
	if max == 0 {
		return nil, kerr.ErrNull
	}
	if !cfg.IPCEnable || !cfg.SemaphoreEnable {
		return nil, kerr.ErrUnsupported
	}
	return &Semaphore{
		sched:    sched,
		timers:   timers,
		cfg:      cfg,
		waitList: klist.NewHead[*kthread.Thread](),
		alive:    true,
		mode:     mode,
		max:      max,
		count:    initCount,
		Name:     name,
	}, kerr.OK
}

// Send increments the count, waking one waiter if any are blocked. Returns
// ErrGeneric if the semaphore is already at its maximum count.
func (s *Semaphore) Send() kerr.Result {
	if !s.alive {
		return kerr.ErrDeleted
	}

	mask := s.sched.Lock()
	if !s.alive {
		s.sched.Unlock(mask)
		return kerr.ErrDeleted
	}
	if s.count >= s.max {
		s.sched.Unlock(mask)
		return kerr.ErrGeneric
	}

	s.count++
	needSwitch := false
	if !s.waitList.Empty() {
		node := s.waitList.Next()
		node.Remove()
		node.Owner.MarkReady()
		s.sched.InsertLocked(node.Owner)
		needSwitch = true
	}
	s.sched.Unlock(mask)

	if needSwitch {
		s.sched.Switch()
	}
	return kerr.OK
}

// Recv decrements the count, blocking up to timeout ticks if it is zero.
func (s *Semaphore) Recv(timeout Timeout) kerr.Result {
	if !s.alive {
		return kerr.ErrDeleted
	}

	var startTick uint32
	haveStart := false

	for {
		mask := s.sched.Lock()
		if !s.alive {
			s.sched.Unlock(mask)
			return kerr.ErrDeleted
		}
		if s.count > 0 {
			s.count--
			s.sched.Unlock(mask)
			return kerr.OK
		}
		if timeout == 0 {
			s.sched.Unlock(mask)
			return kerr.ErrGeneric
		}

		cur := s.sched.Current()
		suspendLocked(s.sched, s.waitList, cur, s.mode, s.cfg.LowerIsHigher)
		startTimeoutLocked(s.timers, cur, timeout, &startTick, &haveStart)
		s.sched.Unlock(mask)

		s.sched.Switch()

		if !s.alive {
			return kerr.ErrDeleted
		}

		var expired bool
		expired, timeout, startTick = checkTimeoutExpired(s.timers, timeout, startTick)
		if expired {
			return kerr.ErrGeneric
		}
	}
}

// Delete invalidates the semaphore and wakes every waiter with "deleted".
func (s *Semaphore) Delete() kerr.Result {
	if !s.alive {
		return kerr.OK
	}

	mask := s.sched.Lock()
	needSwitch := !s.waitList.Empty()
	resumeAllLocked(s.sched, s.waitList)
	s.alive = false
	s.count = 0
	s.sched.Unlock(mask)

	if needSwitch {
		s.sched.Switch()
	}
	return kerr.OK
}

// Count returns the current count, for diagnostics/tests.
func (s *Semaphore) Count() uint16 { return s.count }
