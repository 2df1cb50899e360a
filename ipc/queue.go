package ipc

import (
	"ironfrail/kconfig"
	"ironfrail/kerr"
	"ironfrail/klist"
	"ironfrail/kthread"
	"ironfrail/ticktimer"
)

// Queue is a bounded FIFO message queue, grounded on
// t_queue_create[_static]/t_queue_send/t_queue_recv. The original stores a
// flat byte buffer copied item-by-item via memcpy over an item_size stride;
// Go has no use for that layout, so Queue holds a slice ring of opaque
// items instead.
type Queue struct {
	sched  *kthread.Scheduler
	timers *ticktimer.Set
	cfg    kconfig.Config

	sendWaitList *klist.Node[*kthread.Thread]
	recvWaitList *klist.Node[*kthread.Thread]
	alive        bool
	mode         Mode

	buf   []any
	head  int // next slot to read
	tail  int // next slot to write
	count int

	Name string
}

func newQueue(sched *kthread.Scheduler, timers *ticktimer.Set, cfg kconfig.Config, capacity int, mode Mode, name string) *Queue {
	return &Queue{
		sched:        sched,
		timers:       timers,
		cfg:          cfg,
		sendWaitList: klist.NewHead[*kthread.Thread](),
		recvWaitList: klist.NewHead[*kthread.Thread](),
		alive:        true,
		mode:         mode,
		buf:          make([]any, capacity),
		Name:         name,
	}
}

// NewQueueStatic creates a queue over caller-accounted capacity. Requires
// kconfig.Config.IPCEnable and QueueEnable.
func NewQueueStatic(sched *kthread.Scheduler, timers *ticktimer.Set, cfg kconfig.Config, capacity int, mode Mode, name string) (*Queue, kerr.Result) {
	if capacity <= 0 {
		return nil, kerr.ErrNull
	}
	if !cfg.IPCEnable || !cfg.QueueEnable {
		return nil, kerr.ErrUnsupported
	}
	return newQueue(sched, timers, cfg, capacity, mode, name), kerr.OK
}

// NewQueue is NewQueueStatic under the dynamic-allocation gate, mirroring
// t_queue_create's TO_USING_DYNAMIC_ALLOCATION path.
func NewQueue(sched *kthread.Scheduler, timers *ticktimer.Set, cfg kconfig.Config, capacity int, mode Mode, name string) (*Queue, kerr.Result) {
	if !cfg.DynamicAllocEnable {
		return nil, kerr.ErrUnsupported
	}
	return NewQueueStatic(sched, timers, cfg, capacity, mode, name)
}

func (q *Queue) full() bool { return q.count == len(q.buf) }

func (q *Queue) pushLocked(data any) {
	q.buf[q.tail] = data
	q.tail = (q.tail + 1) % len(q.buf)
	q.count++
}

func (q *Queue) popLocked() any {
	v := q.buf[q.head]
	q.buf[q.head] = nil
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	return v
}

// Send enqueues data, blocking up to timeout ticks while the queue is full.
func (q *Queue) Send(data any, timeout Timeout) kerr.Result {
	if !q.alive {
		return kerr.ErrDeleted
	}

	var startTick uint32
	haveStart := false

	for {
		mask := q.sched.Lock()
		if !q.alive {
			q.sched.Unlock(mask)
			return kerr.ErrDeleted
		}
		if !q.full() {
			q.pushLocked(data)
			needSwitch := false
			if !q.recvWaitList.Empty() {
				node := q.recvWaitList.Next()
				node.Remove()
				node.Owner.MarkReady()
				q.sched.InsertLocked(node.Owner)
				needSwitch = true
			}
			q.sched.Unlock(mask)
			if needSwitch {
				q.sched.Switch()
			}
			return kerr.OK
		}
		if timeout == 0 {
			q.sched.Unlock(mask)
			return kerr.ErrGeneric
		}

		cur := q.sched.Current()
		suspendLocked(q.sched, q.sendWaitList, cur, q.mode, q.cfg.LowerIsHigher)
		startTimeoutLocked(q.timers, cur, timeout, &startTick, &haveStart)
		q.sched.Unlock(mask)

		q.sched.Switch()

		if !q.alive {
			return kerr.ErrDeleted
		}

		var expired bool
		expired, timeout, startTick = checkTimeoutExpired(q.timers, timeout, startTick)
		if expired {
			return kerr.ErrGeneric
		}
	}
}

// Recv dequeues the oldest item, blocking up to timeout ticks while the
// queue is empty.
func (q *Queue) Recv(timeout Timeout) (any, kerr.Result) {
	if !q.alive {
		return nil, kerr.ErrDeleted
	}

	var startTick uint32
	haveStart := false

	for {
		mask := q.sched.Lock()
		if !q.alive {
			q.sched.Unlock(mask)
			return nil, kerr.ErrDeleted
		}
		if q.count > 0 {
			data := q.popLocked()
			if !q.sendWaitList.Empty() {
				node := q.sendWaitList.Next()
				node.Remove()
				node.Owner.MarkReady()
				q.sched.InsertLocked(node.Owner)
			}
			q.sched.Unlock(mask)
			// t_queue_recv calls t_sched_switch unconditionally on its way
			// out, even when no sender was waiting to wake.
			q.sched.Switch()
			return data, kerr.OK
		}
		if timeout == 0 {
			q.sched.Unlock(mask)
			return nil, kerr.ErrGeneric
		}

		cur := q.sched.Current()
		suspendLocked(q.sched, q.recvWaitList, cur, q.mode, q.cfg.LowerIsHigher)
		startTimeoutLocked(q.timers, cur, timeout, &startTick, &haveStart)
		q.sched.Unlock(mask)

		q.sched.Switch()

		if !q.alive {
			return nil, kerr.ErrDeleted
		}

		var expired bool
		expired, timeout, startTick = checkTimeoutExpired(q.timers, timeout, startTick)
		if expired {
			return nil, kerr.ErrGeneric
		}
	}
}

// Delete invalidates the queue and wakes every sender and receiver waiter
// with "deleted".
func (q *Queue) Delete() kerr.Result {
	if !q.alive {
		return kerr.OK
	}

	mask := q.sched.Lock()
	needSwitch := !q.sendWaitList.Empty() || !q.recvWaitList.Empty()
	resumeAllLocked(q.sched, q.sendWaitList)
	resumeAllLocked(q.sched, q.recvWaitList)
	q.alive = false
	q.head, q.tail, q.count = 0, 0, 0
	q.sched.Unlock(mask)

	if needSwitch {
		q.sched.Switch()
	}
	return kerr.OK
}

// Len returns the number of queued items, for diagnostics/tests.
func (q *Queue) Len() int { return q.count }

// Cap returns the queue's fixed capacity.
func (q *Queue) Cap() int { return len(q.buf) }
