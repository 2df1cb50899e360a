// Package ticktimer implements the monotonic tick counter and the
// current/overflow sorted timer lists, grounded on
// _examples/original_source/src/timer.c. A tick-wrap swaps which list is
// "current" so every list only ever holds timers sorted on a comparison
// within a single 32-bit epoch; no signed-diff wraparound arithmetic is
// needed at check time.
package ticktimer

import (
	"sync/atomic"

	"ironfrail/kcpu"
	"ironfrail/klist"
)

// Callback is invoked when a timer expires, outside any critical section.
type Callback func(arg any)

// Timer is a software timer: one node on exactly one of a Set's two lists
// while running, or on neither while stopped.
type Timer struct {
	node        *klist.Node[*Timer]
	timeoutFunc Callback
	arg         any
	initTick    uint32
	timeoutTick uint32
}

// New creates a stopped timer with the given initial duration in ticks and
// expiration callback. fn is not checked here or by Set.Start; Check
// skips a timer whose callback is nil.
func New(fn Callback, arg any, initTick uint32) *Timer {
	t := &Timer{timeoutFunc: fn, arg: arg, initTick: initTick}
	t.node = &klist.Node[*Timer]{Owner: t}
	t.node.Init()
	return t
}

// InitTick returns the timer's configured duration in ticks.
func (t *Timer) InitTick() uint32 { return t.initTick }

// SetInitTick updates the timer's duration for future Start calls, the
// software equivalent of t_timer_ctrl's TO_TIMER_SET_TIME.
func (t *Timer) SetInitTick(tick uint32) { t.initTick = tick }

// Set owns a pair of timer lists (current and overflow-epoch) and the tick
// counter that drives them.
type Set struct {
	port kcpu.Port
	tick atomic.Uint32

	cur      *klist.Node[*Timer]
	overflow *klist.Node[*Timer]
}

// NewSet returns an initialized, empty timer Set. port supplies the
// IRQ-disable critical sections every list mutation needs.
func NewSet(port kcpu.Port) *Set {
	return &Set{
		port:     port,
		cur:      klist.NewHead[*Timer](),
		overflow: klist.NewHead[*Timer](),
	}
}

// Now returns the current tick count.
func (s *Set) Now() uint32 { return s.tick.Load() }

// Tick advances the tick counter by one and, on wrap, swaps the current
// and overflow lists so list membership always tracks one contiguous
// 32-bit epoch. Callers invoke this from the board's tick source, then
// call Check to run expirations.
func (s *Set) Tick() {
	mask := s.port.IRQDisable()
	v := s.tick.Add(1)
	if v == 0 {
		s.cur, s.overflow = s.overflow, s.cur
	}
	s.port.IRQRestore(mask)
}

// remove unlinks t from whichever list it is on, if any. Safe to call on a
// stopped timer.
func (s *Set) remove(t *Timer) {
	mask := s.port.IRQDisable()
	t.node.Remove()
	s.port.IRQRestore(mask)
}

// Start (re)arms t to fire init_tick ticks from now, removing it first if
// already running so no timer ever occupies two slots.
func (s *Set) Start(t *Timer) {
	mask := s.port.IRQDisable()
	t.node.Remove()

	now := s.tick.Load()
	t.timeoutTick = now + t.initTick

	sentinel := s.overflow
	if t.timeoutTick > now {
		sentinel = s.cur
	}

	p := sentinel
	for p.Next() != sentinel {
		next := p.Next().Owner
		if next.timeoutTick > t.timeoutTick {
			break
		}
		p = p.Next()
	}
	p.InsertAfter(t.node)

	s.port.IRQRestore(mask)
}

// Stop disarms t. A no-op if t is not running.
func (s *Set) Stop(t *Timer) {
	s.remove(t)
}

// Check pops every expired timer off the current list into a temporary
// list inside one short critical section, then invokes callbacks outside
// it so a callback is free to start another timer or block.
func (s *Set) Check() {
	expired := klist.NewHead[*Timer]()

	mask := s.port.IRQDisable()
	for !s.cur.Empty() {
		node := s.cur.Next()
		timer := node.Owner
		if s.tick.Load() < timer.timeoutTick {
			break
		}
		node.Remove()
		expired.InsertBefore(node)
	}
	s.port.IRQRestore(mask)

	for !expired.Empty() {
		node := expired.Next()
		timer := node.Owner
		node.Remove()
		if timer.timeoutFunc != nil {
			timer.timeoutFunc(timer.arg)
		}
	}
}
