// Package hostsim implements the kcpu.Port contract on a development
// machine: one goroutine stands in for each hardware thread, gated by a
// per-thread run-token channel, grounded on
// other_examples/waj334-sigo__scheduler.go's task-ring dispatch and the
// teacher's own channel-gated Context.Recv (sparkos/kernel/context.go).
// IRQ-disable is a sync.Mutex-backed critical section: single-core
// semantics are preserved by never holding that lock across a blocking
// handoff.
package hostsim

import (
	"sync"

	"ironfrail/kcpu"
	"ironfrail/kthread"
	"ironfrail/ticktimer"
)

// token is the run/park gate for one simulated hardware thread: a value
// arriving wakes the goroutine blocked receiving on it.
type token struct {
	run chan struct{}
}

// Port is a host-simulated CPU port. Bind must be called once, after the
// Scheduler and timer set it drives have been constructed, and before the
// first thread is started.
type Port struct {
	sched  *kthread.Scheduler
	timers *ticktimer.Set

	irqMu    sync.Mutex
	irqDepth uint32
	excl     sync.Mutex

	regMu   sync.Mutex
	tokens  map[*kthread.Thread]*token
	running *token

	stop     chan struct{}
	stopOnce sync.Once
}

// New returns an unbound Port. Call Bind before starting the scheduler.
func New() *Port {
	return &Port{tokens: make(map[*kthread.Thread]*token), stop: make(chan struct{})}
}

// Halt unblocks First, letting the goroutine that called Scheduler.Start
// return. RunTicks calls this once its tick source stops, so Kernel.Run's
// errgroup.Wait sees both member goroutines finish instead of leaking the
// dispatch goroutine parked forever in First.
func (p *Port) Halt() {
	p.stopOnce.Do(func() { close(p.stop) })
}

// Bind associates the port with the scheduler and timer set it will
// drive. Both First and Normal read sched.Current() to decide who runs
// next.
func (p *Port) Bind(sched *kthread.Scheduler, timers *ticktimer.Set) {
	p.sched = sched
	p.timers = timers
}

// tokenFor returns t's run token, spawning its backing goroutine on first
// use. The goroutine blocks immediately on the token until First or
// Normal hands it control, runs Entry, and then exits the kernel thread
// via Scheduler.Exit on return — mirroring how a board wires a bare
// function return back into the kernel's own termination path.
func (p *Port) tokenFor(t *kthread.Thread) *token {
	p.regMu.Lock()
	defer p.regMu.Unlock()

	if tok, ok := p.tokens[t]; ok {
		return tok
	}
	tok := &token{run: make(chan struct{})}
	p.tokens[t] = tok
	go func() {
		<-tok.run
		t.Entry()(t.Arg())
		p.sched.Exit(p.timers)
	}()
	return tok
}

// Forget drops t's token so a later Restart spawns a fresh goroutine
// instead of resuming one whose Entry already returned.
func (p *Port) Forget(t *kthread.Thread) {
	p.regMu.Lock()
	delete(p.tokens, t)
	p.regMu.Unlock()
}

// First bootstraps scheduling: it hands control to the scheduler's
// current thread and then blocks until Halt is called, standing in for
// the board-less C original's t_sched_start svc call, which never
// returns.
func (p *Port) First() {
	next := p.tokenFor(p.sched.Current())
	p.running = next
	next.run <- struct{}{}
	<-p.stop
}

// Normal wakes the new current thread and parks the outgoing one (the
// goroutine calling Normal is always the outgoing thread's own, since
// Switch only calls Normal from within kernel code running on its
// behalf).
func (p *Port) Normal() {
	outgoing := p.running
	next := p.tokenFor(p.sched.Current())
	p.running = next
	next.run <- struct{}{}
	if outgoing != nil {
		<-outgoing.run
	}
}

// IRQDisable acquires the host-wide critical section lock on the
// outermost call and just bumps a nesting depth on inner ones, mirroring
// a real IRQ-mask save/restore's nesting contract.
func (p *Port) IRQDisable() kcpu.Mask {
	p.irqMu.Lock()
	depth := p.irqDepth
	if depth == 0 {
		p.irqMu.Unlock()
		p.excl.Lock()
		p.irqMu.Lock()
	}
	p.irqDepth = depth + 1
	p.irqMu.Unlock()
	return kcpu.Mask(depth)
}

// IRQRestore sets the nesting depth back to the value IRQDisable
// returned, releasing the critical section lock once it reaches zero.
func (p *Port) IRQRestore(prev kcpu.Mask) {
	p.irqMu.Lock()
	p.irqDepth = uint32(prev)
	release := p.irqDepth == 0
	p.irqMu.Unlock()
	if release {
		p.excl.Unlock()
	}
}
