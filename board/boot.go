// Package board sequences a kernel instance the same shape as the
// original's service.c boot script (initialize scheduler, build the idle
// thread, start the tick source, hand off to the scheduler) and as the
// teacher's own app.NewWithConfig / hal.RunHeadless bring-up
// (main_host.go).
package board

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"ironfrail/board/hostsim"
	"ironfrail/kconfig"
	"ironfrail/kthread"
	"ironfrail/pool"
	"ironfrail/ticktimer"
)

// Kernel bundles the collaborators a running instance needs: the
// scheduler, its timer set, the default dynamic-allocation pool (nil if
// kconfig.Config.DynamicAllocEnable is false), and the hostsim port
// driving both.
type Kernel struct {
	Scheduler *kthread.Scheduler
	Timers    *ticktimer.Set
	Pool      *pool.Legacy
	Port      *hostsim.Port
	Idle      *kthread.Thread

	cfg kconfig.Config
}

// Boot validates cfg, constructs the scheduler and timer set over a fresh
// hostsim port, creates and starts the idle thread, and (when
// DynamicAllocEnable is set) the default byte-pool allocator. It does not
// start the tick source or hand off to the scheduler — call RunTicks and
// Scheduler.Start (or Run) for that, once any application threads have
// also been created.
func Boot(cfg kconfig.Config) (*Kernel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("board: %w", err)
	}

	port := hostsim.New()
	sched := kthread.NewScheduler(cfg, port)
	timers := ticktimer.NewSet(port)
	port.Bind(sched, timers)

	k := &Kernel{Scheduler: sched, Timers: timers, Port: port, cfg: cfg}

	idle, r := sched.CreateStatic(k.idleEntry, nil, cfg.IdleStackSize, cfg.Priorities-1, 1, timers, "idle")
	if !r.Ok() {
		return nil, fmt.Errorf("board: create idle thread: %v", r)
	}
	k.Idle = idle

	if cfg.DynamicAllocEnable {
		k.Pool = pool.NewLegacy(sched, cfg.PoolSize)
	}

	if r := sched.Startup(idle); !r.Ok() {
		return nil, fmt.Errorf("board: start idle thread: %v", r)
	}
	return k, nil
}

// Run starts the scheduler dispatch loop and the tick source (at cfg's
// configured rate, bounded to maxTicks fired when maxTicks > 0) as two
// goroutines under an errgroup.Group, the same pairing gvisor's test
// harnesses use errgroup for (test/gpu/cuda/cuda.go): when the tick
// source stops (maxTicks fired or ctx canceled), RunTicks calls Port.Halt,
// which unparks the dispatch goroutine inside Scheduler.Start, so Wait
// observes both finish instead of leaking that goroutine forever.
func (k *Kernel) Run(ctx context.Context, maxTicks uint64) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		k.Scheduler.Start()
		return nil
	})
	g.Go(func() error {
		return k.Port.RunTicks(gctx, k.cfg.TickRate, maxTicks)
	})
	return g.Wait()
}

// idleEntry is the idle thread body: it reclaims terminated threads and
// cooperatively drains expired timers/attempts a switch on every pass, so
// a sleeping or blocked-with-timeout thread is promptly woken even when
// nothing else is runnable.
func (k *Kernel) idleEntry(any) {
	for {
		k.Scheduler.CleanupWaitingTermination()
		Yield(k.Scheduler, k.Timers)
		runtime.Gosched()
	}
}
