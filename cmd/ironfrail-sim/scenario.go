package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"ironfrail/board"
	"ironfrail/ipc"
	"ironfrail/kconfig"
	"ironfrail/kthread"
)

// scenarioConfig is the shape a named scenario's optional TOML file
// decodes into, layered on top of kconfig.Config the same way
// cmd/gvisor-containerd-shim/config.go layers its shim config on top of
// runtime defaults.
type scenarioConfig struct {
	TickRateHz uint32 `toml:"tick_rate_hz"`
	MaxTicks   uint64 `toml:"max_ticks"`
}

func defaultScenarioConfig() scenarioConfig {
	return scenarioConfig{TickRateHz: 1000, MaxTicks: 200}
}

// scenario is one of spec §8's seven named end-to-end behaviors.
type scenario struct {
	name     string
	synopsis string
	run      func(log *logrus.Logger, cfg scenarioConfig) error
}

var scenarios = []scenario{
	{"preempt", "higher-priority thread preempts a lower-priority one on wake", runPreempt},
	{"roundrobin", "same-priority threads round-robin on timeslice expiry", runRoundRobin},
	{"sem-fifo", "semaphore wakes FIFO waiters in arrival order", runSemFIFO},
	{"sem-prio", "semaphore wakes PRIO waiters in priority order", runSemPrio},
	{"inherit", "mutex holder is boosted to a blocked higher-priority waiter's priority", runInherit},
	{"queue-block", "queue send/recv block until the peer end is ready", runQueueBlock},
	{"alloc-wrap", "byte-pool allocator coalesces adjacent free blocks on search", runAllocWrap},
}

func findScenario(name string) (scenario, bool) {
	for _, s := range scenarios {
		if s.name == name {
			return s, true
		}
	}
	return scenario{}, false
}

func baseConfig() kconfig.Config {
	cfg := kconfig.Default()
	cfg.Priorities = 8
	return cfg
}

func bootAndRun(log *logrus.Logger, scfg scenarioConfig, build func(k *board.Kernel) error) error {
	cfg := baseConfig()
	if scfg.TickRateHz != 0 {
		cfg.TickRate = scfg.TickRateHz
	}
	k, err := board.Boot(cfg)
	if err != nil {
		return fmt.Errorf("boot: %w", err)
	}
	if err := build(k); err != nil {
		return fmt.Errorf("build: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	log.WithFields(logrus.Fields{"rate_hz": scfg.TickRateHz, "max_ticks": scfg.MaxTicks}).Info("scenario starting")
	if err := k.Run(ctx, scfg.MaxTicks); err != nil && err != context.DeadlineExceeded && err != context.Canceled {
		return err
	}
	log.Info("scenario complete")
	return nil
}

func runPreempt(log *logrus.Logger, scfg scenarioConfig) error {
	return bootAndRun(log, scfg, func(k *board.Kernel) error {
		low, r := k.Scheduler.CreateStatic(func(any) {
			for {
				log.Debug("low priority thread running")
				board.Yield(k.Scheduler, k.Timers)
			}
		}, nil, 256, 5, 10, k.Timers, "low")
		if !r.Ok() {
			return fmt.Errorf("create low: %v", r)
		}

		high, r := k.Scheduler.CreateStatic(func(any) {
			k.Scheduler.Sleep(k.Timers, 20)
			log.Info("high priority thread woke and preempted low")
			k.Scheduler.Exit(k.Timers)
		}, nil, 256, 1, 10, k.Timers, "high")
		if !r.Ok() {
			return fmt.Errorf("create high: %v", r)
		}

		k.Scheduler.Startup(low)
		k.Scheduler.Startup(high)
		return nil
	})
}

func runRoundRobin(log *logrus.Logger, scfg scenarioConfig) error {
	return bootAndRun(log, scfg, func(k *board.Kernel) error {
		for i := 0; i < 3; i++ {
			name := fmt.Sprintf("rr%d", i)
			t, r := k.Scheduler.CreateStatic(func(any) {
				for {
					log.WithField("thread", name).Debug("tick")
					board.YieldTimeslice(k.Scheduler, k.Timers)
				}
			}, nil, 256, 4, 5, k.Timers, name)
			if !r.Ok() {
				return fmt.Errorf("create %s: %v", name, r)
			}
			k.Scheduler.Startup(t)
		}
		return nil
	})
}

func runSemFIFO(log *logrus.Logger, scfg scenarioConfig) error {
	return bootAndRun(log, scfg, func(k *board.Kernel) error {
		sem, r := ipc.NewSemaphore(k.Scheduler, k.Timers, baseConfig(), 1, 0, ipc.ModeFIFO, "sem")
		if !r.Ok() {
			return fmt.Errorf("new semaphore: %v", r)
		}
		for i := 0; i < 3; i++ {
			name := fmt.Sprintf("waiter%d", i)
			t, r := k.Scheduler.CreateStatic(func(any) {
				if r := sem.Recv(ipc.Forever); r.Ok() {
					log.WithField("thread", name).Info("acquired semaphore in FIFO order")
				}
				k.Scheduler.Exit(k.Timers)
			}, nil, 256, 4, 10, k.Timers, name)
			if !r.Ok() {
				return fmt.Errorf("create %s: %v", name, r)
			}
			k.Scheduler.Startup(t)
		}
		poster, r := k.Scheduler.CreateStatic(func(any) {
			for i := 0; i < 3; i++ {
				k.Scheduler.Sleep(k.Timers, 5)
				sem.Send()
			}
			k.Scheduler.Exit(k.Timers)
		}, nil, 256, 2, 10, k.Timers, "poster")
		if !r.Ok() {
			return fmt.Errorf("create poster: %v", r)
		}
		k.Scheduler.Startup(poster)
		return nil
	})
}

func runSemPrio(log *logrus.Logger, scfg scenarioConfig) error {
	return bootAndRun(log, scfg, func(k *board.Kernel) error {
		sem, r := ipc.NewSemaphore(k.Scheduler, k.Timers, baseConfig(), 1, 0, ipc.ModePRIO, "sem")
		if !r.Ok() {
			return fmt.Errorf("new semaphore: %v", r)
		}
		priorities := []uint8{5, 2, 4}
		for _, p := range priorities {
			prio := p
			t, r := k.Scheduler.CreateStatic(func(any) {
				if r := sem.Recv(ipc.Forever); r.Ok() {
					log.WithField("priority", prio).Info("acquired semaphore in priority order")
				}
				k.Scheduler.Exit(k.Timers)
			}, nil, 256, prio, 10, k.Timers, fmt.Sprintf("p%d", prio))
			if !r.Ok() {
				return fmt.Errorf("create p%d: %v", prio, r)
			}
			k.Scheduler.Startup(t)
		}
		poster, r := k.Scheduler.CreateStatic(func(any) {
			k.Scheduler.Sleep(k.Timers, 5)
			for i := 0; i < 3; i++ {
				sem.Send()
			}
			k.Scheduler.Exit(k.Timers)
		}, nil, 256, 1, 10, k.Timers, "poster")
		if !r.Ok() {
			return fmt.Errorf("create poster: %v", r)
		}
		k.Scheduler.Startup(poster)
		return nil
	})
}

func runInherit(log *logrus.Logger, scfg scenarioConfig) error {
	return bootAndRun(log, scfg, func(k *board.Kernel) error {
		mu, r := ipc.NewMutex(k.Scheduler, k.Timers, baseConfig(), ipc.ModeFIFO, "mu")
		if !r.Ok() {
			return fmt.Errorf("new mutex: %v", r)
		}

		holder, r := k.Scheduler.CreateStatic(func(any) {
			mu.Recv(ipc.Forever)
			log.Info("low-priority holder acquired mutex")
			k.Scheduler.Sleep(k.Timers, 20)
			log.WithField("priority", priorityOf(k.Scheduler, holderHandle)).Info("holder releasing mutex")
			mu.Send()
			k.Scheduler.Exit(k.Timers)
		}, nil, 256, 6, 10, k.Timers, "holder")
		if !r.Ok() {
			return fmt.Errorf("create holder: %v", r)
		}
		holderHandle = holder

		waiter, r := k.Scheduler.CreateStatic(func(any) {
			k.Scheduler.Sleep(k.Timers, 5)
			log.Info("high-priority waiter blocking on mutex")
			mu.Recv(ipc.Forever)
			log.Info("high-priority waiter acquired mutex")
			mu.Send()
			k.Scheduler.Exit(k.Timers)
		}, nil, 256, 1, 10, k.Timers, "waiter")
		if !r.Ok() {
			return fmt.Errorf("create waiter: %v", r)
		}

		k.Scheduler.Startup(holder)
		k.Scheduler.Startup(waiter)
		return nil
	})
}

// holderHandle lets the holder thread log its own (possibly boosted)
// priority; scenario code only, never read by kernel core.
var holderHandle *kthread.Thread

func priorityOf(sched *kthread.Scheduler, t *kthread.Thread) uint8 {
	if t == nil {
		return 0
	}
	return t.Priority()
}

func runQueueBlock(log *logrus.Logger, scfg scenarioConfig) error {
	return bootAndRun(log, scfg, func(k *board.Kernel) error {
		q, r := ipc.NewQueueStatic(k.Scheduler, k.Timers, baseConfig(), 1, ipc.ModeFIFO, "q")
		if !r.Ok() {
			return fmt.Errorf("new queue: %v", r)
		}

		receiver, r := k.Scheduler.CreateStatic(func(any) {
			v, r := q.Recv(ipc.Forever)
			if r.Ok() {
				log.WithField("value", v).Info("receiver unblocked after sender delivered")
			}
			k.Scheduler.Exit(k.Timers)
		}, nil, 256, 3, 10, k.Timers, "receiver")
		if !r.Ok() {
			return fmt.Errorf("create receiver: %v", r)
		}

		sender, r := k.Scheduler.CreateStatic(func(any) {
			k.Scheduler.Sleep(k.Timers, 10)
			if r := q.Send("payload", ipc.Forever); r.Ok() {
				log.Info("sender delivered")
			}
			k.Scheduler.Exit(k.Timers)
		}, nil, 256, 3, 10, k.Timers, "sender")
		if !r.Ok() {
			return fmt.Errorf("create sender: %v", r)
		}

		k.Scheduler.Startup(receiver)
		k.Scheduler.Startup(sender)
		return nil
	})
}

func runAllocWrap(log *logrus.Logger, scfg scenarioConfig) error {
	return bootAndRun(log, scfg, func(k *board.Kernel) error {
		worker, r := k.Scheduler.CreateStatic(func(any) {
			a, ra := k.Pool.Malloc(200)
			_, rb := k.Pool.Malloc(200)
			c, rc := k.Pool.Malloc(200)
			if !ra.Ok() || !rb.Ok() || !rc.Ok() {
				log.Error("initial allocations failed")
				k.Scheduler.Exit(k.Timers)
				return
			}

			k.Pool.Free(a)
			if _, r := k.Pool.Malloc(250); r.Ok() {
				log.Warn("unexpected: 250-byte allocation succeeded before coalescing")
			}

			k.Pool.Free(c)
			if _, r := k.Pool.Malloc(250); r.Ok() {
				log.Info("250-byte allocation succeeded after coalescing adjacent free blocks")
			} else {
				log.Error("250-byte allocation failed even after coalescing")
			}
			k.Scheduler.Exit(k.Timers)
		}, nil, 256, 4, 10, k.Timers, "worker")
		if !r.Ok() {
			return fmt.Errorf("create worker: %v", r)
		}
		k.Scheduler.Startup(worker)
		return nil
	})
}
