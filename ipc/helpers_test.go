package ipc

import (
	"testing"

	"ironfrail/kconfig"
	"ironfrail/kcpu"
	"ironfrail/kthread"
	"ironfrail/ticktimer"
)

// fakePort is a no-op kcpu.Port: IRQDisable/IRQRestore never actually
// exclude anything and First/Normal never actually switch execution
// contexts, matching how kthread's own tests exercise the scheduler
// bookkeeping in a single goroutine.
type fakePort struct{}

func (fakePort) IRQDisable() kcpu.Mask { return 0 }
func (fakePort) IRQRestore(kcpu.Mask)  {}
func (fakePort) First()                {}
func (fakePort) Normal()               {}

type testKernel struct {
	sched  *kthread.Scheduler
	timers *ticktimer.Set
	cfg    kconfig.Config
}

func newTestKernel(t *testing.T) *testKernel {
	t.Helper()
	cfg := kconfig.Default()
	cfg.Priorities = 8
	port := fakePort{}
	return &testKernel{
		sched:  kthread.NewScheduler(cfg, port),
		timers: ticktimer.NewSet(port),
		cfg:    cfg,
	}
}

// spinUp creates and starts up one thread per given priority, in order,
// then starts the scheduler, leaving the first-started thread of the
// lowest numbered (highest) priority current.
func (k *testKernel) spinUp(t *testing.T, priorities ...uint8) []*kthread.Thread {
	t.Helper()
	threads := make([]*kthread.Thread, len(priorities))
	for i, p := range priorities {
		th, r := k.sched.CreateStatic(func(any) {}, nil, 256, p, 10, k.timers, "t")
		if !r.Ok() {
			t.Fatalf("CreateStatic(priority=%d) = %v", p, r)
		}
		if r := k.sched.Startup(th); !r.Ok() {
			t.Fatalf("Startup(priority=%d) = %v", p, r)
		}
		threads[i] = th
	}
	k.sched.Start()
	return threads
}
