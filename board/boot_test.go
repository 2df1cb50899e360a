package board

import (
	"context"
	"testing"
	"time"

	"ironfrail/kconfig"
)

func testConfig() kconfig.Config {
	cfg := kconfig.Default()
	cfg.Priorities = 8
	return cfg
}

func TestBootValidatesConfig(t *testing.T) {
	cfg := testConfig()
	cfg.TickRate = 0
	if _, err := Boot(cfg); err == nil {
		t.Fatal("Boot with invalid config = nil error, want error")
	}
}

func TestBootCreatesIdleThreadAndDefaultPool(t *testing.T) {
	k, err := Boot(testConfig())
	if err != nil {
		t.Fatalf("Boot = %v", err)
	}
	if k.Idle == nil {
		t.Fatal("Boot did not create an idle thread")
	}
	if k.Pool == nil {
		t.Fatal("Boot with DynamicAllocEnable did not build a default pool")
	}
}

func TestRunStopsAtMaxTicksAndReturnsControl(t *testing.T) {
	k, err := Boot(testConfig())
	if err != nil {
		t.Fatalf("Boot = %v", err)
	}

	var ran bool
	worker, r := k.Scheduler.CreateStatic(func(any) {
		ran = true
		for {
			Yield(k.Scheduler, k.Timers)
		}
	}, nil, 256, 1, 10, k.Timers, "worker")
	if !r.Ok() {
		t.Fatalf("create worker: %v", r)
	}
	if r := k.Scheduler.Startup(worker); !r.Ok() {
		t.Fatalf("startup worker: %v", r)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- k.Run(ctx, 20) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run = %v, want nil", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run never returned after its tick budget ran out")
	}

	if !ran {
		t.Fatal("worker thread never ran during the bounded run")
	}
}
