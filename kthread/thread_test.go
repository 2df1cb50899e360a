package kthread

import "testing"

func TestSleepWakesAfterTimerExpiry(t *testing.T) {
	sched, timers, _ := newTestScheduler(t)
	idle := mustCreate(t, sched, timers, 7, "idle")
	sched.Startup(idle)
	sched.Start()

	sleeper := mustCreate(t, sched, timers, 3, "sleeper")
	sched.Startup(sleeper)
	sched.Switch() // sleeper (priority 3) preempts idle (priority 7)
	if sched.Current() != sleeper {
		t.Fatalf("Current() = %v, want sleeper before Sleep", sched.Current().Name)
	}

	sched.Sleep(timers, 5)
	if sleeper.Status() != StatusSuspend {
		t.Fatalf("sleeper.Status() right after Sleep = %v, want suspend", sleeper.Status())
	}
	if sched.Current() != idle {
		t.Fatalf("Current() after Sleep = %v, want idle", sched.Current().Name)
	}

	for i := 0; i < 4; i++ {
		timers.Tick()
		timers.Check()
		if sleeper.Status() != StatusSuspend {
			t.Fatalf("sleeper.Status() at tick %d = %v, want still suspend", i+1, sleeper.Status())
		}
	}

	timers.Tick()
	timers.Check()
	if sleeper.Status() != StatusReady {
		t.Fatalf("sleeper.Status() after 5 ticks = %v, want ready", sleeper.Status())
	}
	if sched.Current() != sleeper {
		t.Fatalf("Current() after wake = %v, want sleeper (higher priority than idle)", sched.Current().Name)
	}
}

func TestSuspendThreadRemovesFromReady(t *testing.T) {
	sched, timers, _ := newTestScheduler(t)
	a := mustCreate(t, sched, timers, 4, "a")
	sched.Startup(a)
	sched.Start()

	b := mustCreate(t, sched, timers, 4, "b")
	sched.Startup(b)

	if r := sched.SuspendThread(b); !r.Ok() {
		t.Fatalf("SuspendThread(b) = %v, want OK", r)
	}
	if b.Status() != StatusSuspend {
		t.Fatalf("b.Status() = %v, want suspend", b.Status())
	}
	if sched.ready[4].Len() != 1 {
		t.Fatalf("ready[4].Len() = %d, want 1 after suspending b (running a stays listed)", sched.ready[4].Len())
	}
}

func TestCtrlGetStatus(t *testing.T) {
	sched, timers, _ := newTestScheduler(t)
	a := mustCreate(t, sched, timers, 4, "a")
	sched.Startup(a)
	sched.Start()

	var status Status
	if r := sched.Ctrl(a, CmdGetStatus, &status); !r.Ok() {
		t.Fatalf("Ctrl(GetStatus) = %v, want OK", r)
	}
	if status != StatusRunning {
		t.Fatalf("status = %v, want running", status)
	}
}

func TestCtrlUnsupportedCmd(t *testing.T) {
	sched, timers, _ := newTestScheduler(t)
	a := mustCreate(t, sched, timers, 4, "a")
	sched.Startup(a)
	sched.Start()

	if r := sched.Ctrl(a, Cmd(99), nil); r.String() != "unsupported" {
		t.Fatalf("Ctrl(unknown cmd) = %v, want unsupported", r)
	}
}
