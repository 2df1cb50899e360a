package kthread

import (
	"testing"

	"ironfrail/kconfig"
	"ironfrail/kcpu"
	"ironfrail/kerr"
	"ironfrail/ticktimer"
)

type recordingPort struct {
	normalCalls int
	firstCalls  int
}

func (*recordingPort) IRQDisable() kcpu.Mask { return 0 }
func (*recordingPort) IRQRestore(kcpu.Mask)  {}
func (p *recordingPort) First()              { p.firstCalls++ }
func (p *recordingPort) Normal()             { p.normalCalls++ }

func newTestScheduler(t *testing.T) (*Scheduler, *ticktimer.Set, *recordingPort) {
	t.Helper()
	cfg := kconfig.Default()
	cfg.Priorities = 8
	port := &recordingPort{}
	sched := NewScheduler(cfg, port)
	timers := ticktimer.NewSet(port)
	return sched, timers, port
}

func mustCreate(t *testing.T, s *Scheduler, timers *ticktimer.Set, priority uint8, name string) *Thread {
	t.Helper()
	th, r := s.CreateStatic(func(any) {}, nil, 256, priority, 10, timers, name)
	if !r.Ok() {
		t.Fatalf("CreateStatic(%s) = %v, want OK", name, r)
	}
	return th
}

func TestCreateStaticValidation(t *testing.T) {
	sched, timers, _ := newTestScheduler(t)

	if _, r := sched.CreateStatic(nil, nil, 256, 1, 10, timers, "nilentry"); r != kerr.ErrNull {
		t.Fatalf("CreateStatic(nil entry) = %v, want ErrNull", r)
	}
	if _, r := sched.CreateStatic(func(any) {}, nil, 0, 1, 10, timers, "nostack"); r != kerr.ErrNull {
		t.Fatalf("CreateStatic(0 stack) = %v, want ErrNull", r)
	}
	if _, r := sched.CreateStatic(func(any) {}, nil, 256, 99, 10, timers, "badprio"); r.String() != "invalid" {
		t.Fatalf("CreateStatic(bad priority) = %v, want invalid", r)
	}
	if _, r := sched.CreateStatic(func(any) {}, nil, 256, 1, 0, timers, "noslice"); r.String() != "invalid" {
		t.Fatalf("CreateStatic(0 time slice) = %v, want invalid", r)
	}
}

func TestStartupInsertsIntoReadyAndStartPicksHighestPriority(t *testing.T) {
	sched, timers, port := newTestScheduler(t)

	low := mustCreate(t, sched, timers, 5, "low")
	high := mustCreate(t, sched, timers, 1, "high")

	if r := sched.Startup(low); !r.Ok() {
		t.Fatalf("Startup(low) = %v", r)
	}
	if r := sched.Startup(high); !r.Ok() {
		t.Fatalf("Startup(high) = %v", r)
	}

	sched.Start()
	if port.firstCalls != 1 {
		t.Fatalf("First() called %d times, want 1", port.firstCalls)
	}
	if sched.Current() != high {
		t.Fatalf("Current() = %v, want high (lower priority number wins)", sched.Current().Name)
	}
	if sched.Current().Status() != StatusRunning {
		t.Fatalf("Current().Status() = %v, want running", sched.Current().Status())
	}
}

func TestSwitchPreemptsToHigherPriority(t *testing.T) {
	sched, timers, port := newTestScheduler(t)

	a := mustCreate(t, sched, timers, 5, "a")
	sched.Startup(a)
	sched.Start()

	b := mustCreate(t, sched, timers, 1, "b")
	sched.Startup(b)
	sched.Switch()

	if port.normalCalls != 1 {
		t.Fatalf("Normal() called %d times, want 1", port.normalCalls)
	}
	if sched.Current() != b {
		t.Fatalf("Current() = %v, want b", sched.Current().Name)
	}
	if a.Status() != StatusReady {
		t.Fatalf("a.Status() = %v, want ready after preemption", a.Status())
	}
}

func TestSwitchNoopWhenSamePriorityHead(t *testing.T) {
	sched, timers, port := newTestScheduler(t)
	a := mustCreate(t, sched, timers, 3, "a")
	sched.Startup(a)
	sched.Start()

	port.normalCalls = 0
	sched.Switch()
	if port.normalCalls != 0 {
		t.Fatalf("Normal() called %d times, want 0 when current is already head", port.normalCalls)
	}
}

func TestSuspendResumeNesting(t *testing.T) {
	sched, timers, port := newTestScheduler(t)
	a := mustCreate(t, sched, timers, 3, "a")
	sched.Startup(a)
	sched.Start()

	b := mustCreate(t, sched, timers, 1, "b")

	sched.Suspend()
	sched.Suspend()
	sched.Startup(b)
	port.normalCalls = 0
	sched.Switch() // suppressed: suspend count is 2
	if port.normalCalls != 0 {
		t.Fatalf("Switch() during suspend called Normal() %d times, want 0", port.normalCalls)
	}

	sched.Resume() // still suspended once
	if port.normalCalls != 0 {
		t.Fatalf("Resume() at nesting 1 called Normal() %d times, want 0", port.normalCalls)
	}

	sched.Resume() // nesting reaches zero, ready thread pending
	if port.normalCalls != 1 {
		t.Fatalf("Resume() at nesting 0 called Normal() %d times, want 1", port.normalCalls)
	}
	if sched.Current() != b {
		t.Fatalf("Current() = %v, want b after resume", sched.Current().Name)
	}
}

func TestRotateSamePriorityRoundRobins(t *testing.T) {
	sched, timers, _ := newTestScheduler(t)
	a := mustCreate(t, sched, timers, 4, "a")
	b := mustCreate(t, sched, timers, 4, "b")
	sched.Startup(a)
	sched.Startup(b)
	sched.Start()

	if sched.Current() != a {
		t.Fatalf("Current() = %v, want a first", sched.Current().Name)
	}

	sched.RotateSamePriority()
	if sched.Current() != b {
		t.Fatalf("Current() after rotate = %v, want b", sched.Current().Name)
	}

	sched.RotateSamePriority()
	if sched.Current() != a {
		t.Fatalf("Current() after second rotate = %v, want a", sched.Current().Name)
	}
}

// TestTickSliceRotatesOnlyOnceSliceExhausted confirms same-priority threads
// hold the CPU for their full configured slice before round-robin hands
// off, rather than rotating on every tick regardless of slice length.
func TestTickSliceRotatesOnlyOnceSliceExhausted(t *testing.T) {
	sched, timers, _ := newTestScheduler(t)
	a, _ := sched.CreateStatic(func(any) {}, nil, 256, 4, 5, timers, "a")
	b, _ := sched.CreateStatic(func(any) {}, nil, 256, 4, 5, timers, "b")
	c, _ := sched.CreateStatic(func(any) {}, nil, 256, 4, 5, timers, "c")
	sched.Startup(a)
	sched.Startup(b)
	sched.Startup(c)
	sched.Start()

	var seen []string
	for i := 0; i < 15; i++ {
		seen = append(seen, sched.Current().Name)
		sched.TickSlice()
	}

	want := []string{
		"a", "a", "a", "a", "a",
		"b", "b", "b", "b", "b",
		"c", "c", "c", "c", "c",
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("seen = %v, want %v", seen, want)
		}
	}
}

// TestTickSliceNoopMidSliceWithOneReadyThread confirms a lone thread at its
// priority never rotates away from itself, even as its slice exhausts and
// reloads repeatedly.
func TestTickSliceNoopMidSliceWithOneReadyThread(t *testing.T) {
	sched, timers, port := newTestScheduler(t)
	a, _ := sched.CreateStatic(func(any) {}, nil, 256, 4, 3, timers, "a")
	sched.Startup(a)
	sched.Start()

	port.normalCalls = 0
	for i := 0; i < 10; i++ {
		sched.TickSlice()
	}
	if sched.Current() != a {
		t.Fatalf("Current() = %v, want a (sole thread at its priority)", sched.Current().Name)
	}
	if port.normalCalls != 0 {
		t.Fatalf("Normal() called %d times, want 0", port.normalCalls)
	}
}

func TestRotateSamePriorityNoopAlone(t *testing.T) {
	sched, timers, port := newTestScheduler(t)
	a := mustCreate(t, sched, timers, 4, "a")
	sched.Startup(a)
	sched.Start()

	port.normalCalls = 0
	sched.RotateSamePriority()
	if port.normalCalls != 0 {
		t.Fatalf("RotateSamePriority() alone at priority called Normal() %d times, want 0", port.normalCalls)
	}
}

func TestDeleteThenCleanupReachesDeleted(t *testing.T) {
	sched, timers, _ := newTestScheduler(t)
	a := mustCreate(t, sched, timers, 4, "a")
	sched.Startup(a)
	sched.Start()

	b := mustCreate(t, sched, timers, 4, "b")
	sched.Startup(b)

	if r := sched.Delete(b, timers); !r.Ok() {
		t.Fatalf("Delete(b) = %v, want OK", r)
	}
	if b.Status() != StatusTerminated {
		t.Fatalf("b.Status() = %v, want terminated", b.Status())
	}

	sched.CleanupWaitingTermination()
	if b.Status() != StatusDeleted {
		t.Fatalf("b.Status() after cleanup = %v, want deleted", b.Status())
	}
}

func TestDeleteIsIdempotentOnTerminated(t *testing.T) {
	sched, timers, _ := newTestScheduler(t)
	a := mustCreate(t, sched, timers, 4, "a")
	sched.Startup(a)
	sched.Start()
	b := mustCreate(t, sched, timers, 4, "b")
	sched.Startup(b)

	sched.Delete(b, timers)
	if r := sched.Delete(b, timers); !r.Ok() {
		t.Fatalf("second Delete(b) = %v, want OK (idempotent)", r)
	}
}

func TestCtrlGetSetPriority(t *testing.T) {
	sched, timers, _ := newTestScheduler(t)
	a := mustCreate(t, sched, timers, 4, "a")
	sched.Startup(a)
	sched.Start()

	var got uint8
	if r := sched.Ctrl(a, CmdGetPriority, &got); !r.Ok() || got != 4 {
		t.Fatalf("Ctrl(GetPriority) = (%v, %d), want (OK, 4)", r, got)
	}

	newPrio := uint8(2)
	if r := sched.Ctrl(a, CmdSetPriority, &newPrio); !r.Ok() {
		t.Fatalf("Ctrl(SetPriority) = %v, want OK", r)
	}
	if a.Priority() != 2 {
		t.Fatalf("a.Priority() = %d, want 2", a.Priority())
	}
}

func TestRestartFromDeleted(t *testing.T) {
	sched, timers, _ := newTestScheduler(t)
	a := mustCreate(t, sched, timers, 4, "a")
	sched.Startup(a)
	sched.Start()
	b := mustCreate(t, sched, timers, 4, "b")
	sched.Startup(b)

	sched.Delete(b, timers)
	sched.CleanupWaitingTermination()

	if r := sched.Restart(b, timers); !r.Ok() {
		t.Fatalf("Restart(b) = %v, want OK", r)
	}
	if b.Status() != StatusReady {
		t.Fatalf("b.Status() after restart = %v, want ready", b.Status())
	}
}

func TestRestartRejectsNonDeleted(t *testing.T) {
	sched, timers, _ := newTestScheduler(t)
	a := mustCreate(t, sched, timers, 4, "a")
	sched.Startup(a)
	sched.Start()

	if r := sched.Restart(a, timers); r.Ok() {
		t.Fatalf("Restart(a) on a ready thread = %v, want error", r)
	}
}
