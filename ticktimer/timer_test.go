package ticktimer

import (
	"testing"

	"ironfrail/kcpu"
)

// fakePort is a single-threaded test double: critical sections are no-ops
// since tests never race the tick counter against another goroutine.
type fakePort struct{}

func (fakePort) IRQDisable() kcpu.Mask { return 0 }
func (fakePort) IRQRestore(kcpu.Mask)  {}
func (fakePort) First()                {}
func (fakePort) Normal()               {}

func TestStartOrdersByExpiration(t *testing.T) {
	s := NewSet(fakePort{})
	var fired []int

	a := New(func(arg any) { fired = append(fired, arg.(int)) }, 1, 30)
	b := New(func(arg any) { fired = append(fired, arg.(int)) }, 2, 10)
	c := New(func(arg any) { fired = append(fired, arg.(int)) }, 3, 20)

	s.Start(a)
	s.Start(b)
	s.Start(c)

	for i := 0; i < 30; i++ {
		s.Tick()
		s.Check()
	}

	want := []int{2, 3, 1}
	if len(fired) != len(want) {
		t.Fatalf("fired = %v, want %v", fired, want)
	}
	for i := range want {
		if fired[i] != want[i] {
			t.Fatalf("fired[%d] = %d, want %d", i, fired[i], want[i])
		}
	}
}

func TestStopPreventsFiring(t *testing.T) {
	s := NewSet(fakePort{})
	fired := false
	tm := New(func(any) { fired = true }, nil, 5)

	s.Start(tm)
	s.Stop(tm)

	for i := 0; i < 10; i++ {
		s.Tick()
		s.Check()
	}

	if fired {
		t.Fatalf("timer fired after Stop")
	}
}

func TestRestartRemovesPreviousNode(t *testing.T) {
	s := NewSet(fakePort{})
	count := 0
	tm := New(func(any) { count++ }, nil, 5)

	s.Start(tm)
	s.Start(tm) // restart before expiry must not leave a stray node

	for i := 0; i < 10; i++ {
		s.Tick()
		s.Check()
	}

	if count != 1 {
		t.Fatalf("callback fired %d times, want 1", count)
	}
}

func TestNowAdvancesWithTick(t *testing.T) {
	s := NewSet(fakePort{})
	if s.Now() != 0 {
		t.Fatalf("Now() = %d, want 0", s.Now())
	}
	s.Tick()
	s.Tick()
	if s.Now() != 2 {
		t.Fatalf("Now() = %d, want 2", s.Now())
	}
}
