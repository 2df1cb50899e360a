package kconfig

import "testing"

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v, want nil", err)
	}
}

func TestValidateRejectsZeroPriorities(t *testing.T) {
	c := Default()
	c.Priorities = 0
	if err := c.Validate(); err == nil {
		t.Fatalf("Validate() = nil for Priorities=0, want error")
	}
}

func TestValidateRejectsTooManyPriorities(t *testing.T) {
	c := Default()
	c.Priorities = 33
	if err := c.Validate(); err == nil {
		t.Fatalf("Validate() = nil for Priorities=33, want error")
	}
}

func TestValidateRejectsNoAllocMode(t *testing.T) {
	c := Default()
	c.StaticAllocEnable = false
	c.DynamicAllocEnable = false
	if err := c.Validate(); err == nil {
		t.Fatalf("Validate() = nil with no alloc mode enabled, want error")
	}
}

func TestValidateRejectsDynamicWithoutPoolSize(t *testing.T) {
	c := Default()
	c.PoolSize = 0
	if err := c.Validate(); err == nil {
		t.Fatalf("Validate() = nil for DynamicAllocEnable with PoolSize=0, want error")
	}
}

func TestValidateRejectsIPCWithNoType(t *testing.T) {
	c := Default()
	c.SemaphoreEnable = false
	c.MutexEnable = false
	c.RecursiveMutexEnable = false
	c.QueueEnable = false
	if err := c.Validate(); err == nil {
		t.Fatalf("Validate() = nil for IPCEnable with no type enabled, want error")
	}
}

func TestMillisToTicks(t *testing.T) {
	c := Default()
	c.TickRate = 1000
	if got := c.MillisToTicks(250); got != 250 {
		t.Fatalf("MillisToTicks(250) = %d, want 250", got)
	}

	c.TickRate = 100
	if got := c.MillisToTicks(250); got != 25 {
		t.Fatalf("MillisToTicks(250) at 100Hz = %d, want 25", got)
	}
}
