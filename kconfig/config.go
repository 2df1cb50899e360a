// Package kconfig holds the kernel's compile-time configuration as a plain
// value type, the same way the teacher passes board/runtime configuration
// as a struct built once at startup (hal.HeadlessConfig) rather than a
// scattering of build tags.
package kconfig

import "fmt"

// Config is the full set of options spec.md §6 enumerates. A Config is
// validated once, by board.Boot, and then treated as
// read-only for the life of the kernel instance.
type Config struct {
	// LowerIsHigher selects priority direction: when true, a lower
	// priority number means higher priority (LSB-first bit-scan);
	// otherwise a higher number means higher priority (MSB-first).
	LowerIsHigher bool

	// Priorities is P, the number of distinct priority levels. Bounded
	// to 32 by the single 32-bit ready bitmap.
	Priorities uint8

	// UseCPUBitscan selects kcpu.FFS32/FLS32 over a portable fallback
	// scan for locating the highest-priority ready bit.
	UseCPUBitscan bool

	// TimerLevels is the timer skip-list level count. The only value
	// ever shipped is 1 (a flat sorted list); the field exists so a
	// future multi-level timer wheel has somewhere to plug in.
	TimerLevels uint8

	// TickRate is ticks per second, used to convert milliseconds to
	// ticks for sleep/timeout calls.
	TickRate uint32

	// LogBufferSize bounds a single klog formatted line; output beyond
	// it is truncated, never buffered or queued.
	LogBufferSize uint16

	// IdleStackSize is the stack size given to the idle thread board.Boot
	// creates.
	IdleStackSize uint32

	// StaticAllocEnable and DynamicAllocEnable gate whether
	// caller-supplied-memory and pool-backed object creation are
	// permitted, respectively. At least one must be set.
	StaticAllocEnable  bool
	DynamicAllocEnable bool

	// PoolSize is the byte-pool allocator's total managed region size,
	// used only when DynamicAllocEnable is set.
	PoolSize uint32

	// IPCEnable is the master switch; if false, no IPC object may be
	// created regardless of the per-type switches below.
	IPCEnable            bool
	SemaphoreEnable      bool
	MutexEnable          bool
	RecursiveMutexEnable bool
	QueueEnable          bool

	// DebugLogEnable is the debug-logging switch. The scheduler, thread,
	// IPC, and pool packages do not read it and emit no klog output.
	DebugLogEnable bool
}

// Validate checks the cross-field constraints spec.md §6 calls out.
// board.Boot calls this before constructing a kernel instance from a
// Config.
func (c Config) Validate() error {
	if c.Priorities == 0 || c.Priorities > 32 {
		return fmt.Errorf("kconfig: Priorities must be in 1..32, got %d", c.Priorities)
	}
	if c.TimerLevels == 0 {
		return fmt.Errorf("kconfig: TimerLevels must be >= 1")
	}
	if c.TickRate == 0 {
		return fmt.Errorf("kconfig: TickRate must be > 0")
	}
	if !c.StaticAllocEnable && !c.DynamicAllocEnable {
		return fmt.Errorf("kconfig: at least one of StaticAllocEnable, DynamicAllocEnable must be set")
	}
	if c.DynamicAllocEnable && c.PoolSize == 0 {
		return fmt.Errorf("kconfig: DynamicAllocEnable requires PoolSize > 0")
	}
	if c.IPCEnable && !c.SemaphoreEnable && !c.MutexEnable && !c.RecursiveMutexEnable && !c.QueueEnable {
		return fmt.Errorf("kconfig: IPCEnable set but no IPC type is enabled")
	}
	return nil
}

// Default returns a Config matching the original source's shipped
// defaults: lower-number-is-higher priority, 32 levels, CPU bit-scan on, a
// single timer level, 1000 Hz tick, every IPC type enabled.
func Default() Config {
	return Config{
		LowerIsHigher:        true,
		Priorities:           32,
		UseCPUBitscan:        true,
		TimerLevels:          1,
		TickRate:             1000,
		LogBufferSize:        128,
		IdleStackSize:        512,
		StaticAllocEnable:    true,
		DynamicAllocEnable:   true,
		PoolSize:             16 * 1024,
		IPCEnable:            true,
		SemaphoreEnable:      true,
		MutexEnable:          true,
		RecursiveMutexEnable: true,
		QueueEnable:          true,
		DebugLogEnable:       false,
	}
}

// MillisToTicks converts a millisecond duration to ticks at this Config's
// TickRate, per spec.md §6's "ticks = ms * rate / 1000".
func (c Config) MillisToTicks(ms uint32) uint32 {
	return ms * c.TickRate / 1000
}
