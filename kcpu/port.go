// Package kcpu defines the CPU port contract: the small set of
// architecture-specific operations the kernel core treats as external
// collaborators rather than implementing itself (IRQ mask save/restore
// and the first/normal switch entries that realize preemption via a
// low-priority pendable exception). There is no stack-frame construction
// operation: a Go thread has no hand-built stack frame to prepare.
//
// board/hostsim implements Port for a development machine by standing in
// goroutines for hardware threads; a tinygo board backend would implement
// it against real Cortex-M registers.
package kcpu

// Mask is an opaque saved interrupt-mask value, returned by IRQDisable and
// consumed by IRQRestore. Callers must not inspect it; nesting is lexical.
type Mask uint32

// Switcher is the board-supplied entry points that realize context
// switching. Scheduler.Start calls First once, at boot; every later switch
// goes through Normal, which the board schedules as a pendable low-priority
// exception so it runs after all other interrupt handlers unwind.
type Switcher interface {
	// First bootstraps scheduling: the board loads the current thread's
	// saved context and begins running it. On hardware it never returns
	// to its caller; board/hostsim's First returns once Port.Halt is
	// called.
	First()

	// Normal requests a switch away from the outgoing thread to whatever
	// the scheduler now has as current. Called with the scheduler's
	// current-thread pointer already updated; Normal only needs to save
	// the outgoing context and load the incoming one. board/hostsim's
	// Normal parks the outgoing thread's goroutine until that thread is
	// scheduled again.
	Normal()
}

// Port is the full CPU port contract. A board package implements this once
// for its target.
type Port interface {
	Switcher

	// IRQDisable masks interrupts and returns the previous mask, for
	// later restoration. Calls may nest; restoring the mask from the
	// outermost call re-enables interrupts.
	IRQDisable() Mask

	// IRQRestore sets the interrupt mask back to a value previously
	// returned by IRQDisable.
	IRQRestore(prev Mask)
}
