//go:build tinygo

// This file is the real-hardware counterpart to boot.go's hostsim-backed
// Boot: a kcpu.Port over actual STM32F4 registers, matching the original
// C source's target BSP (_examples/original_source/bsp/stm32/stm32f411ce,
// a Cortex-M4F), the same way the teacher's hal/tinygo.go picks a real
// UART/GPIO HAL under the tinygo build tag instead of hal/host.go's
// simulated one.
package board

import (
	"machine"
	"time"

	"ironfrail/kcpu"
)

// stm32Port implements kcpu.Port on bare STM32F4 hardware. IRQDisable/
// IRQRestore map to disabling/restoring the processor's global interrupt
// mask; First/Normal are stubs a full port fills in with real PendSV
// trampoline assembly, since tinygo has no portable inline-asm context
// switch primitive in the examples this module draws from.
type stm32Port struct{}

func newSTM32Port() *stm32Port { return &stm32Port{} }

func (p *stm32Port) IRQDisable() kcpu.Mask {
	state := machine.DisableInterrupts()
	return kcpu.Mask(state)
}

func (p *stm32Port) IRQRestore(prev kcpu.Mask) {
	machine.EnableInterrupts(uintptr(prev))
}

func (p *stm32Port) First() {
	// A real port loads the first thread's saved register frame and
	// branches into it here; left unimplemented since tinygo's
	// `machine` package exposes no portable inline-assembly context
	// switch for this target in the pack this repo draws from.
	panic("board: stm32 First not implemented")
}

func (p *stm32Port) Normal() {
	panic("board: stm32 Normal not implemented")
}

// stm32UARTLogSink opens a klog.Sink writing one byte at a time over
// USART1, grounded on hal/tinygo_common.go's uartLogger.
func stm32UARTLogSink(uart *machine.UART) func(byte) {
	return func(b byte) { uart.WriteByte(b) }
}

// stm32TickSource starts a goroutine with a 1ms time.Ticker calling tick for every
// elapsed millisecond, the host-independent equivalent of
// hal/tinygo_common.go's newTinyGoTime ticker goroutine — a real port
// would instead arm SysTick and call tick from its IRQ handler.
func stm32TickSource(tick func()) {
	go func() {
		ticker := time.NewTicker(1 * time.Millisecond)
		defer ticker.Stop()
		for range ticker.C {
			tick()
		}
	}()
}
