// Package klog implements the kernel's minimal formatted-output helper: a
// %d/%s/%c/%x/%f formatter that writes one byte at a time to a
// caller-supplied sink, matching the teacher's uartLogger byte-at-a-time
// pattern and spec.md §6's "minimal formatted output, truncated at buffer
// size". It is deliberately not fmt/log/slog: the kernel core must link
// into a tinygo target with no heap to spare for a reflection-based
// formatter, and its own truncation behavior (rather than an allocation
// failure) is part of the contract. See DESIGN.md.
package klog

// Sink receives one output byte at a time. A board supplies this; for a
// tinygo build it is typically machine.UART.WriteByte. The host
// simulator wires no klog sink; it narrates through logrus.
type Sink func(b byte)

// Logger formats and truncates at BufferSize through Sink.
type Logger struct {
	Sink       Sink
	BufferSize uint16
	Enabled    bool
}

// New returns a Logger that calls sink for each output byte, truncating
// any single call's output at bufSize bytes.
func New(sink Sink, bufSize uint16, enabled bool) *Logger {
	return &Logger{Sink: sink, BufferSize: bufSize, Enabled: enabled}
}

// Printf formats format according to the verbs below and writes the result
// through Sink, truncated at BufferSize bytes. A nil Sink or a disabled
// Logger makes Printf a no-op. Supported verbs: %d (int64), %s (string),
// %c (byte as a character), %x (uint64, lowercase hex, no leading "0x"),
// %f (float64, fixed six decimal places), %%.
func (l *Logger) Printf(format string, args ...interface{}) {
	if l == nil || l.Sink == nil || !l.Enabled {
		return
	}
	var n uint16
	argi := 0
	emit := func(b byte) bool {
		if n >= l.BufferSize {
			return false
		}
		l.Sink(b)
		n++
		return true
	}
	emitStr := func(s string) bool {
		for i := 0; i < len(s); i++ {
			if !emit(s[i]) {
				return false
			}
		}
		return true
	}

	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i+1 >= len(format) {
			if !emit(c) {
				return
			}
			continue
		}
		i++
		verb := format[i]
		switch verb {
		case '%':
			if !emit('%') {
				return
			}
		case 'd':
			var v int64
			if argi < len(args) {
				v = toInt64(args[argi])
				argi++
			}
			if !emitStr(formatInt(v)) {
				return
			}
		case 's':
			var v string
			if argi < len(args) {
				if s, ok := args[argi].(string); ok {
					v = s
				}
				argi++
			}
			if !emitStr(v) {
				return
			}
		case 'c':
			var v byte
			if argi < len(args) {
				v = toByte(args[argi])
				argi++
			}
			if !emit(v) {
				return
			}
		case 'x':
			var v uint64
			if argi < len(args) {
				v = toUint64(args[argi])
				argi++
			}
			if !emitStr(formatHex(v)) {
				return
			}
		case 'f':
			var v float64
			if argi < len(args) {
				if f, ok := toFloat64(args[argi]); ok {
					v = f
				}
				argi++
			}
			if !emitStr(formatFixed6(v)) {
				return
			}
		default:
			if !emit('%') {
				return
			}
			if !emit(verb) {
				return
			}
		}
	}
}
