package cpu

import (
	"errors"

	"github.com/notbonzo-com/XR-32/intl"
)

var f = intl.From

func newError(msg string, args ...any) error {
	return errors.New(f(msg, args...))
}

var (
	// ErrHalted is the terminal, non-error condition Step returns once a
	// HLT instruction has executed, per spec §4.2's Failure model.
	ErrHalted = newError("halted")

	// ErrOutOfRange is a host/invariant error, not an architectural
	// fault. No function in this module returns it: a fetch or
	// interrupt-vector lookup outside physical memory surfaces the mem
	// package's own out-of-range error instead.
	ErrOutOfRange = newError("address out of range")
)

// ErrOpcode wraps the offending word for host diagnostics when decoding
// fails outside of the normal architectural-fault path (e.g. while
// bootstrapping the interrupt vector table itself).
type ErrOpcode Word

func (e ErrOpcode) Error() string {
	return f("bad opcode in word %#016x", uint64(e))
}

func (e ErrOpcode) Is(err error) bool {
	_, ok := err.(ErrOpcode)
	return ok
}
