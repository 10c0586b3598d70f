// Package cpu implements the XR-32 register file, the 64-bit instruction
// encoding contract, and the fetch/decode/dispatch execution engine.
//
// The CPU consists of an instruction pointer (I0), a bank of 32
// general-purpose registers, a set of named special registers (stack
// pointers, flags, the interrupt-save slots, the MMU base, ...), and a
// dispatch loop that decodes one 64-bit instruction word per Step and
// routes architectural faults to an interrupt.Controller rather than
// returning them to the caller.
package cpu
