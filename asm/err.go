package asm

import (
	"errors"
	"fmt"

	"github.com/notbonzo-com/XR-32/intl"
)

var f = intl.From

var (
	ErrSyntax          = errors.New(f("syntax error"))
	ErrUnknownMnemonic = errors.New(f("unknown mnemonic"))
	ErrUnknownOperand  = errors.New(f("unknown operand"))
	ErrEquateDuplicate = errors.New(f("duplicate .equ constant"))
	ErrLabelDuplicate  = errors.New(f("duplicate label"))
	ErrLabelMissing    = errors.New(f("undefined label"))
)

// ErrLine wraps an assembly-time error with the source line number it
// occurred on, the way a diagnosable assembler error should read.
type ErrLine struct {
	Line int
	Err  error
}

func (e *ErrLine) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ErrLine) Unwrap() error { return e.Err }
