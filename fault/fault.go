// Package fault defines the architectural fault taxonomy shared by cpu,
// mem, ioport and interrupt: the interrupt-vector numbers of spec §6 and the
// Fault value that carries a vector number plus an error code through the
// core without tying mem or interrupt to the cpu package (avoiding an
// import cycle between the components that must all raise or deliver
// faults).
package fault

import "github.com/notbonzo-com/XR-32/intl"

// Kind is an interrupt-vector number, per spec §6.
type Kind uint8

const (
	DivideByZero            = Kind(0x00)
	InvalidOpcode           = Kind(0x01)
	PageFault               = Kind(0x02)
	GeneralProtectionFault  = Kind(0x03)
	OverflowException       = Kind(0x04)
	DoubleFault             = Kind(0x05)
	AlignmentCheck          = Kind(0x06)
	NonMaskable             = Kind(0x07)
	UserInterrupt1          = Kind(0x08)
	UserInterrupt2          = Kind(0x09)
	UserInterrupt3          = Kind(0x0A)
)

var kindNames = map[Kind]string{
	DivideByZero:           "DivideByZero",
	InvalidOpcode:          "InvalidOpcode",
	PageFault:              "PageFault",
	GeneralProtectionFault: "GeneralProtectionFault",
	OverflowException:      "OverflowException",
	DoubleFault:            "DoubleFault",
	AlignmentCheck:         "AlignmentCheck",
	NonMaskable:            "NonMaskable",
	UserInterrupt1:         "UserInterrupt1",
	UserInterrupt2:         "UserInterrupt2",
	UserInterrupt3:         "UserInterrupt3",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Page-fault error codes.
const (
	PageFaultNotPresent     = uint8(0)
	PageFaultWriteOnRO      = uint8(1)
	PageFaultUserToKernel   = uint8(2)
	PageFaultReservedBits   = uint8(3)
	PageFaultExecNonExec    = uint8(4)
)

// General-protection-fault error codes.
const (
	GPFPrivilegedInstruction = uint8(0)
	GPFUserToKernelMemory    = uint8(1)
	GPFExecNonExecMemory     = uint8(2)
	GPFWriteToReadOnly       = uint8(3)
	GPFUnauthorizedIO        = uint8(4)
	GPFInvalidModeInstr      = uint8(5)
	GPFReservedSysreg        = uint8(6)
	GPFWritePrivilegedReg    = uint8(7)
)

// Overflow-exception error codes.
const (
	OverflowAddSub        = uint8(0)
	OverflowMul           = uint8(1)
	OverflowDivUnderflow  = uint8(2)
	OverflowSubUnderflow  = uint8(3)
	OverflowShift         = uint8(4)
)

// Alignment-check error codes.
const (
	AlignmentGeneric  = uint8(0)
	Alignment16       = uint8(1)
	Alignment32       = uint8(2)
	Alignment64       = uint8(3)
	AlignmentUserMode = uint8(4)
)

// Fault is an architectural trap: a vector number plus an error code. It is
// never returned to the caller of CPU.Step — it is handed to an
// interrupt.Controller for delivery into the guest, per spec §4.2/§7.
type Fault struct {
	Kind Kind
	Code uint8
}

func (f *Fault) Error() string {
	return intl.From("fault %v (code %d)", f.Kind, f.Code)
}

// New builds a Fault value for the given vector and error code.
func New(kind Kind, code uint8) *Fault {
	return &Fault{Kind: kind, Code: code}
}
