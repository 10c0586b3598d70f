package cpu

import (
	"log"

	"github.com/notbonzo-com/XR-32/fault"
	"github.com/notbonzo-com/XR-32/ioport"
	"github.com/notbonzo-com/XR-32/mem"
)

// instructionSize is the fixed width of one instruction word, in bytes;
// I0 always advances by this much except when a jump, branch or call
// overwrites it, per spec §4.2.
const instructionSize = 8

// Interrupter is the narrow surface CPU needs from an interrupt
// controller. It is declared here, not as a pointer to
// interrupt.Controller, so that package interrupt can depend on cpu for
// *Registers without cpu depending back on interrupt — the same
// structural-interface trick ucapp's cpu package uses for its Channel
// type.
type Interrupter interface {
	TriggerFault(f *fault.Fault) error
	Return() error
}

// CPU is the XR-32 core: a register file plus the three subsystems it
// drives every Step — memory, the port fabric, and the interrupt
// controller. Architectural faults never surface as a Go error from
// Step; they are handed to Intr and Step returns nil so the caller's
// loop does not need a parallel fault-handling path.
type CPU struct {
	Verbose bool

	Regs Registers
	Mem  *mem.Memory
	IO   *ioport.Fabric
	Intr Interrupter

	halted bool
}

// New builds a CPU wired to the given subsystems. Regs is left zeroed;
// call Reset to bring it to a defined power-on state.
func New(m *mem.Memory, io *ioport.Fabric, intr Interrupter) *CPU {
	return &CPU{Mem: m, IO: io, Intr: intr}
}

// Reset brings the register file to its power-on state and clears the
// halted latch set by a prior HLT.
func (c *CPU) Reset() {
	c.Regs.Reset()
	c.halted = false
}

func (c *CPU) mode() mem.Mode {
	if c.Regs.Kernel() {
		return mem.ModeKernel
	}
	return mem.ModeUser
}

// raise hands a fault to the interrupt controller. A failure to deliver
// it (the vector table itself is unreadable) is a host/invariant error,
// not a second architectural fault, and is returned from Step.
func (c *CPU) raise(f *fault.Fault) error {
	return c.Intr.TriggerFault(f)
}

// fetch reads one little-endian 64-bit instruction word, the layout
// asm.Program.Binary produces: the low half at addr, the high half at
// addr+4.
func (c *CPU) fetch(addr uint32) (Word, error, *fault.Fault) {
	lo, err, trap := c.Mem.Read(addr, c.mode())
	if err != nil || trap != nil {
		return 0, err, trap
	}
	hi, err, trap := c.Mem.Read(addr+4, c.mode())
	if err != nil || trap != nil {
		return 0, err, trap
	}
	return Word(uint64(hi)<<32 | uint64(lo)), nil, nil
}

// Step fetches, decodes and executes one instruction. It returns
// ErrHalted once a HLT has executed; every further call is then a no-op
// returning ErrHalted again. Any other non-nil return is a host error:
// a bug in the embedder, corrupted memory, or an unreachable vector
// table entry, never a guest-triggerable condition.
func (c *CPU) Step() error {
	if c.halted {
		return ErrHalted
	}

	word, err, trap := c.fetch(c.Regs.I0)
	if err != nil {
		return err
	}
	if trap != nil {
		return c.raise(trap)
	}

	inst, derr := Decode(word)
	next := c.Regs.I0 + instructionSize
	if derr != nil {
		c.Regs.I0 = next
		return c.raise(fault.New(fault.InvalidOpcode, 0))
	}

	if c.Verbose {
		log.Printf("xr32: %#08x: %s", c.Regs.I0, inst.String())
	}
	c.Regs.I0 = next

	if trap := c.execute(inst); trap != nil {
		return c.raise(trap)
	}
	return nil
}

// Run steps the CPU until it halts or an error other than ErrHalted
// occurs.
func (c *CPU) Run() error {
	for {
		if err := c.Step(); err != nil {
			if err == ErrHalted {
				return nil
			}
			return err
		}
	}
}

// effective computes the operand most I-type instructions act on: the
// value of Rs1 (or zero, when Rs1 is the AbsoluteBase sentinel) plus the
// immediate. LDR/STR's addressing, MOV's source, and CMP's right-hand
// side are all this same shape, per spec §4.2.
func effective(regs *Registers, rs1 uint8, imm uint32) uint32 {
	if rs1 == AbsoluteBase {
		return imm
	}
	return regs.R[rs1&0x1F] + imm
}

// execute dispatches one decoded instruction and returns the fault it
// raised, if any. It never mutates I0 for the fall-through case; I0 has
// already been advanced by the caller, so only control-flow opcodes
// touch it here.
func (c *CPU) execute(inst Instruction) *fault.Fault {
	switch inst.Class {
	case ClassR:
		return c.executeR(inst)
	case ClassI:
		return c.executeI(inst)
	case ClassJ:
		return c.executeJ(inst)
	}
	return fault.New(fault.InvalidOpcode, 0)
}

func (c *CPU) executeR(inst Instruction) *fault.Fault {
	f := inst.R
	r := &c.Regs
	a := r.R[f.Rs1&0x1F]
	b := r.R[f.Rs2&0x1F]

	switch inst.Opcode {
	case OpADD:
		result, carry, overflow := addWithFlags(a, b)
		r.R[f.Rd&0x1F] = result
		c.setArith(result, carry, overflow)
	case OpSUB:
		result, carry, overflow := subWithFlags(a, b)
		r.R[f.Rd&0x1F] = result
		c.setArith(result, carry, overflow)
	case OpAND:
		c.setLogical(f.Rd, a&b)
	case OpOR:
		c.setLogical(f.Rd, a|b)
	case OpXOR:
		c.setLogical(f.Rd, a^b)
	case OpLSL:
		result, carry := shiftLeftLogical(a, f.Shamt)
		c.setShift(f.Rd, result, carry)
	case OpLSR:
		result, carry := shiftRightLogical(a, f.Shamt)
		c.setShift(f.Rd, result, carry)
	case OpASL:
		result, carry, overflow := shiftLeftArith(a, f.Shamt)
		r.R[f.Rd&0x1F] = result
		c.setArith(result, carry, overflow)
	case OpASR:
		result, carry := shiftRightArith(a, f.Shamt)
		c.setShift(f.Rd, result, carry)
	case OpMUL:
		wide := uint64(a) * uint64(b)
		r.R[f.Rd&0x1F] = uint32(wide)
		c.setLogical(f.Rd, uint32(wide))
		if wide>>32 != 0 {
			return fault.New(fault.OverflowException, fault.OverflowMul)
		}
	case OpDIV:
		if b == 0 {
			return fault.New(fault.DivideByZero, 0)
		}
		c.setLogical(f.Rd, a/b)
	case OpMOD:
		if b == 0 {
			return fault.New(fault.DivideByZero, 0)
		}
		c.setLogical(f.Rd, a%b)
	case OpNOT:
		c.setLogical(f.Rd, ^a)
	case OpNEG:
		result, _, overflow := subWithFlags(0, a)
		r.R[f.Rd&0x1F] = result
		c.setArith(result, false, overflow)
	case OpINC:
		result, carry, overflow := addWithFlags(a, 1)
		r.R[f.Rd&0x1F] = result
		c.setArith(result, carry, overflow)
	case OpDEC:
		result, carry, overflow := subWithFlags(a, 1)
		r.R[f.Rd&0x1F] = result
		c.setArith(result, carry, overflow)
	default:
		return fault.New(fault.InvalidOpcode, 0)
	}
	return nil
}

func (c *CPU) executeI(inst Instruction) *fault.Fault {
	f := inst.I
	r := &c.Regs

	switch inst.Opcode {
	case OpLDR:
		addr := effective(r, f.Rs1, f.Imm)
		value, err, trap := c.Mem.Read(addr, c.mode())
		if trap != nil {
			return trap
		}
		if err != nil {
			return fault.New(fault.GeneralProtectionFault, fault.GPFUserToKernelMemory)
		}
		r.R[f.Rd&0x1F] = value
	case OpSTR:
		addr := effective(r, f.Rs1, f.Imm)
		err, trap := c.Mem.Write(addr, r.R[f.Rd&0x1F], c.mode())
		if trap != nil {
			return trap
		}
		if err != nil {
			return fault.New(fault.GeneralProtectionFault, fault.GPFWriteToReadOnly)
		}
	case OpMOV:
		r.R[f.Rd&0x1F] = effective(r, f.Rs1, f.Imm)
	case OpCMP:
		rhs := effective(r, f.Rs1, f.Imm)
		result, carry, overflow := subWithFlags(rhs, r.R[f.Rd&0x1F])
		c.setArith(result, carry, overflow)
	case OpBEQ:
		if r.R[f.Rd&0x1F] == r.R[f.Rs1&0x1F] {
			r.I0 += int32ToOffset(f.Imm)
		}
	case OpBNE:
		if r.R[f.Rd&0x1F] != r.R[f.Rs1&0x1F] {
			r.I0 += int32ToOffset(f.Imm)
		}
	case OpPUSH:
		r.S0 -= 4
		if err, trap := c.Mem.Write(r.S0, r.R[f.Rd&0x1F], c.mode()); trap != nil {
			return trap
		} else if err != nil {
			return fault.New(fault.GeneralProtectionFault, fault.GPFWriteToReadOnly)
		}
	case OpPOP:
		value, err, trap := c.Mem.Read(r.S0, c.mode())
		if trap != nil {
			return trap
		}
		if err != nil {
			return fault.New(fault.GeneralProtectionFault, fault.GPFUserToKernelMemory)
		}
		r.S0 += 4
		r.R[f.Rd&0x1F] = value
	case OpSWI:
		return fault.New(fault.Kind(f.Imm&0xFF), 0)
	case OpSEXT:
		r.R[f.Rd&0x1F] = signExtend(r.R[f.Rs1&0x1F], f.Imm)
	case OpZEXT:
		r.R[f.Rd&0x1F] = zeroExtend(r.R[f.Rs1&0x1F], f.Imm)
	case OpMFS:
		spec := SpecReg(f.Imm)
		if !r.Kernel() && privilegedSpecReg(spec) {
			return fault.New(fault.GeneralProtectionFault, fault.GPFPrivilegedInstruction)
		}
		r.R[f.Rd&0x1F] = r.Get(spec)
	case OpMTS:
		spec := SpecReg(f.Imm)
		if !r.Kernel() && privilegedSpecReg(spec) {
			return fault.New(fault.GeneralProtectionFault, fault.GPFWritePrivilegedReg)
		}
		r.Set(spec, r.R[f.Rs1&0x1F])
	case OpOUT:
		if !r.Kernel() {
			return fault.New(fault.GeneralProtectionFault, fault.GPFUnauthorizedIO)
		}
		port := uint16(f.Rd)
		if err, trap := c.IO.Write(port, r.R[f.Rs1&0x1F]); trap != nil {
			return trap
		} else if err != nil {
			return fault.New(fault.GeneralProtectionFault, fault.GPFUnauthorizedIO)
		}
	case OpIN:
		if !r.Kernel() {
			return fault.New(fault.GeneralProtectionFault, fault.GPFUnauthorizedIO)
		}
		port := uint16(f.Rd)
		value, err, trap := c.IO.Read(port)
		if trap != nil {
			return trap
		}
		if err != nil {
			return fault.New(fault.GeneralProtectionFault, fault.GPFUnauthorizedIO)
		}
		r.R[f.Rs1&0x1F] = value
	default:
		return fault.New(fault.InvalidOpcode, 0)
	}
	return nil
}

func (c *CPU) executeJ(inst Instruction) *fault.Fault {
	f := inst.J
	r := &c.Regs

	switch inst.Opcode {
	case OpJMP:
		r.I0 = f.Addr
	case OpJAL:
		r.R[31] = r.I0
		r.I0 = f.Addr
	case OpCALL:
		r.S0 -= 4
		if err, trap := c.Mem.Write(r.S0, r.I0, c.mode()); trap != nil {
			return trap
		} else if err != nil {
			return fault.New(fault.GeneralProtectionFault, fault.GPFWriteToReadOnly)
		}
		r.I0 = f.Addr
	case OpRET:
		ret, err, trap := c.Mem.Read(r.S0, c.mode())
		if trap != nil {
			return trap
		}
		if err != nil {
			return fault.New(fault.GeneralProtectionFault, fault.GPFUserToKernelMemory)
		}
		r.S0 += 4
		r.I0 = ret
	case OpIRET:
		if !r.Kernel() {
			return fault.New(fault.GeneralProtectionFault, fault.GPFPrivilegedInstruction)
		}
		if err := c.Intr.Return(); err != nil {
			return fault.New(fault.DoubleFault, 0)
		}
	case OpNOP:
	case OpHLT:
		c.halted = true
	default:
		return fault.New(fault.InvalidOpcode, 0)
	}
	return nil
}

func (c *CPU) setLogical(rd uint8, value uint32) {
	c.Regs.R[rd&0x1F] = value
	c.Regs.FR.SetZero(value == 0)
	c.Regs.FR.SetSign(value&0x80000000 != 0)
}

// setShift is setLogical plus the Carry update spec §4.2 requires of
// every shift opcode: the last bit shifted out of the operand.
func (c *CPU) setShift(rd uint8, value uint32, carry bool) {
	c.setLogical(rd, value)
	c.Regs.FR.SetCarry(carry)
}

func (c *CPU) setArith(result uint32, carry, overflow bool) {
	c.Regs.FR.SetZero(result == 0)
	c.Regs.FR.SetSign(result&0x80000000 != 0)
	c.Regs.FR.SetCarry(carry)
	c.Regs.FR.SetOverflow(overflow)
}

func addWithFlags(a, b uint32) (result uint32, carry, overflow bool) {
	wide := uint64(a) + uint64(b)
	result = uint32(wide)
	carry = wide>>32 != 0
	overflow = (a^result)&(b^result)&0x80000000 != 0
	return
}

func subWithFlags(a, b uint32) (result uint32, carry, overflow bool) {
	result = a - b
	carry = a < b
	overflow = (a^b)&(a^result)&0x80000000 != 0
	return
}

func shiftLeftArith(a uint32, shamt uint8) (result uint32, carry, overflow bool) {
	n := shamt & 0x1F
	result = a << n
	if n > 0 {
		carry = (a>>(32-n))&1 != 0
	}
	overflow = (int32(result) < 0) != (int32(a) < 0)
	return
}

func shiftLeftLogical(a uint32, shamt uint8) (result uint32, carry bool) {
	n := shamt & 0x1F
	result = a << n
	if n > 0 {
		carry = (a>>(32-n))&1 != 0
	}
	return
}

func shiftRightLogical(a uint32, shamt uint8) (result uint32, carry bool) {
	n := shamt & 0x1F
	result = a >> n
	if n > 0 {
		carry = (a>>(n-1))&1 != 0
	}
	return
}

func shiftRightArith(a uint32, shamt uint8) (result uint32, carry bool) {
	n := shamt & 0x1F
	result = uint32(int32(a) >> n)
	if n > 0 {
		carry = (a>>(n-1))&1 != 0
	}
	return
}

// int32ToOffset reinterprets a 32-bit immediate as a signed branch
// displacement, per spec §4.2.
func int32ToOffset(imm uint32) uint32 {
	return uint32(int32(imm))
}

func signExtend(value uint32, width uint32) uint32 {
	if width == 0 || width >= 32 {
		return value
	}
	shift := 32 - width
	return uint32(int32(value<<shift) >> shift)
}

func zeroExtend(value uint32, width uint32) uint32 {
	if width == 0 || width >= 32 {
		return value
	}
	return value & (1<<width - 1)
}

// privilegedSpecReg reports whether a special register may only be
// touched from kernel mode, per spec §3.
func privilegedSpecReg(spec SpecReg) bool {
	switch spec {
	case SpecIVTR, SpecIE0, SpecIE1, SpecIE2, SpecIE3, SpecIE4, SpecTPDR, SpecTSP, SpecMSR:
		return true
	}
	return false
}
