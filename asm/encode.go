package asm

import (
	"fmt"

	"github.com/notbonzo-com/XR-32/cpu"
)

var rTriple = map[string]cpu.Opcode{
	"ADD": cpu.OpADD, "SUB": cpu.OpSUB, "AND": cpu.OpAND, "OR": cpu.OpOR,
	"XOR": cpu.OpXOR, "MUL": cpu.OpMUL, "DIV": cpu.OpDIV, "MOD": cpu.OpMOD,
}

var rShift = map[string]cpu.Opcode{
	"LSL": cpu.OpLSL, "LSR": cpu.OpLSR, "ASL": cpu.OpASL, "ASR": cpu.OpASR,
}

var rUnary = map[string]cpu.Opcode{
	"NOT": cpu.OpNOT, "NEG": cpu.OpNEG, "INC": cpu.OpINC, "DEC": cpu.OpDEC,
}

var iMemory = map[string]cpu.Opcode{
	"LDR": cpu.OpLDR, "STR": cpu.OpSTR,
}

var iMoveLike = map[string]cpu.Opcode{
	"MOV": cpu.OpMOV, "CMP": cpu.OpCMP,
}

var iBranch = map[string]cpu.Opcode{
	"BEQ": cpu.OpBEQ, "BNE": cpu.OpBNE,
}

var iStack = map[string]cpu.Opcode{
	"PUSH": cpu.OpPUSH, "POP": cpu.OpPOP,
}

var iWidth = map[string]cpu.Opcode{
	"SEXT": cpu.OpSEXT, "ZEXT": cpu.OpZEXT,
}

var jAddr = map[string]cpu.Opcode{
	"JMP": cpu.OpJMP, "JAL": cpu.OpJAL, "CALL": cpu.OpCALL,
}

var jNone = map[string]cpu.Opcode{
	"RET": cpu.OpRET, "IRET": cpu.OpIRET, "NOP": cpu.OpNOP, "HLT": cpu.OpHLT,
}

// encode turns one tokenized source line into a cpu.Instruction, per
// the operand shapes of spec §4.1's mnemonic table. Label and equate
// resolution have already run by the time encode is called.
func (a *Assembler) encode(pl pendingLine) (cpu.Instruction, error) {
	m := pl.mnem
	ops := pl.ops

	if op, ok := rTriple[m]; ok {
		return a.encodeRTriple(op, ops)
	}
	if op, ok := rShift[m]; ok {
		return a.encodeRShift(op, ops)
	}
	if op, ok := rUnary[m]; ok {
		return a.encodeRUnary(op, ops)
	}
	if op, ok := iMemory[m]; ok {
		return a.encodeIMemory(op, ops)
	}
	if op, ok := iMoveLike[m]; ok {
		return a.encodeIMoveLike(op, ops)
	}
	if op, ok := iBranch[m]; ok {
		return a.encodeIBranch(op, pl)
	}
	if op, ok := iStack[m]; ok {
		return a.encodeIStack(op, ops)
	}
	if op, ok := iWidth[m]; ok {
		return a.encodeIWidth(op, ops)
	}
	if op, ok := jAddr[m]; ok {
		return a.encodeJAddr(op, ops)
	}
	if op, ok := jNone[m]; ok {
		return cpu.Instruction{Opcode: op, Class: cpu.ClassJ}, nil
	}

	switch m {
	case "SWI":
		return a.encodeSWI(ops)
	case "MFS":
		return a.encodeMFS(ops)
	case "MTS":
		return a.encodeMTS(ops)
	case "OUT":
		return a.encodeOUT(ops)
	case "IN":
		return a.encodeIN(ops)
	}

	return cpu.Instruction{}, fmt.Errorf("%w: %s", ErrUnknownMnemonic, m)
}

func (a *Assembler) reg(tok string) (uint8, error) {
	r, ok := parseReg(tok)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownOperand, tok)
	}
	return r, nil
}

func (a *Assembler) encodeRTriple(op cpu.Opcode, ops []string) (cpu.Instruction, error) {
	if len(ops) != 3 {
		return cpu.Instruction{}, ErrSyntax
	}
	rd, err := a.reg(ops[0])
	if err != nil {
		return cpu.Instruction{}, err
	}
	rs1, err := a.reg(ops[1])
	if err != nil {
		return cpu.Instruction{}, err
	}
	rs2, err := a.reg(ops[2])
	if err != nil {
		return cpu.Instruction{}, err
	}
	return cpu.Instruction{Opcode: op, Class: cpu.ClassR, R: cpu.RFields{Rd: rd, Rs1: rs1, Rs2: rs2}}, nil
}

func (a *Assembler) encodeRShift(op cpu.Opcode, ops []string) (cpu.Instruction, error) {
	if len(ops) != 3 {
		return cpu.Instruction{}, ErrSyntax
	}
	rd, err := a.reg(ops[0])
	if err != nil {
		return cpu.Instruction{}, err
	}
	rs1, err := a.reg(ops[1])
	if err != nil {
		return cpu.Instruction{}, err
	}
	shamt, err := a.resolveValue(ops[2])
	if err != nil {
		return cpu.Instruction{}, err
	}
	return cpu.Instruction{Opcode: op, Class: cpu.ClassR, R: cpu.RFields{Rd: rd, Rs1: rs1, Shamt: uint8(shamt)}}, nil
}

func (a *Assembler) encodeRUnary(op cpu.Opcode, ops []string) (cpu.Instruction, error) {
	if len(ops) != 2 {
		return cpu.Instruction{}, ErrSyntax
	}
	rd, err := a.reg(ops[0])
	if err != nil {
		return cpu.Instruction{}, err
	}
	rs1, err := a.reg(ops[1])
	if err != nil {
		return cpu.Instruction{}, err
	}
	return cpu.Instruction{Opcode: op, Class: cpu.ClassR, R: cpu.RFields{Rd: rd, Rs1: rs1}}, nil
}

// encodeIMemory parses LDR/STR's two addressing forms: "rd, imm"
// (absolute) and "rd, rs1, imm" (base+offset).
func (a *Assembler) encodeIMemory(op cpu.Opcode, ops []string) (cpu.Instruction, error) {
	rd, rs1, imm, err := a.parseAddressing(ops)
	if err != nil {
		return cpu.Instruction{}, err
	}
	return cpu.Instruction{Opcode: op, Class: cpu.ClassI, I: cpu.IFields{Rd: rd, Rs1: rs1, Imm: imm}}, nil
}

func (a *Assembler) encodeIMoveLike(op cpu.Opcode, ops []string) (cpu.Instruction, error) {
	if len(ops) == 2 {
		rd, err := a.reg(ops[0])
		if err != nil {
			return cpu.Instruction{}, err
		}
		if rs1, ok := parseReg(ops[1]); ok {
			return cpu.Instruction{Opcode: op, Class: cpu.ClassI, I: cpu.IFields{Rd: rd, Rs1: rs1}}, nil
		}
		v, err := a.resolveValue(ops[1])
		if err != nil {
			return cpu.Instruction{}, err
		}
		return cpu.Instruction{Opcode: op, Class: cpu.ClassI, I: cpu.IFields{Rd: rd, Rs1: cpu.AbsoluteBase, Imm: v}}, nil
	}
	rd, rs1, imm, err := a.parseAddressing(ops)
	if err != nil {
		return cpu.Instruction{}, err
	}
	return cpu.Instruction{Opcode: op, Class: cpu.ClassI, I: cpu.IFields{Rd: rd, Rs1: rs1, Imm: imm}}, nil
}

// parseAddressing handles the shared "rd, imm" / "rd, rs1, imm" shape of
// LDR, STR, MOV and CMP.
func (a *Assembler) parseAddressing(ops []string) (rd, rs1 uint8, imm uint32, err error) {
	switch len(ops) {
	case 2:
		rd, err = a.reg(ops[0])
		if err != nil {
			return
		}
		imm, err = a.resolveValue(ops[1])
		rs1 = cpu.AbsoluteBase
	case 3:
		rd, err = a.reg(ops[0])
		if err != nil {
			return
		}
		rs1, err = a.reg(ops[1])
		if err != nil {
			return
		}
		imm, err = a.resolveValue(ops[2])
	default:
		err = ErrSyntax
	}
	return
}

// encodeIBranch parses "rd, rs1, target": BEQ/BNE compare R[rd] against
// R[rs1] directly and never consult the flags register, per spec §4.2.
func (a *Assembler) encodeIBranch(op cpu.Opcode, pl pendingLine) (cpu.Instruction, error) {
	if len(pl.ops) != 3 {
		return cpu.Instruction{}, ErrSyntax
	}
	rd, err := a.reg(pl.ops[0])
	if err != nil {
		return cpu.Instruction{}, err
	}
	rs1, err := a.reg(pl.ops[1])
	if err != nil {
		return cpu.Instruction{}, err
	}

	tok := pl.ops[2]
	next := pl.addr + 8

	var disp uint32
	if target, ok := a.Label[tok]; ok {
		disp = target - next
	} else {
		v, err := a.resolveValue(tok)
		if err != nil {
			return cpu.Instruction{}, err
		}
		disp = v
	}
	return cpu.Instruction{Opcode: op, Class: cpu.ClassI, I: cpu.IFields{Rd: rd, Rs1: rs1, Imm: disp}}, nil
}

func (a *Assembler) encodeIStack(op cpu.Opcode, ops []string) (cpu.Instruction, error) {
	if len(ops) != 1 {
		return cpu.Instruction{}, ErrSyntax
	}
	rd, err := a.reg(ops[0])
	if err != nil {
		return cpu.Instruction{}, err
	}
	return cpu.Instruction{Opcode: op, Class: cpu.ClassI, I: cpu.IFields{Rd: rd, Rs1: cpu.AbsoluteBase}}, nil
}

func (a *Assembler) encodeIWidth(op cpu.Opcode, ops []string) (cpu.Instruction, error) {
	if len(ops) != 3 {
		return cpu.Instruction{}, ErrSyntax
	}
	rd, err := a.reg(ops[0])
	if err != nil {
		return cpu.Instruction{}, err
	}
	rs1, err := a.reg(ops[1])
	if err != nil {
		return cpu.Instruction{}, err
	}
	width, err := a.resolveValue(ops[2])
	if err != nil {
		return cpu.Instruction{}, err
	}
	return cpu.Instruction{Opcode: op, Class: cpu.ClassI, I: cpu.IFields{Rd: rd, Rs1: rs1, Imm: width}}, nil
}

func (a *Assembler) encodeSWI(ops []string) (cpu.Instruction, error) {
	if len(ops) != 1 {
		return cpu.Instruction{}, ErrSyntax
	}
	v, err := a.resolveValue(ops[0])
	if err != nil {
		return cpu.Instruction{}, err
	}
	return cpu.Instruction{Opcode: cpu.OpSWI, Class: cpu.ClassI, I: cpu.IFields{Rs1: cpu.AbsoluteBase, Imm: v}}, nil
}

func (a *Assembler) encodeMFS(ops []string) (cpu.Instruction, error) {
	if len(ops) != 2 {
		return cpu.Instruction{}, ErrSyntax
	}
	rd, err := a.reg(ops[0])
	if err != nil {
		return cpu.Instruction{}, err
	}
	spec, ok := cpu.LookupSpecReg(ops[1])
	if !ok {
		return cpu.Instruction{}, fmt.Errorf("%w: %s", ErrUnknownOperand, ops[1])
	}
	return cpu.Instruction{Opcode: cpu.OpMFS, Class: cpu.ClassI, I: cpu.IFields{Rd: rd, Rs1: cpu.AbsoluteBase, Imm: uint32(spec)}}, nil
}

func (a *Assembler) encodeMTS(ops []string) (cpu.Instruction, error) {
	if len(ops) != 2 {
		return cpu.Instruction{}, ErrSyntax
	}
	spec, ok := cpu.LookupSpecReg(ops[0])
	if !ok {
		return cpu.Instruction{}, fmt.Errorf("%w: %s", ErrUnknownOperand, ops[0])
	}
	rs1, err := a.reg(ops[1])
	if err != nil {
		return cpu.Instruction{}, err
	}
	return cpu.Instruction{Opcode: cpu.OpMTS, Class: cpu.ClassI, I: cpu.IFields{Rs1: rs1, Imm: uint32(spec)}}, nil
}

// encodeOUT parses "port, rs1": the port number is encoded directly in
// the 5-bit Rd field (its low bits, per spec §4.2), not looked up as a
// register — OUT writes R[rs1] to that port.
func (a *Assembler) encodeOUT(ops []string) (cpu.Instruction, error) {
	if len(ops) != 2 {
		return cpu.Instruction{}, ErrSyntax
	}
	port, err := a.resolveValue(ops[0])
	if err != nil {
		return cpu.Instruction{}, err
	}
	rs1, err := a.reg(ops[1])
	if err != nil {
		return cpu.Instruction{}, err
	}
	return cpu.Instruction{Opcode: cpu.OpOUT, Class: cpu.ClassI, I: cpu.IFields{Rd: uint8(port), Rs1: rs1}}, nil
}

// encodeIN parses "rs1, port": IN reads the port into R[rs1].
func (a *Assembler) encodeIN(ops []string) (cpu.Instruction, error) {
	if len(ops) != 2 {
		return cpu.Instruction{}, ErrSyntax
	}
	rs1, err := a.reg(ops[0])
	if err != nil {
		return cpu.Instruction{}, err
	}
	port, err := a.resolveValue(ops[1])
	if err != nil {
		return cpu.Instruction{}, err
	}
	return cpu.Instruction{Opcode: cpu.OpIN, Class: cpu.ClassI, I: cpu.IFields{Rd: uint8(port), Rs1: rs1}}, nil
}

func (a *Assembler) encodeJAddr(op cpu.Opcode, ops []string) (cpu.Instruction, error) {
	if len(ops) != 1 {
		return cpu.Instruction{}, ErrSyntax
	}
	addr, err := a.resolveValue(ops[0])
	if err != nil {
		return cpu.Instruction{}, err
	}
	return cpu.Instruction{Opcode: op, Class: cpu.ClassJ, J: cpu.JFields{Addr: addr}}, nil
}
