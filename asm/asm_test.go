package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/notbonzo-com/XR-32/cpu"
)

func TestAssembleLineADD(t *testing.T) {
	assert := assert.New(t)

	a := New()
	inst, err := a.AssembleLine("ADD r5, r6, r7")
	assert.NoError(err)
	assert.Equal(cpu.OpADD, inst.Opcode)
	assert.Equal(uint8(5), inst.R.Rd)
	assert.Equal(uint8(6), inst.R.Rs1)
	assert.Equal(uint8(7), inst.R.Rs2)
}

func TestAssembleLineLDRAbsolute(t *testing.T) {
	assert := assert.New(t)

	a := New()
	inst, err := a.AssembleLine("LDR r1, 0x40")
	assert.NoError(err)
	assert.Equal(cpu.OpLDR, inst.Opcode)
	assert.Equal(uint8(cpu.AbsoluteBase), inst.I.Rs1)
	assert.Equal(uint32(0x40), inst.I.Imm)
}

func TestAssembleEquateAndLabel(t *testing.T) {
	assert := assert.New(t)

	source := `
.equ BASE 0x1000
start:
  MOV r1, BASE
  JMP start
`
	a := New()
	prog, err := a.Assemble(source)
	assert.NoError(err)
	assert.Len(prog.Words, 2)

	inst, err := cpu.Decode(prog.Words[1])
	assert.NoError(err)
	assert.Equal(cpu.OpJMP, inst.Opcode)
	assert.Equal(uint32(0), inst.J.Addr)
}

func TestAssembleBranchOffsetToLabel(t *testing.T) {
	assert := assert.New(t)

	source := `
loop:
  NOP
  BEQ r1, r2, loop
`
	a := New()
	prog, err := a.Assemble(source)
	assert.NoError(err)
	assert.Len(prog.Words, 2)

	inst, err := cpu.Decode(prog.Words[1])
	assert.NoError(err)
	assert.Equal(cpu.OpBEQ, inst.Opcode)
	assert.Equal(uint8(1), inst.I.Rd)
	assert.Equal(uint8(2), inst.I.Rs1)
	wantOffset := int32(-16)
	assert.Equal(uint32(wantOffset), inst.I.Imm)
}

func TestAssembleStarlarkExpression(t *testing.T) {
	assert := assert.New(t)

	source := `.equ WIDTH 4
.equ SIZE $(WIDTH * 1024)
MOV r1, SIZE
`
	a := New()
	prog, err := a.Assemble(source)
	assert.NoError(err)
	assert.Len(prog.Words, 1)

	inst, err := cpu.Decode(prog.Words[0])
	assert.NoError(err)
	assert.Equal(uint32(4096), inst.I.Imm)
}

func TestAssembleDuplicateLabel(t *testing.T) {
	assert := assert.New(t)

	source := `
a:
  NOP
a:
  NOP
`
	a := New()
	_, err := a.Assemble(source)
	assert.ErrorIs(err, ErrLabelDuplicate)
}

func TestAssembleUndefinedLabelReference(t *testing.T) {
	assert := assert.New(t)

	a := New()
	_, err := a.Assemble("MOV r1, nowhere\n")
	assert.ErrorIs(err, ErrLabelMissing)
}

func TestAssembleUnknownMnemonic(t *testing.T) {
	assert := assert.New(t)

	a := New()
	_, err := a.AssembleLine("FROB r1, r2")
	assert.ErrorIs(err, ErrUnknownMnemonic)
}

func TestAssembleMFSMTS(t *testing.T) {
	assert := assert.New(t)

	a := New()
	inst, err := a.AssembleLine("MFS r1, ivtr")
	assert.NoError(err)
	assert.Equal(cpu.OpMFS, inst.Opcode)
	assert.Equal(uint32(cpu.SpecIVTR), inst.I.Imm)

	inst, err = a.AssembleLine("MTS ivtr, r2")
	assert.NoError(err)
	assert.Equal(cpu.OpMTS, inst.Opcode)
	assert.Equal(uint8(2), inst.I.Rs1)
}

func TestAssembleOUTIN(t *testing.T) {
	assert := assert.New(t)

	a := New()
	inst, err := a.AssembleLine("OUT 0x10, r3")
	assert.NoError(err)
	assert.Equal(cpu.OpOUT, inst.Opcode)
	assert.Equal(uint8(0x10), inst.I.Rd)
	assert.Equal(uint8(3), inst.I.Rs1)

	inst, err = a.AssembleLine("IN r4, 0x11")
	assert.NoError(err)
	assert.Equal(cpu.OpIN, inst.Opcode)
	assert.Equal(uint8(0x11), inst.I.Rd)
	assert.Equal(uint8(4), inst.I.Rs1)
}
