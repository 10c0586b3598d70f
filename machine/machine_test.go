package machine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/notbonzo-com/XR-32/asm"
	"github.com/notbonzo-com/XR-32/cpu"
)

func TestRunSimpleProgram(t *testing.T) {
	assert := assert.New(t)

	source := `
  MOV r1, 5
  MOV r2, 7
  ADD r3, r1, r2
  STR r3, 0x2000
  HLT
`
	a := asm.New()
	prog, err := a.Assemble(source)
	assert.NoError(err)

	mach := NewMachine(1 << 20)
	assert.NoError(mach.LoadImage(0, prog.Binary()))
	assert.NoError(mach.IdentityMap())

	assert.NoError(mach.Run())

	v, err := mach.Mem.ReadRaw(0x2000)
	assert.NoError(err)
	assert.Equal(uint32(12), v)
}

func TestResetZeroesMemory(t *testing.T) {
	assert := assert.New(t)

	mach := NewMachine(4096)
	assert.NoError(mach.Mem.WriteRaw(0, 0xffffffff))
	mach.Reset()

	v, err := mach.Mem.ReadRaw(0)
	assert.NoError(err)
	assert.Equal(uint32(0), v)
}

func TestIOPortWiredThroughMachine(t *testing.T) {
	assert := assert.New(t)

	mach := NewMachine(1 << 16)
	var written uint32
	assert.NoError(mach.IO.Map(0x10, nil, func(port uint16, value uint32) error {
		written = value
		return nil
	}))

	source := `
  MOV r1, 0x2a
  OUT 0x10, r1
  HLT
`
	a := asm.New()
	prog, err := a.Assemble(source)
	assert.NoError(err)
	assert.NoError(mach.LoadImage(0, prog.Binary()))
	assert.NoError(mach.IdentityMap())
	mach.CPU.Regs.MSR |= cpu.MsrKernel

	assert.NoError(mach.Run())
	assert.Equal(uint32(0x2a), written)
}
