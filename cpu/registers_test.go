package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlags(t *testing.T) {
	assert := assert.New(t)

	var fr Flags
	fr.SetCarry(true)
	fr.SetOverflow(true)
	assert.True(fr.Carry())
	assert.True(fr.Overflow())
	assert.False(fr.Zero())
	assert.False(fr.Sign())

	fr.SetCarry(false)
	assert.False(fr.Carry())
}

func TestRegistersResetPreservesPRR(t *testing.T) {
	assert := assert.New(t)

	var r Registers
	r.R[0] = 42
	r.PRR = 7
	r.Reset()

	assert.Equal(uint32(0), r.R[0])
	assert.Equal(uint8(7), r.PRR)
	assert.False(r.Kernel())
}

func TestRegistersResetDefaultsPRR(t *testing.T) {
	assert := assert.New(t)

	var r Registers
	r.Reset()
	assert.Equal(uint8(ProcessorRevision), r.PRR)
}

func TestSpecRegGetSet(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		name string
		spec SpecReg
	}{
		{"i0", SpecI0}, {"s0", SpecS0}, {"s1", SpecS1},
		{"ivtr", SpecIVTR}, {"tpdr", SpecTPDR}, {"tsp", SpecTSP},
		{"msr", SpecMSR},
	}

	for _, entry := range table {
		var r Registers
		r.Set(entry.spec, 0xdeadbeef)
		assert.Equal(uint32(0xdeadbeef), r.Get(entry.spec), entry.name)
	}
}

func TestSpecRegIE0IE3Masked(t *testing.T) {
	assert := assert.New(t)

	var r Registers
	r.Set(SpecIE0, 0x1ff)
	assert.Equal(uint32(0xff), r.Get(SpecIE0))

	r.Set(SpecIE3, 0x1ff)
	assert.Equal(uint32(0xff), r.Get(SpecIE3))
}

func TestSpecRegPRRReadOnly(t *testing.T) {
	assert := assert.New(t)

	var r Registers
	r.PRR = 3
	r.Set(SpecPRR, 99)
	assert.Equal(uint32(3), r.Get(SpecPRR))
}

func TestLookupSpecReg(t *testing.T) {
	assert := assert.New(t)

	spec, ok := LookupSpecReg("IVTR")
	assert.True(ok)
	assert.Equal(SpecIVTR, spec)

	_, ok = LookupSpecReg("not-a-register")
	assert.False(ok)
}
