package ioport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapReadWrite(t *testing.T) {
	assert := assert.New(t)

	f := NewFabric()
	var last uint32
	assert.NoError(f.Map(0x10,
		func(port uint16) (uint32, error) { return 0x42, nil },
		func(port uint16, value uint32) error { last = value; return nil },
	))

	v, err, trap := f.Read(0x10)
	assert.NoError(err)
	assert.Nil(trap)
	assert.Equal(uint32(0x42), v)

	err, trap = f.Write(0x10, 0x99)
	assert.NoError(err)
	assert.Nil(trap)
	assert.Equal(uint32(0x99), last)
}

func TestUnmappedPortReadsZero(t *testing.T) {
	assert := assert.New(t)

	f := NewFabric()
	v, err, trap := f.Read(0x20)
	assert.NoError(err)
	assert.Nil(trap)
	assert.Equal(uint32(0), v)
}

func TestUnmappedPortWriteIsNoOp(t *testing.T) {
	assert := assert.New(t)

	f := NewFabric()
	err, trap := f.Write(0x20, 0xdeadbeef)
	assert.NoError(err)
	assert.Nil(trap)
}

func TestWriteOnlyPortReadsZero(t *testing.T) {
	assert := assert.New(t)

	f := NewFabric()
	assert.NoError(f.Map(0x30, nil, func(port uint16, value uint32) error { return nil }))

	v, err, trap := f.Read(0x30)
	assert.NoError(err)
	assert.Nil(trap)
	assert.Equal(uint32(0), v)
}

func TestUnmap(t *testing.T) {
	assert := assert.New(t)

	f := NewFabric()
	assert.NoError(f.Map(0x40, func(port uint16) (uint32, error) { return 1, nil }, nil))
	f.Unmap(0x40)

	v, err, trap := f.Read(0x40)
	assert.NoError(err)
	assert.Nil(trap)
	assert.Equal(uint32(0), v)
}

func TestMapDuplicatePortFails(t *testing.T) {
	assert := assert.New(t)

	f := NewFabric()
	assert.NoError(f.Map(0x50, func(port uint16) (uint32, error) { return 0, nil }, nil))
	assert.ErrorIs(f.Map(0x50, func(port uint16) (uint32, error) { return 0, nil }, nil), ErrPortMapped)
}
