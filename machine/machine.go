// Package machine wires a cpu.CPU to its memory, port fabric and
// interrupt controller and exposes the coordinator surface an embedder
// actually drives: load an image, reset, step, run. The wiring mirrors
// ucapp's emulator.Emulator, generalized from a single Cpu+Channel set
// to the CPU/Memory/IO/Interrupt quartet XR-32 requires.
package machine

import (
	"github.com/notbonzo-com/XR-32/cpu"
	"github.com/notbonzo-com/XR-32/interrupt"
	"github.com/notbonzo-com/XR-32/ioport"
	"github.com/notbonzo-com/XR-32/mem"
)

// Machine owns every XR-32 subsystem for one emulated processor.
type Machine struct {
	CPU  *cpu.CPU
	Mem  *mem.Memory
	IO   *ioport.Fabric
	Intr *interrupt.Controller

	// Verbose gates the same per-instruction log.Printf tracing
	// CPU.Verbose does; Step/Run sync it down before delegating.
	Verbose bool
}

// NewMachine allocates a machine with memSize bytes of physical memory
// and an empty port fabric, and resets the CPU to its power-on state.
func NewMachine(memSize uint32) *Machine {
	c := &cpu.CPU{}
	m := mem.NewMemory(memSize, &c.Regs.TPDR)
	io := ioport.NewFabric()
	intr := interrupt.New(&c.Regs, m)

	c.Mem = m
	c.IO = io
	c.Intr = intr
	c.Reset()

	return &Machine{CPU: c, Mem: m, IO: io, Intr: intr}
}

// LoadImage copies a raw program image into physical memory starting at
// paddr, bypassing the MMU; this is how a boot loader or test harness
// installs code before the MMU's own tables exist.
func (mach *Machine) LoadImage(paddr uint32, image []byte) error {
	return mach.Mem.LoadRaw(paddr, image)
}

// IdentityMap reserves the top 8KB of physical memory for a minimal
// identity-mapped page directory and table, and points TPDR at it. It
// is a convenience for bootstrapping a flat address space; a guest that
// wants its own page tables should build and install them itself.
func (mach *Machine) IdentityMap() error {
	tableBase := mach.Mem.Size() - 8192
	pdBase, err := mach.Mem.BuildIdentityMap(tableBase)
	if err != nil {
		return err
	}
	mach.CPU.Regs.TPDR = pdBase
	return nil
}

// Reset reinitializes the CPU and zeroes physical memory, per spec §7's
// Reset semantics.
func (mach *Machine) Reset() {
	mach.CPU.Reset()
	mach.Mem.Reset()
}

// Step executes a single instruction. See cpu.CPU.Step for its error
// contract.
func (mach *Machine) Step() error {
	mach.CPU.Verbose = mach.Verbose
	return mach.CPU.Step()
}

// Run steps the machine until it halts or a host error occurs.
func (mach *Machine) Run() error {
	mach.CPU.Verbose = mach.Verbose
	return mach.CPU.Run()
}
