// Package interrupt implements the XR-32 interrupt controller of spec
// §6: a vector table indexed by fault/interrupt number, and a single
// save slot that Trigger fills and Return drains. The controller owns
// no state of its own beyond the registers and memory it is given; it
// is the thing that turns a fault.Fault into a change of I0.
package interrupt

import (
	"github.com/notbonzo-com/XR-32/cpu"
	"github.com/notbonzo-com/XR-32/fault"
	"github.com/notbonzo-com/XR-32/mem"
)

const vectorTableEntrySize = 4

// Controller delivers faults into the guest and returns from them. It
// only has one save slot (IE1..IE4), so a fault raised while already
// servicing one clobbers the earlier save — a documented limitation of
// spec §6, not a bug: a real nested-interrupt design would need a
// stack of save slots, which this architecture does not provide.
type Controller struct {
	Regs *cpu.Registers
	Mem  *mem.Memory
}

// New builds a controller bound to the given register file and memory.
func New(regs *cpu.Registers, m *mem.Memory) *Controller {
	return &Controller{Regs: regs, Mem: m}
}

// Trigger saves the interruptible state into the single save slot,
// switches to kernel mode, and sets I0 to the handler address read from
// the vector table at IVTR + n*4. It reports a host error only if the
// vector table entry itself cannot be read; the fault.Fault that caused
// the trigger has already been consumed by the time Trigger is called.
func (c *Controller) Trigger(n uint8, errorCode uint8) error {
	r := c.Regs

	r.IE0 = uint32(errorCode)
	r.IE1 = r.I0
	r.IE2 = r.S0
	r.IE3 = uint32(r.FR)
	r.IE4 = r.MSR

	r.MSR |= cpu.MsrKernel

	entry := r.IVTR + uint32(n)*vectorTableEntrySize
	handler, err := c.Mem.ReadRaw(entry)
	if err != nil {
		return err
	}
	r.I0 = handler
	return nil
}

// TriggerFault is a convenience wrapper that unpacks a fault.Fault into
// its vector number and error code before delivering it.
func (c *Controller) TriggerFault(flt *fault.Fault) error {
	return c.Trigger(uint8(flt.Kind), flt.Code)
}

// Return restores the state Trigger saved and resumes at the saved I0,
// per the IRET semantics of spec §6.
func (c *Controller) Return() error {
	r := c.Regs

	r.I0 = r.IE1
	r.S0 = r.IE2
	r.FR = cpu.Flags(r.IE3)
	r.MSR = r.IE4
	return nil
}
