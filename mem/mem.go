// Package mem implements the XR-32 physical memory array and its
// two-level page-table translator, per spec §4.3.
package mem

import (
	"encoding/binary"

	"github.com/notbonzo-com/XR-32/fault"
	"github.com/notbonzo-com/XR-32/intl"
)

// Mode selects which privilege the calling instruction is executing
// under, for the MMU's kernel_only rights check.
type Mode int

const (
	ModeUser   = Mode(0)
	ModeKernel = Mode(1)
)

const (
	pageDirIndexShift = 22
	pageTabIndexShift = 12
	indexMask         = 0x3FF
	offsetMask        = 0xFFF
	frameMask         = ^uint32(0xFFF)

	entryPresent    = 1 << 0
	entryKernelOnly = 1 << 10
)

// PageEntry is a 32-bit page-directory or page-table entry: a frame base
// plus the present and kernel_only bits spec §3 requires be interpreted.
// Other bits are implementation-defined but round-trip through raw
// access, since PageEntry is just a typed view over a raw uint32.
type PageEntry uint32

func (e PageEntry) Present() bool    { return e&entryPresent != 0 }
func (e PageEntry) KernelOnly() bool { return e&entryKernelOnly != 0 }
func (e PageEntry) Frame() uint32    { return uint32(e) & frameMask }

// NewPageEntry builds a page entry from a frame base and the two
// interpreted flags.
func NewPageEntry(frame uint32, present, kernelOnly bool) PageEntry {
	e := PageEntry(frame & frameMask)
	if present {
		e |= entryPresent
	}
	if kernelOnly {
		e |= entryKernelOnly
	}
	return e
}

// Memory is the physical byte array plus the translator that walks it.
// TPDR points at the owning CPU's page-directory base register so that
// translation always observes the live value rather than a stale copy.
type Memory struct {
	bytes []byte
	TPDR  *uint32
}

// NewMemory allocates a zeroed physical memory array of the given size
// and binds the translator to tpdr, normally &cpu.Registers.TPDR.
func NewMemory(size uint32, tpdr *uint32) *Memory {
	return &Memory{
		bytes: make([]byte, size),
		TPDR:  tpdr,
	}
}

// Size returns the physical memory size in bytes.
func (m *Memory) Size() uint32 {
	return uint32(len(m.bytes))
}

// Reset zeroes every byte of physical memory, per spec §4.3.
func (m *Memory) Reset() {
	clear(m.bytes)
}

// ReadRaw loads a little-endian 32-bit word directly from physical
// memory, bypassing translation and rights checks. Only privileged
// subsystems (interrupt delivery, the translator itself, debug tooling)
// may call it; out-of-range access is a host bug, not an architectural
// fault.
func (m *Memory) ReadRaw(paddr uint32) (uint32, error) {
	if uint64(paddr)+4 > uint64(len(m.bytes)) {
		return 0, errOutOfRange(paddr)
	}
	return binary.LittleEndian.Uint32(m.bytes[paddr:]), nil
}

// WriteRaw stores a little-endian 32-bit word directly into physical
// memory, bypassing translation and rights checks.
func (m *Memory) WriteRaw(paddr uint32, value uint32) error {
	if uint64(paddr)+4 > uint64(len(m.bytes)) {
		return errOutOfRange(paddr)
	}
	binary.LittleEndian.PutUint32(m.bytes[paddr:], value)
	return nil
}

// LoadRaw copies a byte image directly into physical memory at paddr,
// bypassing translation. Used to install a program image or a boot ROM.
func (m *Memory) LoadRaw(paddr uint32, image []byte) error {
	if uint64(paddr)+uint64(len(image)) > uint64(len(m.bytes)) {
		return errOutOfRange(paddr)
	}
	copy(m.bytes[paddr:], image)
	return nil
}

// BuildIdentityMap writes a minimal page directory and a single page
// table at tableBase, mapping every frame of physical memory to the
// same virtual address, all present and not kernel_only. It returns the
// page directory's physical address, ready to be written into TPDR.
// Memory beyond the first 4MB (one page table's reach) is left
// unmapped; callers with larger address spaces need more than one page
// table, which this convenience helper does not build.
func (m *Memory) BuildIdentityMap(tableBase uint32) (uint32, error) {
	pdBase := tableBase
	ptBase := tableBase + 4096

	pages := (m.Size() + offsetMask) / 4096
	if pages > indexMask+1 {
		pages = indexMask + 1
	}
	for i := uint32(0); i < pages; i++ {
		pte := NewPageEntry(i*4096, true, false)
		if err := m.WriteRaw(ptBase+i*4, uint32(pte)); err != nil {
			return 0, err
		}
	}
	pde := NewPageEntry(ptBase, true, false)
	if err := m.WriteRaw(pdBase, uint32(pde)); err != nil {
		return 0, err
	}
	return pdBase, nil
}

func errOutOfRange(addr uint32) error {
	return &outOfRangeError{addr: addr}
}

type outOfRangeError struct{ addr uint32 }

func (e *outOfRangeError) Error() string {
	return intl.From("address %#08x out of range", e.addr)
}

// Translate walks the two-level page table rooted at *TPDR, per the
// algorithm of spec §4.3. It does not itself check access rights; see
// Read/Write for the rights-checked accessors.
func (m *Memory) Translate(vaddr uint32) (paddr uint32, err error, trap *fault.Fault) {
	pdi := (vaddr >> pageDirIndexShift) & indexMask
	pti := (vaddr >> pageTabIndexShift) & indexMask
	off := vaddr & offsetMask

	pdeRaw, rerr := m.ReadRaw(*m.TPDR + pdi*4)
	if rerr != nil {
		err = rerr
		return
	}
	pde := PageEntry(pdeRaw)
	if !pde.Present() {
		trap = fault.New(fault.PageFault, fault.PageFaultNotPresent)
		return
	}

	pteRaw, rerr := m.ReadRaw(pde.Frame() + pti*4)
	if rerr != nil {
		err = rerr
		return
	}
	pte := PageEntry(pteRaw)
	if !pte.Present() {
		trap = fault.New(fault.PageFault, fault.PageFaultNotPresent)
		return
	}

	paddr = pte.Frame() | off
	return
}

// rights walks the same two entries Translate does, to decide whether the
// given mode may access the page; kept separate from Translate so that
// Read and Write can apply it identically (spec §4.3's Open Question is
// resolved in favor of enforcing kernel_only on both reads and writes).
func (m *Memory) rights(vaddr uint32, mode Mode) (denied bool, err error) {
	pdi := (vaddr >> pageDirIndexShift) & indexMask
	pti := (vaddr >> pageTabIndexShift) & indexMask

	pdeRaw, err := m.ReadRaw(*m.TPDR + pdi*4)
	if err != nil {
		return
	}
	pde := PageEntry(pdeRaw)

	pteRaw, err := m.ReadRaw(pde.Frame() + pti*4)
	if err != nil {
		return
	}
	pte := PageEntry(pteRaw)

	if mode == ModeUser && (pde.KernelOnly() || pte.KernelOnly()) {
		denied = true
	}
	return
}

// Read translates vaddr, enforces the kernel_only right, and loads a
// little-endian 32-bit word.
func (m *Memory) Read(vaddr uint32, mode Mode) (value uint32, err error, trap *fault.Fault) {
	paddr, err, trap := m.Translate(vaddr)
	if err != nil || trap != nil {
		return 0, err, trap
	}

	denied, rerr := m.rights(vaddr, mode)
	if rerr != nil {
		return 0, rerr, nil
	}
	if denied {
		trap = fault.New(fault.GeneralProtectionFault, fault.GPFUserToKernelMemory)
		return 0, nil, trap
	}

	raw, rerr := m.ReadRaw(paddr)
	if rerr != nil {
		return 0, rerr, nil
	}
	return raw, nil, nil
}

// Write translates vaddr, enforces the kernel_only right, and stores a
// little-endian 32-bit word.
func (m *Memory) Write(vaddr uint32, value uint32, mode Mode) (err error, trap *fault.Fault) {
	paddr, err, trap := m.Translate(vaddr)
	if err != nil || trap != nil {
		return err, trap
	}

	denied, rerr := m.rights(vaddr, mode)
	if rerr != nil {
		return rerr, nil
	}
	if denied {
		trap = fault.New(fault.GeneralProtectionFault, fault.GPFUserToKernelMemory)
		return nil, trap
	}

	return m.WriteRaw(paddr, value), nil
}
