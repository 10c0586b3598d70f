// Package ioport implements the XR-32 port-mapped I/O fabric of spec
// §5: a flat address space of 16-bit ports, each bound to a callback
// rather than to a concrete device. Concrete devices (a UART, a disk
// controller, ...) are out of scope here, per spec's Non-goals; ioport
// only provides the mapping and dispatch machinery they would plug into.
package ioport

import (
	"github.com/notbonzo-com/XR-32/fault"
	"github.com/notbonzo-com/XR-32/intl"
)

// Reader is called to satisfy an IN on the port it is mapped to.
type Reader func(port uint16) (uint32, error)

// Writer is called to satisfy an OUT on the port it is mapped to.
type Writer func(port uint16, value uint32) error

type binding struct {
	read  Reader
	write Writer
}

// Fabric is the port space: a sparse map from port number to the
// read/write callbacks a device registered for it.
type Fabric struct {
	ports map[uint16]binding
}

// NewFabric returns an empty port space.
func NewFabric() *Fabric {
	return &Fabric{ports: make(map[uint16]binding)}
}

// Map binds a port to a reader and/or writer; either may be nil, in
// which case the corresponding direction is unsatisfied for that port
// (see Read/Write). It fails with ErrPortMapped if the port already has
// a binding — a device must Unmap before rebinding.
func (f *Fabric) Map(port uint16, read Reader, write Writer) error {
	if _, ok := f.ports[port]; ok {
		return ErrPortMapped
	}
	f.ports[port] = binding{read: read, write: write}
	return nil
}

// Unmap removes any binding at the given port.
func (f *Fabric) Unmap(port uint16) {
	delete(f.ports, port)
}

// Read dispatches an IN. A port with no Reader bound — whether the port
// is entirely unmapped or mapped write-only — reads as zero, per spec
// §4.5/§8: there is no such thing as a faulting port access.
func (f *Fabric) Read(port uint16) (uint32, error, *fault.Fault) {
	b, ok := f.ports[port]
	if !ok || b.read == nil {
		return 0, nil, nil
	}
	v, err := b.read(port)
	if err != nil {
		return 0, errPortFailed(port, err), nil
	}
	return v, nil, nil
}

// Write dispatches an OUT. A port with no Writer bound is a silent
// no-op, the write-side mirror of Read's zero-on-unmapped rule.
func (f *Fabric) Write(port uint16, value uint32) (error, *fault.Fault) {
	b, ok := f.ports[port]
	if !ok || b.write == nil {
		return nil, nil
	}
	if err := b.write(port, value); err != nil {
		return errPortFailed(port, err), nil
	}
	return nil, nil
}

func errPortFailed(port uint16, cause error) error {
	return &portError{port: port, cause: cause}
}

type portError struct {
	port  uint16
	cause error
}

func (e *portError) Error() string {
	return intl.From("port %#04x: %v", e.port, e.cause)
}

func (e *portError) Unwrap() error { return e.cause }
