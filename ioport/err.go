package ioport

import (
	"errors"

	"github.com/notbonzo-com/XR-32/intl"
)

// ErrPortMapped is returned by Map when the port already has a binding,
// mirroring ucapp's channel-slot-occupied check.
var ErrPortMapped = errors.New(intl.From("port already mapped"))
