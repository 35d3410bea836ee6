package mira220

import "errors"

var (
	// ErrConfiguration is fatal at attach time, the device is not brought up.
	ErrConfiguration = errors.New("mira220: unsupported configuration")
	// ErrRange rejects a control write outside its declared bounds.
	ErrRange = errors.New("mira220: value out of range")
	// ErrSequence reports a multi-step hardware sequence aborted partway.
	ErrSequence = errors.New("mira220: sequence aborted")
	// ErrBusy rejects writes to controls locked while streaming and format changes during streaming.
	ErrBusy        = errors.New("mira220: device busy")
	ErrReadOnly    = errors.New("mira220: control is read-only")
	ErrUnsupported = errors.New("mira220: unsupported control")
	ErrSuspended   = errors.New("mira220: device suspended")
	ErrDetached    = errors.New("mira220: device detached")
)
