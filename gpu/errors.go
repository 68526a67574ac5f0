package gpu

import "errors"

var (
	// ErrUnavailable is returned when the requested driver cannot be used in
	// this build or on this machine.
	ErrUnavailable = errors.New("gpu: device unavailable")
	// ErrExecution is returned when a kernel dispatch or a transfer fails.
	ErrExecution = errors.New("gpu: execution failed")
	// ErrClosed is returned when using a closed Device or Session.
	ErrClosed = errors.New("gpu: device is closed")
)
