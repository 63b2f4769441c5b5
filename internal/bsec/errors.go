package bsec

import "errors"

// Domain-specific errors for BSEC supervision.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrInvalidDevice is returned when a device parameter is outside its
	// enumerated legal values.
	ErrInvalidDevice = errors.New("bsec: invalid device parameter")

	// ErrUnsupportedPlatform is returned when the host OS or CPU cannot run
	// the vendor library.
	ErrUnsupportedPlatform = errors.New("bsec: unsupported platform")

	// ErrSourceTreeMissing is returned when the vendor BSEC source directory
	// cannot be located under the base directory.
	ErrSourceTreeMissing = errors.New("bsec: vendor source tree not found")

	// ErrBuildFailed is returned when the native compiler exits non-zero.
	// The error message carries the captured compiler output.
	ErrBuildFailed = errors.New("bsec: build failed")

	// ErrConfigCopy is returned when the runtime configuration blob could
	// not be installed at its destination.
	ErrConfigCopy = errors.New("bsec: config install failed")

	// ErrAlreadyExited is returned by Open when the child process exits
	// before supervision begins.
	ErrAlreadyExited = errors.New("bsec: process exited during startup")

	// ErrSensorStatus is returned via Supervisor.Err() when the child
	// reports a non-zero BSEC status code. The stream terminates without
	// yielding the offending record.
	ErrSensorStatus = errors.New("bsec: sensor reported error status")

	// ErrBadRecord is returned via Supervisor.Err() when a line of child
	// output cannot be parsed as a measurement.
	ErrBadRecord = errors.New("bsec: malformed measurement record")
)
