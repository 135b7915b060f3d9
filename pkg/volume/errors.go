package volume

import (
	"context"
	"errors"
	"fmt"
)

// Status is the category of a volume error. The set mirrors the status codes
// a firmware file-system driver reports, so that every backend maps its
// native failures onto the same small vocabulary the tool prints to the user.
type Status int

const (
	// StatusSuccess is never carried by an error; StatusOf(nil) returns it.
	StatusSuccess Status = iota

	// StatusNotFound indicates the file or volume does not exist.
	StatusNotFound

	// StatusNotReady indicates the volume has not been opened.
	StatusNotReady

	// StatusInvalidParameter indicates a bad name, mode or closed handle.
	StatusInvalidParameter

	// StatusAccessDenied indicates the handle or volume does not allow the
	// requested access (e.g. writing through a read-only handle).
	StatusAccessDenied

	// StatusOutOfResources indicates a buffer could not be allocated.
	StatusOutOfResources

	// StatusUnsupported indicates the request is valid but not supported.
	StatusUnsupported

	// StatusDeviceError indicates the device failed or wrote short.
	StatusDeviceError

	// StatusVolumeFull indicates no space is left on the volume.
	StatusVolumeFull

	// StatusAborted indicates the user cancelled the operation.
	StatusAborted
)

// String returns the firmware-style status name ("Not Found", ...).
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusNotFound:
		return "Not Found"
	case StatusNotReady:
		return "Not Ready"
	case StatusInvalidParameter:
		return "Invalid Parameter"
	case StatusAccessDenied:
		return "Access Denied"
	case StatusOutOfResources:
		return "Out of Resources"
	case StatusUnsupported:
		return "Unsupported"
	case StatusDeviceError:
		return "Device Error"
	case StatusVolumeFull:
		return "Volume Full"
	case StatusAborted:
		return "Aborted"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Error lets a bare Status be used as a sentinel:
//
//	if errors.Is(err, volume.StatusNotFound) { ... }
func (s Status) Error() string {
	return s.String()
}

// StatusError is the error type returned by volume backends.
type StatusError struct {
	// Status is the error category.
	Status Status

	// Op is the operation that failed ("open", "read", "write", ...).
	Op string

	// Name is the file name involved, if any.
	Name string

	// Err is the underlying backend error, if any.
	Err error
}

// NewError builds a *StatusError.
func NewError(status Status, op, name string, err error) *StatusError {
	return &StatusError{Status: status, Op: op, Name: name, Err: err}
}

func (e *StatusError) Error() string {
	msg := e.Status.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Name != "" {
		msg += ": " + e.Name
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// Is matches a bare Status target against the error's category.
func (e *StatusError) Is(target error) bool {
	s, ok := target.(Status)
	return ok && s == e.Status
}

// StatusOf extracts the Status carried by err. A nil error is
// StatusSuccess, a context cancellation is StatusAborted, and any other
// error without a status is StatusDeviceError.
func StatusOf(err error) Status {
	if err == nil {
		return StatusSuccess
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return StatusAborted
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	var s Status
	if errors.As(err, &s) {
		return s
	}
	return StatusDeviceError
}

// IsStatus reports whether err carries status s.
func IsStatus(err error, s Status) bool {
	return err != nil && StatusOf(err) == s
}
