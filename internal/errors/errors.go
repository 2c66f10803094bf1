// Package errors defines the error taxonomy shared by the engines and every command surface.
package errors

import "fmt"

// ErrorCode identifies a class of failure. Codes are stable and appear on the wire.
type ErrorCode string

const (
	ErrAlreadyActive        ErrorCode = "ALREADY_ACTIVE"         // 409
	ErrNotActive            ErrorCode = "NOT_ACTIVE"             // 409
	ErrEmptyMacro           ErrorCode = "EMPTY_MACRO"            // 400
	ErrCaptureInstallFailed ErrorCode = "CAPTURE_INSTALL_FAILED" // 500, async only
	ErrUnmappedKey          ErrorCode = "UNMAPPED_KEY"           // logged, never returned to callers
	ErrInvalidRequest       ErrorCode = "INVALID_REQUEST"        // 400
	ErrNotFound             ErrorCode = "NOT_FOUND"              // 404
	ErrNameAlreadyExists    ErrorCode = "NAME_ALREADY_EXISTS"    // 409
	ErrInternal             ErrorCode = "INTERNAL"               // 500
)

// MacroError is a failure with a stable code and a short human-readable message.
type MacroError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *MacroError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *MacroError) Unwrap() error {
	return e.Err
}

// Status maps the code to an HTTP status.
func (e *MacroError) Status() int {
	switch e.Code {
	case ErrAlreadyActive, ErrNotActive, ErrNameAlreadyExists:
		return 409
	case ErrEmptyMacro, ErrInvalidRequest:
		return 400
	case ErrNotFound:
		return 404
	default:
		return 500
	}
}

// NewAlreadyActive reports a start request against a running engine.
func NewAlreadyActive(msg string) *MacroError {
	return &MacroError{Code: ErrAlreadyActive, Message: msg}
}

// NewNotActive reports a stop request against an idle engine.
func NewNotActive(msg string) *MacroError {
	return &MacroError{Code: ErrNotActive, Message: msg}
}

// NewEmptyMacro reports a playback request without events.
func NewEmptyMacro() *MacroError {
	return &MacroError{Code: ErrEmptyMacro, Message: "no macro events supplied"}
}

// NewCaptureInstallFailed wraps a listener installation failure.
func NewCaptureInstallFailed(err error) *MacroError {
	msg := "input listener could not be installed"
	if err != nil {
		msg = fmt.Sprintf("recorder error: %v", err)
	}
	return &MacroError{Code: ErrCaptureInstallFailed, Message: msg, Err: err}
}

// NewUnmappedKey describes a recorded label with no synthesizable key.
func NewUnmappedKey(label string) *MacroError {
	return &MacroError{Code: ErrUnmappedKey, Message: fmt.Sprintf("no key mapping for %q", label)}
}

// NewInvalidRequest reports malformed input.
func NewInvalidRequest(msg string) *MacroError {
	return &MacroError{Code: ErrInvalidRequest, Message: msg}
}

// NewNotFound reports a missing library entry.
func NewNotFound(identifier string) *MacroError {
	return &MacroError{Code: ErrNotFound, Message: fmt.Sprintf("macro not found: %s", identifier)}
}

// NewNameAlreadyExists reports a library name collision.
func NewNameAlreadyExists(name string) *MacroError {
	return &MacroError{Code: ErrNameAlreadyExists, Message: fmt.Sprintf("macro with name %q already exists", name)}
}

// NewInternal wraps an unexpected failure.
func NewInternal(err error) *MacroError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &MacroError{Code: ErrInternal, Message: msg, Err: err}
}

// Is reports whether err is a MacroError with the given code.
func Is(err error, code ErrorCode) bool {
	if mErr, ok := err.(*MacroError); ok {
		return mErr.Code == code
	}
	return false
}

// CodeOf returns the code of a MacroError, or ErrInternal for any other error.
func CodeOf(err error) ErrorCode {
	if mErr, ok := err.(*MacroError); ok {
		return mErr.Code
	}
	return ErrInternal
}
