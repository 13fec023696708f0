// internal/core/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio comunes.
var (
	// Target errors
	ErrInvalidTarget = errors.New("invalid target")
	ErrEmptyTarget   = errors.New("target cannot be empty")
	ErrShellMeta     = errors.New("target contains shell metacharacters")
	ErrDenylisted    = errors.New("target is in a denylisted range")

	// Probe errors
	ErrProbeTimeout   = errors.New("probe timed out")
	ErrProbeTransport = errors.New("probe transport failure")

	// Credential errors
	ErrAuthenticationFailure = errors.New("authentication failed")
	ErrEmptyCandidates       = errors.New("no password candidates")

	// Adapter errors
	ErrAdapterMissing = errors.New("adapter not configured")
)

// InvalidTargetError is the only error that aborts a session.
type InvalidTargetError struct {
	Raw    string
	Reason error
}

func (e *InvalidTargetError) Error() string {
	return fmt.Sprintf("invalid target %q: %v", e.Raw, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidTarget) hold for every InvalidTargetError.
func (e *InvalidTargetError) Is(target error) bool {
	return target == ErrInvalidTarget
}

func (e *InvalidTargetError) Unwrap() error {
	return e.Reason
}

// ProbeTimeoutError marks a bounded external call that exceeded its deadline.
type ProbeTimeoutError struct {
	Probe string
	Err   error
}

func (e *ProbeTimeoutError) Error() string {
	return fmt.Sprintf("%s timed out: %v", e.Probe, e.Err)
}

func (e *ProbeTimeoutError) Is(target error) bool {
	return target == ErrProbeTimeout
}

func (e *ProbeTimeoutError) Unwrap() error {
	return e.Err
}

// ProbeTransportError marks refused connections, unreachable hosts and
// resolution failures.
type ProbeTransportError struct {
	Probe string
	Err   error
}

func (e *ProbeTransportError) Error() string {
	return fmt.Sprintf("%s transport error: %v", e.Probe, e.Err)
}

func (e *ProbeTransportError) Is(target error) bool {
	return target == ErrProbeTransport
}

func (e *ProbeTransportError) Unwrap() error {
	return e.Err
}

func invalidTarget(raw string, reason error) error {
	return &InvalidTargetError{Raw: raw, Reason: reason}
}
