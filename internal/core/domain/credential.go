// internal/core/domain/credential.go
package domain

import (
	"errors"

	perrors "reconmcp/internal/platform/errors"
)

// CredentialAttempt is one login try. Exactly one outcome per attempt.
type CredentialAttempt struct {
	Username string         `json:"username"`
	Password string         `json:"password"`
	Outcome  AttemptOutcome `json:"outcome"`
	Detail   string         `json:"detail,omitempty"`
}

// ClassifyAttemptError maps the error returned by a cracker to an outcome.
// A nil error with ok=true is a success; nil with ok=false is a plain
// rejection. Timeouts are checked before transport errors so that a dial
// timeout is never reported as unreachable.
func ClassifyAttemptError(ok bool, err error) AttemptOutcome {
	switch {
	case err == nil && ok:
		return OutcomeSuccess
	case err == nil:
		return OutcomeAuthFailed
	case errors.Is(err, ErrAuthenticationFailure) || perrors.IsAuthError(err):
		return OutcomeAuthFailed
	case errors.Is(err, ErrProbeTimeout) || perrors.IsTimeout(err):
		return OutcomeTimeout
	case errors.Is(err, ErrProbeTransport) || perrors.IsConnectionError(err):
		return OutcomeUnreachable
	default:
		return OutcomeProtocolError
	}
}
