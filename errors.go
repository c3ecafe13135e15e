package tokenguard

import (
	"errors"
	"net/http"
	"time"

	"github.com/MrEthical07/tokenguard/jwt"
)

var (
	// ErrInvalidConfig reports missing or out-of-range configuration. It is a startup error.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrEngineNotReady is returned when a nil or partially built Engine is used.
	ErrEngineNotReady = errors.New("engine not initialized")

	// ErrNoToken is the sentinel behind ReasonNoToken.
	ErrNoToken = errors.New("no bearer token")
	// ErrInvalidToken is the sentinel behind ReasonInvalidToken.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidClaims is the sentinel behind ReasonInvalidClaims.
	ErrInvalidClaims = errors.New("invalid token claims")
	// ErrSessionRevoked is the sentinel behind ReasonSessionRevoked.
	ErrSessionRevoked = errors.New("session revoked")
	// ErrRegistryUnavailable is the sentinel behind ReasonRegistryUnavailable.
	ErrRegistryUnavailable = errors.New("session registry unavailable")

	// ErrSessionCreationFailed is returned when IssueSession cannot persist the new session.
	ErrSessionCreationFailed = errors.New("session creation failed")
	// ErrSessionNotFound is returned by Logout for a session that is not logged in.
	ErrSessionNotFound = errors.New("session not found")
	// ErrRefreshInvalid covers any refresh token that fails verification or lookup.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrRefreshReuse is returned when an already consumed refresh token is presented again.
	// Every session of the owning user is revoked before it is returned.
	ErrRefreshReuse = errors.New("refresh token reuse detected")

	// ErrActionInvalid covers an action token that fails verification.
	ErrActionInvalid = errors.New("invalid action token")
	// ErrActionMismatch is returned when an action token is presented for a different action
	// type or parameter set than it was minted for.
	ErrActionMismatch = errors.New("action token does not match operation")
	// ErrActionReplay is returned on the second use of an action token.
	ErrActionReplay = errors.New("action token already used")

	// ErrLoginBlocked is matched by the error ConsumeLogin returns for a blocked identifier.
	// Use errors.As with *LoginBlockedError for the retry hint.
	ErrLoginBlocked = errors.New("login attempts blocked")
	// ErrLimiterUnavailable is returned when the limiter backend cannot be reached.
	// Logins are refused in that state.
	ErrLimiterUnavailable = errors.New("login limiter unavailable")
	// ErrMissingIdentifier is returned by ConsumeLogin for an empty login identifier.
	ErrMissingIdentifier = errors.New("login identifier required")
)

// Reason is the stable rejection code produced by Authorize. It is safe to show to clients.
type Reason string

const (
	ReasonNoToken             Reason = "no_token"
	ReasonInvalidToken        Reason = "invalid_token"
	ReasonInvalidClaims       Reason = "invalid_claims"
	ReasonSessionRevoked      Reason = "session_revoked"
	ReasonRegistryUnavailable Reason = "registry_unavailable"
)

// HTTPStatus maps r to a response status. Only an unavailable registry escalates to 500.
func (r Reason) HTTPStatus() int {
	switch r {
	case ReasonRegistryUnavailable:
		return http.StatusInternalServerError
	default:
		return http.StatusUnauthorized
	}
}

func (r Reason) sentinel() error {
	switch r {
	case ReasonNoToken:
		return ErrNoToken
	case ReasonInvalidToken:
		return ErrInvalidToken
	case ReasonInvalidClaims:
		return ErrInvalidClaims
	case ReasonSessionRevoked:
		return ErrSessionRevoked
	default:
		return ErrRegistryUnavailable
	}
}

// AuthError is the rejection returned by Authorize. Kind is set only for ReasonInvalidToken.
// Err holds the underlying cause for logs and must not be shown to clients.
type AuthError struct {
	Reason Reason
	Kind   jwt.ErrorKind
	Err    error
}

func (e *AuthError) Error() string {
	msg := "unauthorized: " + string(e.Reason)
	if e.Reason == ReasonInvalidToken {
		msg += " (" + e.Kind.String() + ")"
	}
	return msg
}

// Unwrap exposes both the reason sentinel and the underlying cause to errors.Is.
func (e *AuthError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Reason.sentinel()}
	}
	return []error{e.Reason.sentinel(), e.Err}
}

// HTTPStatus returns the response status for e.
func (e *AuthError) HTTPStatus() int { return e.Reason.HTTPStatus() }

func reject(reason Reason, err error) *AuthError {
	return &AuthError{Reason: reason, Kind: jwt.KindOf(err), Err: err}
}

// ReasonOf extracts the rejection reason from err. Errors that are not an *AuthError map to
// ReasonRegistryUnavailable so callers fail closed.
func ReasonOf(err error) Reason {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Reason
	}
	return ReasonRegistryUnavailable
}

// LoginBlockedError is returned by ConsumeLogin while an identifier is blocked.
type LoginBlockedError struct {
	RetryAfter time.Duration
}

func (e *LoginBlockedError) Error() string {
	return ErrLoginBlocked.Error() + ": retry after " + e.RetryAfter.String()
}

func (e *LoginBlockedError) Unwrap() error { return ErrLoginBlocked }

// RetryAfterSeconds rounds RetryAfter up to whole seconds for a Retry-After header.
func (e *LoginBlockedError) RetryAfterSeconds() int {
	secs := int((e.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
