package jwt

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrSigning reports absent, malformed, or mismatched key material. It is a startup error.
	ErrSigning = errors.New("token signing unavailable")
	// ErrClaimsIncomplete is returned by Issue when subject or roles are missing.
	ErrClaimsIncomplete = errors.New("token claims incomplete")
	// ErrUnsupportedAlgorithm is returned for algorithms outside the asymmetric set.
	ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")
	// ErrVersionMismatch marks a token minted under a different claim schema.
	ErrVersionMismatch = errors.New("token schema version mismatch")
)

// ErrorKind is the closed set of verification outcomes exposed to callers.
type ErrorKind uint8

const (
	KindUnknown ErrorKind = iota
	KindExpired
	KindMalformed
	KindNotYetValid
)

func (k ErrorKind) String() string {
	switch k {
	case KindExpired:
		return "expired"
	case KindMalformed:
		return "malformed"
	case KindNotYetValid:
		return "not_yet_valid"
	default:
		return "unknown"
	}
}

// VerifyError is the only error type returned by Verify and VerifyAction.
type VerifyError struct {
	Kind ErrorKind
	Err  error
}

func (e *VerifyError) Error() string {
	if e.Err == nil {
		return "token " + e.Kind.String()
	}
	return "token " + e.Kind.String() + ": " + e.Err.Error()
}

func (e *VerifyError) Unwrap() error { return e.Err }

// KindOf extracts the ErrorKind from err, returning KindUnknown when err is not a VerifyError.
func KindOf(err error) ErrorKind {
	var ve *VerifyError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return KindUnknown
}

// Classify maps a golang-jwt parse error to an ErrorKind. Expiry is tested first because the
// library wraps ErrTokenExpired inside ErrTokenInvalidClaims.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, jwt.ErrTokenExpired):
		return KindExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return KindNotYetValid
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrTokenInvalidAudience),
		errors.Is(err, jwt.ErrTokenInvalidSubject),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing),
		errors.Is(err, jwt.ErrTokenInvalidClaims),
		errors.Is(err, jwt.ErrInvalidType),
		errors.Is(err, ErrVersionMismatch):
		return KindMalformed
	default:
		return KindUnknown
	}
}

func verifyErr(err error) *VerifyError {
	return &VerifyError{Kind: Classify(err), Err: err}
}
