package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/MrEthical07/tokenguard"
)

// IdentifierFunc returns the login identifier of a request, or "" when it has none.
// Implementations that read the body must leave it readable for the next handler.
type IdentifierFunc func(*http.Request) string

// Rejection codes written by LoginLimit.
const (
	CodeMissingLogin       = "login_required"
	CodeTooManyAttempts    = "too_many_attempts"
	CodeLimiterUnavailable = "limiter_unavailable"
)

// LoginLimit spends one attempt for the request's identifier before the handler runs. It
// responds 400 when there is no identifier, 429 with Retry-After while the identifier is
// blocked, and 500 when the limiter cannot be reached. The handler should call
// Engine.ResetLogin after a successful login.
func LoginLimit(engine *tokenguard.Engine, identifier IdentifierFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil || identifier == nil {
				WriteError(w, http.StatusInternalServerError, CodeLimiterUnavailable)
				return
			}

			id := identifier(r)
			if id == "" {
				logger := engine.Logger()
				logger.Warn().Str("path", r.URL.Path).Msg("login request without identifier")
				WriteError(w, http.StatusBadRequest, CodeMissingLogin)
				return
			}

			_, err := engine.ConsumeLogin(r.Context(), id)
			var blocked *tokenguard.LoginBlockedError
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.As(err, &blocked):
				w.Header().Set("Retry-After", strconv.Itoa(blocked.RetryAfterSeconds()))
				WriteError(w, http.StatusTooManyRequests, CodeTooManyAttempts)
			case errors.Is(err, tokenguard.ErrMissingIdentifier):
				WriteError(w, http.StatusBadRequest, CodeMissingLogin)
			default:
				WriteError(w, http.StatusInternalServerError, CodeLimiterUnavailable)
			}
		})
	}
}

// FormValue returns an IdentifierFunc reading field from the parsed form.
func FormValue(field string) IdentifierFunc {
	return func(r *http.Request) string {
		return r.FormValue(field)
	}
}

// HeaderValue returns an IdentifierFunc reading a request header.
func HeaderValue(name string) IdentifierFunc {
	return func(r *http.Request) string {
		return r.Header.Get(name)
	}
}
