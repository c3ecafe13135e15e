package middleware

import (
	"context"
	"net/http"

	"github.com/MrEthical07/tokenguard"
)

// DeviceHashFunc extracts the caller's device fingerprint hash from a request.
type DeviceHashFunc func(*http.Request) string

// GuardOption customizes Guard.
type GuardOption func(*guardOptions)

type guardOptions struct {
	deviceHash DeviceHashFunc
}

// WithDeviceHashFrom attaches the hash returned by fn to the request context before
// authorization, for engines configured with device binding.
func WithDeviceHashFrom(fn DeviceHashFunc) GuardOption {
	return func(o *guardOptions) { o.deviceHash = fn }
}

// IdentityFromContext returns the identity attached by Guard.
func IdentityFromContext(ctx context.Context) (*tokenguard.Identity, bool) {
	return tokenguard.IdentityFromContext(ctx)
}

// Guard rejects requests without a valid bearer token for a logged-in session. Accepted
// requests carry the *tokenguard.Identity in their context.
func Guard(engine *tokenguard.Engine, opts ...GuardOption) func(http.Handler) http.Handler {
	var o guardOptions
	for _, opt := range opts {
		opt(&o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				WriteError(w, http.StatusInternalServerError, string(tokenguard.ReasonRegistryUnavailable))
				return
			}

			ctx := r.Context()
			if o.deviceHash != nil {
				if hash := o.deviceHash(r); hash != "" {
					ctx = tokenguard.WithDeviceHash(ctx, hash)
				}
			}

			id, err := engine.Authorize(ctx, r.Header.Get("Authorization"))
			if err != nil {
				reason := tokenguard.ReasonOf(err)
				if reason == tokenguard.ReasonNoToken {
					w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
				}
				WriteError(w, reason.HTTPStatus(), string(reason))
				return
			}

			next.ServeHTTP(w, r.WithContext(tokenguard.WithIdentity(ctx, id)))
		})
	}
}

// RequireRole must run after Guard. It responds 403 unless the identity holds one of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				WriteError(w, http.StatusUnauthorized, string(tokenguard.ReasonNoToken))
				return
			}
			for _, role := range roles {
				if id.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			WriteError(w, http.StatusForbidden, "forbidden")
		})
	}
}
