package tokenguard

import "context"

type deviceHashContextKey struct{}
type identityContextKey struct{}

// WithDeviceHash attaches the caller's device fingerprint hash to ctx. When device binding is
// enabled, Authorize compares it against the hash carried in the access token.
func WithDeviceHash(ctx context.Context, hash string) context.Context {
	return context.WithValue(ctx, deviceHashContextKey{}, hash)
}

func deviceHashFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	hash, _ := ctx.Value(deviceHashContextKey{}).(string)
	return hash
}

// WithIdentity attaches an authenticated identity to ctx.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext returns the identity attached by WithIdentity.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	if ctx == nil {
		return nil, false
	}
	id, ok := ctx.Value(identityContextKey{}).(*Identity)
	return id, ok && id != nil
}
