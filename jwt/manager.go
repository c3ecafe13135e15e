package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Config is the process-wide token configuration. It is read-only once passed to NewManager.
type Config struct {
	Algorithm     Algorithm
	PrivateKeyPEM []byte
	PublicKeyPEM  []byte
	Issuer        string
	Audience      string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	ActionTTL     time.Duration
	Leeway        time.Duration
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock replaces the wall clock used for iat/exp arithmetic.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// Manager signs and verifies tokens for all three classes with one key pair.
// It holds no mutable state and is safe for concurrent use.
type Manager struct {
	config Config
	keys   *KeyPair
	now    func() time.Time
}

// NewManager validates cfg, parses the key material, and runs a sign/verify round-trip so a
// mismatched key pair fails at startup rather than on the first request.
func NewManager(cfg Config, opts ...Option) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 || cfg.ActionTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)

	keys, err := ParseKeyPair(cfg.Algorithm, cfg.PrivateKeyPEM, cfg.PublicKeyPEM)
	if err != nil {
		return nil, err
	}

	m := &Manager{config: cfg, keys: keys, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}

	if keys.CanSign() {
		if err := m.selfCheck(); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Manager) selfCheck() error {
	probe, err := m.Issue(ClassAction, Claims{
		Roles:            []string{"probe"},
		RegisteredClaims: jwt.RegisteredClaims{Subject: "probe"},
	}, IssueOptions{Audience: m.config.Audience})
	if err != nil {
		return err
	}
	if _, err := m.Verify(ClassAction, probe, VerifyOptions{}); err != nil {
		return fmt.Errorf("%w: key pair self-check failed: %v", ErrSigning, err)
	}
	return nil
}

// Algorithm returns the pinned signing algorithm.
func (m *Manager) Algorithm() Algorithm { return m.config.Algorithm }

// Issuer returns the configured issuer string.
func (m *Manager) Issuer() string { return m.config.Issuer }

// TTL returns the lifetime of class.
func (m *Manager) TTL(class TokenClass) time.Duration {
	switch class {
	case ClassRefresh:
		return m.config.RefreshTTL
	case ClassAction:
		return m.config.ActionTTL
	default:
		return m.config.AccessTTL
	}
}

// Issue signs claims as a token of class. Subject and roles are required; jti, iss, iat and
// exp are always overwritten.
func (m *Manager) Issue(class TokenClass, claims Claims, opts IssueOptions) (string, error) {
	if err := m.stamp(class, &claims, opts); err != nil {
		return "", err
	}
	return m.sign(class, &claims)
}

// IssueAction signs an action token. ActionType and ParamsHash are required.
func (m *Manager) IssueAction(claims ActionClaims, opts IssueOptions) (string, error) {
	if claims.ActionType == "" || claims.ParamsHash == "" {
		return "", fmt.Errorf("%w: action type and params hash are required", ErrClaimsIncomplete)
	}
	if err := m.stamp(ClassAction, &claims.Claims, opts); err != nil {
		return "", err
	}
	return m.sign(ClassAction, &claims)
}

func (m *Manager) stamp(class TokenClass, claims *Claims, opts IssueOptions) error {
	if opts.Subject != "" {
		claims.Subject = opts.Subject
	}
	if claims.Subject == "" || len(claims.Roles) == 0 {
		return ErrClaimsIncomplete
	}
	now := m.now()
	claims.Version = CurrentVersion
	claims.ID = uuid.NewString()
	claims.Issuer = m.config.Issuer
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.NotBefore = nil
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(m.TTL(class)))
	claims.Audience = nil
	if aud := firstNonEmpty(opts.Audience, m.config.Audience); aud != "" {
		claims.Audience = jwt.ClaimStrings{aud}
	}
	return nil
}

func (m *Manager) sign(class TokenClass, claims jwt.Claims) (string, error) {
	if !m.keys.CanSign() {
		return "", fmt.Errorf("%w: private key not loaded", ErrSigning)
	}
	token := jwt.NewWithClaims(m.config.Algorithm.method(), claims)
	token.Header["typ"] = headerType(class)
	signed, err := token.SignedString(m.keys.Private)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return signed, nil
}

// Verify checks signature, algorithm, token class, issuer, expiry and class max-age.
// Every failure is returned as a *VerifyError.
func (m *Manager) Verify(class TokenClass, tokenStr string, opts VerifyOptions) (*Claims, error) {
	claims := &Claims{}
	if err := m.parse(class, tokenStr, claims, opts); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyAction verifies an action-class token and returns its extended claims.
func (m *Manager) VerifyAction(tokenStr string, opts VerifyOptions) (*ActionClaims, error) {
	claims := &ActionClaims{}
	if err := m.parse(ClassAction, tokenStr, claims, opts); err != nil {
		return nil, err
	}
	if claims.ActionType == "" || claims.ParamsHash == "" {
		return nil, verifyErr(fmt.Errorf("%w: action claims", jwt.ErrTokenRequiredClaimMissing))
	}
	return claims, nil
}

type claimsCarrier interface {
	jwt.Claims
	base() *Claims
}

func (c *Claims) base() *Claims       { return c }
func (c *ActionClaims) base() *Claims { return &c.Claims }

func (m *Manager) parse(class TokenClass, tokenStr string, claims claimsCarrier, opts VerifyOptions) error {
	if strings.TrimSpace(tokenStr) == "" {
		return verifyErr(jwt.ErrTokenMalformed)
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{string(m.config.Algorithm)}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	if aud := firstNonEmpty(opts.Audience, m.config.Audience); aud != "" {
		options = append(options, jwt.WithAudience(aud))
	}
	if opts.Subject != "" {
		options = append(options, jwt.WithSubject(opts.Subject))
	}

	want := headerType(class)
	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != string(m.config.Algorithm) {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		if typ, _ := t.Header["typ"].(string); typ != want {
			return nil, fmt.Errorf("unexpected token type %q", typ)
		}
		return m.keys.Public, nil
	})
	if err != nil {
		return verifyErr(err)
	}
	if !token.Valid {
		return verifyErr(jwt.ErrTokenInvalidClaims)
	}

	c := claims.base()
	if c.Version != CurrentVersion {
		return verifyErr(ErrVersionMismatch)
	}
	// max-age: a token is never accepted past iat + TTL(class), whatever its exp says.
	maxAge := c.IssuedAt.Time.Add(m.TTL(class) + m.config.Leeway)
	if !m.now().Before(maxAge) {
		return verifyErr(fmt.Errorf("%w: max age exceeded", jwt.ErrTokenExpired))
	}
	return nil
}

// DecodeUnverified returns the payload of tokenStr without checking its signature.
// It exists for diagnostics and must never feed an authorization decision.
func DecodeUnverified(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return nil, verifyErr(err)
	}
	return claims, nil
}

func headerType(class TokenClass) string {
	switch class {
	case ClassRefresh:
		return "rt+jwt"
	case ClassAction:
		return "act+jwt"
	default:
		return "at+jwt"
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
