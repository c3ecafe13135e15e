package jwt

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Algorithm names a JWS signing algorithm ("RS256", "ES256", "EdDSA", ...).
type Algorithm string

const (
	RS256 Algorithm = "RS256"
	RS384 Algorithm = "RS384"
	RS512 Algorithm = "RS512"
	PS256 Algorithm = "PS256"
	PS384 Algorithm = "PS384"
	PS512 Algorithm = "PS512"
	ES256 Algorithm = "ES256"
	ES384 Algorithm = "ES384"
	ES512 Algorithm = "ES512"
	EdDSA Algorithm = "EdDSA"
)

type keyFamily uint8

const (
	familyRSA keyFamily = iota + 1
	familyECDSA
	familyEd25519
)

func (a Algorithm) family() (keyFamily, bool) {
	switch a {
	case RS256, RS384, RS512, PS256, PS384, PS512:
		return familyRSA, true
	case ES256, ES384, ES512:
		return familyECDSA, true
	case EdDSA:
		return familyEd25519, true
	default:
		return 0, false
	}
}

// ParseAlgorithm normalizes an algorithm name. Only asymmetric algorithms are accepted.
func ParseAlgorithm(name string) (Algorithm, error) {
	name = strings.TrimSpace(name)
	if strings.EqualFold(name, "ed25519") || strings.EqualFold(name, "eddsa") {
		return EdDSA, nil
	}
	alg := Algorithm(strings.ToUpper(name))
	if _, ok := alg.family(); !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, name)
	}
	return alg, nil
}

func (a Algorithm) method() jwt.SigningMethod {
	return jwt.GetSigningMethod(string(a))
}

// KeyPair is the parsed key material for one algorithm. It is read-only after construction.
type KeyPair struct {
	Algorithm Algorithm
	Private   crypto.PrivateKey
	Public    crypto.PublicKey
}

// LoadKeyFiles reads PEM-encoded private and public keys from disk.
func LoadKeyFiles(privatePath, publicPath string) (privatePEM, publicPEM []byte, err error) {
	if strings.TrimSpace(privatePath) == "" || strings.TrimSpace(publicPath) == "" {
		return nil, nil, fmt.Errorf("%w: key file paths are required", ErrSigning)
	}
	privatePEM, err = os.ReadFile(privatePath)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read private key: %v", ErrSigning, err)
	}
	publicPEM, err = os.ReadFile(publicPath)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read public key: %v", ErrSigning, err)
	}
	return privatePEM, publicPEM, nil
}

// ParseKeyPair decodes PEM key material for alg. A public-only pair (nil privatePEM) is valid
// for verifier-only deployments.
func ParseKeyPair(alg Algorithm, privatePEM, publicPEM []byte) (*KeyPair, error) {
	family, ok := alg.family()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, alg)
	}
	if len(publicPEM) == 0 {
		return nil, fmt.Errorf("%w: public key is required", ErrSigning)
	}

	kp := &KeyPair{Algorithm: alg}
	var err error
	switch family {
	case familyRSA:
		var pub *rsa.PublicKey
		if pub, err = jwt.ParseRSAPublicKeyFromPEM(publicPEM); err == nil {
			kp.Public = pub
		}
		if err == nil && len(privatePEM) > 0 {
			var priv *rsa.PrivateKey
			if priv, err = jwt.ParseRSAPrivateKeyFromPEM(privatePEM); err == nil {
				kp.Private = priv
			}
		}
	case familyECDSA:
		var pub *ecdsa.PublicKey
		if pub, err = jwt.ParseECPublicKeyFromPEM(publicPEM); err == nil {
			kp.Public = pub
		}
		if err == nil && len(privatePEM) > 0 {
			var priv *ecdsa.PrivateKey
			if priv, err = jwt.ParseECPrivateKeyFromPEM(privatePEM); err == nil {
				kp.Private = priv
			}
		}
	case familyEd25519:
		var pub crypto.PublicKey
		if pub, err = jwt.ParseEdPublicKeyFromPEM(publicPEM); err == nil {
			if _, ok := pub.(ed25519.PublicKey); !ok {
				err = fmt.Errorf("public key is not ed25519")
			}
			kp.Public = pub
		}
		if err == nil && len(privatePEM) > 0 {
			var priv crypto.PrivateKey
			if priv, err = jwt.ParseEdPrivateKeyFromPEM(privatePEM); err == nil {
				if _, ok := priv.(ed25519.PrivateKey); !ok {
					err = fmt.Errorf("private key is not ed25519")
				}
				kp.Private = priv
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return kp, nil
}

// CanSign reports whether the pair carries a private key.
func (k *KeyPair) CanSign() bool {
	return k != nil && k.Private != nil
}

// GenerateKeyPairPEM creates a fresh key pair for alg and returns it PEM-encoded
// (PKCS#8 private, PKIX public).
func GenerateKeyPairPEM(alg Algorithm) (privatePEM, publicPEM []byte, err error) {
	family, ok := alg.family()
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, alg)
	}

	var priv crypto.Signer
	switch family {
	case familyRSA:
		priv, err = rsa.GenerateKey(rand.Reader, 2048)
	case familyECDSA:
		priv, err = ecdsa.GenerateKey(curveFor(alg), rand.Reader)
	case familyEd25519:
		_, priv, err = ed25519.GenerateKey(rand.Reader)
	}
	if err != nil {
		return nil, nil, err
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, nil, err
	}
	pubDER, err := x509.MarshalPKIXPublicKey(priv.Public())
	if err != nil {
		return nil, nil, err
	}
	privatePEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})
	publicPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	return privatePEM, publicPEM, nil
}

func curveFor(alg Algorithm) elliptic.Curve {
	switch alg {
	case ES384:
		return elliptic.P384()
	case ES512:
		return elliptic.P521()
	default:
		return elliptic.P256()
	}
}
