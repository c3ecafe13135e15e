// Command tokenguard-keygen writes a PEM key pair for JWT_PRIVATE_KEY_PATH and
// JWT_PUBLIC_KEY_PATH.
//
//	go run ./cmd/tokenguard-keygen -alg ES256 -out ./keys
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/MrEthical07/tokenguard/jwt"
)

func main() {
	var (
		alg   = flag.String("alg", string(jwt.RS256), "signing algorithm")
		out   = flag.String("out", ".", "output directory")
		force = flag.Bool("force", false, "overwrite existing key files")
	)
	flag.Parse()

	if err := run(*alg, *out, *force); err != nil {
		fmt.Fprintln(os.Stderr, "keygen:", err)
		os.Exit(1)
	}
}

func run(algName, dir string, force bool) error {
	alg, err := jwt.ParseAlgorithm(algName)
	if err != nil {
		return err
	}
	priv, pub, err := jwt.GenerateKeyPairPEM(alg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")
	if !force {
		for _, p := range []string{privPath, pubPath} {
			if _, err := os.Stat(p); err == nil {
				return fmt.Errorf("%s exists (use -force)", p)
			} else if !errors.Is(err, fs.ErrNotExist) {
				return err
			}
		}
	}

	if err := os.WriteFile(privPath, priv, 0o600); err != nil {
		return err
	}
	if err := os.WriteFile(pubPath, pub, 0o644); err != nil {
		return err
	}

	fmt.Printf("JWT_ALGO=%s\nJWT_PRIVATE_KEY_PATH=%s\nJWT_PUBLIC_KEY_PATH=%s\n", alg, privPath, pubPath)
	return nil
}
