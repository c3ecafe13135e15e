package jwt

import (
	"errors"
	"testing"
)

// FuzzVerify exercises the verifier with arbitrary token strings.
// Goal: no panics; every rejection is a *VerifyError.
func FuzzVerify(f *testing.F) {
	clock := newFakeClock()
	mgr, err := NewManager(testConfig(f, EdDSA), WithClock(clock.Now))
	if err != nil {
		f.Fatal(err)
	}
	valid, err := mgr.Issue(ClassAccess, accessClaims("u1", "s1"), IssueOptions{})
	if err != nil {
		f.Fatal(err)
	}

	f.Add(valid)
	f.Add("")
	f.Add("a.b.c")
	f.Add("eyJhbGciOiJub25lIn0.eyJzdWIiOiJ4In0.")
	f.Add(valid[:len(valid)-3])

	f.Fuzz(func(t *testing.T, token string) {
		_, err := mgr.Verify(ClassAccess, token, VerifyOptions{})
		if err == nil {
			return
		}
		var ve *VerifyError
		if !errors.As(err, &ve) {
			t.Fatalf("expected *VerifyError, got %T", err)
		}
	})
}
