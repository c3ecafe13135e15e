package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postLogin(h http.Handler, login string) *httptest.ResponseRecorder {
	form := url.Values{}
	if login != "" {
		form.Set("login", login)
	}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestLoginLimitBlocksAfterBudget(t *testing.T) {
	engine, mr := newTestEngine(t, nil)

	calls := 0
	h := LoginLimit(engine, FormValue("login"))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))

	for i := 0; i < 5; i++ {
		rec := postLogin(h, "alice")
		require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i+1)
	}

	rec := postLogin(h, "alice")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "900", rec.Header().Get("Retry-After"))
	assert.Equal(t, CodeTooManyAttempts, decodeError(t, rec).Error)
	assert.Equal(t, 5, calls)

	// Other identifiers keep their own budget.
	assert.Equal(t, http.StatusUnauthorized, postLogin(h, "bob").Code)

	mr.FastForward(15*time.Minute + time.Second)
	assert.Equal(t, http.StatusUnauthorized, postLogin(h, "alice").Code)
}

func TestLoginLimitResetAfterSuccess(t *testing.T) {
	engine, _ := newTestEngine(t, nil)

	fail := true
	h := LoginLimit(engine, FormValue("login"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = engine.ResetLogin(r.Context(), r.FormValue("login"))
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 4; i++ {
		postLogin(h, "alice")
	}
	fail = false
	require.Equal(t, http.StatusOK, postLogin(h, "alice").Code)

	status, err := engine.LoginStatus(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, status.Count)
	assert.False(t, status.Blocked)
}

func TestLoginLimitMissingIdentifier(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	h := LoginLimit(engine, FormValue("login"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("handler must not run")
	}))

	rec := postLogin(h, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeMissingLogin, decodeError(t, rec).Error)
}

func TestLoginLimitFailsClosed(t *testing.T) {
	engine, mr := newTestEngine(t, nil)
	mr.Close()

	h := LoginLimit(engine, HeaderValue("X-Login"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.Header.Set("X-Login", "alice")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, CodeLimiterUnavailable, decodeError(t, rec).Error)
}
