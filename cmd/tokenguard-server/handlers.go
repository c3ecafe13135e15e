package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/tokenguard"
	"github.com/MrEthical07/tokenguard/metrics/export/prometheus"
	"github.com/MrEthical07/tokenguard/middleware"
)

const refreshCookie = "refresh_token"

func routes(engine *tokenguard.Engine, users *demoUsers, rdb redis.UniversalClient) http.Handler {
	guard := middleware.Guard(engine, middleware.WithDeviceHashFrom(func(r *http.Request) string {
		return r.Header.Get("X-Device-Hash")
	}))

	mux := http.NewServeMux()
	mux.Handle("POST /login", middleware.LoginLimit(engine, middleware.FormValue("login"))(loginHandler(engine, users)))
	mux.HandleFunc("POST /refresh", refreshHandler(engine))
	mux.Handle("POST /logout", guard(logoutHandler(engine)))
	mux.Handle("POST /logout/all", guard(logoutAllHandler(engine)))
	mux.Handle("GET /me", guard(meHandler(engine)))
	mux.HandleFunc("GET /health", healthHandler(rdb))
	mux.Handle("GET /metrics", prometheus.NewPrometheusExporter(engine).Handler())
	return mux
}

func loginHandler(engine *tokenguard.Engine, users *demoUsers) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		login := r.FormValue("login")
		user, ok := users.check(login, r.FormValue("password"))
		if !ok {
			middleware.WriteError(w, http.StatusUnauthorized, "invalid_credentials")
			return
		}

		tokens, err := engine.IssueSession(r.Context(), tokenguard.SessionRequest{
			UserID:     user.id,
			Roles:      user.roles,
			DeviceID:   r.FormValue("device_id"),
			DeviceHash: r.Header.Get("X-Device-Hash"),
		})
		if err != nil {
			logger := engine.Logger()
			logger.Error().Err(err).Str("user_id", user.id).Msg("issue session")
			middleware.WriteError(w, http.StatusInternalServerError, "session_unavailable")
			return
		}
		if err := engine.ResetLogin(r.Context(), login); err != nil {
			logger := engine.Logger()
			logger.Warn().Err(err).Msg("reset login attempts")
		}

		setRefreshCookie(w, r, tokens)
		writeJSON(w, http.StatusOK, tokenResponse(tokens))
	}
}

func refreshHandler(engine *tokenguard.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.FormValue("refresh_token")
		if token == "" {
			if c, err := r.Cookie(refreshCookie); err == nil {
				token = c.Value
			}
		}
		if token == "" {
			middleware.WriteError(w, http.StatusUnauthorized, "no_token")
			return
		}

		tokens, err := engine.Refresh(r.Context(), token)
		switch {
		case err == nil:
			setRefreshCookie(w, r, tokens)
			writeJSON(w, http.StatusOK, tokenResponse(tokens))
		case errors.Is(err, tokenguard.ErrRefreshReuse):
			clearRefreshCookie(w, r)
			middleware.WriteError(w, http.StatusUnauthorized, "refresh_reused")
		case errors.Is(err, tokenguard.ErrRefreshInvalid):
			clearRefreshCookie(w, r)
			middleware.WriteError(w, http.StatusUnauthorized, "invalid_token")
		default:
			middleware.WriteError(w, http.StatusInternalServerError, string(tokenguard.ReasonRegistryUnavailable))
		}
	}
}

func logoutHandler(engine *tokenguard.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := middleware.IdentityFromContext(r.Context())
		err := engine.Logout(r.Context(), id.UserID, id.SessionID)
		if err != nil && !errors.Is(err, tokenguard.ErrSessionNotFound) {
			middleware.WriteError(w, http.StatusInternalServerError, string(tokenguard.ReasonRegistryUnavailable))
			return
		}
		clearRefreshCookie(w, r)
		w.WriteHeader(http.StatusNoContent)
	}
}

func logoutAllHandler(engine *tokenguard.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := middleware.IdentityFromContext(r.Context())
		n, err := engine.LogoutAll(r.Context(), id.UserID)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, string(tokenguard.ReasonRegistryUnavailable))
			return
		}
		clearRefreshCookie(w, r)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "revoked": n})
	}
}

func meHandler(engine *tokenguard.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := middleware.IdentityFromContext(r.Context())
		sessions, err := engine.Sessions(r.Context(), id.UserID)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, string(tokenguard.ReasonRegistryUnavailable))
			return
		}

		list := make([]map[string]any, 0, len(sessions))
		for _, s := range sessions {
			list = append(list, map[string]any{
				"session_id": s.SessionID,
				"device_id":  s.DeviceID,
				"created_at": s.CreatedAt,
				"expires_at": s.ExpiresAt,
				"current":    s.SessionID == id.SessionID,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"user_id":    id.UserID,
			"session_id": id.SessionID,
			"roles":      id.Roles,
			"expires_at": id.ExpiresAt,
			"sessions":   list,
		})
	}
}

func healthHandler(rdb redis.UniversalClient) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := rdb.Ping(r.Context()).Err(); err != nil {
			middleware.WriteError(w, http.StatusServiceUnavailable, "redis_unavailable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

func tokenResponse(t *tokenguard.SessionTokens) map[string]any {
	return map[string]any{
		"success":            true,
		"session_id":         t.SessionID,
		"access_token":       t.AccessToken,
		"refresh_token":      t.RefreshToken,
		"access_expires_at":  t.AccessExpiresAt,
		"refresh_expires_at": t.RefreshExpiresAt,
	}
}

func setRefreshCookie(w http.ResponseWriter, r *http.Request, t *tokenguard.SessionTokens) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    t.RefreshToken,
		Path:     "/refresh",
		MaxAge:   refreshMaxAge(t.RefreshExpiresAt),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearRefreshCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Path:     "/refresh",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
