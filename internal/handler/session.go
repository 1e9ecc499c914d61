package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/streamhub/internal/apperror"
	"github.com/sakif/streamhub/internal/auth"
	"github.com/sakif/streamhub/internal/service"
)

// SessionHandler exposes login, logout, and token refresh.
//
// Tokens travel two ways at once: as HttpOnly cookies for browsers and in
// the response payload for mobile and other non-cookie clients.
type SessionHandler struct {
	sessions *service.SessionService
	logger   *slog.Logger
}

func NewSessionHandler(sessions *service.SessionService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, logger: logger}
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin verifies credentials and starts a session.
//
// HTTP: POST /api/v1/users/login
func (h *SessionHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	identifier := req.Username
	if identifier == "" {
		identifier = req.Email
	}

	result, err := h.sessions.Login(r.Context(), identifier, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.setAuthCookies(w, result.Tokens)
	writeOK(w, http.StatusOK, "user logged in successfully", map[string]any{
		"user":         result.User,
		"accessToken":  result.Tokens.AccessToken,
		"refreshToken": result.Tokens.RefreshToken,
	})
}

// HandleLogout clears the persisted refresh token and both cookies.
// Idempotent: a second logout succeeds the same way.
//
// HTTP: POST /api/v1/users/logout (auth required)
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.Unauthorized("unauthorized request"))
		return
	}

	if err := h.sessions.Logout(r.Context(), user.ID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.clearAuthCookies(w)
	writeOK(w, http.StatusOK, "user logged out successfully", nil)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// HandleRefresh rotates the token pair. The refresh token comes from the
// cookie or, for non-browser clients, the request body.
//
// HTTP: POST /api/v1/users/refresh-token
func (h *SessionHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	presented := ""
	if cookie, err := r.Cookie(auth.RefreshTokenCookie); err == nil {
		presented = cookie.Value
	}
	if presented == "" {
		var req refreshRequest
		if err := decodeJSON(r, &req); err == nil {
			presented = req.RefreshToken
		}
	}

	result, err := h.sessions.Refresh(r.Context(), presented)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.setAuthCookies(w, result.Tokens)
	writeOK(w, http.StatusOK, "access token refreshed successfully", map[string]any{
		"accessToken":  result.Tokens.AccessToken,
		"refreshToken": result.Tokens.RefreshToken,
	})
}

// setAuthCookies writes both token cookies. HttpOnly and Secure keep them
// out of script reach and off plain HTTP; SameSite=Lax withholds them from
// cross-site POSTs.
func (h *SessionHandler) setAuthCookies(w http.ResponseWriter, pair service.TokenPair) {
	http.SetCookie(w, sessionCookie(auth.AccessTokenCookie, pair.AccessToken, h.sessions.AccessTTL()))
	http.SetCookie(w, sessionCookie(auth.RefreshTokenCookie, pair.RefreshToken, h.sessions.RefreshTTL()))
}

func (h *SessionHandler) clearAuthCookies(w http.ResponseWriter) {
	http.SetCookie(w, expiredCookie(auth.AccessTokenCookie))
	http.SetCookie(w, expiredCookie(auth.RefreshTokenCookie))
}

func sessionCookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

func expiredCookie(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}
