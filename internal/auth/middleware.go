package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/sakif/streamhub/internal/model"
	"github.com/sakif/streamhub/internal/repository"
)

// AccessTokenCookie and RefreshTokenCookie are the cookie names the session
// handlers set and this middleware reads. Non-browser clients send the
// access token as a bearer credential instead.
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// contextKey is an unexported type for context keys in this package, so no
// other package can read or shadow the authenticated user.
type contextKey string

const userKey contextKey = "user"

// RequireAuth enforces authentication on protected routes.
//
// It reads the access token from the accessToken cookie or the
// Authorization: Bearer header, verifies it, loads the subject's user record
// with credential fields stripped, and stores it in the request context.
//
// A missing token, bad signature, expired token, and unresolvable subject
// all produce the same 401 response; the caller is not told which check
// failed.
func RequireAuth(tokens *TokenService, users repository.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := resolveUser(r, tokens, users)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"success":false,"message":"unauthorized request","errors":["valid authentication required"]}`))
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CurrentUser retrieves the authenticated user from the request context.
// Returns (nil, false) when the request is anonymous.
func CurrentUser(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}

// resolveUser extracts the access token, verifies it, and loads the subject.
func resolveUser(r *http.Request, tokens *TokenService, users repository.UserRepository) (*model.User, error) {
	tokenStr, err := extractToken(r)
	if err != nil {
		return nil, err
	}

	claims, err := tokens.Verify(tokenStr)
	if err != nil {
		return nil, err
	}

	user, err := users.GetByID(r.Context(), claims.Subject)
	if err != nil {
		return nil, err
	}

	sanitized := user.Sanitized()
	return &sanitized, nil
}

// extractToken reads the bearer credential, preferring the cookie and
// falling back to the Authorization header.
func extractToken(r *http.Request) (string, error) {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	header := r.Header.Get("Authorization")
	if v, ok := strings.CutPrefix(header, "Bearer "); ok && v != "" {
		return v, nil
	}

	return "", http.ErrNoCookie
}
