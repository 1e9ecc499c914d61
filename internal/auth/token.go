package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"

	"github.com/sakif/streamhub/internal/model"
)

const issuer = "streamhub"

// Verification failures are split in two: a token that carried a valid
// signature but has passed its expiry window, and everything else.
var (
	ErrTokenExpired = errors.New("auth: token expired")
	ErrTokenInvalid = errors.New("auth: invalid token")
)

// Claims is the JWT payload for both token kinds. Access tokens carry the
// profile fields; refresh tokens carry only the registered claims, so the
// profile fields stay empty and are omitted from the encoded payload.
type Claims struct {
	jwt.RegisteredClaims
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	FullName string `json:"fullName,omitempty"`
}

// TokenService signs and verifies one kind of token. The session layer owns
// two instances, one for access tokens (short TTL) and one for refresh
// tokens (long TTL), each with its own secret.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService with the given HMAC secret and
// token lifetime. The secret should be at least 32 bytes of random data in
// production.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: token secret must be at least 16 characters")
	}
	if ttl <= 0 {
		return nil, errors.New("auth: token lifetime must be positive")
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL returns the configured token lifetime. Handlers use it to bound the
// cookie Max-Age to the token's own expiry.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// IssueAccess creates a signed access token for the given user. The payload
// includes the subject ID plus email, username, and display name so request
// handling does not need a lookup just to label the caller.
func (s *TokenService) IssueAccess(u *model.User) (string, error) {
	return s.sign(Claims{
		RegisteredClaims: s.registered(u.ID),
		Email:            u.Email,
		Username:         u.Username,
		FullName:         u.FullName,
	})
}

// IssueRefresh creates a signed refresh token carrying the subject ID only.
func (s *TokenService) IssueRefresh(userID string) (string, error) {
	return s.sign(Claims{RegisteredClaims: s.registered(userID)})
}

func (s *TokenService) registered(subject string) jwt.RegisteredClaims {
	// iat/exp have second precision, so without a unique jti two tokens
	// issued for the same subject within one second would be identical and
	// refresh rotation would be a no-op.
	now := time.Now()
	return jwt.RegisteredClaims{
		ID:        xid.New().String(),
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		Issuer:    issuer,
	}
}

func (s *TokenService) sign(c Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Verify parses and verifies a token string, returning its claims.
//
// Signature, expiry, issuer, and signing algorithm are all checked.
// An expired token with a valid signature yields ErrTokenExpired; any other
// failure yields ErrTokenInvalid.
func (s *TokenService) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	return c, nil
}
