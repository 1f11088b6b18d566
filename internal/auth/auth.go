// Package auth validates the JWTs issued by the account service.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// HeaderName is the header the mobile and web clients send the token in
const HeaderName = "auth-token"

var (
	ErrNoToken      = errors.New("no authentication token")
	ErrInvalidToken = errors.New("invalid authentication token")
)

// AuthManager handles JWT authentication
type AuthManager struct {
	jwtSecret []byte
}

// NewAuthManager creates a new auth manager. An empty secret disables
// signature checks; see Authenticate.
func NewAuthManager(jwtSecret string) *AuthManager {
	return &AuthManager{
		jwtSecret: []byte(jwtSecret),
	}
}

// Enabled reports whether tokens are verified
func (a *AuthManager) Enabled() bool {
	return len(a.jwtSecret) > 0
}

// ValidateToken validates a JWT and returns the user id it carries.
// The id is read from user.id, then user_id, then sub.
func (a *AuthManager) ValidateToken(tokenString string) (string, error) {
	if !a.Enabled() {
		return "", fmt.Errorf("%w: no secret configured", ErrInvalidToken)
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("%w: unexpected claims", ErrInvalidToken)
	}

	if user, ok := claims["user"].(map[string]interface{}); ok {
		if id, ok := user["id"].(string); ok && id != "" {
			return id, nil
		}
	}
	if id, ok := claims["user_id"].(string); ok && id != "" {
		return id, nil
	}
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		return sub, nil
	}
	return "", fmt.Errorf("%w: user id not found in token", ErrInvalidToken)
}

// ExtractTokenFromHeader accepts "Bearer <token>" or a bare token
func (a *AuthManager) ExtractTokenFromHeader(authHeader string) (string, error) {
	authHeader = strings.TrimSpace(authHeader)
	if authHeader == "" {
		return "", ErrNoToken
	}

	parts := strings.Fields(authHeader)
	switch len(parts) {
	case 1:
		return parts[0], nil
	case 2:
		if !strings.EqualFold(parts[0], "bearer") {
			return "", fmt.Errorf("%w: invalid authorization header format", ErrInvalidToken)
		}
		return parts[1], nil
	}
	return "", fmt.Errorf("%w: invalid authorization header format", ErrInvalidToken)
}

// TokenFromRequest looks in the auth-token header, then Authorization, then
// the token query parameter (browsers cannot set headers on websocket upgrades).
func (a *AuthManager) TokenFromRequest(r *http.Request) (string, error) {
	if v := r.Header.Get(HeaderName); v != "" {
		return a.ExtractTokenFromHeader(v)
	}
	if v := r.Header.Get("Authorization"); v != "" {
		return a.ExtractTokenFromHeader(v)
	}
	if v := r.URL.Query().Get("token"); v != "" {
		return v, nil
	}
	return "", ErrNoToken
}

// Authenticate returns the user behind the request. With no secret
// configured the token itself is taken as the user id, which is only
// suitable for local development.
func (a *AuthManager) Authenticate(r *http.Request) (string, error) {
	token, err := a.TokenFromRequest(r)
	if err != nil {
		return "", err
	}
	if !a.Enabled() {
		return token, nil
	}
	return a.ValidateToken(token)
}

// IssueToken signs a token for userID in the same claim layout the account
// service uses
func (a *AuthManager) IssueToken(userID string, ttl time.Duration) (string, error) {
	if !a.Enabled() {
		return "", fmt.Errorf("cannot issue tokens without a secret")
	}
	claims := jwt.MapClaims{
		"user": map[string]interface{}{"id": userID},
		"exp":  time.Now().Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.jwtSecret)
}
