// Package auth handles the access token that guards the settings API.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode"
)

// tokenBytes is the entropy of a generated token (256 bits).
const tokenBytes = 32

// MinTokenLength is the shortest access token accepted from the user.
const MinTokenLength = 8

// QueryParam carries the token for websocket clients that cannot set headers.
const QueryParam = "token"

var (
	ErrMissingToken = errors.New("missing access token")
	ErrInvalidToken = errors.New("invalid access token")
)

// GenerateToken returns a new random token, URL-safe and unpadded.
func GenerateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate access token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ValidateToken checks a user supplied token.
func ValidateToken(token string) error {
	if len(token) < MinTokenLength {
		return fmt.Errorf("access token should be at least %d characters in length", MinTokenLength)
	}
	if strings.IndexFunc(token, unicode.IsSpace) >= 0 {
		return fmt.Errorf("access token should not contain whitespace characters")
	}
	return nil
}

// TokenFromRequest extracts the bearer token of r. The Authorization header wins
// over the query parameter.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.URL.Query().Get(QueryParam)
}

// Check compares the token carried by r against want.
// An empty want disables the check.
func Check(r *http.Request, want string) error {
	if want == "" {
		return nil
	}
	got := TokenFromRequest(r)
	if got == "" {
		return ErrMissingToken
	}
	if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
		return ErrInvalidToken
	}
	return nil
}
