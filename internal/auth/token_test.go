package auth

import (
	"encoding/base64"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		token, err := GenerateToken()
		require.NoError(t, err)

		decoded, err := base64.RawURLEncoding.DecodeString(token)
		require.NoError(t, err)
		assert.Len(t, decoded, tokenBytes)
		assert.NotContains(t, token, "=")

		assert.False(t, seen[token], "duplicate token generated")
		seen[token] = true

		assert.NoError(t, ValidateToken(token))
	}
}

func TestValidateToken(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{name: "valid", token: "abcdefgh"},
		{name: "symbols", token: "a-b_c.d!e@f"},
		{name: "too short", token: "abc1234", wantErr: true},
		{name: "empty", token: "", wantErr: true},
		{name: "space", token: "abcd efgh", wantErr: true},
		{name: "tab", token: "abcd\tefgh", wantErr: true},
		{name: "trailing newline", token: "abcdefgh\n", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateToken(tt.token)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheck(t *testing.T) {
	const want = "secret-token"

	t.Run("disabled", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/config", nil)
		assert.NoError(t, Check(r, ""))
	})

	t.Run("header", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/config", nil)
		r.Header.Set("Authorization", "Bearer "+want)
		assert.NoError(t, Check(r, want))
	})

	t.Run("query", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/events?token="+want, nil)
		assert.NoError(t, Check(r, want))
	})

	t.Run("header wins over query", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/events?token="+want, nil)
		r.Header.Set("Authorization", "Bearer wrong-token")
		assert.ErrorIs(t, Check(r, want), ErrInvalidToken)
	})

	t.Run("missing", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/config", nil)
		assert.ErrorIs(t, Check(r, want), ErrMissingToken)
	})

	t.Run("wrong", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/config", nil)
		r.Header.Set("Authorization", "Bearer nope")
		assert.ErrorIs(t, Check(r, want), ErrInvalidToken)
	})
}
