package claims

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// signTestToken builds a provider-shaped access token. The decoder never
// verifies signatures, so any HMAC key works.
func signTestToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-key"))
	require.NoError(t, err)
	return signed
}

func TestDecodeCompanyToken(t *testing.T) {
	exp := time.Now().Add(24 * time.Hour).Unix()
	raw := signTestToken(t, jwt.MapClaims{
		"authClass":          "Company",
		"authClassId":        "comp_abc",
		"primaryAuthClassId": "loc_123",
		"oauthMeta": map[string]any{
			"scopes": []any{"products.write", "oauth.write"},
		},
		"exp": exp,
	})

	c, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "Company", c.AuthClass)
	assert.Equal(t, "comp_abc", c.CompanyID())
	assert.Equal(t, "loc_123", c.LocationID())
	assert.Equal(t, []string{"products.write", "oauth.write"}, c.Scopes)
	assert.True(t, c.HasScope("oauth.write"))
	assert.False(t, c.HasScope("medias.write"))
	assert.Equal(t, time.Unix(exp, 0), c.ExpiresAt)
}

func TestDecodeLocationToken(t *testing.T) {
	raw := signTestToken(t, jwt.MapClaims{
		"authClass":   "Location",
		"authClassId": "loc_456",
		"scopes":      []any{"medias.write"},
	})

	c, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "Location", c.AuthClass)
	assert.Equal(t, "loc_456", c.LocationID())
	assert.Empty(t, c.CompanyID())
	assert.Equal(t, "medias.write", c.ScopeString())
}

func TestDecodeOpaqueToken(t *testing.T) {
	_, err := Decode("not-a-jwt")
	assert.ErrorIs(t, err, ErrNotAJWT)
}

func TestDecodeMissingClaims(t *testing.T) {
	raw := signTestToken(t, jwt.MapClaims{"sub": "something"})

	c, err := Decode(raw)
	require.NoError(t, err)
	assert.Empty(t, c.AuthClass)
	assert.Empty(t, c.LocationID())
	assert.Nil(t, c.Scopes)
}
