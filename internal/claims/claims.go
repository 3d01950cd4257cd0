// Package claims reads the identity claims HighLevel embeds in its access
// tokens. Tokens are treated as opaque everywhere else in the codebase;
// only the exchange client and the location token converter decode them,
// and only to learn the authorization class and account scope the provider
// granted. Signatures are NOT verified: the token came over TLS from the
// provider itself and is consumed, not trusted as inbound auth.
package claims

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotAJWT is returned for tokens that are not three-segment JWTs
var ErrNotAJWT = errors.New("access token is not a decodable JWT")

// AccessTokenClaims carries the subset of provider claims this system reads
type AccessTokenClaims struct {
	AuthClass          string   // "Company" or "Location"
	AuthClassID        string   // company id or location id, per AuthClass
	PrimaryAuthClassID string   // location context on Company tokens, when present
	Scopes             []string // granted permission strings, in grant order
	ExpiresAt          time.Time
}

// LocationID returns the sub-account id the token is scoped to, when known.
// Location tokens carry it as the auth class id; Company tokens sometimes
// carry a primary location context.
func (c *AccessTokenClaims) LocationID() string {
	if c.AuthClass == "Location" {
		return c.AuthClassID
	}
	return c.PrimaryAuthClassID
}

// CompanyID returns the parent account id, when the token is Company-scoped
func (c *AccessTokenClaims) CompanyID() string {
	if c.AuthClass == "Company" {
		return c.AuthClassID
	}
	return ""
}

// HasScope reports whether the token was granted the named scope
func (c *AccessTokenClaims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// ScopeString returns the scopes as a space-separated string for storage
func (c *AccessTokenClaims) ScopeString() string {
	return strings.Join(c.Scopes, " ")
}

// Decode parses the claims segment of a provider access token without
// signature verification
func Decode(accessToken string) (*AccessTokenClaims, error) {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(accessToken, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAJWT, err)
	}

	raw, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrNotAJWT
	}

	c := &AccessTokenClaims{}
	c.AuthClass, _ = raw["authClass"].(string)
	c.AuthClassID, _ = raw["authClassId"].(string)
	c.PrimaryAuthClassID, _ = raw["primaryAuthClassId"].(string)

	if exp, ok := raw["exp"].(float64); ok {
		c.ExpiresAt = time.Unix(int64(exp), 0)
	}

	// Scopes appear either as a top-level list or under oauthMeta
	c.Scopes = extractScopes(raw)

	return c, nil
}

func extractScopes(raw jwt.MapClaims) []string {
	if list, ok := raw["scopes"].([]any); ok {
		return toStrings(list)
	}
	meta, ok := raw["oauthMeta"].(map[string]any)
	if !ok {
		return nil
	}
	if list, ok := meta["scopes"].([]any); ok {
		return toStrings(list)
	}
	return nil
}

func toStrings(list []any) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
