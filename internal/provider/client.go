// Package provider talks to the HighLevel OAuth token endpoint for the
// initial authorization-code exchange and for refresh-token grants.
// Callers persist the returned TokenResult; this package performs no
// storage writes of its own.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/url"
	"time"

	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/claims"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/config"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/retry"
)

// maxResponseBody caps how much of a provider response is read into error
// messages and parsing
const maxResponseBody = 64 << 10

// TokenResult is the parsed outcome of a successful exchange or refresh
type TokenResult struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int
	ExpiresAt    time.Time
	Scope        string

	// Derived from the access token's embedded claims
	AuthClass  string
	CompanyID  string
	LocationID string
}

// tokenResponse mirrors the provider's token endpoint JSON. The location
// id has appeared under both snake and camel case across API versions.
type tokenResponse struct {
	AccessToken     string `json:"access_token"`
	RefreshToken    string `json:"refresh_token"`
	TokenType       string `json:"token_type"`
	ExpiresIn       int    `json:"expires_in"`
	Scope           string `json:"scope"`
	LocationID      string `json:"locationId"`
	LocationIDSnake string `json:"location_id"`
	CompanyID       string `json:"companyId"`
}

func (r *tokenResponse) locationID() string {
	if r.LocationID != "" {
		return r.LocationID
	}
	return r.LocationIDSnake
}

// Client performs token grants against the provider's token endpoint
type Client struct {
	tokenURL     string
	clientID     string
	clientSecret string
	redirectURL  string
	http         *retry.Client
}

func New(cfg *config.Config, httpClient *retry.Client) *Client {
	return &Client{
		tokenURL:     cfg.TokenURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirectURL:  cfg.RedirectURL,
		http:         httpClient,
	}
}

// ExchangeCode trades an authorization code for an access/refresh token
// pair. A missing access_token, refresh_token, or expires_in in a 2xx
// response is ErrMalformedResponse.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenResult, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"code":          {code},
		"redirect_uri":  {c.redirectURL},
	}
	return c.grant(ctx, OpExchange, form)
}

// Refresh mints a new access token from a refresh token. Callers should
// keep their previous refresh token when the response omits a new one.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenResult, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"refresh_token": {refreshToken},
	}
	return c.grant(ctx, OpRefresh, form)
}

func (c *Client) grant(ctx context.Context, op string, form url.Values) (*TokenResult, error) {
	resp, err := c.http.PostForm(ctx, c.tokenURL, form, nil)
	if err != nil {
		return nil, fmt.Errorf("token %s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("token %s: failed to read response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ExchangeError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if tr.AccessToken == "" || tr.ExpiresIn <= 0 {
		return nil, fmt.Errorf("%w: missing access_token or expires_in", ErrMalformedResponse)
	}
	// The initial exchange must yield a refresh token; refresh responses
	// may rotate it or omit it
	if op == OpExchange && tr.RefreshToken == "" {
		return nil, fmt.Errorf("%w: missing refresh_token", ErrMalformedResponse)
	}

	result := &TokenResult{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
		ExpiresIn:    tr.ExpiresIn,
		ExpiresAt:    time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second),
		Scope:        tr.Scope,
		LocationID:   tr.locationID(),
		CompanyID:    tr.CompanyID,
	}

	// Claim decoding is best-effort diagnostics; an opaque token still
	// yields a usable result
	if tc, err := claims.Decode(tr.AccessToken); err == nil {
		result.AuthClass = tc.AuthClass
		if result.CompanyID == "" {
			result.CompanyID = tc.CompanyID()
		}
		if result.LocationID == "" {
			result.LocationID = tc.LocationID()
		}
		if result.Scope == "" {
			result.Scope = tc.ScopeString()
		}
	} else {
		log.Printf("[%s] could not decode token claims: %v", op, err)
	}

	return result, nil
}
