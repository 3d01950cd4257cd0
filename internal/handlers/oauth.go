// Package handlers exposes the HTTP surface: marketplace OAuth install
// flow, token access, Location token conversion, and diagnostics.
package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log"
	"net/http"
	"net/url"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/config"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/provider"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/services"
)

const sessionStateKey = "oauth_state"

// OAuthHandler drives the marketplace install flow: redirect to the
// provider's "choose location" page, then turn the callback code into a
// stored installation.
type OAuthHandler struct {
	oauth   *oauth2.Config
	tokens  *services.TokenService
	success string
	failure string
}

func NewOAuthHandler(cfg *config.Config, tokens *services.TokenService) *OAuthHandler {
	return &OAuthHandler{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthorizeURL,
				TokenURL: cfg.TokenURL,
			},
		},
		tokens:  tokens,
		success: cfg.SuccessRedirectURL,
		failure: cfg.ErrorRedirectURL,
	}
}

// Start redirects to the marketplace authorize page with a random state
// saved in the session for callback correlation.
func (h *OAuthHandler) Start(c *gin.Context) {
	state, err := generateRandomState(32)
	if err != nil {
		log.Printf("[callback] failed to generate state: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"kind":  "internal",
			"error": "failed to initiate authorization",
		})
		return
	}

	session := sessions.Default(c)
	session.Set(sessionStateKey, state)
	if err := session.Save(); err != nil {
		log.Printf("[callback] failed to save session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"kind":  "internal",
			"error": "failed to save session",
		})
		return
	}

	c.Redirect(http.StatusFound, h.oauth.AuthCodeURL(state))
}

// Callback completes the install: exchanges the code, persists the
// installation, and redirects to the configured success page.
func (h *OAuthHandler) Callback(c *gin.Context) {
	// Provider-reported denial: no exchange, no store mutation
	if errCode := c.Query("error"); errCode != "" {
		log.Printf("[callback] provider returned error: %s", errCode)
		h.redirectFailure(c, errCode)
		return
	}

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"kind":  "invalid_request",
			"error": "missing code parameter",
		})
		return
	}

	// State is checked only when this process started the flow; installs
	// initiated directly from the marketplace carry no local session
	session := sessions.Default(c)
	if saved := session.Get(sessionStateKey); saved != nil {
		session.Delete(sessionStateKey)
		_ = session.Save()
		if saved.(string) != c.Query("state") {
			c.JSON(http.StatusBadRequest, gin.H{
				"kind":  "invalid_request",
				"error": "state mismatch",
			})
			return
		}
	}

	inst, err := h.tokens.CreateInstallation(c.Request.Context(), code)
	if err != nil {
		log.Printf("[callback] code exchange failed: %v", err)
		h.redirectFailure(c, categorizeExchangeFailure(err))
		return
	}

	log.Printf("[callback] installation %s stored", inst.ID)
	h.redirectSuccess(c, inst.ID)
}

func (h *OAuthHandler) redirectSuccess(c *gin.Context, installationID string) {
	if h.success == "" {
		c.JSON(http.StatusOK, gin.H{"installation_id": installationID})
		return
	}
	c.Redirect(http.StatusFound, withQuery(h.success, "installation_id", installationID))
}

func (h *OAuthHandler) redirectFailure(c *gin.Context, reason string) {
	if h.failure == "" {
		c.JSON(http.StatusBadGateway, gin.H{"kind": "exchange_failed", "error": reason})
		return
	}
	c.Redirect(http.StatusFound, withQuery(h.failure, "error", reason))
}

// categorizeExchangeFailure reduces an exchange error to the reason code
// surfaced on the error redirect
func categorizeExchangeFailure(err error) string {
	var ee *provider.ExchangeError
	if errors.As(err, &ee) {
		switch ee.StatusCode {
		case http.StatusBadRequest:
			return "invalid_request"
		case http.StatusUnauthorized:
			return "unauthorized"
		case http.StatusForbidden:
			return "forbidden"
		}
	}
	if provider.IsTimeout(err) {
		return "timeout"
	}
	return "unknown"
}

func withQuery(base, key, value string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}

func generateRandomState(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}
