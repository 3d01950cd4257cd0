package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/converter"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/services"
)

// TokenHandler serves access tokens and Location-scoped tokens to the
// API backends that make provider calls on behalf of installations.
type TokenHandler struct {
	tokens    *services.TokenService
	converter *converter.Converter
}

func NewTokenHandler(tokens *services.TokenService, conv *converter.Converter) *TokenHandler {
	return &TokenHandler{tokens: tokens, converter: conv}
}

// TokenAccess returns the installation's access token, refreshing it
// first when expiry falls inside the safety window.
func (h *TokenHandler) TokenAccess(c *gin.Context) {
	inst, err := h.tokens.GetFresh(c.Request.Context(), c.Param("installationId"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"installation_id": inst.ID,
		"access_token":    inst.AccessToken,
		"token_type":      "Bearer",
		"expires_in":      secondsUntil(inst.ExpiresAt),
		"expires_at":      inst.ExpiresAt.UTC().Format(time.RFC3339),
		"auth_class":      inst.AuthClass,
		"company_id":      inst.CompanyID,
		"location_id":     inst.LocationID,
		"scopes":          inst.Scopes,
	})
}

// LocationToken returns a Location-scoped token, converting from the
// Company token when needed. The access token is freshened first so the
// conversion never runs against an expired Company token.
func (h *TokenHandler) LocationToken(c *gin.Context) {
	installationID := c.Param("installationId")

	if _, err := h.tokens.GetFresh(c.Request.Context(), installationID); err != nil {
		writeError(c, err)
		return
	}

	token, err := h.converter.Convert(c.Request.Context(), installationID, c.Query("locationId"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": token.AccessToken,
		"token_type":   "Bearer",
		"expires_in":   secondsUntil(token.ExpiresAt),
		"expires_at":   token.ExpiresAt.UTC().Format(time.RFC3339),
		"location_id":  token.LocationID,
	})
}

// Installations lists every installation with token material masked
func (h *TokenHandler) Installations(c *gin.Context) {
	installations, err := h.tokens.List()
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]gin.H, 0, len(installations))
	for i := range installations {
		inst := &installations[i]
		entry := gin.H{
			"installation_id":       inst.ID,
			"auth_class":            inst.AuthClass,
			"company_id":            inst.CompanyID,
			"location_id":           inst.LocationID,
			"token_status":          inst.TokenStatus(),
			"expires_at":            inst.ExpiresAt.UTC().Format(time.RFC3339),
			"needs_reauthorization": inst.NeedsReauthorization,
			"created_at":            inst.CreatedAt.UTC().Format(time.RFC3339),
		}
		if inst.LocationTokenExpiresAt != nil {
			entry["location_token_expires_at"] = inst.LocationTokenExpiresAt.UTC().Format(time.RFC3339)
		}
		out = append(out, entry)
	}

	c.JSON(http.StatusOK, out)
}

// secondsUntil reports the remaining token lifetime in whole seconds,
// never negative
func secondsUntil(t time.Time) int {
	remaining := int(time.Until(t).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}
