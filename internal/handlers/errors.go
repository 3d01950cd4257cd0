package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/converter"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/services"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/store"
)

// classify maps a business error onto the API's error kind and status
func classify(err error) (kind string, status int) {
	var convErr *converter.ConversionError
	switch {
	case errors.Is(err, store.ErrNotFound):
		return "not_found", http.StatusNotFound
	case errors.Is(err, services.ErrReauthorizationRequired):
		return "reauthorization_required", http.StatusUnauthorized
	case errors.Is(err, converter.ErrConversionUnauthorized):
		return "conversion_unauthorized", http.StatusUnauthorized
	case errors.Is(err, converter.ErrStaleCompanyToken):
		return "stale_company_token", http.StatusConflict
	case errors.As(err, &convErr):
		return "conversion_failed", http.StatusBadGateway
	case errors.Is(err, store.ErrStorageUnavailable):
		return "storage_unavailable", http.StatusServiceUnavailable
	default:
		return "transient", http.StatusBadGateway
	}
}

func writeError(c *gin.Context, err error) {
	kind, status := classify(err)
	c.JSON(status, gin.H{
		"kind":  kind,
		"error": err.Error(),
	})
}
