// Package converter exchanges a Company-class access token for a
// Location-scoped one via the provider's conversion endpoint, caching the
// result on the installation record until shortly before it expires.
package converter

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
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/metrics"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/models"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/retry"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/store"
)

// apiVersion is the Version header the conversion endpoint requires
const apiVersion = "2021-07-28"

const maxResponseBody = 64 << 10

// LocationToken is a Location-scoped access token usable against
// sub-account APIs.
type LocationToken struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	LocationID  string    `json:"location_id"`
}

type conversionResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	LocationID  string `json:"locationId"`
}

// Converter turns Company tokens into Location tokens, with a per-record
// cache persisted on the installation.
type Converter struct {
	store        *store.Store
	http         *retry.Client
	metrics      metrics.Recorder
	endpoint     string
	expiryBuffer time.Duration
}

func New(
	cfg *config.Config,
	st *store.Store,
	httpClient *retry.Client,
	recorder metrics.Recorder,
) *Converter {
	return &Converter{
		store:        st,
		http:         httpClient,
		metrics:      recorder,
		endpoint:     cfg.LocationTokenURL,
		expiryBuffer: cfg.LocationTokenExpiryBuffer,
	}
}

// Convert returns a Location-scoped token for the given installation.
// locationID may be empty when the installation already knows its
// sub-account. Location-class installations return their own access token
// unchanged; Company-class ones hit the conversion endpoint unless a
// cached Location token still covers the request.
func (c *Converter) Convert(
	ctx context.Context,
	installationID, locationID string,
) (*LocationToken, error) {
	inst, err := c.store.Get(installationID)
	if err != nil {
		return nil, err
	}

	if locationID == "" {
		locationID = inst.LocationID
	}
	if locationID == "" {
		return nil, fmt.Errorf("converter: no location id known for installation %s", installationID)
	}

	// A Location-class install's token already is a Location token
	if inst.AuthClass == models.AuthClassLocation {
		if inst.IsExpired() {
			return nil, ErrStaleCompanyToken
		}
		return &LocationToken{
			AccessToken: inst.AccessToken,
			ExpiresAt:   inst.ExpiresAt,
			LocationID:  locationID,
		}, nil
	}

	if inst.HasValidLocationToken(locationID, c.expiryBuffer) {
		c.metrics.RecordConversionCacheHit()
		return &LocationToken{
			AccessToken: inst.LocationTokenCache,
			ExpiresAt:   *inst.LocationTokenExpiresAt,
			LocationID:  inst.LocationTokenLocation,
		}, nil
	}

	if inst.IsExpired() {
		return nil, ErrStaleCompanyToken
	}

	token, err := c.convert(ctx, inst, locationID)
	if err != nil {
		return nil, err
	}

	// Persist the cache; a write failure does not invalidate the token we
	// already hold
	_, err = c.store.Update(installationID, func(rec *models.Installation) error {
		rec.LocationTokenCache = token.AccessToken
		rec.LocationTokenExpiresAt = &token.ExpiresAt
		rec.LocationTokenLocation = token.LocationID
		if rec.LocationID == "" {
			rec.LocationID = token.LocationID
		}
		return nil
	})
	if err != nil {
		log.Printf("[converter] failed to cache location token for %s: %v", installationID, err)
	}

	c.metrics.RecordConversion(metrics.ConversionResultSuccess)
	return token, nil
}

func (c *Converter) convert(
	ctx context.Context,
	inst *models.Installation,
	locationID string,
) (*LocationToken, error) {
	form := url.Values{
		"companyId":  {inst.CompanyID},
		"locationId": {locationID},
	}
	headers := map[string]string{
		"Authorization": "Bearer " + inst.AccessToken,
		"Version":       apiVersion,
	}

	resp, err := c.http.PostForm(ctx, c.endpoint, form, headers)
	if err != nil {
		c.metrics.RecordConversion(metrics.ConversionResultFailed)
		return nil, fmt.Errorf("converter: conversion request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		c.metrics.RecordConversion(metrics.ConversionResultFailed)
		return nil, fmt.Errorf("converter: failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == 401 || resp.StatusCode == 403:
		c.metrics.RecordConversion(metrics.ConversionResultUnauthorized)
		return nil, fmt.Errorf("%w: status %d", ErrConversionUnauthorized, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		c.metrics.RecordConversion(metrics.ConversionResultFailed)
		return nil, &ConversionError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var cr conversionResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		c.metrics.RecordConversion(metrics.ConversionResultFailed)
		return nil, fmt.Errorf("converter: malformed response: %w", err)
	}
	if cr.AccessToken == "" || cr.ExpiresIn <= 0 {
		c.metrics.RecordConversion(metrics.ConversionResultFailed)
		return nil, fmt.Errorf("converter: malformed response: missing access_token or expires_in")
	}

	token := &LocationToken{
		AccessToken: cr.AccessToken,
		ExpiresAt:   time.Now().Add(time.Duration(cr.ExpiresIn) * time.Second),
		LocationID:  cr.LocationID,
	}
	if token.LocationID == "" {
		token.LocationID = locationID
	}

	// Sanity-check the returned token's class when it is a decodable JWT
	if tc, err := claims.Decode(cr.AccessToken); err == nil {
		if tc.AuthClass != models.AuthClassLocation {
			log.Printf("[converter] conversion returned %s-class token for location %s",
				tc.AuthClass, locationID)
		}
		if id := tc.LocationID(); id != "" {
			token.LocationID = id
		}
	}

	return token, nil
}
