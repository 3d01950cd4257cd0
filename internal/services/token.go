// Package services holds the business operations between the HTTP
// handlers and the store/provider layers.
package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/config"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/metrics"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/models"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/provider"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/store"
)

// ErrReauthorizationRequired indicates the installation's refresh token
// has been rejected; only a fresh OAuth authorization can recover it.
var ErrReauthorizationRequired = errors.New("services: installation requires re-authorization")

// TokenService creates installations from authorization codes and keeps
// their access tokens fresh on demand.
type TokenService struct {
	store    *store.Store
	provider *provider.Client
	metrics  metrics.Recorder
	window   time.Duration
}

func NewTokenService(
	cfg *config.Config,
	st *store.Store,
	pc *provider.Client,
	recorder metrics.Recorder,
) *TokenService {
	return &TokenService{
		store:    st,
		provider: pc,
		metrics:  recorder,
		window:   cfg.RefreshSafetyWindow,
	}
}

// CreateInstallation exchanges an authorization code and persists the
// resulting installation under a fresh id.
func (s *TokenService) CreateInstallation(
	ctx context.Context,
	code string,
) (*models.Installation, error) {
	result, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		s.metrics.RecordExchange(false)
		return nil, err
	}
	s.metrics.RecordExchange(true)

	inst := &models.Installation{
		ID:           uuid.New().String(),
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		ExpiresAt:    result.ExpiresAt,
		AuthClass:    result.AuthClass,
		CompanyID:    result.CompanyID,
		LocationID:   result.LocationID,
		Scopes:       result.Scope,
	}
	if inst.AuthClass == "" {
		// Opaque tokens carry no class claim; assume the agency-level
		// install, which is what the marketplace issues by default
		inst.AuthClass = models.AuthClassCompany
	}

	if err := s.store.Put(inst); err != nil {
		return nil, err
	}

	log.Printf("[services] installation %s created: class=%s company=%s location=%s",
		inst.ID, inst.AuthClass, inst.CompanyID, inst.LocationID)
	return inst, nil
}

// GetFresh returns the installation, refreshing its access token first
// when expiry falls within the safety window. Flagged installations and
// terminal refresh failures surface ErrReauthorizationRequired.
func (s *TokenService) GetFresh(ctx context.Context, id string) (*models.Installation, error) {
	inst, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}

	if inst.NeedsReauthorization {
		return nil, ErrReauthorizationRequired
	}
	if !inst.RefreshDue(s.window) {
		return inst, nil
	}

	result, err := s.provider.Refresh(ctx, inst.RefreshToken)
	if err != nil {
		if provider.IsTerminal(err) {
			s.metrics.RecordRefresh(metrics.RefreshResultTerminal)
			s.flagReauthorization(inst.ID, err)
			return nil, ErrReauthorizationRequired
		}
		s.metrics.RecordRefresh(metrics.RefreshResultTransient)
		// Serve the current token if it is still usable at all
		if !inst.IsExpired() {
			log.Printf("[services] on-demand refresh of %s failed, serving current token: %v",
				id, err)
			return inst, nil
		}
		return nil, err
	}

	updated, err := s.store.Update(inst.ID, func(rec *models.Installation) error {
		rec.AccessToken = result.AccessToken
		rec.ExpiresAt = result.ExpiresAt
		if result.RefreshToken != "" {
			rec.RefreshToken = result.RefreshToken
		}
		if result.LocationID != "" && rec.LocationID == "" {
			rec.LocationID = result.LocationID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordRefresh(metrics.RefreshResultSuccess)
	return updated, nil
}

func (s *TokenService) flagReauthorization(id string, cause error) {
	log.Printf("[services] refresh token rejected for %s, flagging: %v", id, cause)
	if _, err := s.store.Update(id, func(rec *models.Installation) error {
		rec.NeedsReauthorization = true
		return nil
	}); err != nil {
		log.Printf("[services] failed to flag %s: %v", id, err)
	}
}

// List returns every installation, oldest first
func (s *TokenService) List() ([]models.Installation, error) {
	return s.store.List()
}
