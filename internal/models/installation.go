package models

import (
	"time"
)

// Authorization class constants as reported by the provider's token claims
const (
	AuthClassCompany  = "Company"
	AuthClassLocation = "Location"
)

// Installation represents one completed OAuth authorization by one
// HighLevel account or location. Created by the callback handler, mutated
// by the refresh sweep and the location token converter, never deleted.
type Installation struct {
	ID           string    `gorm:"primaryKey"`
	AccessToken  string    `gorm:"type:text;not null"`
	RefreshToken string    `gorm:"type:text;not null"`
	ExpiresAt    time.Time `gorm:"not null;index"`

	AuthClass  string `gorm:"not null;index"` // "Company" or "Location"
	CompanyID  string `gorm:"index"`          // authClassId of a Company token
	LocationID string `gorm:"index"`          // known sub-account, once resolved
	Scopes     string `gorm:"not null"`       // space-separated scopes

	// Set when a refresh token is rejected by the provider. The record is
	// kept so callers can surface a re-authorization prompt.
	NeedsReauthorization bool `gorm:"not null;default:false;index"`

	// Cached Location-scoped token derived from a Company token via the
	// conversion endpoint. Reused until its own expiry.
	LocationTokenCache     string `gorm:"type:text"`
	LocationTokenExpiresAt *time.Time
	LocationTokenLocation  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (i *Installation) IsExpired() bool {
	return time.Now().After(i.ExpiresAt)
}

// RefreshDue reports whether the access token expires within the safety
// window. The boundary is inclusive: a token expiring exactly window from
// now is due.
func (i *Installation) RefreshDue(window time.Duration) bool {
	return !i.ExpiresAt.After(time.Now().Add(window))
}

// HasValidLocationToken reports whether the cached Location token covers
// locationID and survives at least buffer past now.
func (i *Installation) HasValidLocationToken(locationID string, buffer time.Duration) bool {
	if i.LocationTokenCache == "" || i.LocationTokenExpiresAt == nil {
		return false
	}
	if i.LocationTokenLocation != locationID {
		return false
	}
	return i.LocationTokenExpiresAt.After(time.Now().Add(buffer))
}

// TokenStatus summarizes the record for diagnostic output
func (i *Installation) TokenStatus() string {
	switch {
	case i.NeedsReauthorization:
		return "needs_reauthorization"
	case i.IsExpired():
		return "expired"
	default:
		return "valid"
	}
}
