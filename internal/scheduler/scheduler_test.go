package scheduler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/config"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/metrics"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/models"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/provider"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/retry"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newTestScheduler(t *testing.T, st *store.Store, tokenURL string) *Scheduler {
	t.Helper()
	cfg := &config.Config{
		TokenURL:            tokenURL,
		ClientID:            "client-id",
		ClientSecret:        "client-secret",
		RefreshSafetyWindow: 2 * time.Hour,
		SweepInterval:       time.Hour,
	}
	rc := retry.NewClient(
		retry.WithMaxRetries(0),
		retry.WithInitialRetryDelay(time.Millisecond),
	)
	return New(cfg, st, provider.New(cfg, rc), metrics.NewNoopMetrics())
}

func installation(id, refreshToken string, expiresAt time.Time) *models.Installation {
	return &models.Installation{
		ID:           id,
		AccessToken:  "access-" + id,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		AuthClass:    models.AuthClassCompany,
		CompanyID:    "comp_1",
		Scopes:       "products.write",
	}
}

// One installation hitting a provider outage must not prevent the others
// from being refreshed.
func TestSweepIsolatesFailures(t *testing.T) {
	st := setupTestStore(t)
	due := time.Now().Add(30 * time.Minute)
	require.NoError(t, st.Put(installation("ok-1", "refresh-ok-1", due)))
	require.NoError(t, st.Put(installation("broken", "refresh-broken", due)))
	require.NoError(t, st.Put(installation("ok-2", "refresh-ok-2", due)))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("refresh_token") == "refresh-broken" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "new-access",
			"refresh_token": "new-refresh",
			"expires_in":    86400,
		})
	}))
	defer srv.Close()

	stats, err := newTestScheduler(t, st, srv.URL).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Scanned)
	assert.Equal(t, 2, stats.Refreshed)
	assert.Equal(t, 1, stats.Transient)
	assert.Equal(t, 0, stats.Flagged)

	for _, id := range []string{"ok-1", "ok-2"} {
		inst, err := st.Get(id)
		require.NoError(t, err)
		assert.Equal(t, "new-access", inst.AccessToken)
		assert.Equal(t, "new-refresh", inst.RefreshToken)
		assert.False(t, inst.NeedsReauthorization)
	}

	// The transient failure is untouched and will be retried next sweep
	broken, err := st.Get("broken")
	require.NoError(t, err)
	assert.Equal(t, "access-broken", broken.AccessToken)
	assert.False(t, broken.NeedsReauthorization)
}

func TestSweepFlagsTerminalRejection(t *testing.T) {
	st := setupTestStore(t)
	require.NoError(t, st.Put(installation("revoked", "dead-refresh", time.Now().Add(time.Hour))))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	stats, err := newTestScheduler(t, st, srv.URL).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Flagged)

	inst, err := st.Get("revoked")
	require.NoError(t, err)
	assert.True(t, inst.NeedsReauthorization)
	// Tokens stay on the record for diagnostics
	assert.Equal(t, "dead-refresh", inst.RefreshToken)
}

func TestSweepSkipsNotDueAndFlagged(t *testing.T) {
	st := setupTestStore(t)
	require.NoError(t, st.Put(installation("fresh", "r1", time.Now().Add(10*time.Hour))))
	flagged := installation("flagged", "r2", time.Now().Add(time.Minute))
	flagged.NeedsReauthorization = true
	require.NoError(t, st.Put(flagged))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no refresh should be attempted")
	}))
	defer srv.Close()

	stats, err := newTestScheduler(t, st, srv.URL).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, 0, stats.Refreshed)
}

// A token expiring exactly at the window boundary is due.
func TestSweepWindowBoundaryInclusive(t *testing.T) {
	st := setupTestStore(t)
	require.NoError(t, st.Put(installation("edge", "r-edge", time.Now().Add(2*time.Hour))))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "edge-access",
			"expires_in":   86400,
		})
	}))
	defer srv.Close()

	stats, err := newTestScheduler(t, st, srv.URL).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Refreshed)
}

func TestSweepKeepsRefreshTokenWithoutRotation(t *testing.T) {
	st := setupTestStore(t)
	require.NoError(t, st.Put(installation("keep", "original-refresh", time.Now().Add(time.Hour))))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "rotated-access",
			"expires_in":   3600,
		})
	}))
	defer srv.Close()

	_, err := newTestScheduler(t, st, srv.URL).Sweep(context.Background())
	require.NoError(t, err)

	inst, err := st.Get("keep")
	require.NoError(t, err)
	assert.Equal(t, "rotated-access", inst.AccessToken)
	assert.Equal(t, "original-refresh", inst.RefreshToken)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	st := setupTestStore(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := newTestScheduler(t, st, srv.URL)
	s.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}
