package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nextcall/internal/config"
	"nextcall/internal/model"
	"nextcall/internal/poll"
)

var testTime = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

// fixedProvider serves a canned snapshot.
type fixedProvider struct {
	snap poll.Snapshot
}

func (p fixedProvider) Snapshot() poll.Snapshot { return p.snap }

func countdownSnapshot() poll.Snapshot {
	ev := model.Event{
		Key:       "standup@2026-03-02T12:03:00Z",
		UID:       "standup",
		Summary:   "Daily standup",
		VideoLink: "https://meet.google.com/abc",
		Start:     testTime.Add(3 * time.Minute),
		End:       testTime.Add(18 * time.Minute),
		SourceID:  "work",
	}
	return poll.Snapshot{
		Status:    model.Status{Kind: model.StatusCountdown, Minutes: 3},
		Primary:   &ev,
		Eligible:  []model.Event{ev},
		UpdatedAt: testTime,
		FetchedAt: testTime,
		Tracked:   1,
	}
}

func newTestServer(cfg *config.Config, snap poll.Snapshot) http.Handler {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return NewServer(cfg, fixedProvider{snap: snap}).Handler()
}

func TestHealth(t *testing.T) {
	h := newTestServer(nil, poll.Snapshot{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestStatusEndpoint(t *testing.T) {
	h := newTestServer(nil, countdownSnapshot())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "countdown", resp.State)
	assert.Equal(t, "3", resp.Text)
	assert.Equal(t, 3, resp.Minutes)
	require.NotNil(t, resp.Primary)
	assert.Equal(t, "Daily standup", resp.Primary.Summary)
	assert.Equal(t, "https://meet.google.com/abc", resp.Primary.VideoLink)
	assert.Equal(t, 1, resp.Tracked)
}

func TestStatusEndpointIdle(t *testing.T) {
	h := newTestServer(nil, poll.Snapshot{
		Status:    model.Status{Kind: model.StatusIdle},
		UpdatedAt: testTime,
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "idle", resp.State)
	assert.Equal(t, "...", resp.Text)
	assert.Zero(t, resp.Minutes)
	assert.Nil(t, resp.Primary)
}

func TestEventsEndpoint(t *testing.T) {
	h := newTestServer(nil, countdownSnapshot())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var events []eventResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, "standup@2026-03-02T12:03:00Z", events[0].Key)
	assert.Equal(t, "work", events[0].Source)
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestServer(nil, poll.Snapshot{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/status", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestBasicAuth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	h := newTestServer(cfg, countdownSnapshot())

	// Unauthenticated request is rejected.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Wrong password is rejected.
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.SetBasicAuth("admin", "wrong")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Correct credentials pass.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.SetBasicAuth("admin", "secret")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// /health stays open.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
