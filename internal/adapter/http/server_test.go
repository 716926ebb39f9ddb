package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/firewatch-etl/internal/domain"
)

type fakeReadiness struct {
	err error
}

func (f *fakeReadiness) CheckReadiness(context.Context) error { return f.err }

type fakeQuerier struct {
	records    []domain.FireRecord
	err        error
	gotCountry string
	gotFrom    time.Time
	gotTo      time.Time
	gotLimit   int
	gotAfter   string
}

func (f *fakeQuerier) QueryByRegion(_ context.Context, country string, from, to time.Time, limit int, afterID string) ([]domain.FireRecord, error) {
	f.gotCountry = country
	f.gotFrom = from
	f.gotTo = to
	f.gotLimit = limit
	f.gotAfter = afterID
	return f.records, f.err
}

func newTestServer(ready *fakeReadiness, fires *fakeQuerier) *Server {
	return NewServer(":0", ready, fires, slog.Default())
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(&fakeReadiness{}, &fakeQuerier{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestReadyz(t *testing.T) {
	srv := newTestServer(&fakeReadiness{}, &fakeQuerier{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready"}`, rec.Body.String())
}

func TestReadyz_NotReady(t *testing.T) {
	srv := newTestServer(&fakeReadiness{err: errors.New("no batch handled yet")}, &fakeQuerier{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Contains(t, body["error"], "no batch handled yet")
}

func TestFires(t *testing.T) {
	querier := &fakeQuerier{records: []domain.FireRecord{
		{FireID: "fire-001", Timestamp: 1000, LocationCountry: "Chile"},
		{FireID: "fire-002", Timestamp: 2000, LocationCountry: "Chile"},
	}}
	srv := newTestServer(&fakeReadiness{}, querier)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/fires?country=Chile&from=2024-01-15T00:00:00Z&to=2024-01-16T00:00:00Z&limit=50&after=fire-000", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "Chile", querier.gotCountry)
	assert.Equal(t, time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC), querier.gotFrom)
	assert.Equal(t, time.Date(2024, time.January, 16, 0, 0, 0, 0, time.UTC), querier.gotTo)
	assert.Equal(t, 50, querier.gotLimit)
	assert.Equal(t, "fire-000", querier.gotAfter)

	var body struct {
		Fires []domain.FireRecord `json:"fires"`
		Count int                 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	require.Len(t, body.Fires, 2)
	assert.Equal(t, "fire-001", body.Fires[0].FireID)
}

func TestFires_DefaultsToTrailingDay(t *testing.T) {
	querier := &fakeQuerier{}
	srv := newTestServer(&fakeReadiness{}, querier)

	before := time.Now().UTC()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fires?country=Chile", nil))
	after := time.Now().UTC()

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, querier.gotTo.Before(before))
	assert.False(t, querier.gotTo.After(after))
	assert.Equal(t, querier.gotTo.Add(-24*time.Hour), querier.gotFrom)
}

func TestFires_BadRequests(t *testing.T) {
	cases := []struct {
		name string
		url  string
	}{
		{"missing country", "/fires"},
		{"bad from", "/fires?country=Chile&from=yesterday"},
		{"bad to", "/fires?country=Chile&to=tomorrow"},
		{"bad limit", "/fires?country=Chile&limit=ten"},
		{"negative limit", "/fires?country=Chile&limit=-1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(&fakeReadiness{}, &fakeQuerier{})

			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.url, nil))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestFires_QueryFailure(t *testing.T) {
	srv := newTestServer(&fakeReadiness{}, &fakeQuerier{err: errors.New("database gone")})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fires?country=Chile", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	// Internal detail stays out of the response body.
	assert.NotContains(t, rec.Body.String(), "database gone")
}

func TestFires_EmptyResultIsAnArray(t *testing.T) {
	srv := newTestServer(&fakeReadiness{}, &fakeQuerier{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fires?country=Chile", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"fires":[]`)
}
