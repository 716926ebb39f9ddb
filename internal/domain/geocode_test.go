package domain

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGeocoder struct {
	info  LocationInfo
	err   error
	calls int
}

func (g *stubGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (LocationInfo, error) {
	g.calls++
	return g.info, g.err
}

func testRecord(t *testing.T) FireRecord {
	t.Helper()
	record, err := NewFireRecord(validEvent())
	require.NoError(t, err)
	return record
}

func TestEnrichLocation(t *testing.T) {
	geocoder := &stubGeocoder{info: LocationInfo{
		City:     "San Francisco",
		Locality: "Mission District",
		State:    "California",
		Country:  "United States of America",
	}}

	record := EnrichLocation(context.Background(), testRecord(t), geocoder, slog.Default())

	assert.Equal(t, 1, geocoder.calls)
	assert.Equal(t, "San Francisco", record.LocationCity)
	assert.Equal(t, "Mission District", record.LocationLocality)
	assert.Equal(t, "California", record.LocationState)
	assert.Equal(t, "United States of America", record.LocationCountry)
}

func TestEnrichLocation_NilGeocoder(t *testing.T) {
	original := testRecord(t)

	record := EnrichLocation(context.Background(), original, nil, slog.Default())

	assert.Equal(t, original, record)
}

func TestEnrichLocation_LookupFailure(t *testing.T) {
	geocoder := &stubGeocoder{err: errors.New("upstream unavailable")}
	original := testRecord(t)

	record := EnrichLocation(context.Background(), original, geocoder, slog.Default())

	// The detection survives unenriched.
	assert.Equal(t, original, record)
	assert.Empty(t, record.LocationCountry)
}
