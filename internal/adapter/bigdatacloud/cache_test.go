package bigdatacloud

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/firewatch-etl/internal/domain"
	"github.com/couchcryptid/firewatch-etl/internal/observability"
)

type stubGeocoder struct {
	info  domain.LocationInfo
	err   error
	calls int
}

func (g *stubGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (domain.LocationInfo, error) {
	g.calls++
	return g.info, g.err
}

func TestCachedGeocoder_CachesByRoundedCoordinates(t *testing.T) {
	inner := &stubGeocoder{info: domain.LocationInfo{City: "Lisbon", Country: "Portugal"}}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	ctx := context.Background()

	info, err := cached.ReverseGeocode(ctx, 38.7223, -9.1393)
	require.NoError(t, err)
	assert.Equal(t, "Portugal", info.Country)
	assert.Equal(t, 1, inner.calls)

	// Same coordinates after 4-decimal rounding reuse the cached result.
	info, err = cached.ReverseGeocode(ctx, 38.72231, -9.13931)
	require.NoError(t, err)
	assert.Equal(t, "Portugal", info.Country)
	assert.Equal(t, 1, inner.calls)

	// A different location goes to the inner geocoder.
	_, err = cached.ReverseGeocode(ctx, 40.4168, -3.7038)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedGeocoder_DoesNotCacheErrors(t *testing.T) {
	inner := &stubGeocoder{err: errors.New("boom")}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	ctx := context.Background()

	_, err := cached.ReverseGeocode(ctx, 1, 2)
	require.Error(t, err)
	_, err = cached.ReverseGeocode(ctx, 1, 2)
	require.Error(t, err)

	assert.Equal(t, 2, inner.calls)
}

func TestCachedGeocoder_DoesNotCacheEmptyResults(t *testing.T) {
	inner := &stubGeocoder{}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	ctx := context.Background()

	_, err := cached.ReverseGeocode(ctx, 0, -160)
	require.NoError(t, err)
	_, err = cached.ReverseGeocode(ctx, 0, -160)
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	cache := newLRUCache(2)

	cache.put("a", domain.LocationInfo{Country: "A"})
	cache.put("b", domain.LocationInfo{Country: "B"})

	// Touch "a" so "b" becomes least recently used.
	_, ok := cache.get("a")
	require.True(t, ok)

	cache.put("c", domain.LocationInfo{Country: "C"})

	_, ok = cache.get("b")
	assert.False(t, ok, "least recently used entry should be evicted")

	info, ok := cache.get("a")
	require.True(t, ok)
	assert.Equal(t, "A", info.Country)

	info, ok = cache.get("c")
	require.True(t, ok)
	assert.Equal(t, "C", info.Country)
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	cache := newLRUCache(2)

	cache.put("a", domain.LocationInfo{Country: "A"})
	cache.put("a", domain.LocationInfo{Country: "A2"})
	cache.put("b", domain.LocationInfo{Country: "B"})

	info, ok := cache.get("a")
	require.True(t, ok)
	assert.Equal(t, "A2", info.Country)

	_, ok = cache.get("b")
	assert.True(t, ok)
}
