package domain

import "context"

// Geocoder resolves a coordinate pair to place names. Implementations are
// expected to bound their own latency (timeouts, retries); callers treat any
// error as "enrichment unavailable".
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (LocationInfo, error)
}
