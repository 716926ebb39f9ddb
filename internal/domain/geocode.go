package domain

import (
	"context"
	"log/slog"
)

// EnrichLocation attempts to reverse-geocode a record's coordinates into
// place-name fields. If geocoder is nil or the lookup fails, the record is
// returned with location fields unset (graceful degradation): enrichment
// failure must never block persistence of the underlying detection.
func EnrichLocation(ctx context.Context, record FireRecord, geocoder Geocoder, logger *slog.Logger) FireRecord {
	if geocoder == nil {
		return record
	}

	info, err := geocoder.ReverseGeocode(ctx, record.Latitude, record.Longitude)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"fire_id", record.FireID,
			"lat", record.Latitude,
			"lon", record.Longitude,
			"error", err,
		)
		return record
	}

	record.LocationCity = info.City
	record.LocationLocality = info.Locality
	record.LocationState = info.State
	record.LocationCountry = info.Country
	return record
}
