package domain

import (
	"strconv"
	"strings"
	"time"
)

// Validate checks a raw detection for malformed fields. It is side-effect
// free and returns a *ValidationError describing the first problem found.
func Validate(e RawFireEvent) error {
	if e.Latitude < -90 || e.Latitude > 90 {
		return &ValidationError{Field: "latitude", Reason: "latitude out of range"}
	}
	if e.Longitude < -180 || e.Longitude > 180 {
		return &ValidationError{Field: "longitude", Reason: "longitude out of range"}
	}
	if _, err := time.Parse("2006-01-02", strings.TrimSpace(e.AcqDate)); err != nil {
		return &ValidationError{Field: "acq_date", Reason: "invalid acquisition date"}
	}
	if !validAcqTime(e.AcqTime) {
		return &ValidationError{Field: "acq_time", Reason: "invalid acquisition time"}
	}
	if NormalizeConfidence(e.Confidence) == "" {
		return &ValidationError{Field: "confidence", Reason: "unrecognized confidence"}
	}
	return nil
}

// validAcqTime accepts HHMM with an optional dropped leading zero ("930").
func validAcqTime(hhmm string) bool {
	hhmm = strings.TrimSpace(hhmm)
	if len(hhmm) < 3 || len(hhmm) > 4 {
		return false
	}
	if len(hhmm) == 3 {
		hhmm = "0" + hhmm
	}

	hour, errH := strconv.Atoi(hhmm[:2])
	mins, errM := strconv.Atoi(hhmm[2:])
	return errH == nil && errM == nil && hour >= 0 && hour <= 23 && mins >= 0 && mins <= 59
}

// NormalizeConfidence maps the instrument-specific confidence encodings to
// low|nominal|high. Returns "" for unrecognized values.
func NormalizeConfidence(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	switch v {
	case "l", "low":
		return "low"
	case "n", "nominal":
		return "nominal"
	case "h", "high":
		return "high"
	}

	// MODIS numeric confidence, 0-100.
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || n > 100 {
		return ""
	}
	switch {
	case n < 30:
		return "low"
	case n < 80:
		return "nominal"
	default:
		return "high"
	}
}
