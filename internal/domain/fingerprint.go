package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// coordPrecision is the number of decimal digits coordinates are rounded to
// before fingerprinting. Four digits is roughly 11 meters at the equator:
// small enough that distinct fire pixels stay distinct, large enough to
// absorb float jitter introduced by CSV round-trips.
const coordPrecision = 4

// Fingerprint derives the deterministic dedup key for a detection from its
// rounded coordinates and acquisition date/time. Two events with identical
// rounded coordinates and identical acquisition date+time collapse to the
// same fire ID regardless of every other field.
func Fingerprint(e RawFireEvent) string {
	input := fmt.Sprintf("%.*f|%.*f|%s|%s",
		coordPrecision, e.Latitude,
		coordPrecision, e.Longitude,
		strings.TrimSpace(e.AcqDate),
		padAcqTime(e.AcqTime),
	)
	hash := sha256.Sum256([]byte(input))
	return "fire-" + hex.EncodeToString(hash[:8])
}

// padAcqTime zero-pads three-digit HHMM values so "930" and "0930" hash
// identically.
func padAcqTime(hhmm string) string {
	hhmm = strings.TrimSpace(hhmm)
	if len(hhmm) == 3 {
		return "0" + hhmm
	}
	return hhmm
}
