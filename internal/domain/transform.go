package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// AcquisitionTime combines acq_date and acq_time into the satellite overpass
// time in UTC.
func AcquisitionTime(e RawFireEvent) (time.Time, error) {
	date, err := time.Parse("2006-01-02", strings.TrimSpace(e.AcqDate))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse acquisition date: %w", err)
	}

	hhmm := padAcqTime(e.AcqTime)
	if len(hhmm) != 4 {
		return time.Time{}, fmt.Errorf("parse acquisition time %q", e.AcqTime)
	}
	hour, errH := strconv.Atoi(hhmm[:2])
	mins, errM := strconv.Atoi(hhmm[2:])
	if errH != nil || errM != nil || hour < 0 || hour > 23 || mins < 0 || mins > 59 {
		return time.Time{}, fmt.Errorf("parse acquisition time %q", e.AcqTime)
	}

	return time.Date(date.Year(), date.Month(), date.Day(), hour, mins, 0, 0, time.UTC), nil
}

// NewFireRecord builds the persistable record for a validated detection. The
// process stage is the only caller. CreatedAt is left zero: the store owns it
// and stamps it on first insert.
func NewFireRecord(e RawFireEvent) (FireRecord, error) {
	at, err := AcquisitionTime(e)
	if err != nil {
		return FireRecord{}, err
	}

	return FireRecord{
		FireID:     Fingerprint(e),
		Timestamp:  at.Unix(),
		Latitude:   e.Latitude,
		Longitude:  e.Longitude,
		Brightness: e.Brightness,
		Confidence: NormalizeConfidence(e.Confidence),
		FRP:        e.FRP,
		AcqDate:    strings.TrimSpace(e.AcqDate),
		AcqTime:    padAcqTime(e.AcqTime),
		Satellite:  e.Satellite,
		Instrument: e.Instrument,
		DayNight:   e.DayNight,
	}, nil
}
