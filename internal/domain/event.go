package domain

import (
	"context"
	"time"
)

// RawFireEvent is a single detection row from the FIRMS area CSV feed,
// carried unmodified through the delivery channel.
type RawFireEvent struct {
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Brightness float64 `json:"brightness"` // brightness temperature, Kelvin
	Confidence string  `json:"confidence"` // see doc.go for encodings
	FRP        float64 `json:"frp"`        // fire radiative power, MW
	AcqDate    string  `json:"acq_date"`   // YYYY-MM-DD
	AcqTime    string  `json:"acq_time"`   // HHMM, 24-hour UTC
	Satellite  string  `json:"satellite"`
	Instrument string  `json:"instrument"`
	DayNight   string  `json:"daynight"` // "D" or "N"
}

// FireBatch is the envelope published to the ingress topic: one message, one
// batch, acknowledged as a unit.
type FireBatch struct {
	BatchID  string         `json:"batch_id"`
	Fires    []RawFireEvent `json:"fires"`
	QueuedAt time.Time      `json:"queued_at"`
}

// RawBatch is an unprocessed batch message from the ingress topic. Commit
// acknowledges the message; it must only be called once every event in the
// batch has reached a terminal state.
type RawBatch struct {
	Value     []byte
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// LocationInfo holds reverse-geocoded place names for a coordinate pair.
type LocationInfo struct {
	City     string
	Locality string
	State    string
	Country  string
}

// FireRecord is the persisted representation of a detection. FireID is the
// content-based fingerprint and the primary key; Location* fields are empty
// when enrichment was unavailable. CreatedAt is set by the store on first
// insert and never changes afterward.
type FireRecord struct {
	FireID     string  `json:"fire_id"`
	Timestamp  int64   `json:"timestamp"` // acquisition time, Unix seconds UTC
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Brightness float64 `json:"brightness"`
	Confidence string  `json:"confidence"`
	FRP        float64 `json:"frp"`
	AcqDate    string  `json:"acq_date"`
	AcqTime    string  `json:"acq_time"`
	Satellite  string  `json:"satellite"`
	Instrument string  `json:"instrument"`
	DayNight   string  `json:"daynight"`

	LocationCity     string `json:"location_city,omitempty"`
	LocationLocality string `json:"location_locality,omitempty"`
	LocationState    string `json:"location_state,omitempty"`
	LocationCountry  string `json:"location_country,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// UpsertEvent is emitted by the store after every upsert, whatever the
// outcome. Inserted is true only when the call created a genuinely new row.
type UpsertEvent struct {
	Record   FireRecord
	Inserted bool
}

// AlertGroup is one processing cycle's newly inserted fires for a single
// region. It is handed straight to the notifier and never persisted.
type AlertGroup struct {
	Region      string
	Fires       []FireRecord
	WindowStart time.Time
	WindowEnd   time.Time
}

// DeadLetter carries a terminally failed event to the dead-letter topic with
// its original payload and a failure reason for offline inspection.
type DeadLetter struct {
	Fire     RawFireEvent `json:"fire"`
	Reason   string       `json:"reason"`
	FailedAt time.Time    `json:"failed_at"`
}
