// Package store defines the persistence contract for fire records.
package store

import (
	"context"
	"time"

	"github.com/couchcryptid/firewatch-etl/internal/domain"
)

// MutationListener observes the store's mutation-event stream. The store
// calls OnUpsert synchronously after each successful upsert, exactly once per
// call, whatever the outcome. Implementations must be safe for concurrent
// use because batch workers upsert in parallel.
type MutationListener interface {
	OnUpsert(ev domain.UpsertEvent)
}

// Store persists fire records keyed by fingerprint.
type Store interface {
	// Upsert writes a record idempotently on FireID. The first call for a
	// fingerprint inserts the row, stamps CreatedAt, and reports
	// inserted=true. Later calls leave CreatedAt and core fields untouched,
	// fill in enrichment fields the stored row lacks, and report
	// inserted=false. Two concurrent upserts of the same fingerprint never
	// both report inserted=true.
	Upsert(ctx context.Context, rec domain.FireRecord) (inserted bool, err error)

	// QueryByRegion returns records for a country within [from, to], ordered
	// by timestamp ascending then FireID. afterID resumes a previous page;
	// limit caps the page size (0 means the default page size).
	QueryByRegion(ctx context.Context, country string, from, to time.Time, limit int, afterID string) ([]domain.FireRecord, error)

	Close() error
}
