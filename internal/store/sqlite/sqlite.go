// Package sqlite implements store.Store on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	_ "modernc.org/sqlite"

	"github.com/couchcryptid/firewatch-etl/internal/domain"
	"github.com/couchcryptid/firewatch-etl/internal/store"
)

const (
	defaultPageSize = 100
	maxPageSize     = 500
)

const schema = `
CREATE TABLE IF NOT EXISTS fires (
	fire_id           TEXT PRIMARY KEY,
	timestamp         INTEGER NOT NULL,
	latitude          REAL NOT NULL,
	longitude         REAL NOT NULL,
	brightness        REAL NOT NULL,
	confidence        TEXT NOT NULL,
	frp               REAL NOT NULL,
	acq_date          TEXT NOT NULL,
	acq_time          TEXT NOT NULL,
	satellite         TEXT NOT NULL,
	instrument        TEXT NOT NULL,
	daynight          TEXT NOT NULL,
	location_city     TEXT,
	location_locality TEXT,
	location_state    TEXT,
	location_country  TEXT,
	created_at        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fires_region_time ON fires(location_country, timestamp);
`

// Store persists fire records in a single SQLite database file.
type Store struct {
	db       *sql.DB
	listener store.MutationListener
	clock    clockwork.Clock
}

// Open opens (creating if necessary) the database at path. listener receives
// the mutation-event stream; pass nil to disable emission.
//
// The pool is capped at one connection: SQLite allows a single writer anyway,
// and funneling all access through one connection turns each Upsert
// transaction into the check-and-set discipline the inserted flag depends on.
func Open(path string, listener store.MutationListener) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{
		db:       db,
		listener: listener,
		clock:    clockwork.NewRealClock(),
	}, nil
}

// Upsert implements store.Store. The decision between insert and update
// happens inside one transaction, so redelivered duplicates always observe
// the committed row and report inserted=false.
func (s *Store) Upsert(ctx context.Context, rec domain.FireRecord) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	existing, err := s.selectRecord(ctx, tx, rec.FireID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		rec.CreatedAt = s.clock.Now().UTC()
		if err := s.insert(ctx, tx, rec); err != nil {
			return false, err
		}
		if err := tx.Commit(); err != nil {
			return false, fmt.Errorf("commit insert: %w", err)
		}
		s.emit(domain.UpsertEvent{Record: rec, Inserted: true})
		return true, nil

	case err != nil:
		return false, err
	}

	merged, changed := mergeEnrichment(existing, rec)
	if changed {
		if err := s.updateEnrichment(ctx, tx, merged); err != nil {
			return false, err
		}
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit update: %w", err)
	}
	s.emit(domain.UpsertEvent{Record: merged, Inserted: false})
	return false, nil
}

// mergeEnrichment fills enrichment fields the stored row lacks from the
// incoming record. CreatedAt and core fields always come from the stored row.
func mergeEnrichment(existing, incoming domain.FireRecord) (domain.FireRecord, bool) {
	changed := false
	if existing.LocationCity == "" && incoming.LocationCity != "" {
		existing.LocationCity = incoming.LocationCity
		changed = true
	}
	if existing.LocationLocality == "" && incoming.LocationLocality != "" {
		existing.LocationLocality = incoming.LocationLocality
		changed = true
	}
	if existing.LocationState == "" && incoming.LocationState != "" {
		existing.LocationState = incoming.LocationState
		changed = true
	}
	if existing.LocationCountry == "" && incoming.LocationCountry != "" {
		existing.LocationCountry = incoming.LocationCountry
		changed = true
	}
	return existing, changed
}

func (s *Store) insert(ctx context.Context, tx *sql.Tx, rec domain.FireRecord) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO fires (
			fire_id, timestamp, latitude, longitude, brightness, confidence,
			frp, acq_date, acq_time, satellite, instrument, daynight,
			location_city, location_locality, location_state, location_country,
			created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.FireID, rec.Timestamp, rec.Latitude, rec.Longitude, rec.Brightness,
		rec.Confidence, rec.FRP, rec.AcqDate, rec.AcqTime, rec.Satellite,
		rec.Instrument, rec.DayNight,
		nullable(rec.LocationCity), nullable(rec.LocationLocality),
		nullable(rec.LocationState), nullable(rec.LocationCountry),
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert fire %s: %w", rec.FireID, err)
	}
	return nil
}

func (s *Store) updateEnrichment(ctx context.Context, tx *sql.Tx, rec domain.FireRecord) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE fires SET
			location_city = ?, location_locality = ?,
			location_state = ?, location_country = ?
		WHERE fire_id = ?`,
		nullable(rec.LocationCity), nullable(rec.LocationLocality),
		nullable(rec.LocationState), nullable(rec.LocationCountry),
		rec.FireID,
	)
	if err != nil {
		return fmt.Errorf("update fire %s: %w", rec.FireID, err)
	}
	return nil
}

const recordColumns = `fire_id, timestamp, latitude, longitude, brightness, confidence,
	frp, acq_date, acq_time, satellite, instrument, daynight,
	location_city, location_locality, location_state, location_country, created_at`

func (s *Store) selectRecord(ctx context.Context, tx *sql.Tx, fireID string) (domain.FireRecord, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM fires WHERE fire_id = ?`, fireID)
	return scanRecord(row)
}

// QueryByRegion implements store.Store using keyset pagination on
// (timestamp, fire_id).
func (s *Store) QueryByRegion(ctx context.Context, country string, from, to time.Time, limit int, afterID string) ([]domain.FireRecord, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	query := `SELECT ` + recordColumns + ` FROM fires
		WHERE location_country = ? AND timestamp >= ? AND timestamp <= ?`
	args := []any{country, from.Unix(), to.Unix()}

	if afterID != "" {
		var afterTS int64
		err := s.db.QueryRowContext(ctx,
			`SELECT timestamp FROM fires WHERE fire_id = ?`, afterID).Scan(&afterTS)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("unknown cursor %q", afterID)
		}
		if err != nil {
			return nil, fmt.Errorf("resolve cursor: %w", err)
		}
		query += ` AND (timestamp, fire_id) > (?, ?)`
		args = append(args, afterTS, afterID)
	}

	query += ` ORDER BY timestamp ASC, fire_id ASC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query by region: %w", err)
	}
	defer rows.Close()

	var records []domain.FireRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) emit(ev domain.UpsertEvent) {
	if s.listener != nil {
		s.listener.OnUpsert(ev)
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (domain.FireRecord, error) {
	var rec domain.FireRecord
	var city, locality, state, country sql.NullString
	var createdAt string

	err := row.Scan(
		&rec.FireID, &rec.Timestamp, &rec.Latitude, &rec.Longitude,
		&rec.Brightness, &rec.Confidence, &rec.FRP, &rec.AcqDate, &rec.AcqTime,
		&rec.Satellite, &rec.Instrument, &rec.DayNight,
		&city, &locality, &state, &country, &createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.FireRecord{}, err
		}
		return domain.FireRecord{}, fmt.Errorf("scan fire record: %w", err)
	}

	rec.LocationCity = city.String
	rec.LocationLocality = locality.String
	rec.LocationState = state.String
	rec.LocationCountry = country.String

	rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return domain.FireRecord{}, fmt.Errorf("parse created_at: %w", err)
	}
	return rec, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
