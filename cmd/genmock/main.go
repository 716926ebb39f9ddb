// Command genmock converts a FIRMS area CSV file into JSON fixtures for the
// pipeline test suites: batch envelopes as the fetch stage would queue them,
// and fire records as the process stage would persist them. It uses the
// actual domain package so fixtures match real pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -csv testdata/viirs_snpp_sample.csv \
//	  -batches-out testdata/fire_batches.json \
//	  -records-out testdata/fire_records.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/firewatch-etl/internal/adapter/firms"
	"github.com/couchcryptid/firewatch-etl/internal/domain"
)

const batchSize = 10

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	csvPath := flag.String("csv", "", "FIRMS area CSV file")
	batchesOut := flag.String("batches-out", "", "output path for batch envelope fixtures")
	recordsOut := flag.String("records-out", "", "output path for fire record fixtures")
	flag.Parse()

	if *csvPath == "" || *batchesOut == "" || *recordsOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -csv, -batches-out, -records-out")
	}

	// Freeze time for reproducible QueuedAt timestamps.
	frozen := time.Date(2024, time.January, 16, 6, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(frozen))
	defer domain.SetClock(nil)

	f, err := os.Open(*csvPath)
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	fires, skipped, err := firms.ParseCSV(f)
	if err != nil {
		return fmt.Errorf("parse csv: %w", err)
	}
	if skipped > 0 {
		log.Printf("skipped %d unparseable rows", skipped)
	}
	log.Printf("parsed %d fire detections", len(fires))

	var batches []domain.FireBatch
	for start := 0; start < len(fires); start += batchSize {
		end := min(start+batchSize, len(fires))
		batches = append(batches, domain.FireBatch{
			// Sequential IDs instead of UUIDs so fixtures are stable.
			BatchID:  fmt.Sprintf("batch-%03d", len(batches)),
			Fires:    fires[start:end],
			QueuedAt: frozen,
		})
	}

	var records []domain.FireRecord
	invalid := 0
	for _, fire := range fires {
		if err := domain.Validate(fire); err != nil {
			invalid++
			continue
		}
		rec, err := domain.NewFireRecord(fire)
		if err != nil {
			invalid++
			continue
		}
		records = append(records, rec)
	}
	if invalid > 0 {
		log.Printf("excluded %d invalid detections from record fixture", invalid)
	}

	if err := writeJSON(*batchesOut, batches); err != nil {
		return fmt.Errorf("writing batch fixture: %w", err)
	}
	log.Printf("wrote batch fixture: %s (%d batches)", *batchesOut, len(batches))

	if err := writeJSON(*recordsOut, records); err != nil {
		return fmt.Errorf("writing record fixture: %w", err)
	}
	log.Printf("wrote record fixture: %s (%d records)", *recordsOut, len(records))

	printStats(records)
	return nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func printStats(records []domain.FireRecord) {
	byConfidence := map[string]int{}
	bySatellite := map[string]int{}
	night := 0
	for _, r := range records {
		byConfidence[r.Confidence]++
		bySatellite[r.Satellite]++
		if r.DayNight == "N" {
			night++
		}
	}
	log.Printf("confidence: %v", byConfidence)
	log.Printf("satellite: %v", bySatellite)
	log.Printf("night detections: %d/%d", night, len(records))
}
