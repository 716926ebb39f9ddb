// Package alert derives change-driven notifications from the store's
// mutation-event stream.
package alert

import (
	"sort"
	"sync"
	"time"

	"github.com/couchcryptid/firewatch-etl/internal/domain"
)

// RegionUnknown is the grouping sentinel for records whose enrichment never
// resolved a country.
const RegionUnknown = "unknown"

// Detector implements store.MutationListener and groups newly inserted fires
// by region within one processing cycle. A cycle is whatever accumulated
// between two Flush calls; there is no cross-cycle buffering.
type Detector struct {
	mu     sync.Mutex
	events []domain.UpsertEvent
}

// NewDetector creates an empty change detector.
func NewDetector() *Detector {
	return &Detector{}
}

// OnUpsert records one mutation event. Called concurrently by batch workers.
func (d *Detector) OnUpsert(ev domain.UpsertEvent) {
	d.mu.Lock()
	d.events = append(d.events, ev)
	d.mu.Unlock()
}

// Flush groups the cycle's inserts by country and resets the detector.
// Duplicates (inserted=false) contribute to no group, so redelivered batches
// never re-alert. Groups come back region-sorted with fires ordered by
// acquisition time; the window bounds are the group's min and max timestamps.
func (d *Detector) Flush() []domain.AlertGroup {
	d.mu.Lock()
	events := d.events
	d.events = nil
	d.mu.Unlock()

	byRegion := make(map[string][]domain.FireRecord)
	for _, ev := range events {
		if !ev.Inserted {
			continue
		}
		region := ev.Record.LocationCountry
		if region == "" {
			region = RegionUnknown
		}
		byRegion[region] = append(byRegion[region], ev.Record)
	}
	if len(byRegion) == 0 {
		return nil
	}

	regions := make([]string, 0, len(byRegion))
	for region := range byRegion {
		regions = append(regions, region)
	}
	sort.Strings(regions)

	groups := make([]domain.AlertGroup, 0, len(regions))
	for _, region := range regions {
		fires := byRegion[region]
		sort.Slice(fires, func(i, j int) bool {
			if fires[i].Timestamp != fires[j].Timestamp {
				return fires[i].Timestamp < fires[j].Timestamp
			}
			return fires[i].FireID < fires[j].FireID
		})

		groups = append(groups, domain.AlertGroup{
			Region:      region,
			Fires:       fires,
			WindowStart: time.Unix(fires[0].Timestamp, 0).UTC(),
			WindowEnd:   time.Unix(fires[len(fires)-1].Timestamp, 0).UTC(),
		})
	}
	return groups
}
