package alert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/firewatch-etl/internal/domain"
)

type fakePublisher struct {
	groups    []domain.AlertGroup
	summaries []string
	err       error
}

func (p *fakePublisher) Publish(_ context.Context, group domain.AlertGroup, summary string) error {
	if p.err != nil {
		return p.err
	}
	p.groups = append(p.groups, group)
	p.summaries = append(p.summaries, summary)
	return nil
}

func sampleGroup() domain.AlertGroup {
	return domain.AlertGroup{
		Region: "United States of America",
		Fires: []domain.FireRecord{
			{
				FireID:          "fire-1",
				Timestamp:       1000,
				Latitude:        37.7749,
				Longitude:       -122.4194,
				Confidence:      "high",
				FRP:             15.3,
				LocationCity:    "San Francisco",
				LocationState:   "California",
				LocationCountry: "United States of America",
			},
		},
		WindowStart: time.Unix(1000, 0).UTC(),
		WindowEnd:   time.Unix(1000, 0).UTC(),
	}
}

func TestNotify_PublishesSummary(t *testing.T) {
	publisher := &fakePublisher{}
	n := NewNotifier(publisher, slog.Default())

	require.NoError(t, n.Notify(context.Background(), sampleGroup()))

	require.Len(t, publisher.groups, 1)
	assert.Equal(t, "United States of America", publisher.groups[0].Region)
	assert.Contains(t, publisher.summaries[0], "1 new fire detection(s) in United States of America")
}

func TestNotify_NilPublisherLogsOnly(t *testing.T) {
	n := NewNotifier(nil, slog.Default())
	require.NoError(t, n.Notify(context.Background(), sampleGroup()))
}

func TestNotify_PublishError(t *testing.T) {
	publisher := &fakePublisher{err: errors.New("broker down")}
	n := NewNotifier(publisher, slog.Default())

	err := n.Notify(context.Background(), sampleGroup())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish alert for United States of America")
}

func TestFormatSummary(t *testing.T) {
	summary := FormatSummary(sampleGroup())

	assert.Contains(t, summary, "1 new fire detection(s) in United States of America")
	assert.Contains(t, summary, "Window: 1970-01-01T00:16:40Z to 1970-01-01T00:16:40Z")
	assert.Contains(t, summary, "San Francisco, California (37.7749, -122.4194) confidence=high frp=15.3 MW")
}

func TestFormatSummary_UnknownLocation(t *testing.T) {
	group := sampleGroup()
	group.Fires[0].LocationCity = ""
	group.Fires[0].LocationState = ""

	summary := FormatSummary(group)
	assert.Contains(t, summary, "unknown location (37.7749, -122.4194)")
}

func TestFormatSummary_TruncatesLongGroups(t *testing.T) {
	group := domain.AlertGroup{Region: "Chile"}
	for i := 0; i < 8; i++ {
		group.Fires = append(group.Fires, domain.FireRecord{
			FireID:    fmt.Sprintf("fire-%d", i),
			Timestamp: int64(1000 + i),
			Latitude:  -33.45,
			Longitude: -70.66,
		})
	}

	summary := FormatSummary(group)

	assert.Contains(t, summary, "8 new fire detection(s) in Chile")
	assert.Contains(t, summary, "... and 3 more")
	assert.Equal(t, maxDetailedFires, strings.Count(summary, "  - "))
}
