package alert

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/firewatch-etl/internal/domain"
)

// maxDetailedFires caps how many fires a summary lists individually before
// collapsing the remainder into a count.
const maxDetailedFires = 5

// Publisher delivers a formatted alert summary to the fan-out channel.
type Publisher interface {
	Publish(ctx context.Context, group domain.AlertGroup, summary string) error
}

// Notifier formats alert groups and publishes them. Notification is
// best-effort relative to persistence: a publish failure is surfaced to the
// caller but never affects the stored records.
type Notifier struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewNotifier creates a Notifier. A nil publisher logs summaries without
// publishing them.
func NewNotifier(publisher Publisher, logger *slog.Logger) *Notifier {
	return &Notifier{publisher: publisher, logger: logger}
}

// Notify formats and publishes one alert group.
func (n *Notifier) Notify(ctx context.Context, group domain.AlertGroup) error {
	summary := FormatSummary(group)
	n.logger.Info("fire alert",
		"region", group.Region,
		"count", len(group.Fires),
		"window_start", group.WindowStart,
		"window_end", group.WindowEnd,
	)

	if n.publisher == nil {
		return nil
	}
	if err := n.publisher.Publish(ctx, group, summary); err != nil {
		return fmt.Errorf("publish alert for %s: %w", group.Region, err)
	}
	return nil
}

// FormatSummary renders the human-readable alert text for one region.
func FormatSummary(group domain.AlertGroup) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%d new fire detection(s) in %s\n", len(group.Fires), group.Region)
	fmt.Fprintf(&b, "Window: %s to %s\n",
		group.WindowStart.Format(time.RFC3339),
		group.WindowEnd.Format(time.RFC3339),
	)

	for i, fire := range group.Fires {
		if i == maxDetailedFires {
			fmt.Fprintf(&b, "  ... and %d more\n", len(group.Fires)-maxDetailedFires)
			break
		}
		fmt.Fprintf(&b, "  - %s (%.4f, %.4f) confidence=%s frp=%.1f MW\n",
			placeName(fire), fire.Latitude, fire.Longitude, fire.Confidence, fire.FRP)
	}

	return b.String()
}

func placeName(fire domain.FireRecord) string {
	parts := make([]string, 0, 2)
	if fire.LocationCity != "" {
		parts = append(parts, fire.LocationCity)
	}
	if fire.LocationState != "" {
		parts = append(parts, fire.LocationState)
	}
	if len(parts) == 0 {
		return "unknown location"
	}
	return strings.Join(parts, ", ")
}
