// Package firms pulls active fire detections from the NASA FIRMS area API.
package firms

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/firewatch-etl/internal/domain"
)

// Client fetches the FIRMS area CSV feed. It implements fetch.Feed.
type Client struct {
	mapKey     string
	source     string
	area       string
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a FIRMS client for the given satellite source
// (e.g. VIIRS_SNPP_NRT).
func NewClient(mapKey, source string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		mapKey: mapKey,
		source: source,
		area:   "world",
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://firms.modaps.eosdis.nasa.gov",
		logger:  logger,
	}
}

// FetchArea pulls all detections covering the trailing window. The API serves
// whole days, so the window is rounded up to a day count (minimum 1). An
// empty feed and a 404 both mean "no active fires" and return an empty slice
// with no error.
func (c *Client) FetchArea(ctx context.Context, window time.Duration) ([]domain.RawFireEvent, error) {
	dayRange := int((window + 24*time.Hour - 1) / (24 * time.Hour))
	if dayRange < 1 {
		dayRange = 1
	}

	u := fmt.Sprintf("%s/api/area/csv/%s/%s/%s/%d", c.baseURL, c.mapKey, c.source, c.area, dayRange)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch firms area: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("firms API error: status %d: %s", resp.StatusCode, body)
	}

	fires, skipped, err := ParseCSV(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse firms csv: %w", err)
	}
	if skipped > 0 {
		c.logger.Warn("skipped unparseable firms rows", "skipped", skipped, "source", c.source)
	}
	return fires, nil
}

// ParseCSV parses FIRMS area CSV into raw events. Rows whose coordinates do
// not parse are skipped and counted rather than failing the whole feed; range
// and enum checking is the validator's job downstream. Unknown columns are
// ignored so source-specific extras (scan, track, version, bright_t31) pass
// through harmlessly.
func ParseCSV(r io.Reader) ([]domain.RawFireEvent, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, 0, nil
	}

	colIdx := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		colIdx[h] = i
	}

	field := func(row []string, name string) string {
		i, ok := colIdx[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var fires []domain.RawFireEvent
	skipped := 0
	for _, row := range rows[1:] {
		lat, errLat := strconv.ParseFloat(field(row, "latitude"), 64)
		lon, errLon := strconv.ParseFloat(field(row, "longitude"), 64)
		if errLat != nil || errLon != nil {
			skipped++
			continue
		}

		brightness, _ := strconv.ParseFloat(field(row, "brightness"), 64)
		frp, _ := strconv.ParseFloat(field(row, "frp"), 64)

		fires = append(fires, domain.RawFireEvent{
			Latitude:   lat,
			Longitude:  lon,
			Brightness: brightness,
			Confidence: field(row, "confidence"),
			FRP:        frp,
			AcqDate:    field(row, "acq_date"),
			AcqTime:    field(row, "acq_time"),
			Satellite:  field(row, "satellite"),
			Instrument: field(row, "instrument"),
			DayNight:   field(row, "daynight"),
		})
	}

	return fires, skipped, nil
}
