package firms

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `latitude,longitude,bright_ti4,scan,track,acq_date,acq_time,satellite,instrument,confidence,version,bright_ti5,frp,daynight,brightness
37.7749,-122.4194,330.5,0.39,0.36,2024-01-15,1430,N,VIIRS,h,2.0NRT,290.1,15.3,D,330.5
45.5231,-122.6765,312.2,0.41,0.37,2024-01-15,0930,N,VIIRS,n,2.0NRT,285.4,8.7,N,312.2
`

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := NewClient("test-key", "VIIRS_SNPP_NRT", 5*time.Second, slog.Default())
	c.baseURL = server.URL
	return c
}

func TestFetchArea(t *testing.T) {
	var gotPath string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(sampleCSV))
	})

	fires, err := client.FetchArea(context.Background(), 24*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, "/api/area/csv/test-key/VIIRS_SNPP_NRT/world/1", gotPath)
	require.Len(t, fires, 2)
	assert.Equal(t, 37.7749, fires[0].Latitude)
	assert.Equal(t, -122.4194, fires[0].Longitude)
	assert.Equal(t, "h", fires[0].Confidence)
	assert.Equal(t, 15.3, fires[0].FRP)
	assert.Equal(t, "2024-01-15", fires[0].AcqDate)
	assert.Equal(t, "1430", fires[0].AcqTime)
	assert.Equal(t, "N", fires[1].DayNight)
}

func TestFetchArea_WindowRoundsUpToDays(t *testing.T) {
	var gotPath string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(sampleCSV))
	})

	_, err := client.FetchArea(context.Background(), 36*time.Hour)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(gotPath, "/2"), "path %q should request 2 days", gotPath)
}

func TestFetchArea_NotFoundMeansNoFires(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	fires, err := client.FetchArea(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Empty(t, fires)
}

func TestFetchArea_APIError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("Invalid MAP_KEY"))
	})

	_, err := client.FetchArea(context.Background(), 24*time.Hour)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Contains(t, err.Error(), "Invalid MAP_KEY")
}

func TestParseCSV_SkipsUnparseableCoordinates(t *testing.T) {
	input := `latitude,longitude,acq_date,acq_time,confidence
37.7749,-122.4194,2024-01-15,1430,h
not-a-number,-122.4194,2024-01-15,1430,h
45.5231,,2024-01-15,0930,n
`
	fires, skipped, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 2, skipped)
	require.Len(t, fires, 1)
	assert.Equal(t, 37.7749, fires[0].Latitude)
}

func TestParseCSV_HeaderOnly(t *testing.T) {
	fires, skipped, err := ParseCSV(strings.NewReader("latitude,longitude,acq_date\n"))
	require.NoError(t, err)
	assert.Empty(t, fires)
	assert.Zero(t, skipped)
}

func TestParseCSV_Empty(t *testing.T) {
	fires, skipped, err := ParseCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, fires)
	assert.Zero(t, skipped)
}
