package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEvent() RawFireEvent {
	return RawFireEvent{
		Latitude:   37.7749,
		Longitude:  -122.4194,
		Brightness: 330.5,
		Confidence: "high",
		FRP:        15.3,
		AcqDate:    "2024-01-15",
		AcqTime:    "1430",
		Satellite:  "N",
		Instrument: "VIIRS",
		DayNight:   "D",
	}
}

func TestValidate_ValidEvent(t *testing.T) {
	require.NoError(t, Validate(validEvent()))
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*RawFireEvent)
		reason string
	}{
		{
			name:   "latitude too large",
			mutate: func(e *RawFireEvent) { e.Latitude = 200 },
			reason: "latitude out of range",
		},
		{
			name:   "latitude too small",
			mutate: func(e *RawFireEvent) { e.Latitude = -90.0001 },
			reason: "latitude out of range",
		},
		{
			name:   "longitude out of range",
			mutate: func(e *RawFireEvent) { e.Longitude = 181 },
			reason: "longitude out of range",
		},
		{
			name:   "unparseable date",
			mutate: func(e *RawFireEvent) { e.AcqDate = "01/15/2024" },
			reason: "invalid acquisition date",
		},
		{
			name:   "empty date",
			mutate: func(e *RawFireEvent) { e.AcqDate = "" },
			reason: "invalid acquisition date",
		},
		{
			name:   "hour out of range",
			mutate: func(e *RawFireEvent) { e.AcqTime = "2560" },
			reason: "invalid acquisition time",
		},
		{
			name:   "time too short",
			mutate: func(e *RawFireEvent) { e.AcqTime = "14" },
			reason: "invalid acquisition time",
		},
		{
			name:   "non-numeric time",
			mutate: func(e *RawFireEvent) { e.AcqTime = "14x0" },
			reason: "invalid acquisition time",
		},
		{
			name:   "unrecognized confidence",
			mutate: func(e *RawFireEvent) { e.Confidence = "maybe" },
			reason: "unrecognized confidence",
		},
		{
			name:   "numeric confidence out of range",
			mutate: func(e *RawFireEvent) { e.Confidence = "150" },
			reason: "unrecognized confidence",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			event := validEvent()
			tc.mutate(&event)

			err := Validate(event)
			require.Error(t, err)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.reason, verr.Reason)
			assert.Equal(t, tc.reason, err.Error())
		})
	}
}

func TestValidate_ThreeDigitTime(t *testing.T) {
	event := validEvent()
	event.AcqTime = "930"
	require.NoError(t, Validate(event))
}

func TestNormalizeConfidence(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"l", "low"},
		{"n", "nominal"},
		{"h", "high"},
		{"low", "low"},
		{"nominal", "nominal"},
		{"high", "high"},
		{"HIGH", "high"},
		{" h ", "high"},
		{"0", "low"},
		{"29", "low"},
		{"30", "nominal"},
		{"79", "nominal"},
		{"80", "high"},
		{"100", "high"},
		{"101", ""},
		{"-5", ""},
		{"", ""},
		{"maybe", ""},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeConfidence(tc.in), "input %q", tc.in)
	}
}
