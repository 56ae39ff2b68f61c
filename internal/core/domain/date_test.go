package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTime(t *testing.T) {
	cases := map[string]time.Time{
		"2024-03-05":                       time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		"2024-03-05T10:11:12Z":             time.Date(2024, 3, 5, 10, 11, 12, 0, time.UTC),
		"2024-03-05T10:11:12.5+00:00":      time.Date(2024, 3, 5, 10, 11, 12, 500000000, time.UTC),
		"2024-03-05T10:11:12.123456":       time.Date(2024, 3, 5, 10, 11, 12, 123456000, time.UTC),
		"2024-03-05 10:11:12":              time.Date(2024, 3, 5, 10, 11, 12, 0, time.UTC),
		"2024-03-05 10:11:12.000001+00:00": time.Date(2024, 3, 5, 10, 11, 12, 1000, time.UTC),
	}

	for in, want := range cases {
		got, err := ParseTime(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s: want %s, got %s", in, want, got)
	}
}

func TestParseTime_Empty(t *testing.T) {
	got, err := ParseTime("")
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestParseTime_Garbage(t *testing.T) {
	_, err := ParseTime("next tuesday")
	assert.Error(t, err)
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "", FormatDate(time.Time{}))
	assert.Equal(t, "2024-12-31", FormatDate(time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC)))
}
