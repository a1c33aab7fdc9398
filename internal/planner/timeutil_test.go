package planner

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInstantAcceptsCommonISOForms(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"with z designator", "2026-05-04T18:00:00Z", "2026-05-04T18:00:00Z"},
		{"with offset", "2026-05-04T18:00:00+02:00", "2026-05-04T16:00:00Z"},
		{"naive seconds", "2026-05-04T18:00:00", "2026-05-04T18:00:00Z"},
		{"naive minutes", "2026-05-04T18:00", "2026-05-04T18:00:00Z"},
		{"date only", "2026-05-04", "2026-05-04T00:00:00Z"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseInstant(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, FormatInstant(got))
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestParseInstantRejectsMalformedInput(t *testing.T) {
	for _, input := range []string{"", "not-a-date", "04.05.2026 18:00", "2026-13-40T99:99:99Z"} {
		_, err := ParseInstant(input)
		require.Error(t, err, "input %q", input)
		var parseErr *ParseError
		assert.True(t, errors.As(err, &parseErr))
	}
}

func TestFormatInstantRoundTrips(t *testing.T) {
	original := time.Date(2026, time.September, 18, 7, 30, 0, 0, time.UTC)
	parsed, err := ParseInstant(FormatInstant(original))
	require.NoError(t, err)
	assert.True(t, original.Equal(parsed))
}

func TestParseClockTime(t *testing.T) {
	c, err := parseClockTime("18:30")
	require.NoError(t, err)
	assert.Equal(t, clockTime{hour: 18, minute: 30}, c)

	for _, input := range []string{"", "18", "25:00", "12:60", "ab:cd"} {
		_, err := parseClockTime(input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestLocalDayBoundsHandlesDSTTransition(t *testing.T) {
	zurich, err := time.LoadLocation("Europe/Zurich")
	require.NoError(t, err)

	// Day before the spring DST change: UTC+1.
	before := time.Date(2026, time.March, 28, 0, 0, 0, 0, zurich)
	start, end, err := LocalDayBounds(before, "08:00", "22:00", zurich)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-28T07:00:00Z", FormatInstant(start))
	assert.Equal(t, "2026-03-28T21:00:00Z", FormatInstant(end))

	// Day of the change: UTC+2 from 03:00 local onward.
	after := time.Date(2026, time.March, 29, 0, 0, 0, 0, zurich)
	start, end, err = LocalDayBounds(after, "08:00", "22:00", zurich)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-29T06:00:00Z", FormatInstant(start))
	assert.Equal(t, "2026-03-29T20:00:00Z", FormatInstant(end))
}

func TestSameLocalDayRespectsTimezone(t *testing.T) {
	zurich, err := time.LoadLocation("Europe/Zurich")
	require.NoError(t, err)

	// 23:30 UTC is already the next day in Zurich.
	instant := time.Date(2026, time.June, 10, 23, 30, 0, 0, time.UTC)
	june10 := time.Date(2026, time.June, 10, 0, 0, 0, 0, zurich)
	june11 := time.Date(2026, time.June, 11, 0, 0, 0, 0, zurich)

	assert.False(t, sameLocalDay(instant, june10, zurich))
	assert.True(t, sameLocalDay(instant, june11, zurich))
}
