package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayBoundsUsesStationTimezone(t *testing.T) {
	jakarta, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)

	// 2026-08-30 18:00 UTC is already 2026-08-31 01:00 in Jakarta (UTC+7).
	now := time.Date(2026, 8, 30, 18, 0, 0, 0, time.UTC)
	dayStart, dayEnd, monthStart := dayBounds(now, jakarta)

	assert.Equal(t, "2026-08-31", dayStart.In(jakarta).Format("2006-01-02"))
	assert.Equal(t, time.Date(2026, 8, 30, 17, 0, 0, 0, time.UTC), dayStart)
	assert.Equal(t, 24*time.Hour, dayEnd.Sub(dayStart))
	assert.Equal(t, "2026-08-01", monthStart.In(jakarta).Format("2006-01-02"))
}

func TestDayBoundsUTC(t *testing.T) {
	now := time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC)
	dayStart, dayEnd, monthStart := dayBounds(now, time.UTC)

	assert.Equal(t, time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC), dayStart)
	assert.Equal(t, time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC), dayEnd)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), monthStart)
}

func TestDayBoundsWestOfUTC(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 03:00 UTC on March 2 is still March 1 in New York.
	now := time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC)
	dayStart, _, _ := dayBounds(now, ny)
	assert.Equal(t, "2026-03-01", dayStart.In(ny).Format("2006-01-02"))
}

func TestWeekStartAcrossDSTChange(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// New York springs forward on 2026-03-08, so the week ending March 11
	// is only 167 hours long; the window still starts at local midnight.
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	_, dayEnd, _ := dayBounds(now, ny)

	ws := weekStart(dayEnd, ny)
	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, ny).UTC(), ws)
	assert.Equal(t, "00:00", ws.In(ny).Format("15:04"))
	assert.Equal(t, 167*time.Hour, dayEnd.Sub(ws))
}

func TestWeekStartUTC(t *testing.T) {
	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	_, dayEnd, _ := dayBounds(now, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC), weekStart(dayEnd, time.UTC))
}
