package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairway/loopledger/ledger"
)

func march10() time.Time {
	// Mid-afternoon reference instant; every window must still anchor to
	// calendar-day boundaries, not to this clock time.
	return time.Date(2024, time.March, 10, 15, 42, 7, 0, time.Local)
}

// =============================================================================
// RESOLUTION
// =============================================================================

func TestResolve_7D_CoversSevenCalendarDaysIncludingToday(t *testing.T) {
	// GIVEN: now = 2024-03-10
	// WHEN: Resolving "7D"
	// THEN: The window is [2024-03-04 00:00, 2024-03-10 23:59:59.999]

	dr, err := ledger.Resolve(ledger.Range7D, march10())
	require.NoError(t, err)
	require.NotNil(t, dr.Start)
	require.NotNil(t, dr.End)

	assert.Equal(t, time.Date(2024, time.March, 4, 0, 0, 0, 0, time.Local), *dr.Start)
	assert.Equal(t, time.Date(2024, time.March, 10, 23, 59, 59, int(999*time.Millisecond), time.Local), *dr.End)
}

func TestResolve_7D_BoundaryInclusivity(t *testing.T) {
	// today-6 is in, today-7 is out, today itself is in.
	dr, err := ledger.Resolve(ledger.Range7D, march10())
	require.NoError(t, err)

	assert.True(t, dr.Contains("2024-03-04"))
	assert.False(t, dr.Contains("2024-03-03"))
	assert.True(t, dr.Contains("2024-03-10"))
	assert.False(t, dr.Contains("2024-03-11"))
}

func TestResolve_MTD_AnchorsToFirstOfMonth(t *testing.T) {
	dr, err := ledger.Resolve(ledger.RangeMTD, march10())
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.Local), *dr.Start)
	assert.True(t, dr.Contains("2024-03-01"))
	assert.False(t, dr.Contains("2024-02-29"))
}

func TestResolve_YTD_AnchorsToJanuaryFirst(t *testing.T) {
	dr, err := ledger.Resolve(ledger.RangeYTD, march10())
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.Local), *dr.Start)
	assert.True(t, dr.Contains("2024-01-01"))
	assert.False(t, dr.Contains("2023-12-31"))
}

func TestResolve_14D_30D_Starts(t *testing.T) {
	dr14, err := ledger.Resolve(ledger.Range14D, march10())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.February, 26, 0, 0, 0, 0, time.Local), *dr14.Start)

	dr30, err := ledger.Resolve(ledger.Range30D, march10())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.February, 10, 0, 0, 0, 0, time.Local), *dr30.Start)
}

func TestResolve_All_Unbounded(t *testing.T) {
	dr, err := ledger.Resolve(ledger.RangeAll, march10())
	require.NoError(t, err)

	assert.True(t, dr.Unbounded())
	assert.True(t, dr.Contains("1999-01-01"))
	assert.True(t, dr.Contains("garbage"), "ALL has no date requirement")
}

func TestResolve_UnknownKey(t *testing.T) {
	_, err := ledger.Resolve("90D", march10())
	assert.ErrorIs(t, err, ledger.ErrUnknownRangeKey)
}

// =============================================================================
// MEMBERSHIP & PARSING
// =============================================================================

func TestContains_UnparsableDateNeverInBoundedRange(t *testing.T) {
	dr, err := ledger.Resolve(ledger.RangeYTD, march10())
	require.NoError(t, err)

	assert.False(t, dr.Contains(""))
	assert.False(t, dr.Contains("soon"))
	assert.False(t, dr.Contains("2024-13-45"))
}

func TestParseLocalDate_PlainDateIsLocalNotUTC(t *testing.T) {
	// Parsing "YYYY-MM-DD" as UTC shifts the calendar day for any user
	// west of Greenwich; the parse must land at local midnight.
	loc, err := time.LoadLocation("America/Denver")
	require.NoError(t, err)

	d, ok := ledger.ParseLocalDate("2024-03-10", loc)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, time.March, 10, 0, 0, 0, 0, loc), d)
	assert.Equal(t, 10, d.Day())
}

func TestParseLocalDate_FallbackLayouts(t *testing.T) {
	for _, s := range []string{
		"2024-03-10T08:00:00Z",
		"2024-03-10T08:00:00",
		"2024-03-10 08:00:00",
		"03/10/2024",
	} {
		_, ok := ledger.ParseLocalDate(s, time.Local)
		assert.True(t, ok, "should parse %q", s)
	}
}

func TestParseClock(t *testing.T) {
	cases := []struct {
		in      string
		minutes int
		ok      bool
	}{
		{"09:30", 570, true},
		{"9:30", 570, true},
		{"00:00", 0, true},
		{"23:59", 1439, true},
		{"25:00", 0, false},
		{"soon", 0, false},
		{"", 0, false},
	}
	for _, c := range cases {
		got, ok := ledger.ParseClock(c.in)
		assert.Equal(t, c.ok, ok, "parse %q", c.in)
		assert.Equal(t, c.minutes, got, "minutes for %q", c.in)
	}
}
