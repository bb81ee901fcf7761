package timex_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oxij/kisstdlib/pkg/errors"
	"github.com/oxij/kisstdlib/pkg/timex"
)

func ts(sec int64, nsec int32) timex.Timestamp {
	return timex.Timestamp{Sec: sec, Nsec: nsec}
}

func mustStamp(t *testing.T, value string) timex.Timestamp {
	t.Helper()
	res, err := timex.Stamp(value, true, true)
	require.NoError(t, err)
	return res
}

func TestParseTimestampStart(t *testing.T) {
	for _, tc := range []struct {
		inputs   []string
		expected timex.Timestamp
		leftover string
	}{
		{[]string{"@123"}, ts(123, 0), ""},
		{[]string{"@123.456"}, ts(123, 456000000), ""},
		{[]string{"2024"}, ts(1704067200, 0), ""},
		{[]string{"2024-12", "202412"}, ts(1733011200, 0), ""},
		{[]string{"2024-12-31", "20241231"}, ts(1735603200, 0), ""},
		{[]string{"2024-12-31 12:07", "202412311207"}, ts(1735646820, 0), ""},
		{[]string{
			"2024-12-31 12:07:16",
			"2024-12-31_12:07:16",
			"20241231120716",
		}, ts(1735646836, 0), ""},
		{[]string{
			"2024-12-31 12:07:16.456",
			"20241231_120716.456",
			"20241231120716.456",
			"20241231120716456",
		}, ts(1735646836, 456000000), ""},
		{[]string{
			"2024-12-31 12:07:16 -01:00",
			"2024-12-31T12:07:16-01:00",
			"2024-12-31 12:07:16-01:00",
			"2024-12-31_12:07:16-0100",
			"20241231120716-0100",
		}, ts(1735650436, 0), ""},
		{[]string{
			"2024-12-31 12:07:16.456 -01:00",
			"2024-12-31T12:07:16.456-01:00",
			"2024-12-31T12:07:16,456-01:00",
			"2024-12-31T12:07:16,456000000-01:00",
			"20241231 120716.456 -0100",
			"20241231120716.456 -0100",
			"20241231120716.456-0100",
			"20241231120716456-0100",
		}, ts(1735650436, 456000000), ""},
		{[]string{"2022-11-20 23:32:16+00:30"}, mustStamp(t, "2022-11-20 23:02:16"), ""},
		{[]string{"2022-11-20 23:32:16 -00:30"}, mustStamp(t, "2022-11-21 00:02:16"), ""},
		{[]string{"20241231120716456-0100 or so"}, ts(1735650436, 456000000), " or so"},
		{[]string{"2024-12-31 12:07:16 -0100 or so"}, ts(1735650436, 0), " or so"},
	} {
		for _, input := range tc.inputs {
			start, _, leftover, err := timex.ParseTimestamp(input, true)
			require.NoError(t, err, input)
			require.Equal(t, tc.expected, start, input)
			require.Equal(t, tc.leftover, leftover, input)
		}
	}
}

func TestParseTimestampEnd(t *testing.T) {
	for _, tc := range []struct {
		input    string
		expected timex.Timestamp
	}{
		{"@123", ts(124, 0)},
		{"@123.456", ts(123, 457000000)},
		{"2024", mustStamp(t, "2025-01-01")},
		{"2024-11", mustStamp(t, "2024-12-01")},
		{"2024-12", mustStamp(t, "2025-01-01")},
		{"2024-10-30", mustStamp(t, "2024-10-31")},
		{"2024-11-30", mustStamp(t, "2024-12-01")},
		{"2024-12-31", mustStamp(t, "2025-01-01")},
		{"2024-12-31 12", mustStamp(t, "2024-12-31 13:00")},
		{"2024-11-30 23", mustStamp(t, "2024-12-01 00:00")},
		{"2024-12-31 23", mustStamp(t, "2025-01-01 00:00")},
		{"2024-12-31 23:30", mustStamp(t, "2024-12-31 23:31")},
		{"2024-12-31 23:59", mustStamp(t, "2025-01-01 00:00")},
		{"2024-12-31 23:59:30", mustStamp(t, "2024-12-31 23:59:31")},
		{"2024-12-31 23:59:59", mustStamp(t, "2025-01-01 00:00")},
		{"2024-12-31 23:59:59.5", mustStamp(t, "2024-12-31 23:59:59.6")},
		{"2024-12-31 23:59:59.9", mustStamp(t, "2025-01-01 00:00")},
	} {
		end, err := timex.Stamp(tc.input, false, true)
		require.NoError(t, err, tc.input)
		require.Equal(t, tc.expected, end, tc.input)
	}
}

func TestParseTimestampFailure(t *testing.T) {
	_, _, _, err := timex.ParseTimestamp("not a time", true)
	require.Error(t, err)
	require.True(t, errors.IsErrorCode(err, errors.ErrTimeParse))

	_, err = timex.Stamp("2024 or so", true, true)
	require.Error(t, err)
	require.True(t, errors.IsErrorCode(err, errors.ErrTimeParse))
}

func TestFormatTimestamp(t *testing.T) {
	require.Equal(t, "2024-12-31 12:07:16.456",
		mustStamp(t, "2024-12-31 12:07:16.456789").Format(3, true))
	require.Equal(t, "2024-12-31 12:07:16.450",
		mustStamp(t, "2024-12-31 12:07:16.450").Format(3, true))
	require.Equal(t, "2024-12-31 12:07:16.000",
		mustStamp(t, "2024-12-31 12:07:16").Format(3, true))
	require.Equal(t, "2024-12-31 12:07:16",
		mustStamp(t, "2024-12-31 12:07:16").Format(0, true))

	require.Equal(t, "-inf", timex.NegInf.Format(0, true))
	require.Equal(t, "+inf", timex.PosInf.Format(0, true))
}

func TestCompareAndOrdering(t *testing.T) {
	a := ts(100, 0)
	b := ts(100, 1)
	c := ts(101, 0)

	require.Equal(t, -1, a.Compare(b))
	require.Equal(t, 1, c.Compare(b))
	require.Equal(t, 0, a.Compare(a))
	require.True(t, a.Before(b))
	require.True(t, c.After(b))
	require.True(t, timex.NegInf.Before(a))
	require.True(t, timex.PosInf.After(c))
}
