// Package timex provides timestamps of fixed nanosecond precision and
// half-open time intervals, with parsing of progressively truncated
// stamps: "2024" means the whole year, "2024-12-01 12:00:16" one
// second, "@123.456" a fractional-epoch millisecond.
package timex

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/oxij/kisstdlib/pkg/errors"
)

// Timestamp is seconds since the UNIX epoch plus nanoseconds,
// 0 <= Nsec < 1e9. The zero value is the epoch itself.
type Timestamp struct {
	Sec  int64
	Nsec int32
}

// NegInf and PosInf are the open interval bounds.
var (
	NegInf = Timestamp{Sec: math.MinInt64}
	PosInf = Timestamp{Sec: math.MaxInt64}
)

// Now returns the current time as a Timestamp.
func Now() Timestamp {
	return FromTime(time.Now())
}

// FromTime converts a time.Time.
func FromTime(t time.Time) Timestamp {
	return Timestamp{Sec: t.Unix(), Nsec: int32(t.Nanosecond())}
}

// Time converts back to a time.Time in the local zone.
func (t Timestamp) Time() time.Time {
	return time.Unix(t.Sec, int64(t.Nsec))
}

func (t Timestamp) IsNegInf() bool { return t == NegInf }
func (t Timestamp) IsPosInf() bool { return t == PosInf }

// Compare orders two timestamps: -1, 0, or 1.
func (t Timestamp) Compare(o Timestamp) int {
	switch {
	case t.Sec < o.Sec:
		return -1
	case t.Sec > o.Sec:
		return 1
	case t.Nsec < o.Nsec:
		return -1
	case t.Nsec > o.Nsec:
		return 1
	}
	return 0
}

func (t Timestamp) Before(o Timestamp) bool { return t.Compare(o) < 0 }
func (t Timestamp) After(o Timestamp) bool  { return t.Compare(o) > 0 }

// addNsec returns t shifted by the given number of nanoseconds.
func (t Timestamp) addNsec(ns int64) Timestamp {
	sec := t.Sec + ns/1e9
	nsec := int64(t.Nsec) + ns%1e9
	if nsec >= 1e9 {
		sec++
		nsec -= 1e9
	} else if nsec < 0 {
		sec--
		nsec += 1e9
	}
	return Timestamp{Sec: sec, Nsec: int32(nsec)}
}

// Format renders the timestamp as "2006-01-02 15:04:05" with the given
// number of sub-second digits appended after a dot when precision > 0.
func (t Timestamp) Format(precision int, utc bool) string {
	if t.IsNegInf() {
		return "-inf"
	}
	if t.IsPosInf() {
		return "+inf"
	}
	tm := time.Unix(t.Sec, 0)
	if utc {
		tm = tm.UTC()
	}
	res := tm.Format("2006-01-02 15:04:05")
	if precision > 0 {
		frac := fmt.Sprintf("%09d", t.Nsec)
		if precision <= len(frac) {
			frac = frac[:precision]
		} else {
			frac += strings.Repeat("0", precision-len(frac))
		}
		res += "." + frac
	}
	return res
}

func (t Timestamp) String() string {
	return t.Format(9, true)
}

var (
	atTimestampRe  = regexp.MustCompile(`^@(\d+)(?:\.(\d+))?`)
	isoTimestampRe = regexp.MustCompile(
		`^(\d\d\d\d)(?:[_-]?(\d\d)(?:[_-]?(\d\d)(?:[T_-]?\s*(\d\d)(?:[h:_-]?(\d\d)(?:[h:_-]?(\d\d)(?:[sd,.]?(\d+))?)?\s*(?:([_+-])?(\d\d)[:h]?(\d\d)m?)?)?)?)?)?`)
)

// ParseTimestamp parses a prefix of value into the start and end
// (non-inclusive) of the continuous interval all of whose instants
// match value, plus the leftover suffix. "2024-12" covers the month,
// "2024-12-01 12:00:16.5" a tenth of a second. Without time zone
// information the stamp is local time unless utc is set.
func ParseTimestamp(value string, utc bool) (start, end Timestamp, leftover string, err error) {
	var hs, es int64
	var rs string
	ending := true

	if m := atTimestampRe.FindStringSubmatch(value); m != nil {
		hs, err = strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return start, end, "", errors.Wrapf(err, errors.ErrTimeParse, "failed to parse %q as a timestamp", value)
		}
		es = hs
		rs = m[2]
		leftover = value[len(m[0]):]
	} else if m := isoTimestampRe.FindStringSubmatch(value); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, day, hour, minute, second := 1, 1, 0, 0, 0
		if m[2] != "" {
			month, _ = strconv.Atoi(m[2])
		}
		if m[3] != "" {
			day, _ = strconv.Atoi(m[3])
		}
		if m[4] != "" {
			hour, _ = strconv.Atoi(m[4])
		}
		if m[5] != "" {
			minute, _ = strconv.Atoi(m[5])
		}
		if m[6] != "" {
			second, _ = strconv.Atoi(m[6])
		}
		rs = m[7]

		var offset int64
		if m[9] != "" {
			tzhour, _ := strconv.Atoi(m[9])
			tzminute, _ := strconv.Atoi(m[10])
			offset = int64(3600*tzhour + 60*tzminute)
			if m[8] != "+" {
				offset = -offset
			}
			utc = true
		}

		loc := time.Local
		if utc {
			loc = time.UTC
		}
		hts := time.Date(year, time.Month(month), day, hour, minute, second, 0, loc)
		ets := hts
		if m[2] == "" {
			ets = time.Date(year+1, time.Month(month), day, hour, minute, second, 0, loc)
			ending = false
		} else if m[3] == "" {
			ets = time.Date(year, time.Month(month+1), day, hour, minute, second, 0, loc)
			ending = false
		}

		hs = hts.Unix() - offset
		es = ets.Unix() - offset

		if ending {
			switch {
			case m[4] == "":
				es += 86400
				ending = false
			case m[5] == "":
				es += 3600
				ending = false
			case m[6] == "":
				es += 60
				ending = false
			}
		}
		leftover = value[len(m[0]):]
	} else {
		return start, end, "", errors.Newf(errors.ErrTimeParse, "failed to parse %q as a timestamp", value)
	}

	start = Timestamp{Sec: hs, Nsec: fracNsec(rs)}
	end = Timestamp{Sec: es}
	if ending {
		end = Timestamp{Sec: es, Nsec: fracNsec(rs)}.addNsec(fracUnit(rs))
	}
	return start, end, leftover, nil
}

// fracNsec converts a run of sub-second digits into nanoseconds.
func fracNsec(rs string) int32 {
	if rs == "" {
		return 0
	}
	if len(rs) > 9 {
		rs = rs[:9]
	}
	n, _ := strconv.ParseInt(rs, 10, 64)
	for i := len(rs); i < 9; i++ {
		n *= 10
	}
	return int32(n)
}

// fracUnit is the width in nanoseconds of the interval the digits
// denote: one second for none, 1e6 for milliseconds, and so on.
func fracUnit(rs string) int64 {
	n := int64(1e9)
	for i := 0; i < len(rs) && i < 9; i++ {
		n /= 10
	}
	return n
}

// Stamp parses value as a complete timestamp and returns its start
// (or, with start=false, its non-inclusive end).
func Stamp(value string, start, utc bool) (Timestamp, error) {
	s, e, leftover, err := ParseTimestamp(value, utc)
	if err != nil {
		return Timestamp{}, err
	}
	if leftover != "" {
		return Timestamp{}, errors.Newf(errors.ErrTimeParse, "failed to parse %q as a timestamp", value)
	}
	if start {
		return s, nil
	}
	return e, nil
}
