package timex

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/oxij/kisstdlib/pkg/errors"
)

// Timerange is a continuous interval between two timestamps, start
// inclusive and end exclusive unless the flags say otherwise.
type Timerange struct {
	Start         Timestamp
	End           Timestamp
	IncludesStart bool
	IncludesEnd   bool
}

// Anytime covers everything.
var Anytime = Timerange{Start: NegInf, End: PosInf, IncludesStart: true, IncludesEnd: true}

// Contains reports whether t falls within the range.
func (r Timerange) Contains(t Timestamp) bool {
	if r.IncludesStart && t == r.Start || r.IncludesEnd && t == r.End {
		return true
	}
	return r.Start.Before(t) && t.Before(r.End)
}

// Middle returns the midpoint; meaningless for infinite bounds.
func (r Timerange) Middle() Timestamp {
	half := (r.End.Sec-r.Start.Sec)/2*1e9 + int64(r.End.Nsec-r.Start.Nsec)/2
	if (r.End.Sec-r.Start.Sec)%2 != 0 {
		half += 5e8
	}
	return r.Start.addNsec(half)
}

// Delta returns the range's width; it saturates time.Duration for very
// wide ranges.
func (r Timerange) Delta() time.Duration {
	if r.Start.IsNegInf() || r.End.IsPosInf() {
		return time.Duration(1<<63 - 1)
	}
	sec := r.End.Sec - r.Start.Sec
	if sec > int64(1<<31) {
		return time.Duration(1<<63 - 1)
	}
	return time.Duration(sec)*time.Second + time.Duration(r.End.Nsec-r.Start.Nsec)
}

// Format renders "start--end" with the given sub-second precision.
func (r Timerange) Format(precision int, utc bool) string {
	return r.Start.Format(precision, utc) + "--" + r.End.Format(precision, utc)
}

// FormatOrg renders "[start]--[end] => H:MM:SS", org-mode style.
func (r Timerange) FormatOrg(precision int, utc bool) string {
	return fmt.Sprintf("[%s]--[%s] => %s",
		r.Start.Format(precision, utc), r.End.Format(precision, utc),
		r.formatOrgDelta(precision))
}

func (r Timerange) formatOrgDelta(precision int) string {
	d := r.Delta()
	total := int64(d / time.Second)
	nsec := int64(d % time.Second)
	res := fmt.Sprintf("%d:%02d:%02d", total/3600, total%3600/60, total%60)
	if precision > 0 {
		frac := fmt.Sprintf("%09d", nsec)
		if precision <= len(frac) {
			frac = frac[:precision]
		} else {
			frac += strings.Repeat("0", precision-len(frac))
		}
		res += "." + frac
	}
	return res
}

var (
	timerangePreRe       = regexp.MustCompile(`^[([{<]?`)
	timerangePostRe      = regexp.MustCompile(`^[)\]}>]?`)
	timerangeDelimiterRe = regexp.MustCompile(`^--?`)
)

func chompRe(s string, re *regexp.Regexp) string {
	return s[len(re.FindString(s)):]
}

// ParseTimerange parses a prefix of value into a Timerange plus the
// leftover suffix. Accepted forms: "*" (anytime), a single timestamp
// (covering its whole granularity interval), and "A--B" with optional
// brackets around either bound.
func ParseTimerange(value string, utc bool) (Timerange, string, error) {
	s := value
	if strings.HasPrefix(s, "*") {
		return Anytime, s[1:], nil
	}

	s = chompRe(s, timerangePreRe)
	start, end, s, err := ParseTimestamp(s, utc)
	if err != nil {
		return Timerange{}, "", errors.Wrapf(err, errors.ErrTimeParse, "failed to parse %q as a time interval", value)
	}
	stop := strings.HasPrefix(s, "*")
	if stop {
		s = s[1:]
	}
	s = chompRe(s, timerangePostRe)
	if !stop {
		if delim := timerangeDelimiterRe.FindString(s); delim != "" {
			s = chompRe(s[len(delim):], timerangePreRe)
			var err error
			_, end, s, err = ParseTimestamp(s, utc)
			if err != nil {
				return Timerange{}, "", errors.Wrapf(err, errors.ErrTimeParse, "failed to parse %q as a time interval", value)
			}
			s = chompRe(s, timerangePostRe)
		}
	}
	return Timerange{Start: start, End: end, IncludesStart: true}, s, nil
}

// Range parses value as a complete time interval.
func Range(value string, utc bool) (Timerange, error) {
	r, leftover, err := ParseTimerange(value, utc)
	if err != nil {
		return Timerange{}, err
	}
	if leftover != "" {
		return Timerange{}, errors.Newf(errors.ErrTimeParse, "failed to parse %q as a time interval", value)
	}
	return r, nil
}
