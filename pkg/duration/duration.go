// Package duration converts between time.Duration and the XSD duration
// literals used on the ONVIF wire (PT1M, PT10S, P1DT2H).
//
// Only the day/time subset is supported. Year and month components depend on
// a calendar position and have no fixed length, so literals carrying them are
// rejected rather than approximated.
package duration

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrInvalid reports a literal that is not a supported XSD duration.
var ErrInvalid = errors.New("invalid duration literal")

// Designator ranks, used to enforce component order (P1DT2H, never PT2H1D).
const (
	rankDay = iota + 1
	rankHour
	rankMinute
	rankSecond
)

// Parse converts an XSD duration literal into a time.Duration.
//
// Accepted forms are "PnDTnHnMnS" with any subset of components present, in
// order, with an optional fraction on the seconds component. Negative
// durations, empty component lists, and calendar components (Y, M before the
// T marker) are rejected.
func Parse(s string) (time.Duration, error) {
	lit := s
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("%w: negative duration %q", ErrInvalid, lit)
	}
	if len(s) < 2 || s[0] != 'P' {
		return 0, fmt.Errorf("%w: %q", ErrInvalid, lit)
	}
	s = s[1:]

	var (
		total  time.Duration
		inTime bool
		seen   bool
		rank   int
	)
	for len(s) > 0 {
		if s[0] == 'T' {
			if inTime {
				return 0, fmt.Errorf("%w: repeated time marker in %q", ErrInvalid, lit)
			}
			inTime = true
			s = s[1:]
			if s == "" {
				return 0, fmt.Errorf("%w: dangling time marker in %q", ErrInvalid, lit)
			}
			continue
		}

		i := 0
		for i < len(s) && (s[i] >= '0' && s[i] <= '9' || s[i] == '.') {
			i++
		}
		if i == 0 || i == len(s) {
			return 0, fmt.Errorf("%w: %q", ErrInvalid, lit)
		}
		num, des := s[:i], s[i]
		s = s[i+1:]

		var (
			unit time.Duration
			r    int
		)
		switch {
		case !inTime && (des == 'Y' || des == 'M'):
			return 0, fmt.Errorf("%w: calendar component %c in %q", ErrInvalid, des, lit)
		case !inTime && des == 'D':
			unit, r = 24*time.Hour, rankDay
		case inTime && des == 'H':
			unit, r = time.Hour, rankHour
		case inTime && des == 'M':
			unit, r = time.Minute, rankMinute
		case inTime && des == 'S':
			unit, r = time.Second, rankSecond
		default:
			return 0, fmt.Errorf("%w: designator %c in %q", ErrInvalid, des, lit)
		}
		if r <= rank {
			return 0, fmt.Errorf("%w: component order in %q", ErrInvalid, lit)
		}
		rank = r

		if des == 'S' && strings.Contains(num, ".") {
			f, err := strconv.ParseFloat(num, 64)
			if err != nil {
				return 0, fmt.Errorf("%w: %q", ErrInvalid, lit)
			}
			total += time.Duration(math.Round(f * float64(time.Second)))
		} else {
			n, err := strconv.ParseUint(num, 10, 32)
			if err != nil {
				return 0, fmt.Errorf("%w: %q", ErrInvalid, lit)
			}
			total += time.Duration(n) * unit
		}
		seen = true
	}
	if !seen {
		return 0, fmt.Errorf("%w: no components in %q", ErrInvalid, lit)
	}
	return total, nil
}

// Format renders d as a canonical XSD duration (PTnHnMnS). Fractions below
// one second keep millisecond precision. Non-positive durations render as
// "PT0S", which ONVIF treats as an immediate timeout.
func Format(d time.Duration) string {
	if d <= 0 {
		return "PT0S"
	}
	d = d.Round(time.Millisecond)

	var b strings.Builder
	b.WriteString("PT")
	if h := d / time.Hour; h > 0 {
		fmt.Fprintf(&b, "%dH", h)
		d -= h * time.Hour
	}
	if m := d / time.Minute; m > 0 {
		fmt.Fprintf(&b, "%dM", m)
		d -= m * time.Minute
	}
	if d > 0 || b.Len() == 2 {
		sec := float64(d) / float64(time.Second)
		b.WriteString(strconv.FormatFloat(sec, 'f', -1, 64))
		b.WriteByte('S')
	}
	return b.String()
}
