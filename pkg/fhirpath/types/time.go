package types

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	gotime "time"
)

// Time represents a FHIRPath time value with explicit precision.
type Time struct {
	hour      int
	minute    int
	second    int
	millis    int
	precision TimePrecision
}

// TimePrecision indicates the precision of a time.
type TimePrecision int

const (
	HourPrecision TimePrecision = iota
	MinutePrecision
	SecondPrecision
	MillisPrecision
)

var timePattern = regexp.MustCompile(
	`^T?(\d{2})(?::(\d{2})(?::(\d{2})(?:\.(\d+))?)?)?$`,
)

// NewTime creates a Time from literal text (with or without the T
// prefix).
func NewTime(s string) (Time, error) {
	m := timePattern.FindStringSubmatch(s)
	if m == nil {
		return Time{}, fmt.Errorf("invalid time format: %s", s)
	}

	t := Time{}
	precision := HourPrecision
	t.hour, _ = strconv.Atoi(m[1])
	if t.hour > 23 {
		return Time{}, fmt.Errorf("invalid hour in time: %s", s)
	}
	if m[2] != "" {
		t.minute, _ = strconv.Atoi(m[2])
		if t.minute > 59 {
			return Time{}, fmt.Errorf("invalid minute in time: %s", s)
		}
		precision = MinutePrecision
	}
	if m[3] != "" {
		t.second, _ = strconv.Atoi(m[3])
		if t.second > 59 {
			return Time{}, fmt.Errorf("invalid second in time: %s", s)
		}
		precision = SecondPrecision
	}
	if m[4] != "" {
		t.millis = padMillis(m[4])
		precision = MillisPrecision
	}
	t.precision = precision
	return t, nil
}

// NewTimeFromGoTime creates a millisecond-precision Time.
func NewTimeFromGoTime(t gotime.Time) Time {
	return Time{
		hour:      t.Hour(),
		minute:    t.Minute(),
		second:    t.Second(),
		millis:    t.Nanosecond() / int(gotime.Millisecond),
		precision: MillisPrecision,
	}
}

// Type returns "Time".
func (t Time) Type() string {
	return "Time"
}

// TypeInfo returns System.Time.
func (t Time) TypeInfo() TypeInfo {
	return SystemType("Time")
}

// Precision returns the time precision.
func (t Time) Precision() TimePrecision { return t.precision }

// Equal checks equality with another value. Times of different
// precision are never equal.
func (t Time) Equal(other Value) bool {
	o, ok := other.(Time)
	if !ok || t.precision != o.precision {
		return false
	}
	if t.hour != o.hour {
		return false
	}
	if t.precision >= MinutePrecision && t.minute != o.minute {
		return false
	}
	if t.precision >= SecondPrecision && t.second != o.second {
		return false
	}
	if t.precision >= MillisPrecision && t.millis != o.millis {
		return false
	}
	return true
}

// Equivalent checks equivalence with another value.
func (t Time) Equivalent(other Value) bool {
	return t.Equal(other)
}

// String returns the canonical literal form.
func (t Time) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%02d", t.hour)
	if t.precision >= MinutePrecision {
		fmt.Fprintf(&b, ":%02d", t.minute)
	}
	if t.precision >= SecondPrecision {
		fmt.Fprintf(&b, ":%02d", t.second)
	}
	if t.precision >= MillisPrecision {
		fmt.Fprintf(&b, ".%03d", t.millis)
	}
	return b.String()
}

// IsEmpty returns false for Time.
func (t Time) IsEmpty() bool {
	return false
}

// Compare orders two times. Shared components decide when precisions
// differ; equal shared components with differing precision return
// ErrIncomparable.
func (t Time) Compare(other Value) (int, error) {
	o, ok := other.(Time)
	if !ok {
		return 0, incomparable("Time", other.Type())
	}

	minPrecision := t.precision
	if o.precision < minPrecision {
		minPrecision = o.precision
	}
	if c := cmpInt(t.hour, o.hour); c != 0 {
		return c, nil
	}
	if minPrecision >= MinutePrecision {
		if c := cmpInt(t.minute, o.minute); c != 0 {
			return c, nil
		}
	}
	if minPrecision >= SecondPrecision {
		if c := cmpInt(t.second, o.second); c != 0 {
			return c, nil
		}
	}
	if minPrecision >= MillisPrecision {
		if c := cmpInt(t.millis, o.millis); c != 0 {
			return c, nil
		}
	}
	if t.precision != o.precision {
		return 0, fmt.Errorf("%w: times of differing precision", ErrIncomparable)
	}
	return 0, nil
}

// AddDuration adds a quantity of time, wrapping around midnight.
// Unsupported units return false.
func (t Time) AddDuration(value int64, unit string) (Time, bool) {
	var step int64
	switch canonicalCalendarUnit(unit) {
	case "hour":
		step = int64(gotime.Hour)
	case "minute":
		step = int64(gotime.Minute)
	case "second":
		step = int64(gotime.Second)
	case "millisecond":
		step = int64(gotime.Millisecond)
	default:
		return Time{}, false
	}
	const dayNanos = int64(24 * gotime.Hour)
	nanos := int64(t.hour)*int64(gotime.Hour) +
		int64(t.minute)*int64(gotime.Minute) +
		int64(t.second)*int64(gotime.Second) +
		int64(t.millis)*int64(gotime.Millisecond)
	nanos = ((nanos+value*step)%dayNanos + dayNanos) % dayNanos
	out := Time{
		hour:      int(nanos / int64(gotime.Hour)),
		minute:    int(nanos % int64(gotime.Hour) / int64(gotime.Minute)),
		second:    int(nanos % int64(gotime.Minute) / int64(gotime.Second)),
		millis:    int(nanos % int64(gotime.Second) / int64(gotime.Millisecond)),
		precision: t.precision,
	}
	if t.precision < MinutePrecision {
		out.minute = 0
	}
	if t.precision < SecondPrecision {
		out.second = 0
	}
	if t.precision < MillisPrecision {
		out.millis = 0
	}
	return out, true
}

// LowBoundary fills unspecified components with zero.
func (t Time) LowBoundary() Time {
	out := t
	out.precision = MillisPrecision
	if t.precision < MinutePrecision {
		out.minute = 0
	}
	if t.precision < SecondPrecision {
		out.second = 0
	}
	if t.precision < MillisPrecision {
		out.millis = 0
	}
	return out
}

// HighBoundary fills unspecified components with their maximum.
func (t Time) HighBoundary() Time {
	out := t
	out.precision = MillisPrecision
	if t.precision < MinutePrecision {
		out.minute = 59
	}
	if t.precision < SecondPrecision {
		out.second = 59
	}
	if t.precision < MillisPrecision {
		out.millis = 999
	}
	return out
}

// CanonicalLength is the character count of the canonical literal,
// reported by precision().
func (t Time) CanonicalLength() int {
	return len(t.String())
}
