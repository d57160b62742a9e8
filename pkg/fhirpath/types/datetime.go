package types

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateTime represents a FHIRPath datetime value with explicit precision
// and an optional timezone offset.
type DateTime struct {
	year      int
	month     int
	day       int
	hour      int
	minute    int
	second    int
	millis    int
	tzOffset  int  // offset in minutes
	hasTZ     bool // whether a timezone was written
	precision DateTimePrecision
}

// DateTimePrecision indicates the precision of a datetime.
type DateTimePrecision int

const (
	DTYearPrecision DateTimePrecision = iota
	DTMonthPrecision
	DTDayPrecision
	DTHourPrecision
	DTMinutePrecision
	DTSecondPrecision
	DTMillisPrecision
)

var dateTimePattern = regexp.MustCompile(
	`^(\d{4})(?:-(\d{2})(?:-(\d{2})(?:T(\d{2})(?::(\d{2})(?::(\d{2})(?:\.(\d+))?)?)?)?)?)?(Z|[+-]\d{2}:\d{2})?$`,
)

// NewDateTime creates a DateTime from literal text (without the @
// prefix). A trailing T with no time component is accepted.
func NewDateTime(s string) (DateTime, error) {
	s = strings.TrimSuffix(s, "T")
	m := dateTimePattern.FindStringSubmatch(s)
	if m == nil {
		return DateTime{}, fmt.Errorf("invalid datetime format: %s", s)
	}

	dt := DateTime{}
	precision := DTYearPrecision
	dt.year, _ = strconv.Atoi(m[1])

	if m[2] != "" {
		dt.month, _ = strconv.Atoi(m[2])
		if dt.month < 1 || dt.month > 12 {
			return DateTime{}, fmt.Errorf("invalid month in datetime: %s", s)
		}
		precision = DTMonthPrecision
	}
	if m[3] != "" {
		dt.day, _ = strconv.Atoi(m[3])
		if dt.day < 1 || dt.day > 31 {
			return DateTime{}, fmt.Errorf("invalid day in datetime: %s", s)
		}
		precision = DTDayPrecision
	}
	if m[4] != "" {
		dt.hour, _ = strconv.Atoi(m[4])
		if dt.hour > 23 {
			return DateTime{}, fmt.Errorf("invalid hour in datetime: %s", s)
		}
		precision = DTHourPrecision
	}
	if m[5] != "" {
		dt.minute, _ = strconv.Atoi(m[5])
		if dt.minute > 59 {
			return DateTime{}, fmt.Errorf("invalid minute in datetime: %s", s)
		}
		precision = DTMinutePrecision
	}
	if m[6] != "" {
		dt.second, _ = strconv.Atoi(m[6])
		if dt.second > 59 {
			return DateTime{}, fmt.Errorf("invalid second in datetime: %s", s)
		}
		precision = DTSecondPrecision
	}
	if m[7] != "" {
		dt.millis = padMillis(m[7])
		precision = DTMillisPrecision
	}
	if m[8] != "" {
		dt.hasTZ = true
		dt.tzOffset = parseTZOffset(m[8])
	}

	dt.precision = precision
	return dt, nil
}

// NewDateTimeFromTime creates a millisecond-precision DateTime.
func NewDateTimeFromTime(t time.Time) DateTime {
	_, offset := t.Zone()
	return DateTime{
		year:      t.Year(),
		month:     int(t.Month()),
		day:       t.Day(),
		hour:      t.Hour(),
		minute:    t.Minute(),
		second:    t.Second(),
		millis:    t.Nanosecond() / int(time.Millisecond),
		tzOffset:  offset / 60,
		hasTZ:     true,
		precision: DTMillisPrecision,
	}
}

func padMillis(frac string) int {
	for len(frac) < 3 {
		frac += "0"
	}
	ms, _ := strconv.Atoi(frac[:3])
	return ms
}

func parseTZOffset(tz string) int {
	if tz == "Z" {
		return 0
	}
	sign := 1
	if tz[0] == '-' {
		sign = -1
	}
	hours, _ := strconv.Atoi(tz[1:3])
	minutes, _ := strconv.Atoi(tz[4:6])
	return sign * (hours*60 + minutes)
}

// Type returns "DateTime".
func (dt DateTime) Type() string {
	return "DateTime"
}

// TypeInfo returns System.DateTime.
func (dt DateTime) TypeInfo() TypeInfo {
	return SystemType("DateTime")
}

// Precision returns the datetime precision.
func (dt DateTime) Precision() DateTimePrecision { return dt.precision }

// Equal checks equality with another value. DateTimes of different
// precision are never equal; timezone offsets are normalized first.
func (dt DateTime) Equal(other Value) bool {
	o, ok := other.(DateTime)
	if !ok || dt.precision != o.precision {
		return false
	}
	if dt.precision >= DTHourPrecision {
		return dt.ToTime().Equal(o.ToTime())
	}
	return dt.year == o.year &&
		(dt.precision < DTMonthPrecision || dt.month == o.month) &&
		(dt.precision < DTDayPrecision || dt.day == o.day)
}

// Equivalent checks equivalence with another value.
func (dt DateTime) Equivalent(other Value) bool {
	return dt.Equal(other)
}

// String returns the canonical literal form.
func (dt DateTime) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%04d", dt.year)
	if dt.precision >= DTMonthPrecision {
		fmt.Fprintf(&b, "-%02d", dt.month)
	}
	if dt.precision >= DTDayPrecision {
		fmt.Fprintf(&b, "-%02d", dt.day)
	}
	if dt.precision >= DTHourPrecision {
		fmt.Fprintf(&b, "T%02d", dt.hour)
	}
	if dt.precision >= DTMinutePrecision {
		fmt.Fprintf(&b, ":%02d", dt.minute)
	}
	if dt.precision >= DTSecondPrecision {
		fmt.Fprintf(&b, ":%02d", dt.second)
	}
	if dt.precision >= DTMillisPrecision {
		fmt.Fprintf(&b, ".%03d", dt.millis)
	}
	if dt.hasTZ {
		b.WriteString(formatTZOffset(dt.tzOffset))
	}
	return b.String()
}

func formatTZOffset(offset int) string {
	if offset == 0 {
		return "Z"
	}
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	return fmt.Sprintf("%s%02d:%02d", sign, offset/60, offset%60)
}

// IsEmpty returns false for DateTime.
func (dt DateTime) IsEmpty() bool {
	return false
}

// ToTime converts to time.Time in the written zone, defaulting missing
// components.
func (dt DateTime) ToTime() time.Time {
	month := dt.month
	if month == 0 {
		month = 1
	}
	day := dt.day
	if day == 0 {
		day = 1
	}
	loc := time.UTC
	if dt.hasTZ && dt.tzOffset != 0 {
		loc = time.FixedZone("", dt.tzOffset*60)
	}
	return time.Date(dt.year, time.Month(month), day, dt.hour, dt.minute, dt.second,
		dt.millis*int(time.Millisecond), loc)
}

// ToDate truncates to a Date at the coarser of the two precisions.
func (dt DateTime) ToDate() Date {
	d := Date{year: dt.year, month: dt.month, day: dt.day}
	switch {
	case dt.precision >= DTDayPrecision:
		d.precision = DayPrecision
	case dt.precision == DTMonthPrecision:
		d.precision = MonthPrecision
		d.day = 0
	default:
		d.precision = YearPrecision
		d.month = 0
		d.day = 0
	}
	return d
}

// Compare orders two datetimes. Shared components decide when
// precisions differ; equal shared components with differing precision
// are ambiguous and return ErrIncomparable.
func (dt DateTime) Compare(other Value) (int, error) {
	o, ok := other.(DateTime)
	if !ok {
		if d, isDate := other.(Date); isDate {
			return dt.Compare(d.ToDateTime())
		}
		return 0, incomparable("DateTime", other.Type())
	}

	minPrecision := dt.precision
	if o.precision < minPrecision {
		minPrecision = o.precision
	}

	// Time-of-day components shift across zones, so compare instants
	// truncated to the shared precision when both carry a time part.
	if minPrecision >= DTHourPrecision {
		t1 := dt.truncateTo(minPrecision).ToTime()
		t2 := o.truncateTo(minPrecision).ToTime()
		if t1.Before(t2) {
			return -1, nil
		}
		if t1.After(t2) {
			return 1, nil
		}
	} else {
		fields := [][2]int{
			{dt.year, o.year},
			{dt.month, o.month},
			{dt.day, o.day},
		}
		limits := []DateTimePrecision{DTYearPrecision, DTMonthPrecision, DTDayPrecision}
		for i, pair := range fields {
			if minPrecision < limits[i] {
				break
			}
			if c := cmpInt(pair[0], pair[1]); c != 0 {
				return c, nil
			}
		}
	}
	if dt.precision != o.precision {
		return 0, fmt.Errorf("%w: datetimes of differing precision", ErrIncomparable)
	}
	return 0, nil
}

// truncateTo zeroes components finer than p so instant comparison
// respects declared precision.
func (dt DateTime) truncateTo(p DateTimePrecision) DateTime {
	out := dt
	if p < DTMinutePrecision {
		out.minute = 0
	}
	if p < DTSecondPrecision {
		out.second = 0
	}
	if p < DTMillisPrecision {
		out.millis = 0
	}
	return out
}

// AddDuration adds a quantity of time. Unsupported units return false.
func (dt DateTime) AddDuration(value int64, unit string) (DateTime, bool) {
	t := dt.ToTime()
	switch canonicalCalendarUnit(unit) {
	case "year":
		t = t.AddDate(int(value), 0, 0)
	case "month":
		t = t.AddDate(0, int(value), 0)
	case "week":
		t = t.AddDate(0, 0, int(value)*7)
	case "day":
		t = t.AddDate(0, 0, int(value))
	case "hour":
		t = t.Add(time.Duration(value) * time.Hour)
	case "minute":
		t = t.Add(time.Duration(value) * time.Minute)
	case "second":
		t = t.Add(time.Duration(value) * time.Second)
	case "millisecond":
		t = t.Add(time.Duration(value) * time.Millisecond)
	default:
		return DateTime{}, false
	}
	result := DateTime{
		year:      t.Year(),
		month:     int(t.Month()),
		day:       t.Day(),
		hour:      t.Hour(),
		minute:    t.Minute(),
		second:    t.Second(),
		millis:    t.Nanosecond() / int(time.Millisecond),
		tzOffset:  dt.tzOffset,
		hasTZ:     dt.hasTZ,
		precision: dt.precision,
	}
	result.clearBelowPrecision()
	return result, true
}

func (dt *DateTime) clearBelowPrecision() {
	if dt.precision < DTMonthPrecision {
		dt.month = 0
	}
	if dt.precision < DTDayPrecision {
		dt.day = 0
	}
	if dt.precision < DTHourPrecision {
		dt.hour = 0
	}
	if dt.precision < DTMinutePrecision {
		dt.minute = 0
	}
	if dt.precision < DTSecondPrecision {
		dt.second = 0
	}
	if dt.precision < DTMillisPrecision {
		dt.millis = 0
	}
}

// LowBoundary fills unspecified components with their minimum.
func (dt DateTime) LowBoundary() DateTime {
	out := dt
	out.precision = DTMillisPrecision
	if dt.precision < DTMonthPrecision {
		out.month = 1
	}
	if dt.precision < DTDayPrecision {
		out.day = 1
	}
	if dt.precision < DTHourPrecision {
		out.hour = 0
	}
	if dt.precision < DTMinutePrecision {
		out.minute = 0
	}
	if dt.precision < DTSecondPrecision {
		out.second = 0
	}
	if dt.precision < DTMillisPrecision {
		out.millis = 0
	}
	return out
}

// HighBoundary fills unspecified components with their maximum
// (December, last day of month, 23:59:59.999).
func (dt DateTime) HighBoundary() DateTime {
	out := dt
	out.precision = DTMillisPrecision
	if dt.precision < DTMonthPrecision {
		out.month = 12
	}
	if dt.precision < DTDayPrecision {
		out.day = daysInMonth(out.year, out.month)
	}
	if dt.precision < DTHourPrecision {
		out.hour = 23
	}
	if dt.precision < DTMinutePrecision {
		out.minute = 59
	}
	if dt.precision < DTSecondPrecision {
		out.second = 59
	}
	if dt.precision < DTMillisPrecision {
		out.millis = 999
	}
	return out
}

// CanonicalLength is the character count of the canonical literal
// without the timezone, reported by precision().
func (dt DateTime) CanonicalLength() int {
	s := dt.String()
	if dt.hasTZ {
		s = strings.TrimSuffix(s, formatTZOffset(dt.tzOffset))
	}
	return len(s)
}
