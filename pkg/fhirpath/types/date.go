package types

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Date represents a FHIRPath date value. Partial dates (year,
// year-month) carry their precision; truncation is never implicit.
type Date struct {
	year      int
	month     int // 0 if not specified
	day       int // 0 if not specified
	precision DatePrecision
}

// DatePrecision indicates the precision of a date.
type DatePrecision int

const (
	YearPrecision DatePrecision = iota
	MonthPrecision
	DayPrecision
)

var (
	dateYearPattern  = regexp.MustCompile(`^(\d{4})$`)
	dateMonthPattern = regexp.MustCompile(`^(\d{4})-(\d{2})$`)
	dateDayPattern   = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
)

// NewDate creates a Date from literal text (without the @ prefix).
func NewDate(s string) (Date, error) {
	if m := dateDayPattern.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if month < 1 || month > 12 || day < 1 || day > 31 {
			return Date{}, fmt.Errorf("invalid date: %s", s)
		}
		return Date{year: year, month: month, day: day, precision: DayPrecision}, nil
	}
	if m := dateMonthPattern.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		if month < 1 || month > 12 {
			return Date{}, fmt.Errorf("invalid date: %s", s)
		}
		return Date{year: year, month: month, precision: MonthPrecision}, nil
	}
	if m := dateYearPattern.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		return Date{year: year, precision: YearPrecision}, nil
	}
	return Date{}, fmt.Errorf("invalid date format: %s", s)
}

// NewDateYMD builds a full-precision date from components.
func NewDateYMD(year, month, day int) Date {
	return Date{year: year, month: month, day: day, precision: DayPrecision}
}

// NewDateFromTime creates a day-precision Date from a time.Time.
func NewDateFromTime(t time.Time) Date {
	return Date{
		year:      t.Year(),
		month:     int(t.Month()),
		day:       t.Day(),
		precision: DayPrecision,
	}
}

// Type returns "Date".
func (d Date) Type() string {
	return "Date"
}

// TypeInfo returns System.Date.
func (d Date) TypeInfo() TypeInfo {
	return SystemType("Date")
}

// Equal checks equality with another value. Dates of different
// precision are never equal.
func (d Date) Equal(other Value) bool {
	o, ok := other.(Date)
	if !ok || d.precision != o.precision {
		return false
	}
	if d.year != o.year {
		return false
	}
	if d.precision >= MonthPrecision && d.month != o.month {
		return false
	}
	if d.precision >= DayPrecision && d.day != o.day {
		return false
	}
	return true
}

// Equivalent checks equivalence with another value.
func (d Date) Equivalent(other Value) bool {
	return d.Equal(other)
}

// String returns the canonical literal form.
func (d Date) String() string {
	switch d.precision {
	case YearPrecision:
		return fmt.Sprintf("%04d", d.year)
	case MonthPrecision:
		return fmt.Sprintf("%04d-%02d", d.year, d.month)
	default:
		return fmt.Sprintf("%04d-%02d-%02d", d.year, d.month, d.day)
	}
}

// IsEmpty returns false for Date.
func (d Date) IsEmpty() bool {
	return false
}

// Year returns the year component.
func (d Date) Year() int { return d.year }

// Month returns the month component (0 if not specified).
func (d Date) Month() int { return d.month }

// Day returns the day component (0 if not specified).
func (d Date) Day() int { return d.day }

// Precision returns the date precision.
func (d Date) Precision() DatePrecision { return d.precision }

// ToTime converts to time.Time, defaulting missing components.
func (d Date) ToTime() time.Time {
	month := d.month
	if month == 0 {
		month = 1
	}
	day := d.day
	if day == 0 {
		day = 1
	}
	return time.Date(d.year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// ToDateTime widens to a DateTime of the same precision.
func (d Date) ToDateTime() DateTime {
	dt := DateTime{year: d.year, month: d.month, day: d.day}
	switch d.precision {
	case YearPrecision:
		dt.precision = DTYearPrecision
	case MonthPrecision:
		dt.precision = DTMonthPrecision
	default:
		dt.precision = DTDayPrecision
	}
	return dt
}

// Compare orders two dates. When precisions differ the comparison is
// decided on the shared components; if those are equal the ordering is
// ambiguous and ErrIncomparable is returned so the operator yields
// empty.
func (d Date) Compare(other Value) (int, error) {
	o, ok := other.(Date)
	if !ok {
		if dt, isDT := other.(DateTime); isDT {
			return d.ToDateTime().Compare(dt)
		}
		return 0, incomparable("Date", other.Type())
	}

	if c := cmpInt(d.year, o.year); c != 0 {
		return c, nil
	}
	minPrecision := d.precision
	if o.precision < minPrecision {
		minPrecision = o.precision
	}
	if minPrecision >= MonthPrecision {
		if c := cmpInt(d.month, o.month); c != 0 {
			return c, nil
		}
	}
	if minPrecision >= DayPrecision {
		if c := cmpInt(d.day, o.day); c != 0 {
			return c, nil
		}
	}
	if d.precision != o.precision {
		return 0, fmt.Errorf("%w: dates of precision %d and %d", ErrIncomparable, d.precision, o.precision)
	}
	return 0, nil
}

// AddDuration adds a quantity of calendar time. Unsupported units
// return false.
func (d Date) AddDuration(value int64, unit string) (Date, bool) {
	t := d.ToTime()
	switch canonicalCalendarUnit(unit) {
	case "year":
		t = t.AddDate(int(value), 0, 0)
	case "month":
		t = t.AddDate(0, int(value), 0)
	case "week":
		t = t.AddDate(0, 0, int(value)*7)
	case "day":
		t = t.AddDate(0, 0, int(value))
	default:
		return Date{}, false
	}
	result := Date{
		year:      t.Year(),
		month:     int(t.Month()),
		day:       t.Day(),
		precision: d.precision,
	}
	if d.precision < MonthPrecision {
		result.month = 0
	}
	if d.precision < DayPrecision {
		result.day = 0
	}
	return result, true
}

// LowBoundary fills unspecified components with their minimum, giving
// the earliest date covered by this partial date.
func (d Date) LowBoundary() Date {
	result := Date{year: d.year, month: d.month, day: d.day, precision: DayPrecision}
	if d.precision < MonthPrecision {
		result.month = 1
	}
	if d.precision < DayPrecision {
		result.day = 1
	}
	return result
}

// HighBoundary fills unspecified components with their maximum, giving
// the latest date covered by this partial date.
func (d Date) HighBoundary() Date {
	result := Date{year: d.year, month: d.month, day: d.day, precision: DayPrecision}
	if d.precision < MonthPrecision {
		result.month = 12
	}
	if d.precision < DayPrecision {
		result.day = daysInMonth(result.year, result.month)
	}
	return result
}

// CanonicalLength is the character count of the canonical literal,
// reported by precision().
func (d Date) CanonicalLength() int {
	return len(d.String())
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func daysInMonth(year, month int) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// canonicalCalendarUnit maps calendar words and UCUM codes onto the
// unit names used by duration arithmetic.
func canonicalCalendarUnit(unit string) string {
	switch unit {
	case "year", "years", "a":
		return "year"
	case "month", "months", "mo":
		return "month"
	case "week", "weeks", "wk":
		return "week"
	case "day", "days", "d":
		return "day"
	case "hour", "hours", "h":
		return "hour"
	case "minute", "minutes", "min":
		return "minute"
	case "second", "seconds", "s":
		return "second"
	case "millisecond", "milliseconds", "ms":
		return "millisecond"
	}
	return ""
}
