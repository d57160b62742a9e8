package types

import (
	"errors"
	"testing"
)

func TestDateParsing(t *testing.T) {
	cases := []struct {
		text      string
		precision DatePrecision
	}{
		{"2014", YearPrecision},
		{"2014-05", MonthPrecision},
		{"2014-05-21", DayPrecision},
	}
	for _, tc := range cases {
		d, err := NewDate(tc.text)
		if err != nil {
			t.Fatalf("NewDate(%s): %v", tc.text, err)
		}
		if d.Precision() != tc.precision {
			t.Errorf("%s: precision %d, want %d", tc.text, d.Precision(), tc.precision)
		}
		if d.String() != tc.text {
			t.Errorf("%s: round-trip produced %s", tc.text, d.String())
		}
	}

	for _, bad := range []string{"14", "2014-13", "2014-05-99", "notadate"} {
		if _, err := NewDate(bad); err == nil {
			t.Errorf("NewDate(%s): expected error", bad)
		}
	}
}

func TestDatePrecisionSemantics(t *testing.T) {
	year := mustDate(t, "2014")
	month := mustDate(t, "2014-05")
	day := mustDate(t, "2014-05-21")

	t.Run("different precision is never equal", func(t *testing.T) {
		if year.Equal(month) || month.Equal(day) {
			t.Error("dates of different precision compared equal")
		}
	})

	t.Run("same shared prefix is ambiguous", func(t *testing.T) {
		_, err := year.Compare(month)
		if !errors.Is(err, ErrIncomparable) {
			t.Errorf("expected ambiguous comparison, got %v", err)
		}
	})

	t.Run("differing shared components still order", func(t *testing.T) {
		later := mustDate(t, "2015")
		c, err := later.Compare(day)
		if err != nil || c != 1 {
			t.Errorf("2015 vs 2014-05-21: got %d, %v", c, err)
		}
	})

	t.Run("same precision orders normally", func(t *testing.T) {
		c, err := mustDate(t, "2014-05-20").Compare(day)
		if err != nil || c != -1 {
			t.Errorf("expected -1, got %d, %v", c, err)
		}
	})
}

func TestDateArithmeticAndBoundaries(t *testing.T) {
	t.Run("add months preserves precision", func(t *testing.T) {
		d, ok := mustDate(t, "2014-05").AddDuration(3, "mo")
		if !ok || d.String() != "2014-08" {
			t.Errorf("expected 2014-08, got %s", d)
		}
	})

	t.Run("add days rolls over", func(t *testing.T) {
		d, ok := mustDate(t, "2014-12-31").AddDuration(1, "day")
		if !ok || d.String() != "2015-01-01" {
			t.Errorf("expected 2015-01-01, got %s", d)
		}
	})

	t.Run("unknown unit refuses", func(t *testing.T) {
		if _, ok := mustDate(t, "2014-01-01").AddDuration(1, "kg"); ok {
			t.Error("kg should not be a calendar unit")
		}
	})

	t.Run("boundaries fill min and max", func(t *testing.T) {
		low := mustDate(t, "2014-02").LowBoundary()
		high := mustDate(t, "2014-02").HighBoundary()
		if low.String() != "2014-02-01" {
			t.Errorf("low boundary %s", low)
		}
		if high.String() != "2014-02-28" {
			t.Errorf("high boundary %s", high)
		}
	})

	t.Run("leap year high boundary", func(t *testing.T) {
		high := mustDate(t, "2016-02").HighBoundary()
		if high.String() != "2016-02-29" {
			t.Errorf("high boundary %s", high)
		}
	})
}

func TestDateTime(t *testing.T) {
	t.Run("parses partial forms", func(t *testing.T) {
		cases := []struct {
			text      string
			precision DateTimePrecision
		}{
			{"2014", DTYearPrecision},
			{"2014-05-21", DTDayPrecision},
			{"2014-05-21T14", DTHourPrecision},
			{"2014-05-21T14:30:28", DTSecondPrecision},
			{"2014-05-21T14:30:28.123", DTMillisPrecision},
		}
		for _, tc := range cases {
			dt, err := NewDateTime(tc.text)
			if err != nil {
				t.Fatalf("NewDateTime(%s): %v", tc.text, err)
			}
			if dt.Precision() != tc.precision {
				t.Errorf("%s: precision %d, want %d", tc.text, dt.Precision(), tc.precision)
			}
			if dt.String() != tc.text {
				t.Errorf("%s: round-trip produced %s", tc.text, dt.String())
			}
		}
	})

	t.Run("timezone offsets normalize for comparison", func(t *testing.T) {
		a, _ := NewDateTime("2014-05-21T14:00:00+02:00")
		b, _ := NewDateTime("2014-05-21T12:00:00Z")
		if !a.Equal(b) {
			t.Error("instants in different zones should be equal")
		}
	})

	t.Run("precision canonical length", func(t *testing.T) {
		dt, _ := NewDateTime("2014-01-05T10:30:00.000-05:00")
		if dt.CanonicalLength() != 23 {
			t.Errorf("expected canonical length 23, got %d", dt.CanonicalLength())
		}
	})

	t.Run("high boundary fills maxima", func(t *testing.T) {
		dt, _ := NewDateTime("2014-05-21T14")
		high := dt.HighBoundary()
		if high.String() != "2014-05-21T14:59:59.999" {
			t.Errorf("high boundary %s", high)
		}
	})
}

func TestTime(t *testing.T) {
	t.Run("parses with precision", func(t *testing.T) {
		tm, err := NewTime("14:30")
		if err != nil || tm.Precision() != MinutePrecision {
			t.Fatalf("NewTime: %v, precision %d", err, tm.Precision())
		}
		if tm.String() != "14:30" {
			t.Errorf("round-trip produced %s", tm.String())
		}
	})

	t.Run("wraps around midnight", func(t *testing.T) {
		tm, _ := NewTime("23:30")
		moved, ok := tm.AddDuration(45, "min")
		if !ok || moved.String() != "00:15" {
			t.Errorf("expected 00:15, got %s", moved)
		}
	})

	t.Run("ambiguous precision comparison", func(t *testing.T) {
		a, _ := NewTime("14:30")
		b, _ := NewTime("14:30:15")
		if _, err := a.Compare(b); !errors.Is(err, ErrIncomparable) {
			t.Errorf("expected ambiguous, got %v", err)
		}
	})

	t.Run("boundaries", func(t *testing.T) {
		tm, _ := NewTime("14")
		if tm.LowBoundary().String() != "14:00:00.000" {
			t.Errorf("low boundary %s", tm.LowBoundary())
		}
		if tm.HighBoundary().String() != "14:59:59.999" {
			t.Errorf("high boundary %s", tm.HighBoundary())
		}
	})
}
