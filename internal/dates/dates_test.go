package dates

import (
	"testing"
	"time"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func TestEndOfMonth(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"mid january", d(2020, time.January, 15), d(2020, time.January, 31)},
		{"leap february", d(2020, time.February, 1), d(2020, time.February, 29)},
		{"non-leap february", d(2019, time.February, 28), d(2019, time.February, 28)},
		{"already last day", d(2020, time.April, 30), d(2020, time.April, 30)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EndOfMonth(tt.in); !got.Equal(tt.want) {
				t.Errorf("EndOfMonth(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestAddMonths(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		n    int
		want time.Time
	}{
		{"forward one", d(2020, time.January, 31), 1, d(2020, time.February, 1)},
		{"back one from march", d(2020, time.March, 15), -1, d(2020, time.February, 1)},
		{"across year end", d(2019, time.December, 31), 1, d(2020, time.January, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AddMonths(tt.in, tt.n); !got.Equal(tt.want) {
				t.Errorf("AddMonths(%v, %d) = %v, want %v", tt.in, tt.n, got, tt.want)
			}
		})
	}
}

func TestDaysInMonth(t *testing.T) {
	if got := DaysInMonth(d(2020, time.February, 10)); got != 29 {
		t.Errorf("DaysInMonth(2020-02) = %d, want 29", got)
	}
	if got := DaysInMonth(d(2021, time.February, 10)); got != 28 {
		t.Errorf("DaysInMonth(2021-02) = %d, want 28", got)
	}
}

func TestDateOnly(t *testing.T) {
	in := time.Date(2020, time.March, 15, 14, 30, 45, 123, time.UTC)
	if got := DateOnly(in); !got.Equal(d(2020, time.March, 15)) {
		t.Errorf("DateOnly(%v) = %v", in, got)
	}
}
