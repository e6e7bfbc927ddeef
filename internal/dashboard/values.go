package dashboard

import (
	"time"

	"github.com/shopspring/decimal"
)

// Nil-propagating arithmetic over nullable metric columns. Any computation
// with a missing input or a zero denominator yields nil, which projects as
// an undefined (null) dashboard value.

func fromInt(p *int64) *float64 {
	if p == nil {
		return nil
	}
	f := float64(*p)
	return &f
}

func add(ps ...*float64) *float64 {
	sum := 0.0
	for _, p := range ps {
		if p == nil {
			return nil
		}
		sum += *p
	}
	return &sum
}

func addConst(a *float64, c float64) *float64 {
	if a == nil {
		return nil
	}
	v := *a + c
	return &v
}

func scale(a *float64, c float64) *float64 {
	if a == nil {
		return nil
	}
	v := *a * c
	return &v
}

func mul(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	v := *a * *b
	return &v
}

func div(a, b *float64) *float64 {
	if a == nil || b == nil || *b == 0 {
		return nil
	}
	v := *a / *b
	return &v
}

// round rounds to a fixed number of decimal places, half away from zero,
// and normalizes whole numbers to integers for output.
func round(a *float64, places int32) any {
	if a == nil {
		return nil
	}
	d := decimal.NewFromFloat(*a).Round(places)
	if d.IsInteger() {
		return d.IntPart()
	}
	f, _ := d.Float64()
	return f
}

func outInt(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

// monthMillis converts a month date to its millisecond epoch at start of
// day, the format the dashboard's charting layer consumes.
func monthMillis(month time.Time) int64 {
	return time.Date(month.Year(), month.Month(), month.Day(), 0, 0, 0, 0, time.UTC).Unix() * 1000
}
