package model

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// MonthlyReport is one persisted row of aggregate statistics per
// (month, trip_type). Month is normalized to the last calendar day of the
// reporting period. Metric columns are nullable because each query family
// populates its own disjoint subset of attributes on the same row.
type MonthlyReport struct {
	ID       uint      `gorm:"primaryKey"`
	TripType string    `gorm:"column:trip_type;not null;uniqueIndex:idx_monthly_reports_trip_type_month,priority:1"`
	Month    time.Time `gorm:"column:month;not null;uniqueIndex:idx_monthly_reports_trip_type_month,priority:2;index:idx_monthly_reports_month"`

	Trips                   *int64   `gorm:"column:trips"`
	UniqueVehicles          *int64   `gorm:"column:unique_vehicles"`
	AvgUniqueVehiclesPerDay *int64   `gorm:"column:avg_unique_vehicles_per_day"`
	AvgDaysActivePerVehicle *float64 `gorm:"column:avg_days_active_per_vehicle"`

	SharedTripsAuthorized *int64 `gorm:"column:shared_trips_authorized"`
	SharedTrips           *int64 `gorm:"column:shared_trips"`

	AvgTripSeconds                  *float64 `gorm:"column:avg_trip_seconds"`
	AvgTripMiles                    *float64 `gorm:"column:avg_trip_miles"`
	AvgFare                         *float64 `gorm:"column:avg_fare"`
	AvgCashTotalExTip               *float64 `gorm:"column:avg_cash_total_ex_tip"`
	AvgCreditCardTotalExTip         *float64 `gorm:"column:avg_credit_card_total_ex_tip"`
	AvgCreditCardTip                *float64 `gorm:"column:avg_credit_card_tip"`
	FracPaidWithCreditCard          *float64 `gorm:"column:frac_paid_with_credit_card"`
	CreditCardFracWithTip           *float64 `gorm:"column:credit_card_frac_with_tip"`
	AvgTolls                        *float64 `gorm:"column:avg_tolls"`
	AvgExtras                       *float64 `gorm:"column:avg_extras"`
	AvgAdditionalCharges            *float64 `gorm:"column:avg_additional_charges"`
	AvgTripTotal                    *float64 `gorm:"column:avg_trip_total"`
	TripsWithValidTimeDistanceFare  *int64   `gorm:"column:trips_with_valid_time_distance_fare"`

	PickupsWithin2MilesOfLoop            *int64 `gorm:"column:pickups_within_2_miles_of_loop"`
	Pickups2To5MilesFromLoop             *int64 `gorm:"column:pickups_2_to_5_miles_from_loop"`
	PickupsOver5MilesFromLoopExAirports  *int64 `gorm:"column:pickups_over_5_miles_from_loop_ex_airports"`
	AirportsPickups                      *int64 `gorm:"column:airports_pickups"`
	UnknownGeoPickups                    *int64 `gorm:"column:unknown_geo_pickups"`

	WeekdayAfternoonNnsToLvAvgMiles          *float64 `gorm:"column:weekday_afternoon_nns_to_lv_avg_miles"`
	WeekdayAfternoonNnsToLvAvgSeconds        *float64 `gorm:"column:weekday_afternoon_nns_to_lv_avg_seconds"`
	WeekdayAfternoonNnsToLvAvgTripTotalExTip *float64 `gorm:"column:weekday_afternoon_nns_to_lv_avg_trip_total_ex_tip"`
	WeekdayAfternoonNnsToLvValidTrips        *int64   `gorm:"column:weekday_afternoon_nns_to_lv_valid_trips"`

	WeekdayAfternoonLoopToOhareAvgMiles          *float64 `gorm:"column:weekday_afternoon_loop_to_ohare_avg_miles"`
	WeekdayAfternoonLoopToOhareAvgSeconds        *float64 `gorm:"column:weekday_afternoon_loop_to_ohare_avg_seconds"`
	WeekdayAfternoonLoopToOhareAvgTripTotalExTip *float64 `gorm:"column:weekday_afternoon_loop_to_ohare_avg_trip_total_ex_tip"`
	WeekdayAfternoonLoopToOhareValidTrips        *int64   `gorm:"column:weekday_afternoon_loop_to_ohare_valid_trips"`

	DaysCounted *int64 `gorm:"column:days_counted"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (MonthlyReport) TableName() string {
	return "chicago_monthly_reports"
}

type attributeKind int

const (
	attributeInt attributeKind = iota
	attributeFloat
)

// reportAttributes maps metric column names to their kinds, built once from
// the struct's gorm tags. trip_type and month are keys, not attributes.
var reportAttributes = buildReportAttributes()

func buildReportAttributes() map[string]attributeKind {
	attrs := make(map[string]attributeKind)
	t := reflect.TypeOf(MonthlyReport{})
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		column := columnName(field.Tag.Get("gorm"))
		if column == "" || column == "trip_type" || column == "month" {
			continue
		}
		switch field.Type {
		case reflect.TypeOf((*int64)(nil)):
			attrs[column] = attributeInt
		case reflect.TypeOf((*float64)(nil)):
			attrs[column] = attributeFloat
		}
	}
	return attrs
}

func columnName(gormTag string) string {
	for _, part := range strings.Split(gormTag, ";") {
		if strings.HasPrefix(part, "column:") {
			return strings.TrimPrefix(part, "column:")
		}
	}
	return ""
}

// RecognizedAttribute reports whether column is part of the report schema.
// Unknown columns in query results are skipped, which tolerates result-set
// drift at the data source without schema changes.
func RecognizedAttribute(column string) bool {
	_, ok := reportAttributes[column]
	return ok
}

// ParseAttribute coerces a string-typed query result value into the column's
// storage type. ok is false for columns outside the report schema. An empty
// raw value maps to nil (stored as NULL).
func ParseAttribute(column, raw string) (value any, ok bool, err error) {
	kind, ok := reportAttributes[column]
	if !ok {
		return nil, false, nil
	}
	if raw == "" {
		return nil, true, nil
	}
	switch kind {
	case attributeInt:
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n, true, nil
		}
		// aggregates occasionally come back with a fractional part
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, true, fmt.Errorf("parse %s=%q: %w", column, raw, err)
		}
		return int64(f), true, nil
	case attributeFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, true, fmt.Errorf("parse %s=%q: %w", column, raw, err)
		}
		return f, true, nil
	}
	return nil, false, nil
}
