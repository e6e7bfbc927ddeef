// Package dashboard turns persisted raw aggregates into the columnar,
// presentation-ready payload the public dashboard renders.
package dashboard

import (
	"context"
	"time"

	"github.com/toddwschneider/chicago-taxi-dashboard-api/internal/catalog"
	"github.com/toddwschneider/chicago-taxi-dashboard-api/internal/model"
	"github.com/toddwschneider/chicago-taxi-dashboard-api/internal/repository"
)

// yoyCutover gates the taxi year-over-year series: months before it have an
// incomplete comparison history and project as undefined. The TNP series has
// no gate; its data starts late enough that the lookback alone suffices.
// The two formulas are intentionally kept separate.
var yoyCutover = time.Date(2017, time.January, 1, 0, 0, 0, 0, time.UTC)

// Columns maps a field name to its value sequence, aligned across months.
// Undefined values (missing attributes, zero denominators, too-short growth
// history) appear as nil, never as a fabricated number.
type Columns map[string][]any

// Payload maps each trip_type to its Columns, plus "taxi_date" / "tnp_date"
// human-readable labels for the newest month present.
type Payload map[string]any

type Projector struct {
	reports *repository.ReportRepository
}

func NewProjector(reports *repository.ReportRepository) *Projector {
	return &Projector{reports: reports}
}

// DashboardData computes the taxi and TNP projections independently and
// merges them into one payload.
func (p *Projector) DashboardData(ctx context.Context) (Payload, error) {
	payload, err := p.TaxiData(ctx)
	if err != nil {
		return nil, err
	}
	tnp, err := p.TNPData(ctx)
	if err != nil {
		return nil, err
	}
	for k, v := range tnp {
		payload[k] = v
	}
	return payload, nil
}

func (p *Projector) TaxiData(ctx context.Context) (Payload, error) {
	return p.project(ctx, catalog.TaxiTripTypes, "taxi_date", taxiFields, taxiRow, taxiGrowthSeries)
}

func (p *Projector) TNPData(ctx context.Context) (Payload, error) {
	return p.project(ctx, catalog.TNPTripTypes, "tnp_date", tnpFields, tnpRow, tnpGrowthSeries)
}

func (p *Projector) project(
	ctx context.Context,
	tripTypes []string,
	dateKey string,
	fields []string,
	rowFn func(*model.MonthlyReport) map[string]any,
	growthFn func([]model.MonthlyReport) []any,
) (Payload, error) {
	reports, err := p.reports.ReportsSince(ctx, tripTypes, catalog.DashboardStartDate)
	if err != nil {
		return nil, err
	}

	payload := Payload{}
	if len(reports) == 0 {
		return payload, nil
	}

	var maxMonth time.Time
	for _, r := range reports {
		if r.Month.After(maxMonth) {
			maxMonth = r.Month
		}
	}
	payload[dateKey] = maxMonth.Format("Jan 2, 2006")

	for _, group := range groupByTripType(reports) {
		columns := make(Columns, len(fields))
		for _, field := range fields {
			columns[field] = make([]any, 0, len(group.rows))
		}
		for i := range group.rows {
			values := rowFn(&group.rows[i])
			for _, field := range fields {
				columns[field] = append(columns[field], values[field])
			}
		}
		columns["trips_growth_yoy"] = growthFn(group.rows)
		payload[group.tripType] = columns
	}

	return payload, nil
}

type tripTypeGroup struct {
	tripType string
	rows     []model.MonthlyReport
}

// groupByTripType splits rows (already ordered by trip_type, month) into
// per-type groups, preserving month order within each.
func groupByTripType(reports []model.MonthlyReport) []tripTypeGroup {
	var groups []tripTypeGroup
	for _, r := range reports {
		if len(groups) == 0 || groups[len(groups)-1].tripType != r.TripType {
			groups = append(groups, tripTypeGroup{tripType: r.TripType})
		}
		groups[len(groups)-1].rows = append(groups[len(groups)-1].rows, r)
	}
	return groups
}

var taxiFields = []string{
	"month",
	"trips_per_day",
	"unique_vehicles",
	"trips_per_vehicle",
	"avg_unique_vehicles_per_day",
	"trips_per_day_per_active_vehicle",
	"trip_in_progress_hours_per_day_per_active_vehicle",
	"avg_days_active_per_vehicle",
	"avg_trip_minutes",
	"avg_trip_miles",
	"avg_trip_mph",
	"pickups_within_2_miles_of_loop",
	"pickups_2_to_5_miles_from_loop",
	"pickups_over_5_miles_from_loop_ex_airports",
	"airports_pickups",
	"unknown_geo_pickups",
	"weekday_afternoon_nns_to_lv_avg_miles",
	"weekday_afternoon_nns_to_lv_avg_minutes",
	"weekday_afternoon_nns_to_lv_avg_trip_total_ex_tip",
	"weekday_afternoon_nns_to_lv_trips_per_day",
	"weekday_afternoon_loop_to_ohare_avg_miles",
	"weekday_afternoon_loop_to_ohare_avg_minutes",
	"weekday_afternoon_loop_to_ohare_avg_trip_total_ex_tip",
	"weekday_afternoon_loop_to_ohare_trips_per_day",
	"trips_growth_yoy",
	"avg_total_ex_tip",
	"avg_credit_card_tip_pct",
	"credit_card_pct_with_tip",
	"estimated_daily_farebox",
	"estimated_monthly_farebox_per_vehicle",
	"estimated_daily_farebox_per_active_vehicle",
	"avg_farebox_per_minute",
	"avg_farebox_per_mile",
	"pct_trips_with_valid_time_distance_fare",
}

func taxiRow(r *model.MonthlyReport) map[string]any {
	days := float64(r.Month.Day()) // month is the period's last day
	trips := fromInt(r.Trips)
	uniqueVehicles := fromInt(r.UniqueVehicles)
	activePerDay := fromInt(r.AvgUniqueVehiclesPerDay)
	fareboxPerTrip := add(r.AvgFare, r.AvgTolls, r.AvgExtras)

	return map[string]any{
		"month":                       monthMillis(r.Month),
		"trips_per_day":               round(scale(trips, 1/days), 0),
		"unique_vehicles":             outInt(r.UniqueVehicles),
		"trips_per_vehicle":           round(div(trips, uniqueVehicles), 0),
		"avg_unique_vehicles_per_day": outInt(r.AvgUniqueVehiclesPerDay),
		"trips_per_day_per_active_vehicle": round(
			div(scale(trips, 1/days), activePerDay), 1),
		"trip_in_progress_hours_per_day_per_active_vehicle": round(
			div(mul(scale(r.AvgTripSeconds, 1.0/3600), scale(trips, 1/days)), activePerDay), 1),
		"avg_days_active_per_vehicle": round(r.AvgDaysActivePerVehicle, 1),
		"avg_trip_minutes":            round(scale(r.AvgTripSeconds, 1.0/60), 1),
		"avg_trip_miles":              round(r.AvgTripMiles, 2),
		"avg_trip_mph":                round(scale(div(r.AvgTripMiles, r.AvgTripSeconds), 3600), 1),

		"pickups_within_2_miles_of_loop":             round(scale(fromInt(r.PickupsWithin2MilesOfLoop), 1/days), 0),
		"pickups_2_to_5_miles_from_loop":             round(scale(fromInt(r.Pickups2To5MilesFromLoop), 1/days), 0),
		"pickups_over_5_miles_from_loop_ex_airports": round(scale(fromInt(r.PickupsOver5MilesFromLoopExAirports), 1/days), 0),
		"airports_pickups":                           round(scale(fromInt(r.AirportsPickups), 1/days), 0),
		"unknown_geo_pickups":                        round(scale(fromInt(r.UnknownGeoPickups), 1/days), 0),

		"weekday_afternoon_nns_to_lv_avg_miles":             round(r.WeekdayAfternoonNnsToLvAvgMiles, 2),
		"weekday_afternoon_nns_to_lv_avg_minutes":           round(scale(r.WeekdayAfternoonNnsToLvAvgSeconds, 1.0/60), 1),
		"weekday_afternoon_nns_to_lv_avg_trip_total_ex_tip": round(r.WeekdayAfternoonNnsToLvAvgTripTotalExTip, 2),
		"weekday_afternoon_nns_to_lv_trips_per_day":         round(scale(fromInt(r.WeekdayAfternoonNnsToLvValidTrips), 1/days), 0),

		"weekday_afternoon_loop_to_ohare_avg_miles":             round(r.WeekdayAfternoonLoopToOhareAvgMiles, 2),
		"weekday_afternoon_loop_to_ohare_avg_minutes":           round(scale(r.WeekdayAfternoonLoopToOhareAvgSeconds, 1.0/60), 1),
		"weekday_afternoon_loop_to_ohare_avg_trip_total_ex_tip": round(r.WeekdayAfternoonLoopToOhareAvgTripTotalExTip, 2),
		"weekday_afternoon_loop_to_ohare_trips_per_day":         round(scale(fromInt(r.WeekdayAfternoonLoopToOhareValidTrips), 1/days), 0),

		"avg_total_ex_tip":        round(fareboxPerTrip, 2),
		"avg_credit_card_tip_pct": round(scale(div(r.AvgCreditCardTip, r.AvgCreditCardTotalExTip), 100), 1),
		"credit_card_pct_with_tip": round(
			scale(r.CreditCardFracWithTip, 100), 1),
		"estimated_daily_farebox":               round(scale(mul(trips, fareboxPerTrip), 1/days), 0),
		"estimated_monthly_farebox_per_vehicle": round(div(mul(trips, fareboxPerTrip), uniqueVehicles), 0),
		"estimated_daily_farebox_per_active_vehicle": round(
			div(scale(mul(trips, fareboxPerTrip), 1/days), activePerDay), 0),
		"avg_farebox_per_minute": round(scale(div(fareboxPerTrip, r.AvgTripSeconds), 60), 2),
		"avg_farebox_per_mile":   round(div(fareboxPerTrip, r.AvgTripMiles), 2),
		"pct_trips_with_valid_time_distance_fare": round(
			scale(div(fromInt(r.TripsWithValidTimeDistanceFare), trips), 100), 1),
	}
}

var tnpFields = []string{
	"month",
	"trips_per_day",
	"avg_trip_minutes",
	"avg_trip_miles",
	"avg_trip_mph",
	"pickups_within_2_miles_of_loop",
	"pickups_2_to_5_miles_from_loop",
	"pickups_over_5_miles_from_loop_ex_airports",
	"airports_pickups",
	"unknown_geo_pickups",
	"weekday_afternoon_nns_to_lv_avg_miles",
	"weekday_afternoon_nns_to_lv_avg_minutes",
	"weekday_afternoon_nns_to_lv_avg_trip_total_ex_tip",
	"weekday_afternoon_nns_to_lv_trips_per_day",
	"weekday_afternoon_loop_to_ohare_avg_miles",
	"weekday_afternoon_loop_to_ohare_avg_minutes",
	"weekday_afternoon_loop_to_ohare_avg_trip_total_ex_tip",
	"weekday_afternoon_loop_to_ohare_trips_per_day",
	"trips_growth_yoy",
	"avg_total_ex_tip",
	"avg_credit_card_tip_pct",
	"credit_card_pct_with_tip",
	"estimated_daily_farebox",
	"avg_farebox_per_minute",
	"avg_farebox_per_mile",
	"pct_share_requests_matched",
	"pct_trips_with_share_request",
	"pct_trips_with_valid_time_distance_fare",
}

func tnpRow(r *model.MonthlyReport) map[string]any {
	days := float64(r.Month.Day())
	trips := fromInt(r.Trips)
	fareboxPerTrip := add(r.AvgFare, r.AvgAdditionalCharges)

	return map[string]any{
		"month":            monthMillis(r.Month),
		"trips_per_day":    round(scale(trips, 1/days), 0),
		"avg_trip_minutes": round(scale(r.AvgTripSeconds, 1.0/60), 1),
		"avg_trip_miles":   round(r.AvgTripMiles, 2),
		"avg_trip_mph":     round(scale(div(r.AvgTripMiles, r.AvgTripSeconds), 3600), 1),

		"pickups_within_2_miles_of_loop":             round(scale(fromInt(r.PickupsWithin2MilesOfLoop), 1/days), 0),
		"pickups_2_to_5_miles_from_loop":             round(scale(fromInt(r.Pickups2To5MilesFromLoop), 1/days), 0),
		"pickups_over_5_miles_from_loop_ex_airports": round(scale(fromInt(r.PickupsOver5MilesFromLoopExAirports), 1/days), 0),
		"airports_pickups":                           round(scale(fromInt(r.AirportsPickups), 1/days), 0),
		"unknown_geo_pickups":                        round(scale(fromInt(r.UnknownGeoPickups), 1/days), 0),

		"weekday_afternoon_nns_to_lv_avg_miles":             round(r.WeekdayAfternoonNnsToLvAvgMiles, 2),
		"weekday_afternoon_nns_to_lv_avg_minutes":           round(scale(r.WeekdayAfternoonNnsToLvAvgSeconds, 1.0/60), 1),
		"weekday_afternoon_nns_to_lv_avg_trip_total_ex_tip": round(r.WeekdayAfternoonNnsToLvAvgTripTotalExTip, 2),
		"weekday_afternoon_nns_to_lv_trips_per_day":         round(scale(fromInt(r.WeekdayAfternoonNnsToLvValidTrips), 1/days), 0),

		"weekday_afternoon_loop_to_ohare_avg_miles":             round(r.WeekdayAfternoonLoopToOhareAvgMiles, 2),
		"weekday_afternoon_loop_to_ohare_avg_minutes":           round(scale(r.WeekdayAfternoonLoopToOhareAvgSeconds, 1.0/60), 1),
		"weekday_afternoon_loop_to_ohare_avg_trip_total_ex_tip": round(r.WeekdayAfternoonLoopToOhareAvgTripTotalExTip, 2),
		"weekday_afternoon_loop_to_ohare_trips_per_day":         round(scale(fromInt(r.WeekdayAfternoonLoopToOhareValidTrips), 1/days), 0),

		"avg_total_ex_tip":         round(fareboxPerTrip, 2),
		"avg_credit_card_tip_pct":  round(scale(div(r.AvgCreditCardTip, fareboxPerTrip), 100), 1),
		"credit_card_pct_with_tip": round(scale(r.CreditCardFracWithTip, 100), 1),
		"estimated_daily_farebox":  round(scale(mul(trips, fareboxPerTrip), 1/days), 0),
		"avg_farebox_per_minute":   round(scale(div(fareboxPerTrip, r.AvgTripSeconds), 60), 2),
		"avg_farebox_per_mile":     round(div(fareboxPerTrip, r.AvgTripMiles), 2),

		"pct_share_requests_matched": round(
			scale(div(fromInt(r.SharedTrips), fromInt(r.SharedTripsAuthorized)), 100), 1),
		"pct_trips_with_share_request": round(
			scale(div(fromInt(r.SharedTripsAuthorized), trips), 100), 1),
		"pct_trips_with_valid_time_distance_fare": round(
			scale(div(fromInt(r.TripsWithValidTimeDistanceFare), trips), 100), 1),
	}
}

// taxiGrowthSeries: round(100 * (trips/lag(trips, 12) - 1), 1), with the
// numerator gated on the cutover month.
func taxiGrowthSeries(rows []model.MonthlyReport) []any {
	values := make([]any, len(rows))
	for i := range rows {
		if rows[i].Month.Before(yoyCutover) || i < 12 {
			continue
		}
		ratio := div(fromInt(rows[i].Trips), fromInt(rows[i-12].Trips))
		values[i] = round(scale(addConst(ratio, -1), 100), 1)
	}
	return values
}

// tnpGrowthSeries: round(100 * trips/lag(trips, 12) - 100, 1), ungated.
func tnpGrowthSeries(rows []model.MonthlyReport) []any {
	values := make([]any, len(rows))
	for i := range rows {
		if i < 12 {
			continue
		}
		ratio := div(fromInt(rows[i].Trips), fromInt(rows[i-12].Trips))
		values[i] = round(addConst(scale(ratio, 100), -100), 1)
	}
	return values
}
