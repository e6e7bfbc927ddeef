// Package query defines the catalogue of aggregation queries that turn raw
// trip records into monthly summary statistics. Each family returns one row
// per month in range, ordered by month ascending, with a "month" key plus
// the family's metric columns.
package query

import (
	"fmt"
	"time"

	"github.com/toddwschneider/chicago-taxi-dashboard-api/internal/catalog"
	"github.com/toddwschneider/chicago-taxi-dashboard-api/internal/dates"
	"github.com/toddwschneider/chicago-taxi-dashboard-api/internal/socrata"
	"github.com/toddwschneider/chicago-taxi-dashboard-api/internal/soql"
)

// Family identifies one of the aggregation query families.
type Family string

const (
	FamilyTrips                Family = "trips"
	FamilyUniqueVehicles       Family = "unique_vehicles"
	FamilyUniqueVehiclesPerDay Family = "unique_vehicles_per_day"
	FamilyAvgTimeDistanceFare  Family = "avg_time_distance_fare"
	FamilyPickupsByGeo         Family = "pickups_by_geo"
	FamilyLoopToOHare          Family = "weekday_afternoon_loop_to_ohare"
	FamilyNnsToLakeView        Family = "weekday_afternoon_nns_to_lv"
)

// Interval is a half-open timestamp interval [Lower, Upper).
type Interval struct {
	Lower time.Time
	Upper time.Time
}

// MonthInterval returns the half-open interval covering month's calendar
// month: [first day, first day of next month).
func MonthInterval(month time.Time) Interval {
	lower := dates.StartOfMonth(month)
	return Interval{Lower: lower, Upper: dates.NextMonth(lower)}
}

// Definition is a fully specified aggregation request: which dataset to hit,
// which shared-ride partition (TNP only) and the statement itself.
type Definition struct {
	Resource  catalog.Resource
	Shared    catalog.SharedStatus
	Family    Family
	Statement *soql.Statement
}

// Result tags one query's rows with the resource and partition they belong
// to, the unit the report merger consumes.
type Result struct {
	Resource catalog.Resource
	Shared   catalog.SharedStatus
	Rows     []socrata.Row
}

// ForMonth expands a (resource, month) pair into every query definition that
// contributes to that month's reports: seven for taxi, five for TNP times
// the four shared-ride partitions.
func ForMonth(resource catalog.Resource, month time.Time) []Definition {
	iv := MonthInterval(month)
	switch resource {
	case catalog.ResourceTaxi:
		return []Definition{
			{catalog.ResourceTaxi, catalog.SharedNone, FamilyTrips, taxiTrips(iv)},
			{catalog.ResourceTaxi, catalog.SharedNone, FamilyUniqueVehicles, taxiUniqueVehicles(iv)},
			{catalog.ResourceTaxi, catalog.SharedNone, FamilyUniqueVehiclesPerDay, taxiUniqueVehiclesPerDay(iv)},
			{catalog.ResourceTaxi, catalog.SharedNone, FamilyAvgTimeDistanceFare, taxiAvgTimeDistanceFare(iv)},
			{catalog.ResourceTaxi, catalog.SharedNone, FamilyPickupsByGeo, pickupsByGeo(iv, catalog.SharedNone)},
			{catalog.ResourceTaxi, catalog.SharedNone, FamilyLoopToOHare, loopToOHare(catalog.ResourceTaxi, iv, catalog.SharedNone)},
			{catalog.ResourceTaxi, catalog.SharedNone, FamilyNnsToLakeView, nnsToLakeView(catalog.ResourceTaxi, iv, catalog.SharedNone)},
		}
	case catalog.ResourceTNP:
		defs := make([]Definition, 0, 20)
		for _, shared := range catalog.SharedStatuses() {
			defs = append(defs,
				Definition{catalog.ResourceTNP, shared, FamilyTrips, tnpTrips(iv, shared)},
				Definition{catalog.ResourceTNP, shared, FamilyAvgTimeDistanceFare, tnpAvgTimeDistanceFare(iv, shared)},
				Definition{catalog.ResourceTNP, shared, FamilyPickupsByGeo, pickupsByGeo(iv, shared)},
				Definition{catalog.ResourceTNP, shared, FamilyLoopToOHare, loopToOHare(catalog.ResourceTNP, iv, shared)},
				Definition{catalog.ResourceTNP, shared, FamilyNnsToLakeView, nnsToLakeView(catalog.ResourceTNP, iv, shared)},
			)
		}
		return defs
	}
	panic(fmt.Sprintf("no query families for resource %q", resource))
}

// MostRecentTripStart selects the single newest trip timestamp in a dataset.
func MostRecentTripStart() *soql.Statement {
	return soql.New().
		Select("trip_start_timestamp").
		OrderBy("trip_start_timestamp DESC").
		Limit(1)
}

// DailyTrips counts trips per day over [start, end] inclusive.
func DailyTrips(start, end time.Time) *soql.Statement {
	return soql.New().
		Select(
			"date_trunc_ymd(trip_start_timestamp) AS date",
			"count(*) AS trips",
		).
		Where(
			"trip_start_timestamp >= "+soql.Time(start),
			"trip_start_timestamp < "+soql.Time(end.AddDate(0, 0, 1)),
		).
		GroupBy("date").
		OrderBy("date")
}

func intervalConditions(iv Interval) []string {
	return []string{
		"trip_start_timestamp >= " + soql.Time(iv.Lower),
		"trip_start_timestamp < " + soql.Time(iv.Upper),
	}
}

func sharedCondition(shared catalog.SharedStatus) []string {
	cond, ok := shared.Condition()
	if !ok {
		return nil
	}
	return []string{"(" + cond + ")"}
}

func taxiTrips(iv Interval) *soql.Statement {
	return soql.New().
		Select(
			"date_trunc_ym(trip_start_timestamp) AS month",
			"count(*) AS trips",
		).
		Where(intervalConditions(iv)...).
		GroupBy("month").
		OrderBy("month")
}

func tnpTrips(iv Interval, shared catalog.SharedStatus) *soql.Statement {
	return soql.New().
		Select(
			"date_trunc_ym(trip_start_timestamp) AS month",
			"count(*) AS trips",
			"sum(case(shared_trip_authorized = true, 1)) AS shared_trips_authorized",
			"sum(case(shared_trip_authorized = true AND trips_pooled > 1, 1)) AS shared_trips",
		).
		Where(intervalConditions(iv)...).
		Where(sharedCondition(shared)...).
		GroupBy("month").
		OrderBy("month")
}

// taxiUniqueVehicles aggregates in three stages: distinct vehicle-day pairs,
// then active days per vehicle per month, then the monthly average and the
// distinct vehicle count.
func taxiUniqueVehicles(iv Interval) *soql.Statement {
	return soql.New().
		Distinct().
		Select(
			"date_trunc_ym(trip_start_timestamp) AS month",
			"date_trunc_ymd(trip_start_timestamp) AS day",
			"taxi_id",
		).
		Where(intervalConditions(iv)...).
		Pipe().
		Select(
			"month",
			"taxi_id",
			"count(*) AS days_active",
		).
		GroupBy("month", "taxi_id").
		Pipe().
		Select(
			"month",
			"avg(days_active) AS avg_days_active_per_vehicle",
			"count(*) AS unique_vehicles",
		).
		GroupBy("month").
		OrderBy("month")
}

func taxiUniqueVehiclesPerDay(iv Interval) *soql.Statement {
	return soql.New().
		Distinct().
		Select(
			"date_trunc_ym(trip_start_timestamp) AS month",
			"date_trunc_ymd(trip_start_timestamp) AS day",
			"taxi_id",
		).
		Where(intervalConditions(iv)...).
		Pipe().
		Select(
			"month",
			"day",
			"count(*) AS unique_vehicles",
		).
		GroupBy("month", "day").
		Pipe().
		Select(
			"month",
			"avg(unique_vehicles) AS avg_unique_vehicles_per_day",
			"count(*) AS days_counted",
		).
		GroupBy("month").
		OrderBy("month")
}

// validTimeDistanceFare is the plausibility filter excluding data-entry
// errors and GPS artifacts before computing averages. The numeric bounds are
// fixed for historical comparability; do not adjust them.
func validTimeDistanceFare(resource catalog.Resource) []string {
	tipColumn := map[catalog.Resource]string{
		catalog.ResourceTaxi: "tips",
		catalog.ResourceTNP:  "tip",
	}[resource]

	return []string{
		"trip_miles BETWEEN 0.1 AND 200",
		"trip_seconds BETWEEN 60 AND 3 * 60 * 60",
		"trip_miles / (trip_seconds / (60 * 60)) BETWEEN 0.5 AND 80",
		"fare BETWEEN 2 AND 1000",
		"((fare - 3) / trip_miles BETWEEN 0.5 AND 25 OR (fare - 3) / trip_seconds * 60 BETWEEN 0.2 AND 5)",
		"coalesce(" + tipColumn + ", 0) < 2 * fare",
	}
}

// NB: no avg(trip_total) for taxis because cash fares exclude tips in
// trip_total, which makes the average misleading.
func taxiAvgTimeDistanceFare(iv Interval) *soql.Statement {
	return soql.New().
		Select(
			"date_trunc_ym(trip_start_timestamp) AS month",
			"avg(trip_miles) AS avg_trip_miles",
			"avg(trip_seconds) AS avg_trip_seconds",
			"avg(fare) AS avg_fare",
			"avg(case(lower(payment_type) == 'cash', fare + coalesce(tolls, 0) + coalesce(extras, 0))) AS avg_cash_total_ex_tip",
			"avg(case(lower(payment_type) in ('credit card', 'mobile'), fare + coalesce(tolls, 0) + coalesce(extras, 0))) AS avg_credit_card_total_ex_tip",
			"avg(case(lower(payment_type) in ('credit card', 'mobile'), tips)) AS avg_credit_card_tip",
			"avg(case(lower(payment_type) in ('credit card', 'mobile'), 1, lower(payment_type) == 'cash', 0)) AS frac_paid_with_credit_card",
			"avg(case(lower(payment_type) in ('credit card', 'mobile') AND coalesce(tips, 0) > 0, 1, lower(payment_type) in ('credit card', 'mobile'), 0)) AS credit_card_frac_with_tip",
			"avg(coalesce(tolls, 0)) AS avg_tolls",
			"avg(coalesce(extras, 0)) AS avg_extras",
			"count(*) AS trips_with_valid_time_distance_fare",
		).
		Where(intervalConditions(iv)...).
		Where(validTimeDistanceFare(catalog.ResourceTaxi)...).
		GroupBy("month").
		OrderBy("month")
}

func tnpAvgTimeDistanceFare(iv Interval, shared catalog.SharedStatus) *soql.Statement {
	return soql.New().
		Select(
			"date_trunc_ym(trip_start_timestamp) AS month",
			"avg(trip_miles) AS avg_trip_miles",
			"avg(trip_seconds) AS avg_trip_seconds",
			"avg(fare) AS avg_fare",
			"avg(coalesce(tip, 0)) AS avg_credit_card_tip",
			"avg(coalesce(additional_charges, 0)) AS avg_additional_charges",
			"avg(trip_total) AS avg_trip_total",
			"avg(case(coalesce(tip, 0) > 0, 1, true, 0)) AS credit_card_frac_with_tip",
			"count(*) AS trips_with_valid_time_distance_fare",
		).
		Where(intervalConditions(iv)...).
		Where(validTimeDistanceFare(catalog.ResourceTNP)...).
		Where(sharedCondition(shared)...).
		GroupBy("month").
		OrderBy("month")
}

// Community-area id buckets for pickup geography. Airport pickups are
// approximate: the O'Hare and Garfield Ridge community areas include more
// than just the airports.
var (
	within2MilesOfLoop    = []int{8, 28, 32, 33}
	within2To5MilesOfLoop = []int{6, 7, 22, 24, 27, 29, 31, 34, 35, 36, 37, 38, 59, 60}
	airportAreas          = []int{56, 76}
)

func pickupsByGeo(iv Interval, shared catalog.SharedStatus) *soql.Statement {
	excluded := make([]int, 0, len(within2MilesOfLoop)+len(within2To5MilesOfLoop)+len(airportAreas))
	excluded = append(excluded, within2MilesOfLoop...)
	excluded = append(excluded, within2To5MilesOfLoop...)
	excluded = append(excluded, airportAreas...)

	return soql.New().
		Select(
			"date_trunc_ym(trip_start_timestamp) AS month",
			fmt.Sprintf("sum(case(pickup_community_area IN (%s), 1)) AS pickups_within_2_miles_of_loop", soql.Ints(within2MilesOfLoop)),
			fmt.Sprintf("sum(case(pickup_community_area IN (%s), 1)) AS pickups_2_to_5_miles_from_loop", soql.Ints(within2To5MilesOfLoop)),
			fmt.Sprintf("sum(case(pickup_community_area NOT IN (%s), 1)) AS pickups_over_5_miles_from_loop_ex_airports", soql.Ints(excluded)),
			fmt.Sprintf("sum(case(pickup_community_area IN (%s), 1)) AS airports_pickups", soql.Ints(airportAreas)),
			"sum(case(pickup_community_area IS NULL, 1)) AS unknown_geo_pickups",
		).
		Where(intervalConditions(iv)...).
		Where(sharedCondition(shared)...).
		GroupBy("month").
		OrderBy("month")
}

type corridor struct {
	pickupAreas  []int
	dropoffAreas []int
	daysOfWeek   []int
	hoursOfDay   []int
	columnPrefix string
}

// Loop to O'Hare, weekday afternoons.
func loopToOHare(resource catalog.Resource, iv Interval, shared catalog.SharedStatus) *soql.Statement {
	return travelTimesBetween(resource, iv, shared, corridor{
		pickupAreas:  []int{32},
		dropoffAreas: []int{76},
		daysOfWeek:   []int{1, 2, 3, 4, 5},
		hoursOfDay:   []int{15, 16, 17},
		columnPrefix: "weekday_afternoon_loop_to_ohare_",
	})
}

// Near North Side to Lake View, weekday afternoons.
func nnsToLakeView(resource catalog.Resource, iv Interval, shared catalog.SharedStatus) *soql.Statement {
	return travelTimesBetween(resource, iv, shared, corridor{
		pickupAreas:  []int{8},
		dropoffAreas: []int{6},
		daysOfWeek:   []int{1, 2, 3, 4, 5},
		hoursOfDay:   []int{16, 17, 18, 19},
		columnPrefix: "weekday_afternoon_nns_to_lv_",
	})
}

func travelTimesBetween(resource catalog.Resource, iv Interval, shared catalog.SharedStatus, c corridor) *soql.Statement {
	var fareCalc string
	switch resource {
	case catalog.ResourceTaxi:
		fareCalc = "fare + coalesce(tolls, 0) + coalesce(extras, 0)"
	case catalog.ResourceTNP:
		fareCalc = "fare + coalesce(additional_charges, 0)"
	default:
		panic(fmt.Sprintf("no fare calculation for resource %q", resource))
	}

	stmt := soql.New().
		Select(
			"date_trunc_ym(trip_start_timestamp) AS month",
			fmt.Sprintf("avg(trip_miles) AS %savg_miles", c.columnPrefix),
			fmt.Sprintf("avg(trip_seconds) AS %savg_seconds", c.columnPrefix),
			fmt.Sprintf("avg(%s) AS %savg_trip_total_ex_tip", fareCalc, c.columnPrefix),
			fmt.Sprintf("count(*) AS %svalid_trips", c.columnPrefix),
		).
		Where(intervalConditions(iv)...).
		Where(
			fmt.Sprintf("pickup_community_area IN (%s)", soql.Ints(c.pickupAreas)),
			fmt.Sprintf("dropoff_community_area IN (%s)", soql.Ints(c.dropoffAreas)),
		).
		Where(validTimeDistanceFare(resource)...)

	if len(c.daysOfWeek) > 0 {
		stmt.Where(fmt.Sprintf("date_extract_dow(trip_start_timestamp) IN (%s)", soql.Ints(c.daysOfWeek)))
	}
	if len(c.hoursOfDay) > 0 {
		stmt.Where(fmt.Sprintf("date_extract_hh(trip_start_timestamp) IN (%s)", soql.Ints(c.hoursOfDay)))
	}

	return stmt.
		Where(sharedCondition(shared)...).
		GroupBy("month").
		OrderBy("month")
}
