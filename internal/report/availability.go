package report

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/toddwschneider/chicago-taxi-dashboard-api/internal/catalog"
	"github.com/toddwschneider/chicago-taxi-dashboard-api/internal/dates"
	"github.com/toddwschneider/chicago-taxi-dashboard-api/internal/query"
	"github.com/toddwschneider/chicago-taxi-dashboard-api/internal/repository"
	"github.com/toddwschneider/chicago-taxi-dashboard-api/internal/socrata"
)

// AvailabilityTracker decides which months are complete at the data source
// and drives the sequential catch-up loop from the last persisted month.
type AvailabilityTracker struct {
	source  DataSource
	reports *repository.ReportRepository
	runner  *Runner
	log     zerolog.Logger
}

func NewAvailabilityTracker(source DataSource, reports *repository.ReportRepository, runner *Runner, log zerolog.Logger) *AvailabilityTracker {
	return &AvailabilityTracker{source: source, reports: reports, runner: runner, log: log}
}

// MostRecentTripStart returns the date of the newest trip at the source.
func (t *AvailabilityTracker) MostRecentTripStart(ctx context.Context, resource catalog.Resource) (time.Time, error) {
	rows, err := t.source.Query(ctx, resource.DatasetID(), query.MostRecentTripStart())
	if err != nil {
		return time.Time{}, err
	}
	if len(rows) == 0 {
		return time.Time{}, fmt.Errorf("resource %s: no trips at data source", resource)
	}
	raw, ok := rows[0]["trip_start_timestamp"]
	if !ok {
		return time.Time{}, fmt.Errorf("resource %s: result row has no trip_start_timestamp", resource)
	}
	ts, err := socrata.ParseTimestamp(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("resource %s: %w", resource, err)
	}
	return dates.DateOnly(ts), nil
}

// MostRecentMonthAvailable returns the end date of the newest month whose
// data is complete. A newest trip on the last day of its month means that
// month is complete; any earlier day means the month is still in progress
// and the previous month is the newest complete one.
func (t *AvailabilityTracker) MostRecentMonthAvailable(ctx context.Context, resource catalog.Resource) (time.Time, error) {
	date, err := t.MostRecentTripStart(ctx, resource)
	if err != nil {
		return time.Time{}, err
	}
	if date.Equal(dates.EndOfMonth(date)) {
		return date, nil
	}
	return dates.EndOfMonth(dates.AddMonths(date, -1)), nil
}

// CheckForNewData regenerates reports for every complete month newer than
// the last persisted one, advancing strictly one month at a time. On an
// empty store it starts from the resource's first published month, which
// makes a fresh database backfill itself through the same path.
func (t *AvailabilityTracker) CheckForNewData(ctx context.Context, resource catalog.Resource) error {
	maxMonth, err := t.reports.MaxMonth(ctx, resource.TripTypes())
	if err != nil {
		return fmt.Errorf("check %s: read max persisted month: %w", resource, err)
	}

	from := resource.StartMonth()
	if maxMonth != nil {
		from = dates.NextMonth(*maxMonth)
	}
	return t.catchUp(ctx, resource, from)
}

// Backfill regenerates every month from the resource's first published month
// through the newest complete one, including months already persisted.
func (t *AvailabilityTracker) Backfill(ctx context.Context, resource catalog.Resource) error {
	return t.catchUp(ctx, resource, resource.StartMonth())
}

func (t *AvailabilityTracker) catchUp(ctx context.Context, resource catalog.Resource, from time.Time) error {
	available, err := t.MostRecentMonthAvailable(ctx, resource)
	if err != nil {
		return fmt.Errorf("check %s: %w", resource, err)
	}

	months := 0
	for month := dates.StartOfMonth(from); !dates.EndOfMonth(month).After(available); month = dates.NextMonth(month) {
		if err := t.runner.UpdateAllReportsForMonth(ctx, resource, month); err != nil {
			return err
		}
		months++
	}

	t.log.Info().
		Str("resource", string(resource)).
		Str("most_recent_available", available.Format("2006-01-02")).
		Int("months_generated", months).
		Msg("catch-up complete")
	return nil
}
