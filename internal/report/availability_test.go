package report

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/toddwschneider/chicago-taxi-dashboard-api/internal/catalog"
	"github.com/toddwschneider/chicago-taxi-dashboard-api/internal/repository"
	"github.com/toddwschneider/chicago-taxi-dashboard-api/internal/socrata"
	"github.com/toddwschneider/chicago-taxi-dashboard-api/internal/soql"
)

type sourceFunc func(ctx context.Context, datasetID string, stmt *soql.Statement) ([]socrata.Row, error)

func (f sourceFunc) Query(ctx context.Context, datasetID string, stmt *soql.Statement) ([]socrata.Row, error) {
	return f(ctx, datasetID, stmt)
}

// echoSource answers the newest-trip probe with mostRecent and answers every
// aggregation query with one row for the month the statement's lower bound
// asks about.
func echoSource(mostRecent string) sourceFunc {
	lowerBound := regexp.MustCompile(`trip_start_timestamp >= '(\d{4}-\d{2})-\d{2}'`)
	return func(_ context.Context, _ string, stmt *soql.Statement) ([]socrata.Row, error) {
		rendered := stmt.String()
		if strings.Contains(rendered, "ORDER BY trip_start_timestamp DESC") {
			return []socrata.Row{{"trip_start_timestamp": mostRecent}}, nil
		}
		m := lowerBound.FindStringSubmatch(rendered)
		if m == nil {
			return nil, nil
		}
		return []socrata.Row{{"month": m[1] + "-01T00:00:00.000", "trips": "500"}}, nil
	}
}

func newTestTracker(t *testing.T, source DataSource) (*AvailabilityTracker, *repository.ReportRepository) {
	t.Helper()
	repo := repository.NewReportRepository(openTestDB(t))
	merger := NewMerger(repo, zerolog.Nop())
	runner := NewRunner(source, merger, 2, zerolog.Nop())
	return NewAvailabilityTracker(source, repo, runner, zerolog.Nop()), repo
}

func TestMostRecentMonthAvailable(t *testing.T) {
	tests := []struct {
		name       string
		mostRecent string
		want       time.Time
	}{
		{
			"mid-month trip means previous month is newest complete",
			"2020-03-15T08:45:00.000",
			time.Date(2020, time.February, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			"trip on the last day completes its own month",
			"2020-02-29T23:59:59.000",
			time.Date(2020, time.February, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			"trip on the last day of a 31-day month",
			"2020-01-31T06:00:00.000",
			time.Date(2020, time.January, 31, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker, _ := newTestTracker(t, echoSource(tt.mostRecent))
			got, err := tracker.MostRecentMonthAvailable(context.Background(), catalog.ResourceTaxi)
			if err != nil {
				t.Fatalf("MostRecentMonthAvailable: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("MostRecentMonthAvailable = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMostRecentTripStartEmptyDataset(t *testing.T) {
	empty := sourceFunc(func(context.Context, string, *soql.Statement) ([]socrata.Row, error) {
		return nil, nil
	})
	tracker, _ := newTestTracker(t, empty)
	if _, err := tracker.MostRecentTripStart(context.Background(), catalog.ResourceTaxi); err == nil {
		t.Fatal("MostRecentTripStart on an empty dataset returned nil error")
	}
}

func TestCheckForNewDataCatchesUpMonthByMonth(t *testing.T) {
	tracker, repo := newTestTracker(t, echoSource("2020-03-31T22:15:00.000"))
	ctx := context.Background()

	if err := repo.UpsertAttributes(ctx, "taxi", time.Date(2020, time.January, 31, 0, 0, 0, 0, time.UTC), map[string]any{"trips": int64(1)}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := tracker.CheckForNewData(ctx, catalog.ResourceTaxi); err != nil {
		t.Fatalf("CheckForNewData: %v", err)
	}

	// already persisted month untouched
	jan, err := repo.Get(ctx, "taxi", time.Date(2020, time.January, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Get january: %v", err)
	}
	if *jan.Trips != 1 {
		t.Errorf("january trips = %d, want untouched seed value 1", *jan.Trips)
	}

	for _, month := range []time.Time{
		time.Date(2020, time.February, 29, 0, 0, 0, 0, time.UTC),
		time.Date(2020, time.March, 31, 0, 0, 0, 0, time.UTC),
	} {
		report, err := repo.Get(ctx, "taxi", month)
		if err != nil {
			t.Fatalf("Get %v: %v", month, err)
		}
		if report.Trips == nil || *report.Trips != 500 {
			t.Errorf("%v trips = %v, want 500", month, report.Trips)
		}
	}

	max, err := repo.MaxMonth(ctx, catalog.ResourceTaxi.TripTypes())
	if err != nil {
		t.Fatalf("MaxMonth: %v", err)
	}
	if max == nil || !max.Equal(time.Date(2020, time.March, 31, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("MaxMonth = %v, want 2020-03-31", max)
	}
}

func TestCheckForNewDataEmptyStoreStartsAtFirstMonth(t *testing.T) {
	tracker, repo := newTestTracker(t, echoSource("2018-12-31T20:00:00.000"))
	ctx := context.Background()

	if err := tracker.CheckForNewData(ctx, catalog.ResourceTNP); err != nil {
		t.Fatalf("CheckForNewData: %v", err)
	}

	for _, tripType := range []string{"tnp", "tnp_not_shared", "tnp_unmatched_share_request", "tnp_shared"} {
		for _, month := range []time.Time{
			time.Date(2018, time.November, 30, 0, 0, 0, 0, time.UTC),
			time.Date(2018, time.December, 31, 0, 0, 0, 0, time.UTC),
		} {
			report, err := repo.Get(ctx, tripType, month)
			if err != nil {
				t.Fatalf("Get %s %v: %v", tripType, month, err)
			}
			if report.Trips == nil || *report.Trips != 500 {
				t.Errorf("%s %v trips = %v, want 500", tripType, month, report.Trips)
			}
		}
	}
}

func TestCheckForNewDataNothingNew(t *testing.T) {
	var aggregations int
	base := echoSource("2020-02-15T10:00:00.000")
	counting := sourceFunc(func(ctx context.Context, datasetID string, stmt *soql.Statement) ([]socrata.Row, error) {
		if !strings.Contains(stmt.String(), "ORDER BY trip_start_timestamp DESC") {
			aggregations++
		}
		return base(ctx, datasetID, stmt)
	})

	tracker, repo := newTestTracker(t, counting)
	ctx := context.Background()

	if err := repo.UpsertAttributes(ctx, "taxi", time.Date(2020, time.January, 31, 0, 0, 0, 0, time.UTC), map[string]any{"trips": int64(1)}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := tracker.CheckForNewData(ctx, catalog.ResourceTaxi); err != nil {
		t.Fatalf("CheckForNewData: %v", err)
	}
	if aggregations != 0 {
		t.Errorf("ran %d aggregation queries with no new complete month", aggregations)
	}
}
