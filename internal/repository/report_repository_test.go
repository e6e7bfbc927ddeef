package repository

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/toddwschneider/chicago-taxi-dashboard-api/internal/db"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	// a second connection would see a different empty in-memory database
	sqlDB.SetMaxOpenConns(1)

	if err := db.Migrate(database); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return database
}

func month(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func TestUpsertAttributesCreatesRow(t *testing.T) {
	repo := NewReportRepository(openTestDB(t))
	ctx := context.Background()
	jan := month(2020, time.January, 31)

	err := repo.UpsertAttributes(ctx, "taxi", jan, map[string]any{
		"trips":           int64(1000),
		"unique_vehicles": int64(250),
	})
	if err != nil {
		t.Fatalf("UpsertAttributes: %v", err)
	}

	report, err := repo.Get(ctx, "taxi", jan)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if report.Trips == nil || *report.Trips != 1000 {
		t.Errorf("trips = %v, want 1000", report.Trips)
	}
	if report.UniqueVehicles == nil || *report.UniqueVehicles != 250 {
		t.Errorf("unique_vehicles = %v, want 250", report.UniqueVehicles)
	}
	if report.AvgFare != nil {
		t.Errorf("avg_fare = %v, want nil", report.AvgFare)
	}
}

func TestUpsertAttributesMergesDisjointGroups(t *testing.T) {
	repo := NewReportRepository(openTestDB(t))
	ctx := context.Background()
	jan := month(2020, time.January, 31)

	if err := repo.UpsertAttributes(ctx, "taxi", jan, map[string]any{"trips": int64(1000)}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := repo.UpsertAttributes(ctx, "taxi", jan, map[string]any{
		"avg_fare":       12.5,
		"avg_trip_miles": 3.2,
	}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	report, err := repo.Get(ctx, "taxi", jan)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if report.Trips == nil || *report.Trips != 1000 {
		t.Errorf("trips = %v, want 1000 after second family's write", report.Trips)
	}
	if report.AvgFare == nil || *report.AvgFare != 12.5 {
		t.Errorf("avg_fare = %v, want 12.5", report.AvgFare)
	}

	var count int64
	if err := repo.db.Table("chicago_monthly_reports").Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("row count = %d, want 1", count)
	}
}

func TestUpsertAttributesOverwritesSameGroup(t *testing.T) {
	repo := NewReportRepository(openTestDB(t))
	ctx := context.Background()
	jan := month(2020, time.January, 31)

	if err := repo.UpsertAttributes(ctx, "taxi", jan, map[string]any{"trips": int64(900)}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := repo.UpsertAttributes(ctx, "taxi", jan, map[string]any{"trips": int64(1000)}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	report, err := repo.Get(ctx, "taxi", jan)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if report.Trips == nil || *report.Trips != 1000 {
		t.Errorf("trips = %v, want the re-run value 1000", report.Trips)
	}
}

func TestUpsertAttributesKeepsTripTypesSeparate(t *testing.T) {
	repo := NewReportRepository(openTestDB(t))
	ctx := context.Background()
	jan := month(2020, time.January, 31)

	if err := repo.UpsertAttributes(ctx, "tnp", jan, map[string]any{"trips": int64(5000)}); err != nil {
		t.Fatalf("tnp upsert: %v", err)
	}
	if err := repo.UpsertAttributes(ctx, "tnp_shared", jan, map[string]any{"trips": int64(700)}); err != nil {
		t.Fatalf("tnp_shared upsert: %v", err)
	}

	tnp, err := repo.Get(ctx, "tnp", jan)
	if err != nil {
		t.Fatalf("Get tnp: %v", err)
	}
	shared, err := repo.Get(ctx, "tnp_shared", jan)
	if err != nil {
		t.Fatalf("Get tnp_shared: %v", err)
	}
	if *tnp.Trips != 5000 || *shared.Trips != 700 {
		t.Errorf("trips = %d/%d, want 5000/700", *tnp.Trips, *shared.Trips)
	}
}

func TestMaxMonth(t *testing.T) {
	repo := NewReportRepository(openTestDB(t))
	ctx := context.Background()

	got, err := repo.MaxMonth(ctx, []string{"taxi"})
	if err != nil {
		t.Fatalf("MaxMonth on empty store: %v", err)
	}
	if got != nil {
		t.Fatalf("MaxMonth on empty store = %v, want nil", got)
	}

	for _, m := range []time.Time{
		month(2020, time.January, 31),
		month(2020, time.March, 31),
		month(2020, time.February, 29),
	} {
		if err := repo.UpsertAttributes(ctx, "taxi", m, map[string]any{"trips": int64(1)}); err != nil {
			t.Fatalf("upsert %v: %v", m, err)
		}
	}
	// a different resource's newer month must not count
	if err := repo.UpsertAttributes(ctx, "tnp", month(2020, time.June, 30), map[string]any{"trips": int64(1)}); err != nil {
		t.Fatalf("upsert tnp: %v", err)
	}

	got, err = repo.MaxMonth(ctx, []string{"taxi"})
	if err != nil {
		t.Fatalf("MaxMonth: %v", err)
	}
	if got == nil || !got.Equal(month(2020, time.March, 31)) {
		t.Errorf("MaxMonth = %v, want 2020-03-31", got)
	}
}

func TestGetNotFound(t *testing.T) {
	repo := NewReportRepository(openTestDB(t))

	_, err := repo.Get(context.Background(), "taxi", month(2020, time.January, 31))
	if err == nil {
		t.Fatal("Get on empty store returned nil error")
	}
}

func TestReportsSince(t *testing.T) {
	repo := NewReportRepository(openTestDB(t))
	ctx := context.Background()

	rows := []struct {
		tripType string
		month    time.Time
		trips    int64
	}{
		{"tnp", month(2019, time.December, 31), 10},
		{"tnp", month(2020, time.February, 29), 30},
		{"tnp", month(2020, time.January, 31), 20},
		{"tnp_shared", month(2020, time.January, 31), 5},
	}
	for _, row := range rows {
		if err := repo.UpsertAttributes(ctx, row.tripType, row.month, map[string]any{"trips": row.trips}); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	got, err := repo.ReportsSince(ctx, []string{"tnp", "tnp_shared"}, month(2020, time.January, 1))
	if err != nil {
		t.Fatalf("ReportsSince: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ReportsSince returned %d rows, want 3", len(got))
	}

	wantOrder := []struct {
		tripType string
		trips    int64
	}{
		{"tnp", 20},
		{"tnp", 30},
		{"tnp_shared", 5},
	}
	for i, want := range wantOrder {
		if got[i].TripType != want.tripType || got[i].Trips == nil || *got[i].Trips != want.trips {
			t.Errorf("row %d = %s/%v, want %s/%d", i, got[i].TripType, got[i].Trips, want.tripType, want.trips)
		}
	}
}
