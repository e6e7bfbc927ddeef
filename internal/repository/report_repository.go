package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/toddwschneider/chicago-taxi-dashboard-api/internal/model"
)

type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// UpsertAttributes writes one query family's attribute group onto the report
// row keyed by (trip_type, month), creating the row on first write. The
// write is a single INSERT ... ON CONFLICT DO UPDATE statement, so a
// concurrent family writing a disjoint attribute group can never erase these
// columns, and re-running the same family overwrites the same columns with
// fresh values.
func (r *ReportRepository) UpsertAttributes(ctx context.Context, tripType string, month time.Time, attrs map[string]any) error {
	if len(attrs) == 0 {
		return nil
	}

	now := time.Now().UTC()
	values := map[string]any{
		"trip_type":  tripType,
		"month":      month,
		"created_at": now,
		"updated_at": now,
	}
	assignments := map[string]any{"updated_at": now}
	for column, v := range attrs {
		values[column] = v
		assignments[column] = v
	}

	err := r.db.WithContext(ctx).
		Model(&model.MonthlyReport{}).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "trip_type"}, {Name: "month"}},
			DoUpdates: clause.Assignments(assignments),
		}).
		Create(values).Error
	if err != nil {
		return fmt.Errorf("upsert report %s %s: %w", tripType, month.Format("2006-01-02"), err)
	}
	return nil
}

// MaxMonth returns the newest persisted month across the given trip types,
// or nil when none exist yet.
func (r *ReportRepository) MaxMonth(ctx context.Context, tripTypes []string) (*time.Time, error) {
	var report model.MonthlyReport
	err := r.db.WithContext(ctx).
		Where("trip_type IN ?", tripTypes).
		Order("month DESC").
		First(&report).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	month := report.Month.UTC()
	return &month, nil
}

// Get fetches a single report row; gorm.ErrRecordNotFound when absent.
func (r *ReportRepository) Get(ctx context.Context, tripType string, month time.Time) (*model.MonthlyReport, error) {
	var report model.MonthlyReport
	err := r.db.WithContext(ctx).
		Where("trip_type = ? AND month = ?", tripType, month).
		First(&report).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// ReportsSince returns all rows for the given trip types from since onward,
// ordered by trip_type then month, the order the dashboard projection
// depends on for its trailing-12-month lookback.
func (r *ReportRepository) ReportsSince(ctx context.Context, tripTypes []string, since time.Time) ([]model.MonthlyReport, error) {
	var reports []model.MonthlyReport
	err := r.db.WithContext(ctx).
		Where("trip_type IN ? AND month >= ?", tripTypes, since).
		Order("trip_type, month").
		Find(&reports).Error
	if err != nil {
		return nil, err
	}
	return reports, nil
}
