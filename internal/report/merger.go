// Package report contains the pipeline that keeps the persisted monthly
// reports current: merging query results into report rows, detecting newly
// available months at the data source and regenerating every query family
// for a month under a bounded worker pool.
package report

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/toddwschneider/chicago-taxi-dashboard-api/internal/catalog"
	"github.com/toddwschneider/chicago-taxi-dashboard-api/internal/dates"
	"github.com/toddwschneider/chicago-taxi-dashboard-api/internal/model"
	"github.com/toddwschneider/chicago-taxi-dashboard-api/internal/query"
	"github.com/toddwschneider/chicago-taxi-dashboard-api/internal/repository"
	"github.com/toddwschneider/chicago-taxi-dashboard-api/internal/socrata"
	"github.com/toddwschneider/chicago-taxi-dashboard-api/internal/soql"
)

// DataSource executes an aggregation statement against a remote dataset.
// Satisfied by *socrata.Client.
type DataSource interface {
	Query(ctx context.Context, datasetID string, stmt *soql.Statement) ([]socrata.Row, error)
}

type Merger struct {
	reports *repository.ReportRepository
	log     zerolog.Logger
}

func NewMerger(reports *repository.ReportRepository, log zerolog.Logger) *Merger {
	return &Merger{reports: reports, log: log}
}

// Apply merges one query result into the persisted reports. Each row targets
// the report keyed by (end of the row's month, resource[_sharedstatus]);
// only attributes the report schema recognizes are assigned, so extra result
// columns are ignored rather than fatal. A persistence failure aborts the
// whole batch: a partially merged month must not pass silently.
func (m *Merger) Apply(ctx context.Context, result query.Result) error {
	tripType := catalog.TripType(result.Resource, result.Shared)

	for _, row := range result.Rows {
		rawMonth, ok := row["month"]
		if !ok {
			return fmt.Errorf("merge %s: result row has no month", tripType)
		}
		parsed, err := socrata.ParseTimestamp(rawMonth)
		if err != nil {
			return fmt.Errorf("merge %s: %w", tripType, err)
		}
		month := dates.EndOfMonth(parsed)

		attrs := make(map[string]any, len(row))
		for column, raw := range row {
			if column == "month" {
				continue
			}
			value, recognized, err := model.ParseAttribute(column, raw)
			if err != nil {
				return fmt.Errorf("merge %s: %w", tripType, err)
			}
			if !recognized {
				m.log.Debug().Str("trip_type", tripType).Str("column", column).Msg("skipping unrecognized result column")
				continue
			}
			attrs[column] = value
		}

		if err := m.reports.UpsertAttributes(ctx, tripType, month, attrs); err != nil {
			return err
		}
	}

	return nil
}
