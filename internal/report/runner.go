package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/toddwschneider/chicago-taxi-dashboard-api/internal/catalog"
	"github.com/toddwschneider/chicago-taxi-dashboard-api/internal/query"
)

// Runner regenerates monthly reports. The unit of work is one query family
// for one month for one resource (and, for TNP, one shared-ride partition);
// units are independent and run concurrently under a bounded pool.
type Runner struct {
	source      DataSource
	merger      *Merger
	concurrency int
	log         zerolog.Logger
}

func NewRunner(source DataSource, merger *Merger, concurrency int, log zerolog.Logger) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Runner{source: source, merger: merger, concurrency: concurrency, log: log}
}

// UpdateAllReportsForMonth runs every query family contributing to one
// resource's reports for one month. The first failing unit cancels the rest;
// a month is either fully regenerated or the error surfaces to the caller.
func (r *Runner) UpdateAllReportsForMonth(ctx context.Context, resource catalog.Resource, month time.Time) error {
	defs := query.ForMonth(resource, month)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, def := range defs {
		g.Go(func() error {
			return r.runUnit(ctx, def, month)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("update %s reports for %s: %w", resource, month.Format("2006-01"), err)
	}

	r.log.Info().
		Str("resource", string(resource)).
		Str("month", month.Format("2006-01")).
		Int("queries", len(defs)).
		Msg("monthly reports updated")
	return nil
}

func (r *Runner) runUnit(ctx context.Context, def query.Definition, month time.Time) error {
	log := r.log.With().
		Str("job_id", uuid.NewString()).
		Str("resource", string(def.Resource)).
		Str("family", string(def.Family)).
		Str("shared_status", string(def.Shared)).
		Str("month", month.Format("2006-01")).
		Logger()

	rows, err := r.source.Query(ctx, def.Resource.DatasetID(), def.Statement)
	if err != nil {
		log.Error().Err(err).Msg("report query failed")
		return fmt.Errorf("%s: %w", def.Family, err)
	}

	result := query.Result{Resource: def.Resource, Shared: def.Shared, Rows: rows}
	if err := r.merger.Apply(ctx, result); err != nil {
		log.Error().Err(err).Msg("report merge failed")
		return fmt.Errorf("%s: %w", def.Family, err)
	}

	log.Debug().Int("rows", len(rows)).Msg("report query merged")
	return nil
}
