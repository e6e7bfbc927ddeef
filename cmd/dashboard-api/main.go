package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/toddwschneider/chicago-taxi-dashboard-api/internal/auth"
	"github.com/toddwschneider/chicago-taxi-dashboard-api/internal/catalog"
	"github.com/toddwschneider/chicago-taxi-dashboard-api/internal/config"
	"github.com/toddwschneider/chicago-taxi-dashboard-api/internal/dashboard"
	"github.com/toddwschneider/chicago-taxi-dashboard-api/internal/db"
	httphandler "github.com/toddwschneider/chicago-taxi-dashboard-api/internal/http"
	"github.com/toddwschneider/chicago-taxi-dashboard-api/internal/http/middleware"
	"github.com/toddwschneider/chicago-taxi-dashboard-api/internal/logger"
	"github.com/toddwschneider/chicago-taxi-dashboard-api/internal/report"
	"github.com/toddwschneider/chicago-taxi-dashboard-api/internal/repository"
	"github.com/toddwschneider/chicago-taxi-dashboard-api/internal/socrata"
)

var flagResource string

func main() {
	root := &cobra.Command{
		Use:   "dashboard-api",
		Short: "Chicago taxi and ride-hail monthly statistics API",
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API",
		RunE:  runServe,
	}

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Generate reports for any newly available months",
		RunE:  runCheck,
	}
	checkCmd.Flags().StringVar(&flagResource, "resource", "", "Limit to one resource (taxi or tnp)")

	backfillCmd := &cobra.Command{
		Use:   "backfill",
		Short: "Regenerate reports for every month since each resource's first published month",
		RunE:  runBackfill,
	}
	backfillCmd.Flags().StringVar(&flagResource, "resource", "", "Limit to one resource (taxi or tnp)")

	root.AddCommand(serveCmd, checkCmd, backfillCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

type app struct {
	cfg       *config.Config
	log       zerolog.Logger
	projector *dashboard.Projector
	tracker   *report.AvailabilityTracker
	client    *socrata.Client
}

func bootstrap() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg.Environment)

	database, err := db.New(cfg, log)
	if err != nil {
		return nil, err
	}

	client := socrata.NewClient(
		cfg.Socrata.BaseURL,
		cfg.Socrata.AppToken,
		time.Duration(cfg.Socrata.TimeoutSeconds)*time.Second,
		log,
	)

	reports := repository.NewReportRepository(database)
	merger := report.NewMerger(reports, log)
	runner := report.NewRunner(client, merger, cfg.Report.Concurrency, log)
	tracker := report.NewAvailabilityTracker(client, reports, runner, log)

	return &app{
		cfg:       cfg,
		log:       log,
		projector: dashboard.NewProjector(reports),
		tracker:   tracker,
		client:    client,
	}, nil
}

func runServe(_ *cobra.Command, _ []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	if a.cfg.Scheduler.AccessSecret == "" {
		return fmt.Errorf("SCHEDULER_ACCESS_SECRET is required to serve")
	}

	handler := httphandler.NewHandler(a.projector, a.tracker, a.client, a.log)
	authMiddleware := middleware.Auth(auth.NewParser(a.cfg.Scheduler.AccessSecret))
	router := httphandler.NewRouter(handler, authMiddleware, a.cfg.Environment)

	addr := fmt.Sprintf("%s:%d", a.cfg.HTTP.Host, a.cfg.HTTP.Port)
	a.log.Info().Str("addr", addr).Msg("starting dashboard api")
	return router.Run(addr)
}

func runCheck(_ *cobra.Command, _ []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	return forEachResource(func(resource catalog.Resource) error {
		return a.tracker.CheckForNewData(context.Background(), resource)
	})
}

func runBackfill(_ *cobra.Command, _ []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	return forEachResource(func(resource catalog.Resource) error {
		return a.tracker.Backfill(context.Background(), resource)
	})
}

func forEachResource(fn func(catalog.Resource) error) error {
	if flagResource != "" {
		resource, err := catalog.ParseResource(flagResource)
		if err != nil {
			return err
		}
		return fn(resource)
	}
	for _, resource := range catalog.Resources() {
		if err := fn(resource); err != nil {
			return err
		}
	}
	return nil
}
