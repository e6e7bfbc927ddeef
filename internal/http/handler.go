package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/toddwschneider/chicago-taxi-dashboard-api/internal/catalog"
	"github.com/toddwschneider/chicago-taxi-dashboard-api/internal/dashboard"
	"github.com/toddwschneider/chicago-taxi-dashboard-api/internal/query"
	"github.com/toddwschneider/chicago-taxi-dashboard-api/internal/report"
)

type Handler struct {
	projector *dashboard.Projector
	tracker   *report.AvailabilityTracker
	source    report.DataSource
	log       zerolog.Logger
}

func NewHandler(projector *dashboard.Projector, tracker *report.AvailabilityTracker, source report.DataSource, log zerolog.Logger) *Handler {
	return &Handler{projector: projector, tracker: tracker, source: source, log: log}
}

// NewRouter wires the public dashboard endpoints and the token-guarded
// internal trigger the schedule collaborator calls once a day.
func NewRouter(h *Handler, authMiddleware gin.HandlerFunc, environment string) *gin.Engine {
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.Default())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/dashboard_data", h.getDashboardData)
	r.GET("/daily_trips", h.getDailyTrips)

	internal := r.Group("/internal")
	internal.Use(authMiddleware)
	internal.POST("/check_for_new_data", h.checkForNewData)

	return r
}

func (h *Handler) getDashboardData(c *gin.Context) {
	payload, err := h.projector.DashboardData(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("dashboard projection failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, payload)
}

func (h *Handler) getDailyTrips(c *gin.Context) {
	resource, err := catalog.ParseResource(strings.TrimSpace(c.Query("resource")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown resource"})
		return
	}

	start, err := time.Parse("2006-01-02", c.Query("start_date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date"})
		return
	}
	end, err := time.Parse("2006-01-02", c.Query("end_date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date"})
		return
	}
	if end.Before(start) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_date before start_date"})
		return
	}

	rows, err := h.source.Query(c.Request.Context(), resource.DatasetID(), query.DailyTrips(start, end))
	if err != nil {
		h.log.Error().Err(err).Str("resource", string(resource)).Msg("daily trips query failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "data source unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"resource": resource, "data": rows})
}

// checkForNewData kicks off catch-up for both resources in the background
// and returns immediately; the scheduler only needs to know the check was
// accepted, not wait for months of regeneration.
func (h *Handler) checkForNewData(c *gin.Context) {
	go func() {
		ctx := context.Background()
		for _, resource := range catalog.Resources() {
			if err := h.tracker.CheckForNewData(ctx, resource); err != nil {
				h.log.Error().Err(err).Str("resource", string(resource)).Msg("check for new data failed")
			}
		}
	}()
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}
