package rest

import (
	"context"
	"net/http"
	"time"

	"rent-tracking/internal/domain"
	"rent-tracking/internal/service"
	"rent-tracking/pkg/clock"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type TrackingService interface {
	MarkAsPaid(ctx context.Context, trackingID string, callerID int64) (*domain.RentPaymentTracking, error)
	SendFriendlyReminder(ctx context.Context, trackingID string, callerID int64) (*domain.RentPaymentTracking, error)
	IgnoreMonth(ctx context.Context, trackingID string, callerID int64, reason string) (*domain.RentPaymentTracking, error)
	ListForLandlord(ctx context.Context, landlordID int64, year, month int) ([]domain.LandlordTracking, error)
}

type ReportExporter interface {
	ExportMonth(ctx context.Context, landlordID int64, year, month int) (*service.Report, error)
}

type JobService interface {
	Run(ctx context.Context, name domain.JobName) (*domain.JobRun, error)
	RunGenerateFor(ctx context.Context, year, month int) (*domain.JobRun, error)
	ListRuns(ctx context.Context, limit int) ([]domain.JobRun, error)
}

type Handler struct {
	trackings TrackingService
	reports   ReportExporter
	jobs      JobService
	clock     clock.Clock
	loc       *time.Location
	log       *zap.Logger
}

func NewHandler(trackings TrackingService, reports ReportExporter, jobs JobService, clk clock.Clock, loc *time.Location, log *zap.Logger) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		trackings: trackings,
		reports:   reports,
		jobs:      jobs,
		clock:     clk,
		loc:       loc,
		log:       log.Named("http"),
	}
}

// InitRouter mounts landlord routes behind authMiddleware and job routes behind jobMiddleware.
// Either may be nil in tests.
func (h *Handler) InitRouter(authMiddleware, jobMiddleware func(http.Handler) http.Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
	)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		Success(w, "ok", nil)
	})

	r.Group(func(r chi.Router) {
		if authMiddleware != nil {
			r.Use(authMiddleware)
		}

		r.Route("/trackings", func(r chi.Router) {
			r.Get("/", h.listTrackings)
			r.Post("/{id}/confirm", h.confirmTracking)
			r.Post("/{id}/remind", h.remindTenant)
			r.Post("/{id}/ignore", h.ignoreTracking)
		})
		r.Post("/reports/trackings", h.exportTrackings)
	})

	r.Route("/internal/jobs", func(r chi.Router) {
		if jobMiddleware != nil {
			r.Use(jobMiddleware)
		}
		r.Get("/runs", h.listJobRuns)
		r.Post("/{job}", h.runJob)
	})

	return r
}
