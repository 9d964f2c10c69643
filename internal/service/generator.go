package service

import (
	"context"
	"fmt"
	"time"

	"rent-tracking/internal/domain"
	"rent-tracking/pkg/clock"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type GenerationSummary struct {
	Period     string `json:"period"`
	Created    int    `json:"created"`
	Skipped    int    `json:"skipped"`
	Ineligible int    `json:"ineligible"`
	Errors     int    `json:"errors"`
}

// Generator opens one tracking per eligible lease and month.
type Generator struct {
	trackings TrackingRepository
	leases    LeaseRepository
	clock     clock.Clock
	loc       *time.Location
	workers   int
	log       *zap.Logger
}

func NewGenerator(
	trackings TrackingRepository,
	leases LeaseRepository,
	clk clock.Clock,
	loc *time.Location,
	workers int,
	log *zap.Logger,
) *Generator {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{
		trackings: trackings,
		leases:    leases,
		clock:     clk,
		loc:       loc,
		workers:   workers,
		log:       log.Named("generator"),
	}
}

// GenerateMonthlyTracking opens the current month.
func (g *Generator) GenerateMonthlyTracking(ctx context.Context) (GenerationSummary, error) {
	now := g.clock.Now().In(g.loc)
	return g.GenerateForPeriod(ctx, now.Year(), now.Month())
}

// GenerateForPeriod opens the given month. Running it again for a month already generated only
// reports skips.
func (g *Generator) GenerateForPeriod(ctx context.Context, year int, month time.Month) (GenerationSummary, error) {
	summary := GenerationSummary{Period: fmt.Sprintf("%04d-%02d", year, int(month))}
	if month < time.January || month > time.December || year < 1 {
		return summary, domain.ErrInvalidPeriod
	}

	leases, err := g.leases.ListActive(ctx)
	if err != nil {
		return summary, fmt.Errorf("list active leases: %w", err)
	}

	monthStart := clock.Date(year, month, 1)
	now := g.clock.Now()

	counts := newTally()
	err = sweep(ctx, g.workers, leases, func(ctx context.Context, lease domain.Lease) {
		// The first month is settled at signature and never tracked.
		if !clock.DateOf(lease.StartDate).Before(monthStart) {
			counts.inc("ineligible")
			return
		}

		t := &domain.RentPaymentTracking{
			ID:                  uuid.NewString(),
			LeaseID:             lease.ID,
			PeriodMonth:         int(month),
			PeriodYear:          year,
			ExpectedAmountCents: lease.MonthlyAmountCents(),
			ExpectedDate:        ExpectedDueDate(year, month, lease.PaymentDay),
			Status:              domain.StatusPending,
			CreatedAt:           now,
			UpdatedAt:           now,
		}

		created, err := g.trackings.CreateIfAbsent(ctx, t)
		if err != nil {
			counts.inc("errors")
			g.log.Error("create tracking failed",
				zap.String("lease_id", lease.ID),
				zap.String("period", summary.Period),
				zap.Error(err),
			)
			return
		}
		if created {
			counts.inc("created")
		} else {
			counts.inc("skipped")
		}
	})

	summary.Created = counts.get("created")
	summary.Skipped = counts.get("skipped")
	summary.Ineligible = counts.get("ineligible")
	summary.Errors = counts.get("errors")

	g.log.Info("monthly tracking generated",
		zap.String("period", summary.Period),
		zap.Int("leases", len(leases)),
		zap.Int("created", summary.Created),
		zap.Int("skipped", summary.Skipped),
		zap.Int("ineligible", summary.Ineligible),
		zap.Int("errors", summary.Errors),
	)

	return summary, err
}

// ExpectedDueDate clamps the tenant's payment day to the month's length.
func ExpectedDueDate(year int, month time.Month, paymentDay int) time.Time {
	day := paymentDay
	if day < 1 {
		day = 1
	}
	if last := clock.DaysIn(year, month); day > last {
		day = last
	}
	return clock.Date(year, month, day)
}
