package service

import (
	"context"
	"fmt"
	"time"

	"rent-tracking/internal/domain"
	"rent-tracking/internal/repository"
	"rent-tracking/pkg/clock"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	fullPaymentLower = decimal.RequireFromString("0.95")
	fullPaymentUpper = decimal.RequireFromString("1.05")
	// fullPaymentHeadroom widens the upper bound once more: up to 115.5% of the rent still counts as full.
	fullPaymentHeadroom = decimal.RequireFromString("1.1")
	partialPaymentFloor = decimal.RequireFromString("0.5")
)

// matchableStatuses excludes OVERDUE and CRITICAL rows from the daily sweep.
var matchableStatuses = []domain.TrackingStatus{
	domain.StatusPending,
	domain.StatusLate,
	domain.StatusReminderSent,
}

type paymentClass int

const (
	paymentNone paymentClass = iota
	paymentFull
	paymentPartial
)

func classifyPayment(expectedCents, paidCents int64) paymentClass {
	if expectedCents <= 0 || paidCents <= 0 {
		return paymentNone
	}

	expected := decimal.NewFromInt(expectedCents)
	paid := decimal.NewFromInt(paidCents)

	lower := expected.Mul(fullPaymentLower)
	upper := expected.Mul(fullPaymentUpper).Mul(fullPaymentHeadroom)
	floor := expected.Mul(partialPaymentFloor)

	switch {
	case paid.GreaterThanOrEqual(lower) && paid.LessThanOrEqual(upper):
		return paymentFull
	case paid.GreaterThanOrEqual(floor) && paid.LessThan(lower):
		return paymentPartial
	}
	return paymentNone
}

type MatchSummary struct {
	Checked   int `json:"checked"`
	Matched   int `json:"matched"`
	Partial   int `json:"partial"`
	Unmatched int `json:"unmatched"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
}

// Matcher reconciles open trackings against bank transactions already linked to their lease.
type Matcher struct {
	trackings    TrackingRepository
	transactions BankTransactionRepository
	clock        clock.Clock
	workers      int
	log          *zap.Logger
}

func NewMatcher(
	trackings TrackingRepository,
	transactions BankTransactionRepository,
	clk clock.Clock,
	workers int,
	log *zap.Logger,
) *Matcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Matcher{
		trackings:    trackings,
		transactions: transactions,
		clock:        clk,
		workers:      workers,
		log:          log.Named("matcher"),
	}
}

func (m *Matcher) CheckPayments(ctx context.Context) (MatchSummary, error) {
	var summary MatchSummary

	trackings, err := m.trackings.List(ctx, repository.TrackingsFilter{Statuses: matchableStatuses})
	if err != nil {
		return summary, fmt.Errorf("list unresolved trackings: %w", err)
	}

	counts := newTally()
	err = sweep(ctx, m.workers, trackings, func(ctx context.Context, t domain.RentPaymentTracking) {
		outcome, err := m.match(ctx, t)
		if err != nil {
			counts.inc("errors")
			m.log.Error("payment check failed",
				zap.String("tracking_id", t.ID),
				zap.String("lease_id", t.LeaseID),
				zap.Error(err),
			)
			return
		}
		counts.inc(outcome)
	})

	summary.Checked = len(trackings)
	summary.Matched = counts.get("full") + counts.get("partial")
	summary.Partial = counts.get("partial")
	summary.Unmatched = counts.get("unmatched")
	summary.Skipped = counts.get("skipped")
	summary.Errors = counts.get("errors")

	m.log.Info("payments checked",
		zap.Int("checked", summary.Checked),
		zap.Int("matched", summary.Matched),
		zap.Int("partial", summary.Partial),
		zap.Int("unmatched", summary.Unmatched),
		zap.Int("errors", summary.Errors),
	)

	return summary, err
}

// match returns "full", "partial", "unmatched" or "skipped".
func (m *Matcher) match(ctx context.Context, t domain.RentPaymentTracking) (string, error) {
	month := time.Month(t.PeriodMonth)
	from := clock.Date(t.PeriodYear, month, 1)
	to := from.AddDate(0, 1, 0)

	txs, err := m.transactions.ListForLease(ctx, t.LeaseID, from, to)
	if err != nil {
		return "", fmt.Errorf("list transactions: %w", err)
	}
	if len(txs) == 0 {
		return "unmatched", nil
	}

	var total int64
	for _, tx := range txs {
		total += tx.AbsAmountCents()
	}

	class := classifyPayment(t.ExpectedAmountCents, total)
	if class == paymentNone {
		return "unmatched", nil
	}

	first := txs[0]
	paid := domain.StatusPaid
	applied, err := m.trackings.Update(ctx, t.ID,
		repository.TrackingGuard{Statuses: domain.OpenStatuses},
		repository.TrackingUpdate{
			Status: &paid,
			Detection: &repository.PaymentDetection{
				AmountCents:   total,
				Date:          first.Date,
				TransactionID: first.ID,
				Partial:       class == paymentPartial,
			},
			UpdatedAt: m.clock.Now(),
		},
	)
	if err != nil {
		return "", err
	}
	if !applied {
		// Resolved by someone else since the sweep started.
		return "skipped", nil
	}

	if class == paymentPartial {
		return "partial", nil
	}
	return "full", nil
}
