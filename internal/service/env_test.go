package service

import (
	"time"

	"rent-tracking/internal/domain"
	"rent-tracking/pkg/clock"
)

const (
	landlordID = int64(10)
	tenantID   = int64(20)
	strangerID = int64(99)
)

func testLease() domain.Lease {
	return domain.Lease{
		ID:                  "lease-1",
		PropertyID:          "prop-1",
		ListingID:           "listing-1",
		LandlordID:          landlordID,
		LandlordName:        "Claire Dubois",
		LandlordEmail:       "claire@example.com",
		TenantID:            tenantID,
		TenantName:          "Alex Martin",
		TenantEmail:         "alex@example.com",
		PropertyTitle:       "Flat 3B, Rue Oberkampf",
		StartDate:           clock.Date(2024, time.June, 10),
		PaymentDay:          5,
		BaseRentCents:       100000,
		ServiceChargesCents: 5000,
	}
}

// january returns lease-1's January 2025 tracking in status.
func january(id string, status domain.TrackingStatus) domain.RentPaymentTracking {
	return domain.RentPaymentTracking{
		ID:                  id,
		LeaseID:             "lease-1",
		PeriodMonth:         1,
		PeriodYear:          2025,
		ExpectedAmountCents: 105000,
		ExpectedDate:        clock.Date(2025, time.January, 5),
		Status:              status,
	}
}

// at is 09:00 UTC on the given January 2025 day; days past 31 roll into February.
func at(day int) time.Time {
	return time.Date(2025, time.January, day, 9, 0, 0, 0, time.UTC)
}

type env struct {
	clock         *clock.Fixed
	leases        *memLeases
	trackings     *memTrackings
	transactions  *memTransactions
	conversations *memConversations
	notifier      *recNotifier
	mailer        *recMailer
}

func newEnv(now time.Time, leases ...domain.Lease) *env {
	if len(leases) == 0 {
		leases = []domain.Lease{testLease()}
	}
	l := newMemLeases(leases...)
	return &env{
		clock:         clock.NewFixed(now),
		leases:        l,
		trackings:     newMemTrackings(l),
		transactions:  &memTransactions{},
		conversations: &memConversations{},
		notifier:      &recNotifier{},
		mailer:        &recMailer{},
	}
}

func (e *env) generator() *Generator {
	return NewGenerator(e.trackings, e.leases, e.clock, time.UTC, 4, nil)
}

func (e *env) matcher() *Matcher {
	return NewMatcher(e.trackings, e.transactions, e.clock, 4, nil)
}

func (e *env) escalation() *EscalationDriver {
	return NewEscalationDriver(e.trackings, e.leases, e.notifier, e.mailer, e.clock, time.UTC, 4, "https://app.example.com/", nil)
}

func (e *env) overrides() *OverrideService {
	return NewOverrideService(e.trackings, e.leases, e.conversations, e.notifier, e.clock, nil)
}
