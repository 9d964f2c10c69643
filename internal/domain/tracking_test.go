package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrackingStatusIsTerminal(t *testing.T) {
	terminal := []TrackingStatus{StatusPaid, StatusManuallyConfirmed, StatusIgnored}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), s)
	}
	for _, s := range OpenStatuses {
		assert.False(t, s.IsTerminal(), s)
	}
	assert.False(t, TrackingStatus("UNKNOWN").Valid())
}

func TestLeaseAccessors(t *testing.T) {
	l := Lease{LandlordID: 7, BaseRentCents: 100000, ServiceChargesCents: 5000}

	assert.Equal(t, int64(105000), l.MonthlyAmountCents())
	assert.True(t, l.IsOwnedBy(7))
	assert.False(t, l.IsOwnedBy(8))
	assert.False(t, Lease{}.IsOwnedBy(0))
}

func TestBankTransactionAbsAmount(t *testing.T) {
	assert.Equal(t, int64(105000), BankTransaction{AmountCents: -105000}.AbsAmountCents())
	assert.Equal(t, int64(500), BankTransaction{AmountCents: 500}.AbsAmountCents())
}

func TestTrackingPeriod(t *testing.T) {
	tr := RentPaymentTracking{PeriodMonth: 2, PeriodYear: 2024}
	assert.Equal(t, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), tr.Period(time.UTC))
}
