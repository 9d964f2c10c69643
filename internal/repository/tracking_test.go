package repository

import (
	"context"
	"testing"
	"time"

	"rent-tracking/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTrackingUpdate_ReminderClaim(t *testing.T) {
	now := time.Date(2025, time.January, 15, 6, 0, 0, 0, time.UTC)

	query, args, err := buildTrackingUpdate("trk-1", TrackingGuard{
		Statuses:       []domain.TrackingStatus{domain.StatusLate, domain.StatusReminderSent},
		ReminderUnsent: true,
	}, TrackingUpdate{ReminderSentAt: &now, UpdatedAt: now})
	require.NoError(t, err)

	assert.Equal(t,
		"UPDATE rent_payment_trackings SET updated_at = $1, reminder_sent_at = $2 WHERE id = $3 AND status = ANY($4) AND reminder_sent_at IS NULL",
		query)
	require.Len(t, args, 4)
	assert.Equal(t, now, args[0])
	assert.Equal(t, now, args[1])
	assert.Equal(t, "trk-1", args[2])
	assert.Equal(t, []string{"LATE", "REMINDER_SENT"}, args[3])
}

func TestBuildTrackingUpdate_Detection(t *testing.T) {
	now := time.Date(2025, time.January, 20, 6, 0, 0, 0, time.UTC)
	paid := domain.StatusPaid

	query, args, err := buildTrackingUpdate("trk-2", TrackingGuard{Statuses: domain.OpenStatuses}, TrackingUpdate{
		Status: &paid,
		Detection: &PaymentDetection{
			AmountCents:   105000,
			Date:          time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC),
			TransactionID: "tx-1",
		},
		UpdatedAt: now,
	})
	require.NoError(t, err)

	assert.Equal(t,
		"UPDATE rent_payment_trackings SET updated_at = $1, status = $2, detected_amount_cents = $3, detected_date = $4, transaction_id = $5, is_partial_payment = $6 WHERE id = $7 AND status = ANY($8)",
		query)
	assert.Equal(t, "PAID", args[1])
	assert.Equal(t, int64(105000), args[2])
	assert.Equal(t, false, args[5])
}

func TestBuildTrackingUpdate_RequiresGuard(t *testing.T) {
	_, _, err := buildTrackingUpdate("trk-3", TrackingGuard{}, TrackingUpdate{})
	assert.Error(t, err)
}

func TestTrackingsWhere(t *testing.T) {
	due := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)
	landlord := int64(9)
	year, month := 2025, 1

	where, args, err := trackingsWhere(TrackingsFilter{
		Statuses:    []domain.TrackingStatus{domain.StatusPending},
		DueBefore:   &due,
		LandlordID:  &landlord,
		PeriodYear:  &year,
		PeriodMonth: &month,
	}, true)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"1=1",
		"t.status = ANY($1)",
		"t.expected_date < $2",
		"p.owner_id = $3",
		"t.period_year = $4",
		"t.period_month = $5",
	}, where)
	assert.Equal(t, []any{[]string{"PENDING"}, due, landlord, year, month}, args)
}

func TestTrackingsWhere_LandlordNeedsPropertiesJoin(t *testing.T) {
	landlord := int64(9)

	_, _, err := trackingsWhere(TrackingsFilter{LandlordID: &landlord}, false)
	assert.Error(t, err)

	where, args, err := trackingsWhere(TrackingsFilter{}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"1=1"}, where)
	assert.Empty(t, args)
}

func TestTrackingRepository_ListRejectsLandlordFilter(t *testing.T) {
	landlord := int64(9)

	// rejected before the database is touched
	_, err := NewTrackingRepository(nil).List(context.Background(), TrackingsFilter{LandlordID: &landlord})
	assert.Error(t, err)
}
