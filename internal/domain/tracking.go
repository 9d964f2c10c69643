package domain

import "time"

type TrackingStatus string

const (
	StatusPending           TrackingStatus = "PENDING"
	StatusLate              TrackingStatus = "LATE"
	StatusReminderSent      TrackingStatus = "REMINDER_SENT"
	StatusOverdue           TrackingStatus = "OVERDUE"
	StatusCritical          TrackingStatus = "CRITICAL"
	StatusPaid              TrackingStatus = "PAID"
	StatusManuallyConfirmed TrackingStatus = "MANUALLY_CONFIRMED"
	StatusIgnored           TrackingStatus = "IGNORED"
)

// OpenStatuses are every status a tracking can still leave.
var OpenStatuses = []TrackingStatus{
	StatusPending,
	StatusLate,
	StatusReminderSent,
	StatusOverdue,
	StatusCritical,
}

func (s TrackingStatus) IsTerminal() bool {
	switch s {
	case StatusPaid, StatusManuallyConfirmed, StatusIgnored:
		return true
	}
	return false
}

func (s TrackingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusLate, StatusReminderSent, StatusOverdue, StatusCritical,
		StatusPaid, StatusManuallyConfirmed, StatusIgnored:
		return true
	}
	return false
}

// RentPaymentTracking is the expected vs. detected rent of one lease for one calendar month.
type RentPaymentTracking struct {
	ID      string
	LeaseID string

	PeriodMonth int
	PeriodYear  int

	ExpectedAmountCents int64
	ExpectedDate        time.Time

	DetectedAmountCents *int64
	DetectedDate        *time.Time
	TransactionID       *string
	IsPartialPayment    bool

	Status TrackingStatus

	ReminderSentAt      *time.Time
	OverdueNotifiedAt   *time.Time
	ManuallyConfirmedAt *time.Time
	IgnoreReason        *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Period returns the first day of the tracked month in loc.
func (t RentPaymentTracking) Period(loc *time.Location) time.Time {
	return time.Date(t.PeriodYear, time.Month(t.PeriodMonth), 1, 0, 0, 0, 0, loc)
}

// LandlordTracking is a tracking joined with what a landlord needs to recognise it.
type LandlordTracking struct {
	RentPaymentTracking

	PropertyTitle string
	TenantName    string
}
