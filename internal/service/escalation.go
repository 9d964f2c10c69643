package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"rent-tracking/internal/domain"
	"rent-tracking/internal/repository"
	"rent-tracking/pkg/clock"

	"go.uber.org/zap"
)

const (
	lateAfterDays     = 5
	reminderAfterDays = 10
	overdueAfterDays  = 15
	criticalAfterDays = 30
)

var escalatableStatuses = []domain.TrackingStatus{
	domain.StatusPending,
	domain.StatusLate,
	domain.StatusReminderSent,
	domain.StatusOverdue,
}

var reminderLadder = []domain.TrackingStatus{domain.StatusLate, domain.StatusReminderSent}

type EscalationSummary struct {
	Checked          int `json:"checked"`
	LateNotified     int `json:"late_notified"`
	EmailsSent       int `json:"emails_sent"`
	EmailsFailed     int `json:"emails_failed"`
	OverdueNotified  int `json:"overdue_notified"`
	CriticalNotified int `json:"critical_notified"`
	Errors           int `json:"errors"`
}

// EscalationDriver moves unpaid trackings up the PENDING → LATE → OVERDUE → CRITICAL ladder.
//
// Every check reads the status loaded at the start of the run, never one written during it, so a
// tracking climbs at most one rung per run however late it is.
type EscalationDriver struct {
	trackings TrackingRepository
	leases    LeaseRepository
	notifier  Notifier
	mailer    Mailer
	clock     clock.Clock
	loc       *time.Location
	workers   int
	appURL    string
	log       *zap.Logger
}

func NewEscalationDriver(
	trackings TrackingRepository,
	leases LeaseRepository,
	notifier Notifier,
	mailer Mailer,
	clk clock.Clock,
	loc *time.Location,
	workers int,
	appURL string,
	log *zap.Logger,
) *EscalationDriver {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &EscalationDriver{
		trackings: trackings,
		leases:    leases,
		notifier:  notifier,
		mailer:    mailer,
		clock:     clk,
		loc:       loc,
		workers:   workers,
		appURL:    strings.TrimRight(appURL, "/"),
		log:       log.Named("escalation"),
	}
}

func (d *EscalationDriver) ProcessReminders(ctx context.Context) (EscalationSummary, error) {
	var summary EscalationSummary

	now := d.clock.Now().In(d.loc)
	today := clock.DateOf(now)

	trackings, err := d.trackings.List(ctx, repository.TrackingsFilter{
		Statuses:  escalatableStatuses,
		DueBefore: &today,
	})
	if err != nil {
		return summary, fmt.Errorf("list trackings to escalate: %w", err)
	}

	counts := newTally()
	err = sweep(ctx, d.workers, trackings, func(ctx context.Context, t domain.RentPaymentTracking) {
		if err := d.escalate(ctx, t, now, counts); err != nil {
			counts.inc("errors")
			d.log.Error("escalation failed",
				zap.String("tracking_id", t.ID),
				zap.String("lease_id", t.LeaseID),
				zap.Error(err),
			)
		}
	})

	summary.Checked = len(trackings)
	summary.LateNotified = counts.get("late")
	summary.EmailsSent = counts.get("email")
	summary.EmailsFailed = counts.get("email_failed")
	summary.OverdueNotified = counts.get("overdue")
	summary.CriticalNotified = counts.get("critical")
	summary.Errors = counts.get("errors")

	d.log.Info("reminders processed",
		zap.Int("checked", summary.Checked),
		zap.Int("late_notified", summary.LateNotified),
		zap.Int("emails_sent", summary.EmailsSent),
		zap.Int("overdue_notified", summary.OverdueNotified),
		zap.Int("critical_notified", summary.CriticalNotified),
		zap.Int("errors", summary.Errors),
	)

	return summary, err
}

func inStatuses(s domain.TrackingStatus, set []domain.TrackingStatus) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}

// escalate evaluates the four checks against the snapshot t.
func (d *EscalationDriver) escalate(ctx context.Context, t domain.RentPaymentTracking, now time.Time, counts *tally) error {
	daysLate := clock.DaysBetween(t.ExpectedDate, now)
	status := t.Status

	toLate := status == domain.StatusPending && daysLate >= lateAfterDays
	toEmail := inStatuses(status, reminderLadder) && daysLate >= reminderAfterDays && t.ReminderSentAt == nil
	toOverdue := inStatuses(status, reminderLadder) && daysLate >= overdueAfterDays
	toCritical := status == domain.StatusOverdue && daysLate >= criticalAfterDays

	if !toLate && !toEmail && !toOverdue && !toCritical {
		return nil
	}

	lease, err := d.leases.GetByID(ctx, t.LeaseID)
	if err != nil {
		return fmt.Errorf("load lease: %w", err)
	}

	stamp := now.Truncate(time.Microsecond)

	if toLate {
		late := domain.StatusLate
		applied, err := d.trackings.Update(ctx, t.ID,
			repository.TrackingGuard{Statuses: []domain.TrackingStatus{domain.StatusPending}},
			repository.TrackingUpdate{Status: &late, UpdatedAt: stamp},
		)
		if err != nil {
			return err
		}
		if applied {
			counts.inc("late")
			d.notify(ctx, t, domain.Notification{
				UserID: lease.LandlordID,
				Type:   domain.NotificationRentNotDetected,
				Title:  "Rent not detected",
				Message: fmt.Sprintf("No payment of %s was detected for %s (%s), due on %s.",
					formatCents(t.ExpectedAmountCents), lease.PropertyTitle,
					formatPeriod(t.PeriodYear, t.PeriodMonth), formatDate(t.ExpectedDate)),
				Link: trackingLink(t),
			})
		}
	}

	if toEmail {
		applied, err := d.trackings.Update(ctx, t.ID,
			repository.TrackingGuard{Statuses: reminderLadder, ReminderUnsent: true},
			repository.TrackingUpdate{ReminderSentAt: &stamp, UpdatedAt: stamp},
		)
		if err != nil {
			return err
		}
		if applied {
			d.sendReminderEmail(ctx, t, lease, daysLate, stamp, counts)
		}
	}

	if toOverdue {
		overdue := domain.StatusOverdue
		applied, err := d.trackings.Update(ctx, t.ID,
			repository.TrackingGuard{Statuses: reminderLadder},
			repository.TrackingUpdate{Status: &overdue, OverdueNotifiedAt: &stamp, UpdatedAt: stamp},
		)
		if err != nil {
			return err
		}
		if applied {
			counts.inc("overdue")
			d.notify(ctx, t, domain.Notification{
				UserID: lease.LandlordID,
				Type:   domain.NotificationRentUnpaid,
				Title:  "Rent unpaid",
				Message: fmt.Sprintf("The rent of %s for %s (%s) is still unpaid %d days after its due date.",
					formatCents(t.ExpectedAmountCents), lease.PropertyTitle,
					formatPeriod(t.PeriodYear, t.PeriodMonth), daysLate),
				Link: trackingLink(t),
			})
		}
	}

	if toCritical {
		critical := domain.StatusCritical
		applied, err := d.trackings.Update(ctx, t.ID,
			repository.TrackingGuard{Statuses: []domain.TrackingStatus{domain.StatusOverdue}},
			repository.TrackingUpdate{Status: &critical, UpdatedAt: stamp},
		)
		if err != nil {
			return err
		}
		if applied {
			counts.inc("critical")
			d.notify(ctx, t, domain.Notification{
				UserID: lease.LandlordID,
				Type:   domain.NotificationRentCritical,
				Title:  "Urgent: rent unpaid for over a month",
				Message: fmt.Sprintf("The rent of %s for %s (%s) has been unpaid for %d days. Consider contacting your tenant or starting a recovery procedure.",
					formatCents(t.ExpectedAmountCents), lease.PropertyTitle,
					formatPeriod(t.PeriodYear, t.PeriodMonth), daysLate),
				Link: trackingLink(t),
			})
		}
	}

	return nil
}

// notify is best effort: the transition that triggered it already stands.
func (d *EscalationDriver) notify(ctx context.Context, t domain.RentPaymentTracking, n domain.Notification) {
	if d.notifier == nil {
		return
	}
	if err := d.notifier.Notify(ctx, n); err != nil {
		d.log.Warn("notification failed",
			zap.String("tracking_id", t.ID),
			zap.String("type", string(n.Type)),
			zap.Int64("user_id", n.UserID),
			zap.Error(err),
		)
	}
}

// sendReminderEmail runs after the marker was claimed. A failed send releases the marker so the
// next daily run retries it.
func (d *EscalationDriver) sendReminderEmail(ctx context.Context, t domain.RentPaymentTracking, lease *domain.Lease, daysLate int, claimedAt time.Time, counts *tally) {
	err := d.sendEmail(ctx, t, lease, daysLate)
	if err == nil {
		counts.inc("email")
		return
	}

	counts.inc("email_failed")
	d.log.Warn("reminder email failed",
		zap.String("tracking_id", t.ID),
		zap.String("recipient", lease.LandlordEmail),
		zap.Error(err),
	)

	if _, rerr := d.trackings.ReleaseReminder(ctx, t.ID, claimedAt); rerr != nil {
		d.log.Error("release reminder marker failed", zap.String("tracking_id", t.ID), zap.Error(rerr))
	}
}

func (d *EscalationDriver) sendEmail(ctx context.Context, t domain.RentPaymentTracking, lease *domain.Lease, daysLate int) error {
	if d.mailer == nil {
		return fmt.Errorf("no mailer configured")
	}
	if lease.LandlordEmail == "" {
		return fmt.Errorf("landlord %d has no email address", lease.LandlordID)
	}

	period := formatPeriod(t.PeriodYear, t.PeriodMonth)
	name := lease.LandlordName
	if name == "" {
		name = "there"
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Hello %s,\n\n", name)
	fmt.Fprintf(&body, "We still have not detected the rent of %s for %s (%s), which was due on %s (%d days ago).\n\n",
		formatCents(t.ExpectedAmountCents), lease.PropertyTitle, period, formatDate(t.ExpectedDate), daysLate)
	body.WriteString("You can confirm a payment received outside your bank account, send your tenant a friendly reminder, or ignore this month from your dashboard:\n")
	fmt.Fprintf(&body, "%s%s\n", d.appURL, trackingLink(t))

	return d.mailer.Send(ctx, domain.Email{
		To:      lease.LandlordEmail,
		Subject: fmt.Sprintf("Rent still unpaid for %s (%s)", lease.PropertyTitle, period),
		Body:    body.String(),
	})
}

func trackingLink(t domain.RentPaymentTracking) string {
	return fmt.Sprintf("/leases/%s/rent?year=%d&month=%d", t.LeaseID, t.PeriodYear, t.PeriodMonth)
}
