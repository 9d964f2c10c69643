package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"rent-tracking/internal/domain"
	"rent-tracking/internal/repository"
	"rent-tracking/pkg/clock"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OverrideService holds the landlord's manual actions on a tracking. Each one stops the automatic
// ladder by writing the status directly.
type OverrideService struct {
	trackings     TrackingRepository
	leases        LeaseRepository
	conversations ConversationRepository
	notifier      Notifier
	clock         clock.Clock
	log           *zap.Logger
}

func NewOverrideService(
	trackings TrackingRepository,
	leases LeaseRepository,
	conversations ConversationRepository,
	notifier Notifier,
	clk clock.Clock,
	log *zap.Logger,
) *OverrideService {
	if log == nil {
		log = zap.NewNop()
	}
	return &OverrideService{
		trackings:     trackings,
		leases:        leases,
		conversations: conversations,
		notifier:      notifier,
		clock:         clk,
		log:           log.Named("override"),
	}
}

// authorize loads the tracking and its lease and checks the caller owns the property and the
// tracking is still open.
func (s *OverrideService) authorize(ctx context.Context, trackingID string, callerID int64) (*domain.RentPaymentTracking, *domain.Lease, error) {
	t, err := s.trackings.GetByID(ctx, trackingID)
	if err != nil {
		return nil, nil, err
	}

	lease, err := s.leases.GetByID(ctx, t.LeaseID)
	if err != nil {
		return nil, nil, fmt.Errorf("load lease %s: %w", t.LeaseID, err)
	}
	if !lease.IsOwnedBy(callerID) {
		return nil, nil, domain.ErrForbidden
	}
	if t.Status.IsTerminal() {
		return nil, nil, domain.ErrTrackingResolved
	}

	return t, lease, nil
}

func (s *OverrideService) MarkAsPaid(ctx context.Context, trackingID string, callerID int64) (*domain.RentPaymentTracking, error) {
	t, _, err := s.authorize(ctx, trackingID, callerID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().Truncate(time.Microsecond)
	confirmed := domain.StatusManuallyConfirmed

	applied, err := s.trackings.Update(ctx, t.ID,
		repository.TrackingGuard{Statuses: domain.OpenStatuses},
		repository.TrackingUpdate{Status: &confirmed, ManuallyConfirmedAt: &now, UpdatedAt: now},
	)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, domain.ErrTrackingResolved
	}

	t.Status = confirmed
	t.ManuallyConfirmedAt = &now
	t.UpdatedAt = now

	s.log.Info("tracking confirmed manually", zap.String("tracking_id", t.ID), zap.Int64("landlord_id", callerID))
	return t, nil
}

func (s *OverrideService) SendFriendlyReminder(ctx context.Context, trackingID string, callerID int64) (*domain.RentPaymentTracking, error) {
	t, lease, err := s.authorize(ctx, trackingID, callerID)
	if err != nil {
		return nil, err
	}

	conv, err := s.conversations.FindForLease(ctx, lease.ListingID, lease.LandlordID, lease.TenantID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().Truncate(time.Microsecond)

	// The message is what the tenant receives, so the row only moves once it is posted.
	msg := &domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		SenderID:       lease.LandlordID,
		Body:           FriendlyReminderMessage(*t, *lease),
		CreatedAt:      now,
	}
	if err := s.conversations.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("post friendly reminder: %w", err)
	}

	reminded := domain.StatusReminderSent
	applied, err := s.trackings.Update(ctx, t.ID,
		repository.TrackingGuard{Statuses: domain.OpenStatuses},
		repository.TrackingUpdate{Status: &reminded, ReminderSentAt: &now, UpdatedAt: now},
	)
	if err != nil {
		return nil, err
	}
	if !applied {
		s.log.Warn("friendly reminder posted but tracking resolved meanwhile",
			zap.String("tracking_id", t.ID),
			zap.String("message_id", msg.ID),
		)
		return nil, domain.ErrTrackingResolved
	}

	t.Status = reminded
	t.ReminderSentAt = &now
	t.UpdatedAt = now

	if s.notifier != nil {
		err := s.notifier.Notify(ctx, domain.Notification{
			UserID: lease.TenantID,
			Type:   domain.NotificationFriendlyReminder,
			Title:  "Rent reminder",
			Message: fmt.Sprintf("Your landlord sent you a reminder about the rent for %s.",
				formatPeriod(t.PeriodYear, t.PeriodMonth)),
			Link: fmt.Sprintf("/messages/%s", conv.ID),
		})
		if err != nil {
			s.log.Warn("tenant notification failed", zap.String("tracking_id", t.ID), zap.Error(err))
		}
	}

	s.log.Info("friendly reminder sent", zap.String("tracking_id", t.ID), zap.Int64("landlord_id", callerID))
	return t, nil
}

func (s *OverrideService) IgnoreMonth(ctx context.Context, trackingID string, callerID int64, reason string) (*domain.RentPaymentTracking, error) {
	t, _, err := s.authorize(ctx, trackingID, callerID)
	if err != nil {
		return nil, err
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.ErrIgnoreReasonRequired
	}

	now := s.clock.Now().Truncate(time.Microsecond)
	ignored := domain.StatusIgnored

	applied, err := s.trackings.Update(ctx, t.ID,
		repository.TrackingGuard{Statuses: domain.OpenStatuses},
		repository.TrackingUpdate{Status: &ignored, IgnoreReason: &reason, UpdatedAt: now},
	)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, domain.ErrTrackingResolved
	}

	t.Status = ignored
	t.IgnoreReason = &reason
	t.UpdatedAt = now

	s.log.Info("tracking ignored", zap.String("tracking_id", t.ID), zap.Int64("landlord_id", callerID))
	return t, nil
}

// ListForLandlord returns the caller's trackings for one month.
func (s *OverrideService) ListForLandlord(ctx context.Context, landlordID int64, year, month int) ([]domain.LandlordTracking, error) {
	return listLandlordMonth(ctx, s.trackings, landlordID, year, month)
}

func listLandlordMonth(ctx context.Context, trackings TrackingRepository, landlordID int64, year, month int) ([]domain.LandlordTracking, error) {
	if month < 1 || month > 12 || year < 1 {
		return nil, domain.ErrInvalidPeriod
	}
	return trackings.ListForLandlord(ctx, repository.TrackingsFilter{
		LandlordID:  &landlordID,
		PeriodYear:  &year,
		PeriodMonth: &month,
	})
}

func FriendlyReminderMessage(t domain.RentPaymentTracking, lease domain.Lease) string {
	greeting := "Hello"
	if lease.TenantName != "" {
		greeting = "Hello " + lease.TenantName
	}

	return fmt.Sprintf(
		"%s,\n\nThis is a friendly reminder that the rent of %s for %s was due on %s and I have not received it yet. "+
			"If you have already paid, please ignore this message.\n\nThank you,\n%s",
		greeting,
		formatCents(t.ExpectedAmountCents),
		formatPeriod(t.PeriodYear, t.PeriodMonth),
		formatDate(t.ExpectedDate),
		lease.LandlordName,
	)
}
