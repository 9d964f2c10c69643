package service

import (
	"context"
	"time"

	"rent-tracking/internal/domain"
	"rent-tracking/internal/repository"
)

type TrackingRepository interface {
	CreateIfAbsent(ctx context.Context, t *domain.RentPaymentTracking) (bool, error)
	GetByID(ctx context.Context, id string) (*domain.RentPaymentTracking, error)
	List(ctx context.Context, f repository.TrackingsFilter) ([]domain.RentPaymentTracking, error)
	ListForLandlord(ctx context.Context, f repository.TrackingsFilter) ([]domain.LandlordTracking, error)
	Update(ctx context.Context, id string, guard repository.TrackingGuard, upd repository.TrackingUpdate) (bool, error)
	ReleaseReminder(ctx context.Context, id string, at time.Time) (bool, error)
}

type LeaseRepository interface {
	ListActive(ctx context.Context) ([]domain.Lease, error)
	GetByID(ctx context.Context, id string) (*domain.Lease, error)
}

type BankTransactionRepository interface {
	ListForLease(ctx context.Context, leaseID string, from, to time.Time) ([]domain.BankTransaction, error)
}

type ConversationRepository interface {
	FindForLease(ctx context.Context, listingID string, landlordID, tenantID int64) (*domain.Conversation, error)
	AppendMessage(ctx context.Context, m *domain.Message) error
}

// Notifier delivers in-app notifications.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

type Mailer interface {
	Send(ctx context.Context, e domain.Email) error
}
