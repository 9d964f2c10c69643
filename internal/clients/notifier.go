package clients

import (
	"context"
	"fmt"
	"time"

	"rent-tracking/internal/domain"
	"rent-tracking/pkg/clock"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type NotificationStore interface {
	Create(ctx context.Context, n *domain.Notification) error
}

// Notifier stores the notification so it shows in the user's inbox, then pushes it live.
type Notifier struct {
	store NotificationStore
	ws    *WebSocketClient
	clock clock.Clock
	log   *zap.Logger
}

func NewNotifier(store NotificationStore, ws *WebSocketClient, clk clock.Clock, log *zap.Logger) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{store: store, ws: ws, clock: clk, log: log.Named("notifier")}
}

func (n *Notifier) Notify(ctx context.Context, notification domain.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = n.clock.Now().Truncate(time.Microsecond)
	}

	if err := n.store.Create(ctx, &notification); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}

	if n.ws != nil {
		if err := n.ws.NotifyUser(ctx, notification); err != nil {
			n.log.Warn("push notification failed",
				zap.String("notification_id", notification.ID),
				zap.Int64("user_id", notification.UserID),
				zap.Error(err),
			)
		}
	}
	return nil
}
