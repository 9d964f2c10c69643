package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"rent-tracking/internal/domain"
)

type ConversationRepository struct {
	db *sql.DB
}

func NewConversationRepository(db *sql.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) FindForLease(ctx context.Context, listingID string, landlordID, tenantID int64) (*domain.Conversation, error) {
	query := `
		SELECT id, listing_id, landlord_id, tenant_id
		FROM conversations
		WHERE listing_id = $1
		  AND landlord_id = $2
		  AND tenant_id = $3
		ORDER BY created_at DESC
		LIMIT 1
	`

	var c domain.Conversation
	err := r.db.QueryRowContext(ctx, query, listingID, landlordID, tenantID).Scan(
		&c.ID,
		&c.ListingID,
		&c.LandlordID,
		&c.TenantID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// AppendMessage stores m and bumps the conversation's last activity in one transaction.
func (r *ConversationRepository) AppendMessage(ctx context.Context, m *domain.Message) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, body, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, m.ID, m.ConversationID, m.SenderID, m.Body, m.CreatedAt); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE conversations SET last_message_at = $2, updated_at = $2 WHERE id = $1
	`, m.ConversationID, m.CreatedAt); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}

	return tx.Commit()
}
