package repository

import (
	"context"
	"database/sql"
	"time"

	"rent-tracking/internal/domain"
)

type BankTransactionRepository struct {
	db *sql.DB
}

func NewBankTransactionRepository(db *sql.DB) *BankTransactionRepository {
	return &BankTransactionRepository{db: db}
}

// ListForLease returns transactions already linked to the lease, dated within [from, to), oldest first.
func (r *BankTransactionRepository) ListForLease(ctx context.Context, leaseID string, from, to time.Time) ([]domain.BankTransaction, error) {
	query := `
		SELECT id, lease_id, date, amount_cents
		FROM bank_transactions
		WHERE lease_id = $1
		  AND date >= $2
		  AND date < $3
		ORDER BY date, id
	`

	rows, err := r.db.QueryContext(ctx, query, leaseID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.BankTransaction
	for rows.Next() {
		var t domain.BankTransaction
		if err := rows.Scan(&t.ID, &t.LeaseID, &t.Date, &t.AmountCents); err != nil {
			return nil, err
		}
		out = append(out, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
