package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"rent-tracking/internal/domain"
)

const trackingColumns = `t.id, t.lease_id, t.period_month, t.period_year, t.expected_amount_cents, t.expected_date,
	t.detected_amount_cents, t.detected_date, t.transaction_id, t.is_partial_payment, t.status,
	t.reminder_sent_at, t.overdue_notified_at, t.manually_confirmed_at, t.ignore_reason,
	t.created_at, t.updated_at`

// TrackingGuard restricts an update to rows still matching what the caller read.
type TrackingGuard struct {
	Statuses       []domain.TrackingStatus
	ReminderUnsent bool
}

type PaymentDetection struct {
	AmountCents   int64
	Date          time.Time
	TransactionID string
	Partial       bool
}

// TrackingUpdate lists the columns to write; nil fields are left as they are.
type TrackingUpdate struct {
	Status              *domain.TrackingStatus
	ReminderSentAt      *time.Time
	OverdueNotifiedAt   *time.Time
	ManuallyConfirmedAt *time.Time
	IgnoreReason        *string
	Detection           *PaymentDetection
	UpdatedAt           time.Time
}

type TrackingsFilter struct {
	Statuses    []domain.TrackingStatus
	DueBefore   *time.Time
	LandlordID  *int64 // rejected by List, which does not join properties
	PeriodYear  *int
	PeriodMonth *int
}

type TrackingRepository struct {
	db *sql.DB
}

func NewTrackingRepository(db *sql.DB) *TrackingRepository {
	return &TrackingRepository{db: db}
}

// CreateIfAbsent inserts t unless a row for the same lease and period exists.
// It reports whether a row was inserted.
func (r *TrackingRepository) CreateIfAbsent(ctx context.Context, t *domain.RentPaymentTracking) (bool, error) {
	query := `
		INSERT INTO rent_payment_trackings (
			id, lease_id, period_month, period_year, expected_amount_cents, expected_date,
			status, is_partial_payment, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, false, $8, $8)
		ON CONFLICT (lease_id, period_month, period_year) DO NOTHING
	`

	res, err := r.db.ExecContext(ctx, query,
		t.ID,
		t.LeaseID,
		t.PeriodMonth,
		t.PeriodYear,
		t.ExpectedAmountCents,
		t.ExpectedDate,
		string(t.Status),
		t.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert tracking for lease %s: %w", t.LeaseID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *TrackingRepository) GetByID(ctx context.Context, id string) (*domain.RentPaymentTracking, error) {
	query := `SELECT ` + trackingColumns + ` FROM rent_payment_trackings t WHERE t.id = $1`

	t, err := scanTracking(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTrackingNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TrackingRepository) List(ctx context.Context, f TrackingsFilter) ([]domain.RentPaymentTracking, error) {
	base := `SELECT ` + trackingColumns + ` FROM rent_payment_trackings t`

	where, args, err := trackingsWhere(f, false)
	if err != nil {
		return nil, err
	}
	query := base + " WHERE " + strings.Join(where, " AND ") + " ORDER BY t.expected_date, t.id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RentPaymentTracking
	for rows.Next() {
		t, err := scanTracking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListForLandlord returns the trackings of every property owned by the landlord.
func (r *TrackingRepository) ListForLandlord(ctx context.Context, f TrackingsFilter) ([]domain.LandlordTracking, error) {
	base := `SELECT ` + trackingColumns + `,
			COALESCE(p.title, ''),
			COALESCE(NULLIF(TRIM(CONCAT_WS(' ', tu.first_name, tu.last_name)), ''), tu.email, '')
		FROM rent_payment_trackings t
		JOIN leases l ON l.id = t.lease_id
		JOIN properties p ON p.id = l.property_id
		LEFT JOIN users tu ON tu.id = l.tenant_id`

	where, args, err := trackingsWhere(f, true)
	if err != nil {
		return nil, err
	}
	query := base + " WHERE " + strings.Join(where, " AND ") + " ORDER BY t.period_year DESC, t.period_month DESC, p.title"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LandlordTracking
	for rows.Next() {
		var lt domain.LandlordTracking
		dest := append(trackingDest(&lt.RentPaymentTracking), &lt.PropertyTitle, &lt.TenantName)
		var status string
		dest[10] = &status
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		lt.Status = domain.TrackingStatus(status)
		out = append(out, lt)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update applies upd to the row when it still satisfies guard and reports whether it did.
func (r *TrackingRepository) Update(ctx context.Context, id string, guard TrackingGuard, upd TrackingUpdate) (bool, error) {
	query, args, err := buildTrackingUpdate(id, guard, upd)
	if err != nil {
		return false, err
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update tracking %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ReleaseReminder clears a reminder marker this process claimed at `at`, so a later sweep can retry
// the email. A marker written by anyone else is left alone.
func (r *TrackingRepository) ReleaseReminder(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE rent_payment_trackings
		SET reminder_sent_at = NULL
		WHERE id = $1 AND reminder_sent_at = $2 AND status NOT IN ('PAID', 'MANUALLY_CONFIRMED', 'IGNORED')
	`, id, at)
	if err != nil {
		return false, fmt.Errorf("release reminder for %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func buildTrackingUpdate(id string, guard TrackingGuard, upd TrackingUpdate) (string, []any, error) {
	if len(guard.Statuses) == 0 {
		return "", nil, errors.New("tracking update requires a status guard")
	}

	updatedAt := upd.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	sets := []string{"updated_at = $1"}
	args := []any{updatedAt}
	i := 2

	set := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, i))
		args = append(args, value)
		i++
	}

	if upd.Status != nil {
		set("status", string(*upd.Status))
	}
	if upd.ReminderSentAt != nil {
		set("reminder_sent_at", *upd.ReminderSentAt)
	}
	if upd.OverdueNotifiedAt != nil {
		set("overdue_notified_at", *upd.OverdueNotifiedAt)
	}
	if upd.ManuallyConfirmedAt != nil {
		set("manually_confirmed_at", *upd.ManuallyConfirmedAt)
	}
	if upd.IgnoreReason != nil {
		set("ignore_reason", *upd.IgnoreReason)
	}
	if d := upd.Detection; d != nil {
		set("detected_amount_cents", d.AmountCents)
		set("detected_date", d.Date)
		set("transaction_id", d.TransactionID)
		set("is_partial_payment", d.Partial)
	}

	where := []string{fmt.Sprintf("id = $%d", i), fmt.Sprintf("status = ANY($%d)", i+1)}
	args = append(args, id, statusStrings(guard.Statuses))
	if guard.ReminderUnsent {
		where = append(where, "reminder_sent_at IS NULL")
	}

	query := "UPDATE rent_payment_trackings SET " + strings.Join(sets, ", ") + " WHERE " + strings.Join(where, " AND ")
	return query, args, nil
}

// trackingsWhere builds the filter clauses. The landlord clause needs the properties join, so it
// is only allowed when withProperties is set.
func trackingsWhere(f TrackingsFilter, withProperties bool) ([]string, []any, error) {
	where := []string{"1=1"}
	args := []any{}
	i := 1

	if len(f.Statuses) > 0 {
		where = append(where, fmt.Sprintf("t.status = ANY($%d)", i))
		args = append(args, statusStrings(f.Statuses))
		i++
	}
	if f.DueBefore != nil {
		where = append(where, fmt.Sprintf("t.expected_date < $%d", i))
		args = append(args, *f.DueBefore)
		i++
	}
	if f.LandlordID != nil {
		if !withProperties {
			return nil, nil, errors.New("landlord filter requires the properties join")
		}
		where = append(where, fmt.Sprintf("p.owner_id = $%d", i))
		args = append(args, *f.LandlordID)
		i++
	}
	if f.PeriodYear != nil {
		where = append(where, fmt.Sprintf("t.period_year = $%d", i))
		args = append(args, *f.PeriodYear)
		i++
	}
	if f.PeriodMonth != nil {
		where = append(where, fmt.Sprintf("t.period_month = $%d", i))
		args = append(args, *f.PeriodMonth)
		i++
	}

	return where, args, nil
}

func statusStrings(statuses []domain.TrackingStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

type rowScanner interface {
	Scan(dest ...any) error
}

func trackingDest(t *domain.RentPaymentTracking) []any {
	return []any{
		&t.ID,
		&t.LeaseID,
		&t.PeriodMonth,
		&t.PeriodYear,
		&t.ExpectedAmountCents,
		&t.ExpectedDate,
		&t.DetectedAmountCents,
		&t.DetectedDate,
		&t.TransactionID,
		&t.IsPartialPayment,
		nil, // status
		&t.ReminderSentAt,
		&t.OverdueNotifiedAt,
		&t.ManuallyConfirmedAt,
		&t.IgnoreReason,
		&t.CreatedAt,
		&t.UpdatedAt,
	}
}

func scanTracking(row rowScanner) (*domain.RentPaymentTracking, error) {
	var t domain.RentPaymentTracking
	var status string

	dest := trackingDest(&t)
	dest[10] = &status
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	t.Status = domain.TrackingStatus(status)
	return &t, nil
}
