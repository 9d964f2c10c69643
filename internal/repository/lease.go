package repository

import (
	"context"
	"database/sql"
	"errors"

	"rent-tracking/internal/domain"
)

// leaseSelect flattens the lease, its open financial period, the property owner and the tenant.
const leaseSelect = `
	SELECT
		l.id,
		l.property_id,
		COALESCE(l.listing_id::text, ''),
		p.owner_id,
		COALESCE(NULLIF(TRIM(CONCAT_WS(' ', lu.first_name, lu.last_name)), ''), ''),
		COALESCE(lu.email, ''),
		l.tenant_id,
		COALESCE(NULLIF(TRIM(CONCAT_WS(' ', tu.first_name, tu.last_name)), ''), ''),
		COALESCE(tu.email, ''),
		COALESCE(p.title, ''),
		l.start_date,
		COALESCE(l.payment_day, 1),
		fp.base_rent_cents,
		fp.service_charges_cents
	FROM leases l
	JOIN lease_financial_periods fp ON fp.lease_id = l.id AND fp.end_date IS NULL
	JOIN properties p ON p.id = l.property_id
	LEFT JOIN users lu ON lu.id = p.owner_id
	LEFT JOIN users tu ON tu.id = l.tenant_id
`

type LeaseRepository struct {
	db *sql.DB
}

func NewLeaseRepository(db *sql.DB) *LeaseRepository {
	return &LeaseRepository{db: db}
}

// ListActive returns every lease with an open financial period.
func (r *LeaseRepository) ListActive(ctx context.Context) ([]domain.Lease, error) {
	rows, err := r.db.QueryContext(ctx, leaseSelect+" ORDER BY l.start_date, l.id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Lease
	for rows.Next() {
		l, err := scanLease(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *LeaseRepository) GetByID(ctx context.Context, id string) (*domain.Lease, error) {
	l, err := scanLease(r.db.QueryRowContext(ctx, leaseSelect+" WHERE l.id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrLeaseNotFound
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

func scanLease(row rowScanner) (*domain.Lease, error) {
	var l domain.Lease
	if err := row.Scan(
		&l.ID,
		&l.PropertyID,
		&l.ListingID,
		&l.LandlordID,
		&l.LandlordName,
		&l.LandlordEmail,
		&l.TenantID,
		&l.TenantName,
		&l.TenantEmail,
		&l.PropertyTitle,
		&l.StartDate,
		&l.PaymentDay,
		&l.BaseRentCents,
		&l.ServiceChargesCents,
	); err != nil {
		return nil, err
	}
	return &l, nil
}
