package domain

import "time"

// Lease is the read-only view of a rental agreement and its active financial period.
type Lease struct {
	ID         string
	PropertyID string
	ListingID  string

	LandlordID    int64
	LandlordName  string
	LandlordEmail string

	TenantID    int64
	TenantName  string
	TenantEmail string

	PropertyTitle string

	StartDate  time.Time
	PaymentDay int

	BaseRentCents       int64
	ServiceChargesCents int64
}

func (l Lease) MonthlyAmountCents() int64 {
	return l.BaseRentCents + l.ServiceChargesCents
}

func (l Lease) IsOwnedBy(userID int64) bool {
	return userID != 0 && l.LandlordID == userID
}

type BankTransaction struct {
	ID          string
	LeaseID     string
	Date        time.Time
	AmountCents int64
}

// AbsAmountCents ignores the sign: debits may be stored negative.
func (t BankTransaction) AbsAmountCents() int64 {
	if t.AmountCents < 0 {
		return -t.AmountCents
	}
	return t.AmountCents
}
