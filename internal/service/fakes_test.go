package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"rent-tracking/internal/domain"
	"rent-tracking/internal/repository"
)

// memTrackings mirrors the guarded-write semantics of the SQL repository.
type memTrackings struct {
	mu   sync.Mutex
	rows map[string]*domain.RentPaymentTracking

	leases  *memLeases
	updates int
	failOn  map[string]error
}

func newMemTrackings(leases *memLeases) *memTrackings {
	return &memTrackings{rows: make(map[string]*domain.RentPaymentTracking), leases: leases}
}

func (m *memTrackings) put(t domain.RentPaymentTracking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := t
	m.rows[t.ID] = &cp
}

func (m *memTrackings) get(id string) domain.RentPaymentTracking {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.rows[id]
}

func (m *memTrackings) all() []domain.RentPaymentTracking {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.RentPaymentTracking, 0, len(m.rows))
	for _, t := range m.rows {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memTrackings) updateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updates
}

func (m *memTrackings) CreateIfAbsent(_ context.Context, t *domain.RentPaymentTracking) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.LeaseID == t.LeaseID && row.PeriodMonth == t.PeriodMonth && row.PeriodYear == t.PeriodYear {
			return false, nil
		}
	}
	cp := *t
	m.rows[t.ID] = &cp
	return true, nil
}

func (m *memTrackings) GetByID(_ context.Context, id string) (*domain.RentPaymentTracking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrTrackingNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTrackings) matches(t *domain.RentPaymentTracking, f repository.TrackingsFilter) bool {
	if len(f.Statuses) > 0 && !inStatuses(t.Status, f.Statuses) {
		return false
	}
	if f.DueBefore != nil && !t.ExpectedDate.Before(*f.DueBefore) {
		return false
	}
	if f.PeriodYear != nil && t.PeriodYear != *f.PeriodYear {
		return false
	}
	if f.PeriodMonth != nil && t.PeriodMonth != *f.PeriodMonth {
		return false
	}
	return true
}

func (m *memTrackings) List(_ context.Context, f repository.TrackingsFilter) ([]domain.RentPaymentTracking, error) {
	var out []domain.RentPaymentTracking
	for _, t := range m.all() {
		if m.matches(&t, f) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memTrackings) ListForLandlord(_ context.Context, f repository.TrackingsFilter) ([]domain.LandlordTracking, error) {
	var out []domain.LandlordTracking
	for _, t := range m.all() {
		if !m.matches(&t, f) {
			continue
		}
		lease, ok := m.leases.byID(t.LeaseID)
		if !ok {
			continue
		}
		if f.LandlordID != nil && lease.LandlordID != *f.LandlordID {
			continue
		}
		out = append(out, domain.LandlordTracking{
			RentPaymentTracking: t,
			PropertyTitle:       lease.PropertyTitle,
			TenantName:          lease.TenantName,
		})
	}
	return out, nil
}

func (m *memTrackings) Update(_ context.Context, id string, guard repository.TrackingGuard, upd repository.TrackingUpdate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failOn[id]; err != nil {
		return false, err
	}
	if len(guard.Statuses) == 0 {
		return false, errors.New("tracking update requires a status guard")
	}

	t, ok := m.rows[id]
	if !ok || !inStatuses(t.Status, guard.Statuses) {
		return false, nil
	}
	if guard.ReminderUnsent && t.ReminderSentAt != nil {
		return false, nil
	}

	m.updates++
	t.UpdatedAt = upd.UpdatedAt
	if upd.Status != nil {
		t.Status = *upd.Status
	}
	if upd.ReminderSentAt != nil {
		v := *upd.ReminderSentAt
		t.ReminderSentAt = &v
	}
	if upd.OverdueNotifiedAt != nil {
		v := *upd.OverdueNotifiedAt
		t.OverdueNotifiedAt = &v
	}
	if upd.ManuallyConfirmedAt != nil {
		v := *upd.ManuallyConfirmedAt
		t.ManuallyConfirmedAt = &v
	}
	if upd.IgnoreReason != nil {
		v := *upd.IgnoreReason
		t.IgnoreReason = &v
	}
	if d := upd.Detection; d != nil {
		amount, date, txID := d.AmountCents, d.Date, d.TransactionID
		t.DetectedAmountCents = &amount
		t.DetectedDate = &date
		t.TransactionID = &txID
		t.IsPartialPayment = d.Partial
	}
	return true, nil
}

func (m *memTrackings) ReleaseReminder(_ context.Context, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.rows[id]
	if !ok || t.ReminderSentAt == nil || !t.ReminderSentAt.Equal(at) || t.Status.IsTerminal() {
		return false, nil
	}
	t.ReminderSentAt = nil
	return true, nil
}

type memLeases struct {
	mu     sync.Mutex
	leases map[string]domain.Lease
	ended  map[string]bool
}

func newMemLeases(leases ...domain.Lease) *memLeases {
	m := &memLeases{leases: make(map[string]domain.Lease), ended: make(map[string]bool)}
	for _, l := range leases {
		m.leases[l.ID] = l
	}
	return m
}

func (m *memLeases) byID(id string) (domain.Lease, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leases[id]
	return l, ok
}

func (m *memLeases) ListActive(_ context.Context) ([]domain.Lease, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Lease
	for id, l := range m.leases {
		if !m.ended[id] {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memLeases) GetByID(_ context.Context, id string) (*domain.Lease, error) {
	l, ok := m.byID(id)
	if !ok {
		return nil, domain.ErrLeaseNotFound
	}
	return &l, nil
}

type memTransactions struct {
	mu  sync.Mutex
	txs []domain.BankTransaction
}

func (m *memTransactions) add(tx domain.BankTransaction) {
	m.mu.Lock()
	m.txs = append(m.txs, tx)
	m.mu.Unlock()
}

func (m *memTransactions) ListForLease(_ context.Context, leaseID string, from, to time.Time) ([]domain.BankTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.BankTransaction
	for _, tx := range m.txs {
		if tx.LeaseID == leaseID && !tx.Date.Before(from) && tx.Date.Before(to) {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

type memConversations struct {
	mu       sync.Mutex
	convs    []domain.Conversation
	messages []domain.Message
	failSend error
}

func (m *memConversations) FindForLease(_ context.Context, listingID string, landlordID, tenantID int64) (*domain.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.convs {
		if c.ListingID == listingID && c.LandlordID == landlordID && c.TenantID == tenantID {
			cp := c
			return &cp, nil
		}
	}
	return nil, domain.ErrConversationNotFound
}

func (m *memConversations) AppendMessage(_ context.Context, msg *domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSend != nil {
		return m.failSend
	}
	m.messages = append(m.messages, *msg)
	return nil
}

type recNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
	err  error
}

func (r *recNotifier) Notify(_ context.Context, n domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, n)
	return nil
}

func (r *recNotifier) types() []domain.NotificationType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.NotificationType, len(r.sent))
	for i, n := range r.sent {
		out[i] = n.Type
	}
	return out
}

type recMailer struct {
	mu   sync.Mutex
	sent []domain.Email
	err  error
}

func (r *recMailer) Send(_ context.Context, e domain.Email) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, e)
	return nil
}

func (r *recMailer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}
