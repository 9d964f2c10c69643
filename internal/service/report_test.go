package service

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"rent-tracking/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type memStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func (m *memStore) Save(_ context.Context, name string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.files == nil {
		m.files = make(map[string][]byte)
	}
	key := "k_" + name
	m.files[key] = data
	return key, nil
}

func (m *memStore) URL(_ context.Context, key string) (string, error) {
	return "/files/" + key, nil
}

type recReportNotifier struct {
	userID int64
	url    string
}

func (r *recReportNotifier) NotifyReportReady(_ context.Context, userID int64, _, url, _ string) error {
	r.userID = userID
	r.url = url
	return nil
}

func TestExportMonth(t *testing.T) {
	e := newEnv(time.Date(2025, time.February, 3, 10, 30, 0, 0, time.UTC))
	paid := january("t-1", domain.StatusPaid)
	amount := int64(60000)
	paid.DetectedAmountCents = &amount
	paid.IsPartialPayment = true
	e.trackings.put(paid)

	store := &memStore{}
	notifier := &recReportNotifier{}
	s := NewReportService(e.trackings, store, notifier, e.clock, nil)

	report, err := s.ExportMonth(context.Background(), landlordID, 2025, 1)
	require.NoError(t, err)
	assert.Equal(t, "rent_2025_01_20250203_103000.xlsx", report.FileName)
	assert.Equal(t, "/files/k_rent_2025_01_20250203_103000.xlsx", report.URL)
	assert.Equal(t, 1, report.Rows)
	assert.Equal(t, landlordID, notifier.userID)
	assert.Equal(t, report.URL, notifier.url)

	f, err := excelize.OpenReader(bytes.NewReader(store.files["k_"+report.FileName]))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("2025-01")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Property", rows[0][0])
	assert.Equal(t, "Flat 3B, Rue Oberkampf", rows[1][0])
	assert.Equal(t, "Alex Martin", rows[1][1])
	assert.Equal(t, "2025-01-05", rows[1][2])
	assert.Equal(t, "1050", rows[1][3])
	assert.Equal(t, "600", rows[1][4])
	assert.Equal(t, "yes", rows[1][6])
	assert.Equal(t, "PAID", rows[1][7])
}

func TestExportMonth_OnlyCallersRows(t *testing.T) {
	e := newEnv(at(20))
	e.trackings.put(january("t-1", domain.StatusLate))
	store := &memStore{}
	s := NewReportService(e.trackings, store, nil, e.clock, nil)

	report, err := s.ExportMonth(context.Background(), strangerID, 2025, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Rows)
}

func TestExportMonth_InvalidPeriod(t *testing.T) {
	e := newEnv(at(20))
	s := NewReportService(e.trackings, &memStore{}, nil, e.clock, nil)

	_, err := s.ExportMonth(context.Background(), landlordID, 2025, 13)
	assert.ErrorIs(t, err, domain.ErrInvalidPeriod)
}
