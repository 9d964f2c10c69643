package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"rent-tracking/internal/domain"
	"rent-tracking/internal/service"
	"rent-tracking/internal/transport/auth"
	"rent-tracking/pkg/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTrackings struct {
	err        error
	lastReason string
	lastPeriod [2]int
	rows       []domain.LandlordTracking
}

func (f *fakeTrackings) tracking(id string, status domain.TrackingStatus) *domain.RentPaymentTracking {
	return &domain.RentPaymentTracking{
		ID:                  id,
		LeaseID:             "lease-1",
		PeriodMonth:         1,
		PeriodYear:          2025,
		ExpectedAmountCents: 105000,
		ExpectedDate:        clock.Date(2025, time.January, 5),
		Status:              status,
	}
}

func (f *fakeTrackings) MarkAsPaid(_ context.Context, id string, _ int64) (*domain.RentPaymentTracking, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tracking(id, domain.StatusManuallyConfirmed), nil
}

func (f *fakeTrackings) SendFriendlyReminder(_ context.Context, id string, _ int64) (*domain.RentPaymentTracking, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tracking(id, domain.StatusReminderSent), nil
}

func (f *fakeTrackings) IgnoreMonth(_ context.Context, id string, _ int64, reason string) (*domain.RentPaymentTracking, error) {
	f.lastReason = reason
	if f.err != nil {
		return nil, f.err
	}
	t := f.tracking(id, domain.StatusIgnored)
	t.IgnoreReason = &reason
	return t, nil
}

func (f *fakeTrackings) ListForLandlord(_ context.Context, _ int64, year, month int) ([]domain.LandlordTracking, error) {
	f.lastPeriod = [2]int{year, month}
	return f.rows, f.err
}

type fakeReports struct{ calls int }

func (f *fakeReports) ExportMonth(_ context.Context, landlordID int64, year, month int) (*service.Report, error) {
	f.calls++
	return &service.Report{
		ID:       "r-1",
		FileName: fmt.Sprintf("rent_%04d_%02d.xlsx", year, month),
		URL:      "/files/x_rent.xlsx",
	}, nil
}

type fakeJobs struct {
	ran       []domain.JobName
	generated [2]int
	err       error
}

func (f *fakeJobs) Run(_ context.Context, name domain.JobName) (*domain.JobRun, error) {
	f.ran = append(f.ran, name)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.JobRun{ID: "run-1", Job: name}, nil
}

func (f *fakeJobs) RunGenerateFor(_ context.Context, year, month int) (*domain.JobRun, error) {
	f.generated = [2]int{year, month}
	return &domain.JobRun{ID: "run-2", Job: domain.JobGenerate}, nil
}

func (f *fakeJobs) ListRuns(_ context.Context, limit int) ([]domain.JobRun, error) {
	return []domain.JobRun{{ID: "run-1", Job: domain.JobCheckPayments}}, nil
}

type fixture struct {
	trackings *fakeTrackings
	reports   *fakeReports
	jobs      *fakeJobs
	server    http.Handler
}

func newFixture() *fixture {
	f := &fixture{
		trackings: &fakeTrackings{},
		reports:   &fakeReports{},
		jobs:      &fakeJobs{},
	}

	asLandlord := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), 10)))
		})
	}

	clk := clock.NewFixed(time.Date(2025, time.March, 14, 12, 0, 0, 0, time.UTC))
	h := NewHandler(f.trackings, f.reports, f.jobs, clk, time.UTC, nil)
	f.server = h.InitRouter(asLandlord, auth.JobTokenMiddleware("tok"))
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string, headers ...string) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	var resp APIResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestConfirmTracking(t *testing.T) {
	f := newFixture()

	rec, resp := f.do(t, http.MethodPost, "/trackings/t-1/confirm", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", resp.Status)

	data := resp.Data.(map[string]any)
	assert.Equal(t, "t-1", data["id"])
	assert.Equal(t, "MANUALLY_CONFIRMED", data["status"])
	assert.Equal(t, "2025-01-05", data["expected_date"])
}

func TestRemindTenant(t *testing.T) {
	f := newFixture()

	rec, resp := f.do(t, http.MethodPost, "/trackings/t-1/remind", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "REMINDER_SENT", resp.Data.(map[string]any)["status"])
}

func TestIgnoreTracking(t *testing.T) {
	f := newFixture()

	rec, resp := f.do(t, http.MethodPost, "/trackings/t-1/ignore", `{"reason":"paid in cash"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "paid in cash", f.trackings.lastReason)
	assert.Equal(t, "paid in cash", resp.Data.(map[string]any)["ignore_reason"])

	rec, _ = f.do(t, http.MethodPost, "/trackings/t-1/ignore", `{"reason":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServiceErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{domain.ErrForbidden, http.StatusForbidden},
		{domain.ErrTrackingNotFound, http.StatusNotFound},
		{domain.ErrTrackingResolved, http.StatusConflict},
		{domain.ErrConversationNotFound, http.StatusConflict},
		{domain.ErrIgnoreReasonRequired, http.StatusBadRequest},
		{fmt.Errorf("load lease: %w", domain.ErrForbidden), http.StatusForbidden},
		{assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			f := newFixture()
			f.trackings.err = tt.err

			rec, resp := f.do(t, http.MethodPost, "/trackings/t-1/remind", "")
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "error", resp.Status)
			assert.Equal(t, tt.status, resp.ErrorCode)
		})
	}
}

func TestListTrackings(t *testing.T) {
	f := newFixture()
	f.trackings.rows = []domain.LandlordTracking{{
		RentPaymentTracking: *f.trackings.tracking("t-1", domain.StatusLate),
		PropertyTitle:       "Flat 3B",
		TenantName:          "Alex Martin",
	}}

	rec, resp := f.do(t, http.MethodGet, "/trackings?year=2025&month=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, [2]int{2025, 1}, f.trackings.lastPeriod)

	rows := resp.Data.([]any)
	require.Len(t, rows, 1)
	row := rows[0].(map[string]any)
	assert.Equal(t, "Flat 3B", row["property_title"])
	assert.Equal(t, "LATE", row["status"])

	// defaults to the current month
	rec, _ = f.do(t, http.MethodGet, "/trackings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, [2]int{2025, 3}, f.trackings.lastPeriod)

	rec, _ = f.do(t, http.MethodGet, "/trackings?month=13", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportTrackings(t *testing.T) {
	f := newFixture()

	rec, resp := f.do(t, http.MethodPost, "/reports/trackings", `{"year":2025,"month":"2"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "rent_2025_02.xlsx", resp.Data.(map[string]any)["file_name"])

	rec, _ = f.do(t, http.MethodPost, "/reports/trackings", `{"year":2025,"month":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 1, f.reports.calls)
}

func TestJobs(t *testing.T) {
	f := newFixture()

	rec, _ := f.do(t, http.MethodPost, "/internal/jobs/check-payments", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, f.jobs.ran)

	rec, resp := f.do(t, http.MethodPost, "/internal/jobs/check-payments", "", auth.JobTokenHeader, "tok")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "check-payments", resp.Data.(map[string]any)["job"])

	rec, _ = f.do(t, http.MethodPost, "/internal/jobs/generate", `{"period":"2024-11"}`, auth.JobTokenHeader, "tok")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, [2]int{2024, 11}, f.jobs.generated)

	rec, _ = f.do(t, http.MethodPost, "/internal/jobs/unknown", "", auth.JobTokenHeader, "tok")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	f.jobs.err = domain.ErrJobAlreadyRunning
	rec, _ = f.do(t, http.MethodPost, "/internal/jobs/process-reminders", "", auth.JobTokenHeader, "tok")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, resp = f.do(t, http.MethodGet, "/internal/jobs/runs", "", auth.JobTokenHeader, "tok")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, resp.Data.([]any), 1)
}

func TestHealth(t *testing.T) {
	f := newFixture()

	rec, resp := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", resp.Message)
}
