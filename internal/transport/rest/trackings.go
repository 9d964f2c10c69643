package rest

import (
	"errors"
	"net/http"
	"time"

	"rent-tracking/internal/domain"
	"rent-tracking/internal/transport/auth"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

type trackingResponse struct {
	ID                  string     `json:"id"`
	LeaseID             string     `json:"lease_id"`
	PeriodMonth         int        `json:"period_month"`
	PeriodYear          int        `json:"period_year"`
	ExpectedAmountCents int64      `json:"expected_amount_cents"`
	ExpectedDate        string     `json:"expected_date"`
	DetectedAmountCents *int64     `json:"detected_amount_cents"`
	DetectedDate        *string    `json:"detected_date"`
	TransactionID       *string    `json:"transaction_id"`
	IsPartialPayment    bool       `json:"is_partial_payment"`
	Status              string     `json:"status"`
	ReminderSentAt      *time.Time `json:"reminder_sent_at"`
	OverdueNotifiedAt   *time.Time `json:"overdue_notified_at"`
	ManuallyConfirmedAt *time.Time `json:"manually_confirmed_at"`
	IgnoreReason        *string    `json:"ignore_reason"`
	UpdatedAt           time.Time  `json:"updated_at"`

	PropertyTitle string `json:"property_title,omitempty"`
	TenantName    string `json:"tenant_name,omitempty"`
}

func toTrackingResponse(t domain.RentPaymentTracking) trackingResponse {
	resp := trackingResponse{
		ID:                  t.ID,
		LeaseID:             t.LeaseID,
		PeriodMonth:         t.PeriodMonth,
		PeriodYear:          t.PeriodYear,
		ExpectedAmountCents: t.ExpectedAmountCents,
		ExpectedDate:        t.ExpectedDate.Format(dateLayout),
		DetectedAmountCents: t.DetectedAmountCents,
		TransactionID:       t.TransactionID,
		IsPartialPayment:    t.IsPartialPayment,
		Status:              string(t.Status),
		ReminderSentAt:      t.ReminderSentAt,
		OverdueNotifiedAt:   t.OverdueNotifiedAt,
		ManuallyConfirmedAt: t.ManuallyConfirmedAt,
		IgnoreReason:        t.IgnoreReason,
		UpdatedAt:           t.UpdatedAt,
	}
	if t.DetectedDate != nil {
		d := t.DetectedDate.Format(dateLayout)
		resp.DetectedDate = &d
	}
	return resp
}

// writeServiceError maps domain errors to the response envelope.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		ErrorBadRequest(w, verr.Message)
	case errors.Is(err, domain.ErrIgnoreReasonRequired), errors.Is(err, domain.ErrInvalidPeriod):
		ErrorBadRequest(w, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		ErrorForbidden(w, err.Error())
	case errors.Is(err, domain.ErrTrackingNotFound):
		ErrorNotFound(w, err.Error())
	case errors.Is(err, domain.ErrTrackingResolved),
		errors.Is(err, domain.ErrConversationNotFound),
		errors.Is(err, domain.ErrJobAlreadyRunning):
		ErrorConflict(w, err.Error())
	default:
		h.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		ErrorInternal(w, "internal error")
	}
}

func (h *Handler) listTrackings(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	period, err := ValidatePeriodQuery(r, h.clock.Now().In(h.loc))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	rows, err := h.trackings.ListForLandlord(r.Context(), userID, period.Year, period.Month)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	out := make([]trackingResponse, 0, len(rows))
	for _, row := range rows {
		resp := toTrackingResponse(row.RentPaymentTracking)
		resp.PropertyTitle = row.PropertyTitle
		resp.TenantName = row.TenantName
		out = append(out, resp)
	}

	Success(w, "", out)
}

func (h *Handler) confirmTracking(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	t, err := h.trackings.MarkAsPaid(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	Success(w, "Payment confirmed", toTrackingResponse(*t))
}

func (h *Handler) remindTenant(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	t, err := h.trackings.SendFriendlyReminder(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	Success(w, "Reminder sent", toTrackingResponse(*t))
}

func (h *Handler) ignoreTracking(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	req, err := ValidateIgnoreRequest(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	t, err := h.trackings.IgnoreMonth(r.Context(), chi.URLParam(r, "id"), userID, req.Reason)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	Success(w, "Month ignored", toTrackingResponse(*t))
}
