package rest

import (
	"net/http"

	"rent-tracking/internal/transport/auth"
)

func (h *Handler) exportTrackings(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	period, err := ValidatePeriodRequest(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if period == nil {
		now := h.clock.Now().In(h.loc)
		period = &PeriodRequest{Year: now.Year(), Month: int(now.Month())}
	}

	report, err := h.reports.ExportMonth(r.Context(), userID, period.Year, period.Month)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	SuccessCreated(w, "Report ready", report)
}
