package rest

import (
	"net/http"
	"strconv"

	"rent-tracking/internal/domain"

	"github.com/go-chi/chi/v5"
)

const defaultRunsLimit = 50

func (h *Handler) runJob(w http.ResponseWriter, r *http.Request) {
	name := domain.JobName(chi.URLParam(r, "job"))
	if !name.Valid() {
		ErrorNotFound(w, "unknown job")
		return
	}

	var (
		run *domain.JobRun
		err error
	)
	if name == domain.JobGenerate {
		period, perr := ValidatePeriodRequest(r)
		if perr != nil {
			h.writeServiceError(w, r, perr)
			return
		}
		if period != nil {
			run, err = h.jobs.RunGenerateFor(r.Context(), period.Year, period.Month)
		} else {
			run, err = h.jobs.Run(r.Context(), name)
		}
	} else {
		run, err = h.jobs.Run(r.Context(), name)
	}
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	Success(w, "Job finished", run)
}

func (h *Handler) listJobRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			ErrorBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := h.jobs.ListRuns(r.Context(), limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	Success(w, "", runs)
}
