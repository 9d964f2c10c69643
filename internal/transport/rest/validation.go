package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

type IgnoreRequest struct {
	Reason string `json:"reason"`
}

// ValidateIgnoreRequest only decodes: a blank reason is rejected by the service so the check
// holds for every caller.
func ValidateIgnoreRequest(r *http.Request) (*IgnoreRequest, error) {
	var req IgnoreRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

type PeriodRequest struct {
	Year  int
	Month int
}

type rawPeriodRequest struct {
	Year   any    `json:"year"`
	Month  any    `json:"month"`
	Period string `json:"period"`
}

// ValidatePeriodRequest accepts {"year":2025,"month":1}, string numbers, or {"period":"2025-01"}.
// An empty body yields nil so callers can default to the current month.
func ValidatePeriodRequest(r *http.Request) (*PeriodRequest, error) {
	var raw rawPeriodRequest
	if err := decodeBody(r, &raw); err != nil {
		return nil, err
	}

	if raw.Period != "" {
		return parsePeriod(raw.Period)
	}
	if raw.Year == nil && raw.Month == nil {
		return nil, nil
	}

	year, err := toInt(raw.Year)
	if err != nil || year < 1 {
		return nil, &ValidationError{Field: "year", Message: "year must be a positive integer"}
	}
	month, err := toInt(raw.Month)
	if err != nil || month < 1 || month > 12 {
		return nil, &ValidationError{Field: "month", Message: "month must be between 1 and 12"}
	}
	return &PeriodRequest{Year: year, Month: month}, nil
}

// ValidatePeriodQuery reads ?year=&month=, defaulting to now's month.
func ValidatePeriodQuery(r *http.Request, now time.Time) (*PeriodRequest, error) {
	q := r.URL.Query()
	p := &PeriodRequest{Year: now.Year(), Month: int(now.Month())}

	if v := q.Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil || year < 1 {
			return nil, &ValidationError{Field: "year", Message: "year must be a positive integer"}
		}
		p.Year = year
	}
	if v := q.Get("month"); v != "" {
		month, err := strconv.Atoi(v)
		if err != nil || month < 1 || month > 12 {
			return nil, &ValidationError{Field: "month", Message: "month must be between 1 and 12"}
		}
		p.Month = month
	}
	return p, nil
}

func parsePeriod(s string) (*PeriodRequest, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return nil, &ValidationError{Field: "period", Message: "period must be YYYY-MM"}
	}
	return &PeriodRequest{Year: t.Year(), Month: int(t.Month())}, nil
}

func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return &ValidationError{Message: "invalid JSON"}
	}
	return nil
}

func toInt(v any) (int, error) {
	switch t := v.(type) {
	case float64:
		if t != float64(int(t)) {
			return 0, &ValidationError{Message: "not an integer"}
		}
		return int(t), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(t))
	default:
		return 0, &ValidationError{Message: "invalid type for int field"}
	}
}
