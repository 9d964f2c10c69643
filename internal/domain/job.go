package domain

import "time"

type JobName string

const (
	JobGenerate         JobName = "generate"
	JobCheckPayments    JobName = "check-payments"
	JobProcessReminders JobName = "process-reminders"
)

func (n JobName) Valid() bool {
	switch n {
	case JobGenerate, JobCheckPayments, JobProcessReminders:
		return true
	}
	return false
}

// JobRun is the persisted outcome of one batch invocation.
type JobRun struct {
	ID         string    `json:"id"`
	Job        JobName   `json:"job"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Summary    any       `json:"summary"`
	Error      *string   `json:"error,omitempty"`
}
