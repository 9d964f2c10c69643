package domain

import "errors"

var (
	ErrTrackingNotFound     = errors.New("rent tracking not found")
	ErrTrackingResolved     = errors.New("rent tracking is already resolved")
	ErrLeaseNotFound        = errors.New("lease not found")
	ErrForbidden            = errors.New("caller does not own the lease property")
	ErrIgnoreReasonRequired = errors.New("a reason is required to ignore a month")
	ErrConversationNotFound = errors.New("no conversation with the tenant for this listing")
	ErrJobAlreadyRunning    = errors.New("job is already running")
	ErrInvalidPeriod        = errors.New("invalid period")
)
