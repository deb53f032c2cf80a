package ierr

import "errors"

var (
	ErrValidation     = errors.New("validation failed")
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource conflict")
	ErrInternalServer = errors.New("internal server error")

	ErrUnknownTier        = errors.New("unknown license tier")
	ErrInvalidDuration    = errors.New("subscription duration must be at least one month")
	ErrInvalidSeatCount   = errors.New("license must allow at least one seat")
	ErrSeatLimitExceeded  = errors.New("license seat limit reached")
	ErrDuplicateKey       = errors.New("license key already exists")
	ErrExpiredBeyondGrace = errors.New("license expired beyond the renewal grace window")
	ErrInvalidTransition  = errors.New("invalid license status transition")
	ErrMemberExists       = errors.New("user is already a member of this license")
)
