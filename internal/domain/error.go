package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid executor context")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")

	// Generation-specific errors
	ErrRateLimited       = errors.New("too many generation requests")
	ErrJobNotLive        = errors.New("job is not pending or processing")
	ErrIllegalTransition = errors.New("illegal job status transition")
	ErrLockUnavailable   = errors.New("source lock unavailable")
	ErrEmptyOutline      = errors.New("generator returned an empty course outline")
)
