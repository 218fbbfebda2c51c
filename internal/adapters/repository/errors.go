package repository

import "errors"

// Sentinel kinds for history errors.
var (
	ErrNotCompleted  = errors.New("match is not completed")
	ErrAlreadyExists = errors.New("match already saved")
	ErrMissingID     = errors.New("match id is required")
	ErrClosed        = errors.New("store is closed")
)
