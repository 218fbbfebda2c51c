package service

import "errors"

// Sentinel kinds for session errors.
var (
	ErrMatchNotFound = errors.New("match not found")
	ErrMatchExists   = errors.New("match already exists")
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNotStarted    = errors.New("service not started")
)
