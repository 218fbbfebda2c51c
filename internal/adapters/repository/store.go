// Package repository persists completed matches. The history is append
// only: matches are saved once and never updated or removed.
package repository

import (
	"context"

	"github.com/okian/cricscore/internal/domain/model"
)

// Store provides access to the match history.
type Store interface {
	// Save appends a completed match. It fails with ErrNotCompleted for a
	// live match and ErrAlreadyExists when the id was saved before.
	Save(ctx context.Context, m model.Match) error

	// LoadAll returns every saved match, newest first. The values are
	// independent of the store and of each other.
	LoadAll(ctx context.Context) ([]model.Match, error)

	// Count returns the number of saved matches.
	Count(ctx context.Context) int

	// Close releases the store's resources.
	Close() error
}

func checkSavable(m model.Match) error {
	if m.ID == "" {
		return ErrMissingID
	}
	if !m.Completed() {
		return ErrNotCompleted
	}
	return nil
}
