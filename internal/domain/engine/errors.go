package engine

import "errors"

// Sentinel kinds for engine errors. Callers match them with errors.Is.
var (
	// ErrAllOut rejects a delivery once the batting side has lost every wicket its squad allows.
	ErrAllOut = errors.New("all players are out")
	// ErrInvalidRuns rejects bat runs outside 0-6.
	ErrInvalidRuns = errors.New("invalid runs off bat")
	// ErrInvalidWide rejects a wide that also carries bat runs.
	ErrInvalidWide = errors.New("wide cannot have bat runs")

	ErrMatchCompleted = errors.New("match already completed")
	ErrUnknownPlayer  = errors.New("unknown player")
	ErrAlreadyBatted  = errors.New("player has already batted")
	ErrCreaseOccupied = errors.New("both batsmen are still in")
	ErrInvalidSetup   = errors.New("invalid match setup")
)

// Reason returns a stable machine-readable code for an engine error, or
// "internal" when err is not one of the sentinels above.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrAllOut):
		return "all_out"
	case errors.Is(err, ErrInvalidRuns):
		return "invalid_runs"
	case errors.Is(err, ErrInvalidWide):
		return "invalid_wide"
	case errors.Is(err, ErrMatchCompleted):
		return "match_completed"
	case errors.Is(err, ErrUnknownPlayer):
		return "unknown_player"
	case errors.Is(err, ErrAlreadyBatted):
		return "already_batted"
	case errors.Is(err, ErrCreaseOccupied):
		return "crease_occupied"
	case errors.Is(err, ErrInvalidSetup):
		return "invalid_setup"
	default:
		return "internal"
	}
}
