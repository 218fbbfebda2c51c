package api

import (
	"errors"
	"net/http"

	service "github.com/okian/cricscore/internal/app"
	"github.com/okian/cricscore/internal/domain/engine"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest  = errors.New("bad request")
	ErrMissingID   = errors.New("missing player id")
	ErrUnsupported = errors.New("unsupported format")
)

// classify maps an error from the service layer to a status code and a
// machine-readable error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrMissingID), errors.Is(err, ErrUnsupported):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, engine.ErrInvalidSetup):
		return http.StatusBadRequest, "invalid_setup"
	case errors.Is(err, service.ErrMatchNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrMatchExists):
		return http.StatusConflict, "match_exists"
	case errors.Is(err, service.ErrNothingToUndo):
		return http.StatusConflict, "nothing_to_undo"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	}
	if reason := engine.Reason(err); reason != "internal" {
		return http.StatusUnprocessableEntity, reason
	}
	return http.StatusInternalServerError, "internal"
}
