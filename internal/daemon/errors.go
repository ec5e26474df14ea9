package daemon

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrBadRequest marks input that was rejected before any Drive call.
	ErrBadRequest = errors.New("bad request")
	ErrDrive      = errors.New("drive request failed")
)

func badRequest(msg string) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, msg)
}

func driveError(err error) error {
	return fmt.Errorf("%w: %w", ErrDrive, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrDrive):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
