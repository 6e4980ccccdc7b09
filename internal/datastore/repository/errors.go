package repository

import "github.com/tphakala/rfscan-go/internal/errors"

// Sentinel errors for repository operations.
var (
	// ErrNetworkNotFound indicates no network has the requested address or id.
	ErrNetworkNotFound = errors.NewStd("network not found")

	// ErrSessionNotFound indicates the requested session does not exist.
	ErrSessionNotFound = errors.NewStd("session not found")

	// ErrSessionClosed indicates the session already has an end time.
	ErrSessionClosed = errors.NewStd("session already closed")

	// ErrRoutePointNotFound indicates a session has no route points.
	ErrRoutePointNotFound = errors.NewStd("route point not found")

	// ErrIRKNotFound indicates the requested identity key does not exist.
	ErrIRKNotFound = errors.NewStd("identity key not found")

	// ErrDuplicateKey indicates a unique constraint violation.
	ErrDuplicateKey = errors.NewStd("duplicate key")

	// ErrInvalidInput indicates invalid input parameters.
	ErrInvalidInput = errors.NewStd("invalid input")
)
