package repository

import (
	"context"
	"time"

	"github.com/tphakala/rfscan-go/internal/datastore/entities"
)

// SessionTotals are the counters stamped on a session when it closes.
type SessionTotals struct {
	TotalNetworks  int64
	NewNetworks    int64
	TotalSightings int64
	Distance       float64
}

// SessionRepository provides access to the sessions table.
type SessionRepository interface {
	// Create inserts a new open session.
	Create(ctx context.Context, s *entities.Session) error

	// GetByID retrieves a session. Returns ErrSessionNotFound if not found.
	GetByID(ctx context.Context, id string) (*entities.Session, error)

	// Close stamps the end time and totals on an open session.
	// Returns ErrSessionNotFound or ErrSessionClosed.
	Close(ctx context.Context, id string, end time.Time, totals SessionTotals) error

	// List returns sessions, newest first.
	List(ctx context.Context, limit, offset int) ([]*entities.Session, error)

	// Open returns sessions without an end time, newest first.
	Open(ctx context.Context) ([]*entities.Session, error)

	// Count returns the number of sessions.
	Count(ctx context.Context) (int64, error)

	// Delete removes a session and its route points. Sightings keep their
	// rows with the session reference cleared.
	// Returns ErrSessionNotFound if not found.
	Delete(ctx context.Context, id string) error

	// DeleteAll removes every session.
	DeleteAll(ctx context.Context) error
}
