package repository

import (
	"context"
	"time"

	"github.com/tphakala/rfscan-go/internal/datastore/entities"
)

// RouteRepository provides access to the append-only route_points table.
type RouteRepository interface {
	// Insert appends a route point.
	Insert(ctx context.Context, p *entities.RoutePoint) error

	// ListBySession returns a session's route, oldest first.
	ListBySession(ctx context.Context, sessionID string) ([]*entities.RoutePoint, error)

	// ListAll returns route points of all sessions, oldest first.
	ListAll(ctx context.Context, limit int) ([]*entities.RoutePoint, error)

	// ListByRange returns route points with from <= timestamp < to, oldest first.
	ListByRange(ctx context.Context, from, to time.Time) ([]*entities.RoutePoint, error)

	// Last returns the newest point of a session.
	// Returns ErrRoutePointNotFound when the session has no points.
	Last(ctx context.Context, sessionID string) (*entities.RoutePoint, error)

	// Count returns the total number of route points.
	Count(ctx context.Context) (int64, error)

	// DeleteBySession removes a session's route and returns the rows removed.
	DeleteBySession(ctx context.Context, sessionID string) (int64, error)

	// DeleteAll removes every route point.
	DeleteAll(ctx context.Context) error
}
