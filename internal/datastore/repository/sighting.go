package repository

import (
	"context"
	"time"

	"github.com/tphakala/rfscan-go/internal/datastore/entities"
)

// SightingRepository provides access to the append-only sightings table.
type SightingRepository interface {
	// Insert appends a sighting.
	Insert(ctx context.Context, s *entities.Sighting) error

	// ListByNetwork returns a network's sightings, newest first.
	ListByNetwork(ctx context.Context, networkID string, limit int) ([]*entities.Sighting, error)

	// ListBySession returns sightings recorded in a session, oldest first.
	ListBySession(ctx context.Context, sessionID string, limit int) ([]*entities.Sighting, error)

	// ListByRange returns sightings with from <= timestamp < to, oldest first.
	ListByRange(ctx context.Context, from, to time.Time) ([]*entities.Sighting, error)

	// Count returns the total number of sightings.
	Count(ctx context.Context) (int64, error)

	// CountSince returns the number of sightings at or after t.
	CountSince(ctx context.Context, t time.Time) (int64, error)

	// CountBySession returns the number of sightings recorded in a session.
	CountBySession(ctx context.Context, sessionID string) (int64, error)

	// LatestTimestamp returns the newest sighting time, zero when empty.
	LatestTimestamp(ctx context.Context) (time.Time, error)

	// DeleteAll removes every sighting.
	DeleteAll(ctx context.Context) error
}
