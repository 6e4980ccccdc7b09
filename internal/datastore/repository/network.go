package repository

import (
	"context"
	"time"

	"github.com/tphakala/rfscan-go/internal/datastore/entities"
)

// NetworkOrder selects the sort order of List.
type NetworkOrder int

const (
	// OrderLastSeen sorts most recently seen first.
	OrderLastSeen NetworkOrder = iota
	// OrderSignal sorts strongest best signal first.
	OrderSignal
	// OrderFirstSeen sorts most recently discovered first.
	OrderFirstSeen
)

// NetworkFilter narrows List and Count queries. Zero values disable a filter.
type NetworkFilter struct {
	Kind         entities.Kind
	Search       string // case-insensitive substring of name or address
	MinLevel     *int   // best level at or above
	SeenAfter    time.Time
	SeenBefore   time.Time
	WithLocation bool // best position set
	ResolvedOnly bool // resolved RPA devices only
	Order        NetworkOrder
	Limit        int
	Offset       int
}

// Observation is the per-sighting part of a network update.
type Observation struct {
	Level     int
	Lat       float64
	Lon       float64
	Timestamp time.Time
}

// NetworkRepository provides access to the networks table.
type NetworkRepository interface {
	// Insert creates a network. Returns ErrDuplicateKey if the address exists.
	Insert(ctx context.Context, n *entities.Network) error

	// GetByAddress retrieves a network by its normalized address.
	// Returns ErrNetworkNotFound if not found.
	GetByAddress(ctx context.Context, address string) (*entities.Network, error)

	// GetByID retrieves a network by its id.
	// Returns ErrNetworkNotFound if not found.
	GetByID(ctx context.Context, id string) (*entities.Network, error)

	// ApplyObservation records a sighting against an existing network in a
	// single statement. The counter is incremented and first_seen keeps the
	// earliest timestamp. Last-seen fields change only when obs is not older
	// than the stored last sighting. Best fields change when obs.Level is
	// strictly greater, or equal and observed before the stored best.
	// Returns ErrNetworkNotFound if no row matched.
	ApplyObservation(ctx context.Context, address string, obs Observation) error

	// List returns networks matching filter.
	List(ctx context.Context, filter NetworkFilter) ([]*entities.Network, error)

	// Count returns the number of networks matching filter. Paging is ignored.
	Count(ctx context.Context, filter NetworkFilter) (int64, error)

	// CountByKind returns network counts grouped by kind.
	CountByKind(ctx context.Context) (map[entities.Kind]int64, error)

	// LatestSeen returns the most recent last-seen time, zero when empty.
	LatestSeen(ctx context.Context) (time.Time, error)

	// DeleteOlderThan removes networks last seen before cutoff together with
	// their sightings, returning the number of networks removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// DeleteAll removes every network.
	DeleteAll(ctx context.Context) error
}
