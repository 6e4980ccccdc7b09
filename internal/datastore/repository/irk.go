package repository

import (
	"context"

	"github.com/tphakala/rfscan-go/internal/datastore/entities"
)

// IRKRepository provides access to stored identity resolving keys.
type IRKRepository interface {
	// Add stores a key. Key must already be in canonical form (32 lower-case
	// hex chars). Returns ErrDuplicateKey if the key exists.
	Add(ctx context.Context, k *entities.IRK) error

	// GetByID retrieves a key record. Returns ErrIRKNotFound if not found.
	GetByID(ctx context.Context, id string) (*entities.IRK, error)

	// GetByKey retrieves a record by its canonical key value.
	// Returns ErrIRKNotFound if not found.
	GetByKey(ctx context.Context, key string) (*entities.IRK, error)

	// List returns all keys in insertion order, which is the order the
	// resolver tries them in.
	List(ctx context.Context) ([]*entities.IRK, error)

	// Update changes the label and device type.
	// Returns ErrIRKNotFound if not found.
	Update(ctx context.Context, id, name, deviceType string) error

	// Delete removes a key. Returns ErrIRKNotFound if not found.
	Delete(ctx context.Context, id string) error

	// IncrementResolved adds n to the resolution counter.
	IncrementResolved(ctx context.Context, id string, n int64) error

	// Count returns the number of stored keys.
	Count(ctx context.Context) (int64, error)
}
