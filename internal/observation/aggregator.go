// Package observation turns raw radio sightings into deduplicated network
// records and keeps their sighting history, sessions and routes.
package observation

import (
	"context"
	"time"

	"github.com/tphakala/rfscan-go/internal/datastore"
	"github.com/tphakala/rfscan-go/internal/datastore/entities"
	"github.com/tphakala/rfscan-go/internal/datastore/repository"
	"github.com/tphakala/rfscan-go/internal/errors"
	"github.com/tphakala/rfscan-go/internal/logger"
	"github.com/tphakala/rfscan-go/internal/radio"
)

var (
	// ErrNoPosition is returned for a sighting without a position fix.
	ErrNoPosition = errors.NewStd("sighting has no position")
	// ErrInvalidSighting is returned for a sighting without address or details.
	ErrInvalidSighting = errors.NewStd("invalid sighting")
)

// Sighting is one raw detection handed to Upsert.
type Sighting struct {
	Address   string
	Name      string
	Details   radio.Details // selects the kind
	Level     int           // dBm
	Position  *radio.Position
	Timestamp time.Time // zero means now
	SessionID string    // empty when no session is active
}

// Aggregator owns the merge contract between sightings and stored networks.
type Aggregator struct {
	store *datastore.Store
	locks *keyedMutex
	now   func() time.Time
	log   logger.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the time source used for defaults and session stamps.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithLogger overrides the aggregator logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Aggregator) { a.log = l }
}

// New creates an Aggregator writing to store.
func New(store *datastore.Store, opts ...Option) *Aggregator {
	a := &Aggregator{
		store: store,
		locks: newKeyedMutex(),
		now:   time.Now,
		log:   GetLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// GetLogger returns the observation package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("observation")
}

// Upsert merges s into the store and reports whether its address was new.
//
// A new address gets a network whose best and last fields both come from s.
// A known address gets its counter incremented. The last-seen fields move
// only when s is not older than the stored last sighting, so late arrivals
// from other workers never roll them back. The best fields move when s.Level
// is strictly greater, or equal and observed before the stored best.
// A sighting row is appended in both cases, in the same transaction.
// Upserts for one address are serialized; different addresses run concurrently.
func (a *Aggregator) Upsert(ctx context.Context, s Sighting) (bool, error) {
	if s.Position == nil {
		return false, ErrNoPosition
	}
	address := radio.NormalizeAddress(s.Address)
	if address == "" || s.Details == nil {
		return false, ErrInvalidSighting
	}
	ts := s.Timestamp
	if ts.IsZero() {
		ts = a.now()
	}
	ts = ts.UTC()

	unlock := a.locks.Lock(address)
	defer unlock()

	var isNew bool
	err := a.store.Transaction(ctx, func(tx datastore.Repositories) error {
		network, err := tx.Networks.GetByAddress(ctx, address)
		switch {
		case errors.Is(err, repository.ErrNetworkNotFound):
			network = newNetwork(address, &s, ts)
			err = tx.Networks.Insert(ctx, network)
			if errors.Is(err, repository.ErrDuplicateKey) {
				// Inserted by another process since the lookup.
				if err = observe(ctx, tx, address, &s, ts); err == nil {
					network, err = tx.Networks.GetByAddress(ctx, address)
				}
			} else {
				isNew = err == nil
			}
		case err == nil:
			err = observe(ctx, tx, address, &s, ts)
		}
		if err != nil {
			return err
		}

		sighting := &entities.Sighting{
			NetworkID: network.ID,
			Address:   address,
			Lat:       s.Position.Lat,
			Lon:       s.Position.Lon,
			Altitude:  s.Position.Altitude,
			Accuracy:  s.Position.Accuracy,
			Level:     s.Level,
			Timestamp: ts,
		}
		if s.SessionID != "" {
			sessionID := s.SessionID
			sighting.SessionID = &sessionID
		}
		return tx.Sightings.Insert(ctx, sighting)
	})
	if err != nil {
		return false, errors.New(err).
			Component("observation").
			Category(errors.CategoryAggregation).
			Context("operation", "upsert").
			Context("kind", string(s.Details.Kind())).
			Build()
	}
	if isNew {
		a.log.Trace("new network",
			logger.String("kind", string(s.Details.Kind())),
			logger.Int("level", s.Level))
	}
	return isNew, nil
}

// observe applies s to an existing network.
func observe(ctx context.Context, tx datastore.Repositories, address string, s *Sighting, ts time.Time) error {
	return tx.Networks.ApplyObservation(ctx, address, repository.Observation{
		Level:     s.Level,
		Lat:       s.Position.Lat,
		Lon:       s.Position.Lon,
		Timestamp: ts,
	})
}

func newNetwork(address string, s *Sighting, ts time.Time) *entities.Network {
	n := &entities.Network{
		Address:       address,
		Name:          s.Name,
		Kind:          s.Details.Kind(),
		BestLevel:     s.Level,
		BestLat:       s.Position.Lat,
		BestLon:       s.Position.Lon,
		BestSeen:      &ts,
		LastLat:       s.Position.Lat,
		LastLon:       s.Position.Lon,
		FirstSeen:     ts,
		LastSeen:      ts,
		TimesObserved: 1,
	}
	s.Details.Apply(n)
	return n
}
