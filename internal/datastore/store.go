package datastore

import (
	"context"
	"slices"
	"sync"

	"github.com/tphakala/rfscan-go/internal/datastore/repository"
	"github.com/tphakala/rfscan-go/internal/errors"
	"gorm.io/gorm"
)

// Repositories groups the repositories bound to one *gorm.DB handle.
type Repositories struct {
	Networks  repository.NetworkRepository
	Sightings repository.SightingRepository
	Sessions  repository.SessionRepository
	Routes    repository.RouteRepository
	IRKs      repository.IRKRepository
}

// NewRepositories binds all repositories to db.
func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Networks:  repository.NewNetworkRepository(db),
		Sightings: repository.NewSightingRepository(db),
		Sessions:  repository.NewSessionRepository(db),
		Routes:    repository.NewRouteRepository(db),
		IRKs:      repository.NewIRKRepository(db),
	}
}

// Store is the durable store handle passed to the aggregator, orchestrator
// and API. It is constructed once at the composition root.
type Store struct {
	Repositories

	manager Manager
	db      *gorm.DB
	changes *changeHub
}

// New wraps an initialized manager. recorder may be nil.
func New(manager Manager, recorder OperationRecorder) (*Store, error) {
	hub := newChangeHub()
	db := manager.DB()
	if err := db.Use(&storePlugin{recorder: recorder, hub: hub}); err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "register_plugin").
			Build()
	}
	return &Store{
		Repositories: NewRepositories(db),
		manager:      manager,
		db:           db,
		changes:      hub,
	}, nil
}

// Transaction runs fn with repositories bound to one transaction. fn must
// only use the repositories it is given. Change notifications for writes
// made inside fn are delivered after commit and dropped on rollback.
func (s *Store) Transaction(ctx context.Context, fn func(tx Repositories) error) error {
	pending := &changeSet{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx.Set(changeSetKey, pending)))
	})
	if err == nil {
		s.changes.publish(pending.drain()...)
	}
	return err
}

// ClearAll deletes every sighting, route point, network and session in one
// transaction. Identity keys are kept.
func (s *Store) ClearAll(ctx context.Context) error {
	err := s.Transaction(ctx, func(tx Repositories) error {
		if err := tx.Sightings.DeleteAll(ctx); err != nil {
			return err
		}
		if err := tx.Routes.DeleteAll(ctx); err != nil {
			return err
		}
		if err := tx.Networks.DeleteAll(ctx); err != nil {
			return err
		}
		return tx.Sessions.DeleteAll(ctx)
	})
	if err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "clear_all").
			Build()
	}
	return nil
}

// OnChange registers fn for change notifications and returns a function
// that removes it. fn runs synchronously on the writing goroutine and must
// not block or write to the store.
func (s *Store) OnChange(fn func(ChangeEvent)) (unsubscribe func()) {
	return s.changes.subscribe(fn)
}

// Manager returns the backend manager.
func (s *Store) Manager() Manager {
	return s.manager
}

// Close closes the backend connection.
func (s *Store) Close() error {
	return s.manager.Close()
}

// ChangeOp is the kind of write that touched a table.
type ChangeOp string

const (
	ChangeInsert ChangeOp = "insert"
	ChangeUpdate ChangeOp = "update"
	ChangeDelete ChangeOp = "delete"
)

// ChangeEvent reports that a write changed rows of Table.
type ChangeEvent struct {
	Table string
	Op    ChangeOp
}

const changeSetKey = "rfscan:change_set"

// changeSet collects events raised inside a transaction.
type changeSet struct {
	mu     sync.Mutex
	events []ChangeEvent
}

func (c *changeSet) add(ev ChangeEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !slices.Contains(c.events, ev) {
		c.events = append(c.events, ev)
	}
}

func (c *changeSet) drain() []ChangeEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	events := c.events
	c.events = nil
	return events
}

type changeHub struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[int]func(ChangeEvent)
}

func newChangeHub() *changeHub {
	return &changeHub{listeners: make(map[int]func(ChangeEvent))}
}

func (h *changeHub) subscribe(fn func(ChangeEvent)) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.listeners, id)
			h.mu.Unlock()
		})
	}
}

func (h *changeHub) publish(events ...ChangeEvent) {
	if len(events) == 0 {
		return
	}
	h.mu.RLock()
	listeners := make([]func(ChangeEvent), 0, len(h.listeners))
	for _, fn := range h.listeners {
		listeners = append(listeners, fn)
	}
	h.mu.RUnlock()

	for _, ev := range events {
		for _, fn := range listeners {
			fn(ev)
		}
	}
}
