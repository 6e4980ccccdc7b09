package observation

import (
	"context"
	"time"

	"github.com/tphakala/rfscan-go/internal/datastore/entities"
	"github.com/tphakala/rfscan-go/internal/datastore/repository"
	"github.com/tphakala/rfscan-go/internal/errors"
	"github.com/tphakala/rfscan-go/internal/logger"
	"github.com/tphakala/rfscan-go/internal/radio"
)

// endSessionTimeout bounds the close of a session whose caller has gone away.
const endSessionTimeout = 10 * time.Second

// SessionSummary carries the run counters known to the caller. They are
// the fallback totals when the store cannot be counted.
type SessionSummary struct {
	NewNetworks    int64
	TotalSightings int64
}

// StartSession creates an open session and returns its id.
func (a *Aggregator) StartSession(ctx context.Context, notes string) (string, error) {
	s := &entities.Session{StartTime: a.now().UTC(), Notes: notes}
	if err := a.store.Sessions.Create(ctx, s); err != nil {
		return "", errors.New(err).
			Component("observation").
			Category(errors.CategorySession).
			Context("operation", "start_session").
			Build()
	}
	return s.ID, nil
}

// EndSession closes session id. Totals are the store's current network and
// sighting counts; the route length comes from the session's route points.
// A failed count falls back to summary and a failed route read to zero
// distance, so the session is closed even when accounting fails.
// Cancellation of ctx does not abort the close; the writes run detached
// under endSessionTimeout.
func (a *Aggregator) EndSession(ctx context.Context, id string, summary SessionSummary) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), endSessionTimeout)
	defer cancel()

	totals := repository.SessionTotals{
		NewNetworks:    summary.NewNetworks,
		TotalSightings: summary.TotalSightings,
	}

	if n, err := a.store.Networks.Count(ctx, repository.NetworkFilter{}); err == nil {
		totals.TotalNetworks = n
	} else {
		a.log.Warn("session totals: network count failed", logger.String("session_id", id), logger.Error(err))
	}
	if n, err := a.store.Sightings.Count(ctx); err == nil {
		totals.TotalSightings = n
	} else {
		a.log.Warn("session totals: sighting count failed", logger.String("session_id", id), logger.Error(err))
	}
	if route, err := a.store.Routes.ListBySession(ctx, id); err == nil {
		totals.Distance = RouteDistance(route)
	} else {
		a.log.Warn("session totals: route read failed", logger.String("session_id", id), logger.Error(err))
	}

	if err := a.store.Sessions.Close(ctx, id, a.now().UTC(), totals); err != nil {
		return errors.New(err).
			Component("observation").
			Category(errors.CategorySession).
			Context("operation", "end_session").
			Build()
	}

	a.log.Info("session closed",
		logger.String("session_id", id),
		logger.Int64("total_networks", totals.TotalNetworks),
		logger.Int64("new_networks", totals.NewNetworks),
		logger.Int64("total_sightings", totals.TotalSightings),
		logger.Float64("distance_m", totals.Distance))
	return nil
}

// RecordRoutePoint appends pos to the route of session id.
func (a *Aggregator) RecordRoutePoint(ctx context.Context, sessionID string, pos *radio.Position) error {
	if pos == nil {
		return ErrNoPosition
	}
	ts := pos.Timestamp
	if ts.IsZero() {
		ts = a.now()
	}
	point := &entities.RoutePoint{
		SessionID: sessionID,
		Lat:       pos.Lat,
		Lon:       pos.Lon,
		Altitude:  pos.Altitude,
		Accuracy:  pos.Accuracy,
		Speed:     pos.Speed,
		Bearing:   pos.Bearing,
		Timestamp: ts.UTC(),
	}
	if err := a.store.Routes.Insert(ctx, point); err != nil {
		return errors.New(err).
			Component("observation").
			Category(errors.CategoryDatabase).
			Context("operation", "record_route_point").
			Build()
	}
	return nil
}

// RouteDistance returns the length in meters of a route ordered by time.
func RouteDistance(points []*entities.RoutePoint) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1], points[i]
		total += radio.Haversine(prev.Lat, prev.Lon, cur.Lat, cur.Lon)
	}
	return total
}

// Statistics summarizes the store.
type Statistics struct {
	NetworksByKind map[entities.Kind]int64
	TotalNetworks  int64
	TotalSightings int64
	Sessions       int64
	RoutePoints    int64
	IdentityKeys   int64
	LastSeen       time.Time // zero when the store is empty
}

// Statistics counts networks per kind, sightings, sessions, route points
// and keys, and finds the most recent sighting time.
func (a *Aggregator) Statistics(ctx context.Context) (Statistics, error) {
	var stats Statistics
	wrap := func(err error, what string) error {
		return errors.New(err).
			Component("observation").
			Category(errors.CategoryDatabase).
			Context("operation", "statistics").
			Context("query", what).
			Build()
	}

	byKind, err := a.store.Networks.CountByKind(ctx)
	if err != nil {
		return stats, wrap(err, "networks_by_kind")
	}
	stats.NetworksByKind = byKind
	for _, n := range byKind {
		stats.TotalNetworks += n
	}

	if stats.TotalSightings, err = a.store.Sightings.Count(ctx); err != nil {
		return stats, wrap(err, "sightings")
	}
	if stats.Sessions, err = a.store.Sessions.Count(ctx); err != nil {
		return stats, wrap(err, "sessions")
	}
	if stats.RoutePoints, err = a.store.Routes.Count(ctx); err != nil {
		return stats, wrap(err, "route_points")
	}
	if stats.IdentityKeys, err = a.store.IRKs.Count(ctx); err != nil {
		return stats, wrap(err, "irks")
	}
	if stats.LastSeen, err = a.store.Sightings.LatestTimestamp(ctx); err != nil {
		return stats, wrap(err, "latest_sighting")
	}
	return stats, nil
}

// ClearAll removes all networks, sightings, sessions and route points
// atomically. Identity keys are kept.
func (a *Aggregator) ClearAll(ctx context.Context) error {
	if err := a.store.ClearAll(ctx); err != nil {
		return err
	}
	a.log.Info("store cleared")
	return nil
}
