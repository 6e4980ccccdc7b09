package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/tphakala/rfscan-go/internal/datastore/entities"
	"gorm.io/gorm"
)

// networkRepository implements NetworkRepository.
type networkRepository struct {
	db *gorm.DB
}

// NewNetworkRepository creates a new NetworkRepository.
func NewNetworkRepository(db *gorm.DB) NetworkRepository {
	return &networkRepository{db: db}
}

func (r *networkRepository) Insert(ctx context.Context, n *entities.Network) error {
	if n == nil || n.Address == "" || !n.Kind.Valid() {
		return ErrInvalidInput
	}
	return translateCreateError(r.db.WithContext(ctx).Table(tableNetworks).Create(n).Error)
}

func (r *networkRepository) GetByAddress(ctx context.Context, address string) (*entities.Network, error) {
	var n entities.Network
	err := r.db.WithContext(ctx).Table(tableNetworks).
		Where("address = ?", address).
		First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNetworkNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *networkRepository) GetByID(ctx context.Context, id string) (*entities.Network, error) {
	var n entities.Network
	err := r.db.WithContext(ctx).Table(tableNetworks).
		Where("id = ?", id).
		First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNetworkNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

const (
	betterSQL = `(@level > best_level OR (@level = best_level AND @ts < best_seen))`
	newerSQL  = `@ts >= last_seen`
)

// applyObservationSQL assigns best_level and last_seen after the columns
// whose conditions read them: MySQL evaluates SET assignments left to
// right, so those comparisons must see the old values. SQLite always uses
// the old row.
const applyObservationSQL = `UPDATE networks SET
	best_lat = CASE WHEN ` + betterSQL + ` THEN @lat ELSE best_lat END,
	best_lon = CASE WHEN ` + betterSQL + ` THEN @lon ELSE best_lon END,
	best_seen = CASE WHEN ` + betterSQL + ` THEN @ts ELSE best_seen END,
	best_level = CASE WHEN @level > best_level THEN @level ELSE best_level END,
	last_lat = CASE WHEN ` + newerSQL + ` THEN @lat ELSE last_lat END,
	last_lon = CASE WHEN ` + newerSQL + ` THEN @lon ELSE last_lon END,
	last_seen = CASE WHEN ` + newerSQL + ` THEN @ts ELSE last_seen END,
	first_seen = CASE WHEN @ts < first_seen THEN @ts ELSE first_seen END,
	times_observed = times_observed + 1
WHERE address = @address`

// ApplyObservation folds obs into the network at address. Observations may
// arrive out of timestamp order.
func (r *networkRepository) ApplyObservation(ctx context.Context, address string, obs Observation) error {
	result := r.db.WithContext(ctx).Table(tableNetworks).Exec(applyObservationSQL,
		sql.Named("level", obs.Level),
		sql.Named("lat", obs.Lat),
		sql.Named("lon", obs.Lon),
		sql.Named("ts", obs.Timestamp),
		sql.Named("address", address))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNetworkNotFound
	}
	return nil
}

// filtered applies everything in filter except order and paging.
func (r *networkRepository) filtered(ctx context.Context, filter *NetworkFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Table(tableNetworks)
	if filter.Kind != "" {
		q = q.Where("kind = ?", filter.Kind)
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		q = q.Where("(UPPER(name) LIKE ? ESCAPE '!' OR address LIKE ? ESCAPE '!')", pattern, pattern)
	}
	if filter.MinLevel != nil {
		q = q.Where("best_level >= ?", *filter.MinLevel)
	}
	if !filter.SeenAfter.IsZero() {
		q = q.Where("last_seen >= ?", filter.SeenAfter)
	}
	if !filter.SeenBefore.IsZero() {
		q = q.Where("last_seen < ?", filter.SeenBefore)
	}
	if filter.WithLocation {
		q = q.Where("(best_lat <> 0 OR best_lon <> 0)")
	}
	if filter.ResolvedOnly {
		q = q.Where("resolved_irk_id IS NOT NULL")
	}
	return q
}

func (r *networkRepository) List(ctx context.Context, filter NetworkFilter) ([]*entities.Network, error) {
	q := r.filtered(ctx, &filter)
	switch filter.Order {
	case OrderSignal:
		q = q.Order("best_level DESC").Order("last_seen DESC")
	case OrderFirstSeen:
		q = q.Order("first_seen DESC")
	default:
		q = q.Order("last_seen DESC")
	}
	q = applyPaging(q, filter.Limit, filter.Offset)

	var networks []*entities.Network
	err := q.Find(&networks).Error
	return networks, err
}

func (r *networkRepository) Count(ctx context.Context, filter NetworkFilter) (int64, error) {
	var count int64
	err := r.filtered(ctx, &filter).Count(&count).Error
	return count, err
}

func (r *networkRepository) CountByKind(ctx context.Context) (map[entities.Kind]int64, error) {
	var rows []struct {
		Kind  entities.Kind
		Count int64
	}
	err := r.db.WithContext(ctx).Table(tableNetworks).
		Select("kind, COUNT(*) AS count").
		Group("kind").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[entities.Kind]int64, len(rows))
	for _, row := range rows {
		counts[row.Kind] = row.Count
	}
	return counts, nil
}

func (r *networkRepository) LatestSeen(ctx context.Context) (time.Time, error) {
	var n entities.Network
	err := r.db.WithContext(ctx).Table(tableNetworks).
		Select("last_seen").
		Order("last_seen DESC").
		Limit(1).
		Take(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, nil
	}
	return n.LastSeen, err
}

func (r *networkRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stale := tx.Table(tableNetworks).Select("id").Where("last_seen < ?", cutoff)
		if err := tx.Table(tableSightings).Where("network_id IN (?)", stale).
			Delete(&entities.Sighting{}).Error; err != nil {
			return err
		}
		result := tx.Table(tableNetworks).Where("last_seen < ?", cutoff).Delete(&entities.Network{})
		removed = result.RowsAffected
		return result.Error
	})
	return removed, err
}

func (r *networkRepository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).
		Table(tableNetworks).Delete(&entities.Network{}).Error
}
