package repository

import (
	"context"
	"errors"
	"time"

	"github.com/tphakala/rfscan-go/internal/datastore/entities"
	"gorm.io/gorm"
)

// routeRepository implements RouteRepository.
type routeRepository struct {
	db *gorm.DB
}

// NewRouteRepository creates a new RouteRepository.
func NewRouteRepository(db *gorm.DB) RouteRepository {
	return &routeRepository{db: db}
}

func (r *routeRepository) Insert(ctx context.Context, p *entities.RoutePoint) error {
	if p == nil || p.SessionID == "" {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Table(tableRoutePoints).Create(p).Error
}

func (r *routeRepository) ListBySession(ctx context.Context, sessionID string) ([]*entities.RoutePoint, error) {
	var points []*entities.RoutePoint
	err := r.db.WithContext(ctx).Table(tableRoutePoints).
		Where("session_id = ?", sessionID).
		Order("timestamp ASC").
		Find(&points).Error
	return points, err
}

func (r *routeRepository) ListAll(ctx context.Context, limit int) ([]*entities.RoutePoint, error) {
	var points []*entities.RoutePoint
	q := r.db.WithContext(ctx).Table(tableRoutePoints).Order("timestamp ASC")
	err := applyPaging(q, limit, 0).Find(&points).Error
	return points, err
}

func (r *routeRepository) ListByRange(ctx context.Context, from, to time.Time) ([]*entities.RoutePoint, error) {
	if !to.After(from) {
		return nil, ErrInvalidInput
	}
	var points []*entities.RoutePoint
	err := r.db.WithContext(ctx).Table(tableRoutePoints).
		Where("timestamp >= ? AND timestamp < ?", from, to).
		Order("timestamp ASC").
		Find(&points).Error
	return points, err
}

func (r *routeRepository) Last(ctx context.Context, sessionID string) (*entities.RoutePoint, error) {
	var p entities.RoutePoint
	err := r.db.WithContext(ctx).Table(tableRoutePoints).
		Where("session_id = ?", sessionID).
		Order("timestamp DESC").
		Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoutePointNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *routeRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Table(tableRoutePoints).Count(&count).Error
	return count, err
}

func (r *routeRepository) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	result := r.db.WithContext(ctx).Table(tableRoutePoints).
		Where("session_id = ?", sessionID).
		Delete(&entities.RoutePoint{})
	return result.RowsAffected, result.Error
}

func (r *routeRepository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).
		Table(tableRoutePoints).Delete(&entities.RoutePoint{}).Error
}
