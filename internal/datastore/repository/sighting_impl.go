package repository

import (
	"context"
	"errors"
	"time"

	"github.com/tphakala/rfscan-go/internal/datastore/entities"
	"gorm.io/gorm"
)

// sightingRepository implements SightingRepository.
type sightingRepository struct {
	db *gorm.DB
}

// NewSightingRepository creates a new SightingRepository.
func NewSightingRepository(db *gorm.DB) SightingRepository {
	return &sightingRepository{db: db}
}

func (r *sightingRepository) Insert(ctx context.Context, s *entities.Sighting) error {
	if s == nil || s.NetworkID == "" {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Table(tableSightings).Create(s).Error
}

func (r *sightingRepository) ListByNetwork(ctx context.Context, networkID string, limit int) ([]*entities.Sighting, error) {
	var sightings []*entities.Sighting
	q := r.db.WithContext(ctx).Table(tableSightings).
		Where("network_id = ?", networkID).
		Order("timestamp DESC")
	err := applyPaging(q, limit, 0).Find(&sightings).Error
	return sightings, err
}

func (r *sightingRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]*entities.Sighting, error) {
	var sightings []*entities.Sighting
	q := r.db.WithContext(ctx).Table(tableSightings).
		Where("session_id = ?", sessionID).
		Order("timestamp ASC")
	err := applyPaging(q, limit, 0).Find(&sightings).Error
	return sightings, err
}

func (r *sightingRepository) ListByRange(ctx context.Context, from, to time.Time) ([]*entities.Sighting, error) {
	if !to.After(from) {
		return nil, ErrInvalidInput
	}
	var sightings []*entities.Sighting
	err := r.db.WithContext(ctx).Table(tableSightings).
		Where("timestamp >= ? AND timestamp < ?", from, to).
		Order("timestamp ASC").
		Find(&sightings).Error
	return sightings, err
}

func (r *sightingRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Table(tableSightings).Count(&count).Error
	return count, err
}

func (r *sightingRepository) CountSince(ctx context.Context, t time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Table(tableSightings).
		Where("timestamp >= ?", t).
		Count(&count).Error
	return count, err
}

func (r *sightingRepository) CountBySession(ctx context.Context, sessionID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Table(tableSightings).
		Where("session_id = ?", sessionID).
		Count(&count).Error
	return count, err
}

func (r *sightingRepository) LatestTimestamp(ctx context.Context) (time.Time, error) {
	var s entities.Sighting
	err := r.db.WithContext(ctx).Table(tableSightings).
		Select("timestamp").
		Order("timestamp DESC").
		Limit(1).
		Take(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, nil
	}
	return s.Timestamp, err
}

func (r *sightingRepository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).
		Table(tableSightings).Delete(&entities.Sighting{}).Error
}
