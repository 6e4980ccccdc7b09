package repository

import (
	"context"
	"errors"
	"time"

	"github.com/tphakala/rfscan-go/internal/datastore/entities"
	"gorm.io/gorm"
)

// sessionRepository implements SessionRepository.
type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, s *entities.Session) error {
	if s == nil || s.StartTime.IsZero() {
		return ErrInvalidInput
	}
	return translateCreateError(r.db.WithContext(ctx).Table(tableSessions).Create(s).Error)
}

func (r *sessionRepository) GetByID(ctx context.Context, id string) (*entities.Session, error) {
	var s entities.Session
	err := r.db.WithContext(ctx).Table(tableSessions).Where("id = ?", id).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepository) Close(ctx context.Context, id string, end time.Time, totals SessionTotals) error {
	result := r.db.WithContext(ctx).Table(tableSessions).
		Where("id = ? AND end_time IS NULL", id).
		Updates(map[string]any{
			"end_time":        end,
			"total_networks":  totals.TotalNetworks,
			"new_networks":    totals.NewNetworks,
			"total_sightings": totals.TotalSightings,
			"distance":        totals.Distance,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// Nothing matched: tell a missing session from a closed one.
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrSessionClosed
}

func (r *sessionRepository) List(ctx context.Context, limit, offset int) ([]*entities.Session, error) {
	var sessions []*entities.Session
	q := r.db.WithContext(ctx).Table(tableSessions).Order("start_time DESC")
	err := applyPaging(q, limit, offset).Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepository) Open(ctx context.Context) ([]*entities.Session, error) {
	var sessions []*entities.Session
	err := r.db.WithContext(ctx).Table(tableSessions).
		Where("end_time IS NULL").
		Order("start_time DESC").
		Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Table(tableSessions).Count(&count).Error
	return count, err
}

func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Table(tableRoutePoints).Where("session_id = ?", id).
			Delete(&entities.RoutePoint{}).Error; err != nil {
			return err
		}
		if err := tx.Table(tableSightings).Where("session_id = ?", id).
			Update("session_id", nil).Error; err != nil {
			return err
		}
		result := tx.Table(tableSessions).Where("id = ?", id).Delete(&entities.Session{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrSessionNotFound
		}
		return nil
	})
}

func (r *sessionRepository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).
		Table(tableSessions).Delete(&entities.Session{}).Error
}
