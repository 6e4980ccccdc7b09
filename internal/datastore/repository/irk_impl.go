package repository

import (
	"context"
	"errors"
	"time"

	"github.com/tphakala/rfscan-go/internal/datastore/entities"
	"gorm.io/gorm"
)

// irkRepository implements IRKRepository.
type irkRepository struct {
	db *gorm.DB
}

// NewIRKRepository creates a new IRKRepository.
func NewIRKRepository(db *gorm.DB) IRKRepository {
	return &irkRepository{db: db}
}

func (r *irkRepository) Add(ctx context.Context, k *entities.IRK) error {
	if k == nil || len(k.Key) != 32 {
		return ErrInvalidInput
	}
	if k.AddedAt.IsZero() {
		k.AddedAt = time.Now().UTC()
	}
	return translateCreateError(r.db.WithContext(ctx).Table(tableIRKs).Create(k).Error)
}

func (r *irkRepository) GetByID(ctx context.Context, id string) (*entities.IRK, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *irkRepository) GetByKey(ctx context.Context, key string) (*entities.IRK, error) {
	return r.first(ctx, "`key` = ?", key)
}

func (r *irkRepository) first(ctx context.Context, query string, arg any) (*entities.IRK, error) {
	var k entities.IRK
	err := r.db.WithContext(ctx).Table(tableIRKs).Where(query, arg).First(&k).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrIRKNotFound
	}
	if err != nil {
		return nil, err
	}
	return &k, nil
}

func (r *irkRepository) List(ctx context.Context) ([]*entities.IRK, error) {
	var keys []*entities.IRK
	err := r.db.WithContext(ctx).Table(tableIRKs).
		Order("added_at ASC").Order("id ASC").
		Find(&keys).Error
	return keys, err
}

func (r *irkRepository) Update(ctx context.Context, id, name, deviceType string) error {
	result := r.db.WithContext(ctx).Table(tableIRKs).
		Where("id = ?", id).
		Updates(map[string]any{"name": name, "device_type": deviceType})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// MySQL reports zero affected rows when values are unchanged.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *irkRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Table(tableIRKs).Where("id = ?", id).Delete(&entities.IRK{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrIRKNotFound
	}
	return nil
}

func (r *irkRepository) IncrementResolved(ctx context.Context, id string, n int64) error {
	if n <= 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Table(tableIRKs).
		Where("id = ?", id).
		Update("times_resolved", gorm.Expr("times_resolved + ?", n))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrIRKNotFound
	}
	return nil
}

func (r *irkRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Table(tableIRKs).Count(&count).Error
	return count, err
}
