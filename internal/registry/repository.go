package registry

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ObiomaIkpe/credo-brige/internal/ledger"
)

// Repository defines the interface for achievement record data access.
type Repository interface {
	CreateRecord(ctx context.Context, record *AchievementRecord) error
	GetRecord(ctx context.Context, id uint64) (*AchievementRecord, error)
	DeleteRecord(ctx context.Context, id uint64) error
	ListByHolder(ctx context.Context, holder ledger.Address) ([]AchievementRecord, error)

	IsIssuer(ctx context.Context, addr ledger.Address) (bool, error)
	AddIssuer(ctx context.Context, issuer *AuthorizedIssuer) error
	RemoveIssuer(ctx context.Context, addr ledger.Address) error
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateRecord(ctx context.Context, record *AchievementRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *gormRepository) GetRecord(ctx context.Context, id uint64) (*AchievementRecord, error) {
	var record AchievementRecord
	err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *gormRepository) DeleteRecord(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&AchievementRecord{}, "id = ?", id).Error
}

func (r *gormRepository) ListByHolder(ctx context.Context, holder ledger.Address) ([]AchievementRecord, error) {
	var records []AchievementRecord
	err := r.db.WithContext(ctx).
		Where("holder = ?", holder.String()).
		Order("id ASC").
		Find(&records).Error
	return records, err
}

func (r *gormRepository) IsIssuer(ctx context.Context, addr ledger.Address) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&AuthorizedIssuer{}).
		Where("address = ?", addr.String()).
		Count(&count).Error
	return count > 0, err
}

func (r *gormRepository) AddIssuer(ctx context.Context, issuer *AuthorizedIssuer) error {
	return r.db.WithContext(ctx).Save(issuer).Error
}

func (r *gormRepository) RemoveIssuer(ctx context.Context, addr ledger.Address) error {
	return r.db.WithContext(ctx).Delete(&AuthorizedIssuer{}, "address = ?", addr.String()).Error
}
