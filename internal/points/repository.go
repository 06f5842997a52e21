package points

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ObiomaIkpe/credo-brige/internal/ledger"
)

// Repository defines the interface for point ledger data access.
type Repository interface {
	GetTotal(ctx context.Context, holder ledger.Address) (int64, error)
	AddToTotal(ctx context.Context, holder ledger.Address, amount int64) (int64, error)
	GetConfig(ctx context.Context) (*LedgerConfig, error)
	SaveConfig(ctx context.Context, cfg *LedgerConfig) error
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetTotal(ctx context.Context, holder ledger.Address) (int64, error) {
	var total ReputationTotal
	err := r.db.WithContext(ctx).First(&total, "holder = ?", holder.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return total.Total, nil
}

// AddToTotal increments the holder's aggregate and returns the new total.
func (r *gormRepository) AddToTotal(ctx context.Context, holder ledger.Address, amount int64) (int64, error) {
	var updated int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var total ReputationTotal
		err := tx.First(&total, "holder = ?", holder.String()).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			total = ReputationTotal{Holder: holder.String()}
		} else if err != nil {
			return err
		}
		total.Total += amount
		updated = total.Total
		return tx.Save(&total).Error
	})
	return updated, err
}

func (r *gormRepository) GetConfig(ctx context.Context) (*LedgerConfig, error) {
	var cfg LedgerConfig
	err := r.db.WithContext(ctx).First(&cfg, "id = ?", 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &LedgerConfig{ID: 1, MinPoints: 500, MinScore: 700}, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *gormRepository) SaveConfig(ctx context.Context, cfg *LedgerConfig) error {
	cfg.ID = 1
	return r.db.WithContext(ctx).Save(cfg).Error
}
