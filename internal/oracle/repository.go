package oracle

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ObiomaIkpe/credo-brige/internal/ledger"
)

// Repository defines the interface for score oracle data access.
type Repository interface {
	GetScore(ctx context.Context, holder ledger.Address, scoreType ledger.ScoreType) (*VerifiedScore, error)
	SaveScore(ctx context.Context, score *VerifiedScore) error
	AppendHistory(ctx context.Context, entry *ScoreHistoryEntry) error
	ListHistory(ctx context.Context, holder ledger.Address, scoreType ledger.ScoreType) ([]ScoreHistoryEntry, error)
	GetConfig(ctx context.Context) (*OracleConfig, error)
	SaveConfig(ctx context.Context, cfg *OracleConfig) error
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetScore(ctx context.Context, holder ledger.Address, scoreType ledger.ScoreType) (*VerifiedScore, error) {
	var score VerifiedScore
	err := r.db.WithContext(ctx).
		First(&score, "holder = ? AND score_type = ?", holder.String(), scoreType).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ledger.ErrNoScore
	}
	if err != nil {
		return nil, err
	}
	return &score, nil
}

func (r *gormRepository) SaveScore(ctx context.Context, score *VerifiedScore) error {
	return r.db.WithContext(ctx).Save(score).Error
}

func (r *gormRepository) AppendHistory(ctx context.Context, entry *ScoreHistoryEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *gormRepository) ListHistory(ctx context.Context, holder ledger.Address, scoreType ledger.ScoreType) ([]ScoreHistoryEntry, error) {
	var entries []ScoreHistoryEntry
	err := r.db.WithContext(ctx).
		Where("holder = ? AND score_type = ?", holder.String(), scoreType).
		Order("id ASC").
		Find(&entries).Error
	return entries, err
}

func (r *gormRepository) GetConfig(ctx context.Context) (*OracleConfig, error) {
	var cfg OracleConfig
	err := r.db.WithContext(ctx).First(&cfg, "id = ?", 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &OracleConfig{ID: 1, MaxScoreAgeSecs: 86400, MinPublishGapSecs: 3600}, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *gormRepository) SaveConfig(ctx context.Context, cfg *OracleConfig) error {
	cfg.ID = 1
	return r.db.WithContext(ctx).Save(cfg).Error
}
