package lending

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ObiomaIkpe/credo-brige/internal/ledger"
)

// Repository defines the interface for loan data access.
type Repository interface {
	GetLoan(ctx context.Context, borrower ledger.Address) (*Loan, error)
	SaveLoan(ctx context.Context, loan *Loan) error
	DeleteLoan(ctx context.Context, borrower ledger.Address) error
	ListLoans(ctx context.Context) ([]Loan, error)
	GetConfig(ctx context.Context) (*LendingConfig, error)
	SaveConfig(ctx context.Context, cfg *LendingConfig) error
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetLoan(ctx context.Context, borrower ledger.Address) (*Loan, error) {
	var loan Loan
	err := r.db.WithContext(ctx).First(&loan, "borrower = ?", borrower.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *gormRepository) SaveLoan(ctx context.Context, loan *Loan) error {
	return r.db.WithContext(ctx).Save(loan).Error
}

func (r *gormRepository) DeleteLoan(ctx context.Context, borrower ledger.Address) error {
	return r.db.WithContext(ctx).Delete(&Loan{}, "borrower = ?", borrower.String()).Error
}

func (r *gormRepository) ListLoans(ctx context.Context) ([]Loan, error) {
	var loans []Loan
	err := r.db.WithContext(ctx).Order("applied_at ASC").Find(&loans).Error
	return loans, err
}

func (r *gormRepository) GetConfig(ctx context.Context) (*LendingConfig, error) {
	var cfg LendingConfig
	err := r.db.WithContext(ctx).First(&cfg, "id = ?", 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &LendingConfig{
			ID:                 1,
			MinLoan:            100,
			MaxLoan:            100000,
			LargeLoanThreshold: 10000,
			MinReputation:      500,
			MinScore:           600,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *gormRepository) SaveConfig(ctx context.Context, cfg *LendingConfig) error {
	cfg.ID = 1
	return r.db.WithContext(ctx).Save(cfg).Error
}
