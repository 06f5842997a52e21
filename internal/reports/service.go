package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ObiomaIkpe/credo-brige/internal/ledger"
	"github.com/ObiomaIkpe/credo-brige/internal/lending"
	"github.com/ObiomaIkpe/credo-brige/internal/points"
	"github.com/ObiomaIkpe/credo-brige/internal/registry"
)

// PortfolioRow is one loan in the portfolio export.
type PortfolioRow struct {
	Borrower        string
	Principal       int64
	InterestRateBps int64
	DurationDays    int64
	TotalDue        int64
	Status          string
	AppliedAt       time.Time
	Deadline        *time.Time
}

// ReputationRow is one holder in the reputation export.
type ReputationRow struct {
	Holder       string
	Total        int64
	Achievements int64
}

// Service builds portfolio and reputation reports straight from the ledger
// tables.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Portfolio returns every open loan with its computed total due.
func (s *Service) Portfolio(ctx context.Context) ([]PortfolioRow, error) {
	var loans []lending.Loan
	if err := s.db.WithContext(ctx).Order("applied_at").Find(&loans).Error; err != nil {
		return nil, fmt.Errorf("load loans: %w", err)
	}

	rows := make([]PortfolioRow, 0, len(loans))
	for _, loan := range loans {
		rows = append(rows, PortfolioRow{
			Borrower:        loan.Borrower,
			Principal:       loan.Principal,
			InterestRateBps: loan.InterestRateBps,
			DurationDays:    loan.DurationDays,
			TotalDue:        lending.TotalRepayment(loan.Principal, loan.InterestRateBps, loan.DurationDays),
			Status:          string(loan.Status()),
			AppliedAt:       loan.AppliedAt,
			Deadline:        loan.RepaymentDeadline,
		})
	}
	return rows, nil
}

// Reputation returns every holder's point total with their live achievement
// count.
func (s *Service) Reputation(ctx context.Context) ([]ReputationRow, error) {
	var totals []points.ReputationTotal
	if err := s.db.WithContext(ctx).Order("total desc").Find(&totals).Error; err != nil {
		return nil, fmt.Errorf("load totals: %w", err)
	}

	rows := make([]ReputationRow, 0, len(totals))
	for _, t := range totals {
		var count int64
		err := s.db.WithContext(ctx).Model(&registry.AchievementRecord{}).
			Where("holder = ?", t.Holder).Count(&count).Error
		if err != nil {
			return nil, err
		}
		rows = append(rows, ReputationRow{Holder: t.Holder, Total: t.Total, Achievements: count})
	}
	return rows, nil
}

// LoanStatement loads the loan a statement PDF is generated for.
func (s *Service) LoanStatement(ctx context.Context, borrower ledger.Address) (*PortfolioRow, error) {
	var loan lending.Loan
	err := s.db.WithContext(ctx).Where("borrower = ?", borrower.String()).First(&loan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &PortfolioRow{
		Borrower:        loan.Borrower,
		Principal:       loan.Principal,
		InterestRateBps: loan.InterestRateBps,
		DurationDays:    loan.DurationDays,
		TotalDue:        lending.TotalRepayment(loan.Principal, loan.InterestRateBps, loan.DurationDays),
		Status:          string(loan.Status()),
		AppliedAt:       loan.AppliedAt,
		Deadline:        loan.RepaymentDeadline,
	}, nil
}
