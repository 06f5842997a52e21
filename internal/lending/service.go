package lending

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ObiomaIkpe/credo-brige/internal/ledger"
	"github.com/ObiomaIkpe/credo-brige/internal/registry"
	"github.com/ObiomaIkpe/credo-brige/pkg/workflows"
)

// simulationReferenceScore is the fixed score SimulateLoan quotes against.
// The audited oracle read logs a query event, so it cannot be used from a
// read-only path; the simulation quotes a mid-band reference instead of the
// caller's actual score. Known approximation, kept deliberately.
const simulationReferenceScore = 650

// PointsReader is the Point Ledger as seen from the loan manager.
type PointsReader interface {
	GetPoints(ctx context.Context, holder ledger.Address) (int64, error)
}

// ScoreReader is the Score Oracle's audited read.
type ScoreReader interface {
	LatestScore(ctx context.Context, caller, holder ledger.Address, scoreType ledger.ScoreType) (int64, error)
}

// TokenLedger is the stablecoin interface the loan manager settles through.
type TokenLedger interface {
	BalanceOf(ctx context.Context, addr ledger.Address) (int64, error)
	Transfer(ctx context.Context, caller, to ledger.Address, amount int64) error
	TransferFrom(ctx context.Context, caller, from, to ledger.Address, amount int64) error
}

// RewardMinter mints achievement records on successful repayment.
type RewardMinter interface {
	Issue(ctx context.Context, caller ledger.Address, req registry.IssueRequest) (*registry.AchievementRecord, error)
}

// Service orchestrates the loan lifecycle: apply, approve and disburse,
// repay, reward. The service's own address is the lending pool account.
type Service struct {
	repo    Repository
	points  PointsReader
	oracle  ScoreReader
	tokens  TokenLedger
	rewards RewardMinter
	events  ledger.Recorder
	clock   ledger.Clock
	logger  *zap.Logger
	sm      *workflows.StateMachine
	owner   ledger.Address
	address ledger.Address
	guard   ledger.CallGuard
}

func NewService(repo Repository, points PointsReader, oracle ScoreReader, tokens TokenLedger, rewards RewardMinter,
	events ledger.Recorder, clock ledger.Clock, logger *zap.Logger, owner, address ledger.Address) *Service {
	return &Service{
		repo:    repo,
		points:  points,
		oracle:  oracle,
		tokens:  tokens,
		rewards: rewards,
		events:  events,
		clock:   clock,
		logger:  logger,
		sm:      workflows.NewLoanStateMachine(),
		owner:   owner,
		address: address,
	}
}

// Address returns the lending pool account.
func (s *Service) Address() ledger.Address { return s.address }

// ApplyForLoan opens an unapproved loan for the caller after the reputation
// and risk-score gates pass. The emitted event snapshots both gate inputs for
// audit.
func (s *Service) ApplyForLoan(ctx context.Context, caller ledger.Address, principal int64) (*Loan, error) {
	release, err := s.guard.Enter()
	if err != nil {
		return nil, err
	}
	defer release()

	cfg, err := s.repo.GetConfig(ctx)
	if err != nil {
		return nil, err
	}
	if cfg.Paused {
		return nil, ledger.ErrPaused
	}

	if _, err := s.repo.GetLoan(ctx, caller); err == nil {
		return nil, ledger.ErrAlreadyActive
	} else if !errors.Is(err, ledger.ErrNotFound) {
		return nil, err
	}

	if principal < cfg.MinLoan || principal > cfg.MaxLoan {
		return nil, ledger.ErrAmountOutOfRange
	}

	points, err := s.points.GetPoints(ctx, caller)
	if err != nil {
		return nil, fmt.Errorf("point ledger read: %w", err)
	}
	if points < cfg.MinReputation {
		return nil, ledger.ErrInsufficientReputation
	}

	score, err := s.oracle.LatestScore(ctx, s.address, caller, ledger.ScoreFinancialRisk)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ledger.ErrInsufficientScore, err)
	}
	if score < cfg.MinScore {
		return nil, ledger.ErrInsufficientScore
	}

	loan := &Loan{
		Borrower:        caller.String(),
		Principal:       principal,
		InterestRateBps: RateBpsForScore(score),
		AppliedAt:       s.clock.Now(),
		ScoreAtApply:    score,
		PointsAtApply:   points,
	}
	if err := s.repo.SaveLoan(ctx, loan); err != nil {
		return nil, fmt.Errorf("save loan: %w", err)
	}

	if err := s.events.Record(ctx, "lending", "loan_applied", caller, caller, map[string]interface{}{
		"principal": principal,
		"rate_bps":  loan.InterestRateBps,
		"score":     score,
		"points":    points,
	}); err != nil {
		return nil, err
	}
	return loan, nil
}

// ApproveAndDisburse approves a pending application and pays out the
// principal. Loan state is committed before the token transfer; the external
// call sees the loan already approved.
func (s *Service) ApproveAndDisburse(ctx context.Context, caller, borrower ledger.Address, durationDays int64) error {
	release, err := s.guard.Enter()
	if err != nil {
		return err
	}
	defer release()

	cfg, err := s.repo.GetConfig(ctx)
	if err != nil {
		return err
	}
	if cfg.Paused {
		return ledger.ErrPaused
	}
	if !s.isAdmin(caller, cfg) {
		return ledger.ErrUnauthorized
	}

	loan, err := s.repo.GetLoan(ctx, borrower)
	if err != nil {
		return err
	}
	if loan.IsApproved {
		return ledger.ErrAlreadyApproved
	}
	if durationDays <= 0 || durationDays > 365 {
		return ledger.ErrInvalidDuration
	}
	if !s.sm.CanTransition(string(loan.Status()), string(StatusApproved)) {
		return ledger.ErrAlreadyApproved
	}

	poolBalance, err := s.tokens.BalanceOf(ctx, s.address)
	if err != nil {
		return err
	}
	if poolBalance < loan.Principal {
		return ledger.ErrInsufficientFunds
	}

	// Effects before interactions.
	now := s.clock.Now()
	deadline := now.Add(time.Duration(durationDays) * 24 * time.Hour)
	loan.IsApproved = true
	loan.DurationDays = durationDays
	loan.DisbursedAt = &now
	loan.RepaymentDeadline = &deadline
	if err := s.repo.SaveLoan(ctx, loan); err != nil {
		return fmt.Errorf("commit approval: %w", err)
	}

	if err := s.tokens.Transfer(ctx, s.address, borrower, loan.Principal); err != nil {
		// Substrate-style revert: undo the committed approval.
		loan.IsApproved = false
		loan.DurationDays = 0
		loan.DisbursedAt = nil
		loan.RepaymentDeadline = nil
		if saveErr := s.repo.SaveLoan(ctx, loan); saveErr != nil {
			s.logger.Error("approval rollback failed", zap.Error(saveErr), zap.String("borrower", borrower.String()))
		}
		return fmt.Errorf("disbursement transfer: %w", err)
	}

	totalDue := TotalRepayment(loan.Principal, loan.InterestRateBps, loan.DurationDays)
	if err := s.events.Record(ctx, "lending", "loan_approved", caller, borrower, map[string]interface{}{
		"principal":     loan.Principal,
		"duration_days": durationDays,
	}); err != nil {
		return err
	}
	return s.events.Record(ctx, "lending", "loan_disbursed", caller, borrower, map[string]interface{}{
		"principal": loan.Principal,
		"rate_bps":  loan.InterestRateBps,
		"total_due": totalDue,
		"deadline":  deadline,
	})
}

// RepayLoan settles the caller's approved loan via an allowance pull, then
// mints the repayment reward best-effort. The repaid flag is persisted before
// either external call; a reverting reward mint never blocks settlement.
func (s *Service) RepayLoan(ctx context.Context, caller ledger.Address) error {
	release, err := s.guard.Enter()
	if err != nil {
		return err
	}
	defer release()

	cfg, err := s.repo.GetConfig(ctx)
	if err != nil {
		return err
	}
	if cfg.Paused {
		return ledger.ErrPaused
	}

	loan, err := s.repo.GetLoan(ctx, caller)
	if err != nil {
		return err
	}
	if !loan.IsApproved {
		return ledger.ErrNotApproved
	}
	if loan.IsRepaid {
		return ledger.ErrAlreadyRepaid
	}

	totalDue := TotalRepayment(loan.Principal, loan.InterestRateBps, loan.DurationDays)
	late := loan.RepaymentDeadline != nil && s.clock.Now().After(*loan.RepaymentDeadline)

	// Effects before interactions.
	loan.IsRepaid = true
	if err := s.repo.SaveLoan(ctx, loan); err != nil {
		return fmt.Errorf("commit repayment: %w", err)
	}

	if err := s.tokens.TransferFrom(ctx, s.address, caller, s.address, totalDue); err != nil {
		loan.IsRepaid = false
		if saveErr := s.repo.SaveLoan(ctx, loan); saveErr != nil {
			s.logger.Error("repayment rollback failed", zap.Error(saveErr), zap.String("borrower", caller.String()))
		}
		return fmt.Errorf("repayment transfer: %w", err)
	}

	rewardMinted := s.mintRepaymentReward(ctx, caller, loan, cfg)

	if err := s.repo.DeleteLoan(ctx, caller); err != nil {
		return fmt.Errorf("clear loan: %w", err)
	}

	return s.events.Record(ctx, "lending", "loan_repaid", caller, caller, map[string]interface{}{
		"principal":     loan.Principal,
		"total_paid":    totalDue,
		"late":          late,
		"reward_minted": rewardMinted,
	})
}

// mintRepaymentReward is the isolated best-effort reward path. Failure is
// reported as a flag, never propagated.
func (s *Service) mintRepaymentReward(ctx context.Context, borrower ledger.Address, loan *Loan, cfg *LendingConfig) bool {
	taskType := registry.TaskLoanRepaid
	level := registry.LevelSilver
	if loan.Principal >= cfg.LargeLoanThreshold {
		taskType = registry.TaskLargeLoanRepaid
		level = registry.LevelGold
	}

	_, err := s.rewards.Issue(ctx, s.address, registry.IssueRequest{
		Holder:     borrower,
		TaskType:   taskType,
		PointLevel: level,
		Title:      "Loan repaid on Credo Bridge",
	})
	if err != nil {
		s.logger.Warn("repayment reward mint failed",
			zap.String("borrower", borrower.String()),
			zap.Error(err))
		return false
	}
	return true
}

// CancelLoanApplication lets a borrower withdraw a pending application.
// There is no cancel path once approved.
func (s *Service) CancelLoanApplication(ctx context.Context, caller ledger.Address) error {
	return s.removeApplication(ctx, caller, caller, "cancelled by borrower")
}

// RejectLoanApplication lets an admin decline a pending application.
func (s *Service) RejectLoanApplication(ctx context.Context, caller, borrower ledger.Address) error {
	cfg, err := s.repo.GetConfig(ctx)
	if err != nil {
		return err
	}
	if !s.isAdmin(caller, cfg) {
		return ledger.ErrUnauthorized
	}
	return s.removeApplication(ctx, caller, borrower, "rejected by admin")
}

func (s *Service) removeApplication(ctx context.Context, actor, borrower ledger.Address, reason string) error {
	loan, err := s.repo.GetLoan(ctx, borrower)
	if err != nil {
		return err
	}
	if loan.IsApproved {
		return ledger.ErrAlreadyApproved
	}
	if err := s.repo.DeleteLoan(ctx, borrower); err != nil {
		return err
	}
	// Same event shape for both exits; the actor tells them apart.
	return s.events.Record(ctx, "lending", "loan_cancelled", actor, borrower, map[string]interface{}{
		"principal": loan.Principal,
		"reason":    reason,
	})
}

// GetLoan returns the borrower's current loan, if any.
func (s *Service) GetLoan(ctx context.Context, borrower ledger.Address) (*Loan, error) {
	return s.repo.GetLoan(ctx, borrower)
}

// ListLoans returns all open loans, oldest application first.
func (s *Service) ListLoans(ctx context.Context) ([]Loan, error) {
	return s.repo.ListLoans(ctx)
}

// PoolBalance reports the lending pool's stablecoin balance.
func (s *Service) PoolBalance(ctx context.Context) (int64, error) {
	return s.tokens.BalanceOf(ctx, s.address)
}

// SimulateLoan quotes a prospective loan against the fixed reference score.
func (s *Service) SimulateLoan(ctx context.Context, principal, durationDays int64) (*LoanQuote, error) {
	cfg, err := s.repo.GetConfig(ctx)
	if err != nil {
		return nil, err
	}
	if principal < cfg.MinLoan || principal > cfg.MaxLoan {
		return nil, ledger.ErrAmountOutOfRange
	}
	if durationDays <= 0 || durationDays > 365 {
		return nil, ledger.ErrInvalidDuration
	}
	rate := RateBpsForScore(simulationReferenceScore)
	return &LoanQuote{
		Principal:       principal,
		DurationDays:    durationDays,
		ReferenceScore:  simulationReferenceScore,
		InterestRateBps: rate,
		TotalRepayment:  TotalRepayment(principal, rate, durationDays),
	}, nil
}

// Withdraw moves pool profits out. Owner only, never exceeding the pool.
func (s *Service) Withdraw(ctx context.Context, caller, to ledger.Address, amount int64) error {
	if caller != s.owner {
		return ledger.ErrUnauthorized
	}
	if to.IsZero() {
		return ledger.ErrInvalidRecipient
	}
	balance, err := s.tokens.BalanceOf(ctx, s.address)
	if err != nil {
		return err
	}
	if amount <= 0 || amount > balance {
		return ledger.ErrInsufficientFunds
	}
	if err := s.tokens.Transfer(ctx, s.address, to, amount); err != nil {
		return fmt.Errorf("withdraw transfer: %w", err)
	}
	return s.events.Record(ctx, "lending", "funds_withdrawn", caller, to, map[string]interface{}{
		"amount": amount,
	})
}

// SetPaused halts or resumes apply, approve and repay. Owner only.
func (s *Service) SetPaused(ctx context.Context, caller ledger.Address, paused bool) error {
	if caller != s.owner {
		return ledger.ErrUnauthorized
	}
	cfg, err := s.repo.GetConfig(ctx)
	if err != nil {
		return err
	}
	cfg.Paused = paused
	if err := s.repo.SaveConfig(ctx, cfg); err != nil {
		return err
	}
	return s.events.Record(ctx, "lending", "paused_changed", caller, ledger.ZeroAddress, map[string]interface{}{
		"paused": paused,
	})
}

// SetAdmin designates the approval admin. Owner only.
func (s *Service) SetAdmin(ctx context.Context, caller, admin ledger.Address) error {
	if caller != s.owner {
		return ledger.ErrUnauthorized
	}
	if admin.IsZero() {
		return ledger.ErrInvalidRecipient
	}
	cfg, err := s.repo.GetConfig(ctx)
	if err != nil {
		return err
	}
	cfg.AdminAddress = admin.String()
	if err := s.repo.SaveConfig(ctx, cfg); err != nil {
		return err
	}
	return s.events.Record(ctx, "lending", "admin_changed", caller, admin, nil)
}

// SetLoanLimits adjusts the loan-size bounds. Limits must satisfy
// min < threshold <= max.
func (s *Service) SetLoanLimits(ctx context.Context, caller ledger.Address, minLoan, largeThreshold, maxLoan int64) error {
	if caller != s.owner {
		return ledger.ErrUnauthorized
	}
	if minLoan <= 0 || !(minLoan < largeThreshold && largeThreshold <= maxLoan) {
		return ledger.ErrOutOfRange
	}
	cfg, err := s.repo.GetConfig(ctx)
	if err != nil {
		return err
	}
	old := *cfg
	cfg.MinLoan = minLoan
	cfg.LargeLoanThreshold = largeThreshold
	cfg.MaxLoan = maxLoan
	if err := s.repo.SaveConfig(ctx, cfg); err != nil {
		return err
	}
	return s.events.Record(ctx, "lending", "loan_limits_changed", caller, ledger.ZeroAddress, map[string]interface{}{
		"old_min":       old.MinLoan,
		"old_threshold": old.LargeLoanThreshold,
		"old_max":       old.MaxLoan,
		"new_min":       minLoan,
		"new_threshold": largeThreshold,
		"new_max":       maxLoan,
	})
}

// SetEligibility adjusts the reputation and score gates. Owner only.
func (s *Service) SetEligibility(ctx context.Context, caller ledger.Address, minReputation, minScore int64) error {
	if caller != s.owner {
		return ledger.ErrUnauthorized
	}
	if minReputation < 0 || minScore < 0 || minScore > ledger.MaxScoreValue {
		return ledger.ErrOutOfRange
	}
	cfg, err := s.repo.GetConfig(ctx)
	if err != nil {
		return err
	}
	cfg.MinReputation = minReputation
	cfg.MinScore = minScore
	if err := s.repo.SaveConfig(ctx, cfg); err != nil {
		return err
	}
	return s.events.Record(ctx, "lending", "eligibility_changed", caller, ledger.ZeroAddress, map[string]interface{}{
		"min_reputation": minReputation,
		"min_score":      minScore,
	})
}

func (s *Service) isAdmin(caller ledger.Address, cfg *LendingConfig) bool {
	return caller == s.owner || (cfg.AdminAddress != "" && caller.String() == cfg.AdminAddress)
}
