package benefits

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ObiomaIkpe/credo-brige/internal/ledger"
	"github.com/ObiomaIkpe/credo-brige/internal/points"
	"github.com/ObiomaIkpe/credo-brige/internal/registry"
	"github.com/ObiomaIkpe/credo-brige/pkg/workflows"
)

// EligibilityChecker is the Point Ledger's side-effect-free eligibility view.
type EligibilityChecker interface {
	CheckEligibility(ctx context.Context, holder ledger.Address) (*points.EligibilityResult, error)
}

// TokenLedger is the stablecoin interface the benefit pools settle through.
type TokenLedger interface {
	Transfer(ctx context.Context, caller, to ledger.Address, amount int64) error
	TransferFrom(ctx context.Context, caller, from, to ledger.Address, amount int64) error
}

// RewardMinter mints achievement records on benefit completion.
type RewardMinter interface {
	Issue(ctx context.Context, caller ledger.Address, req registry.IssueRequest) (*registry.AchievementRecord, error)
}

// CreateProgramRequest carries the parameters of a new benefit program.
type CreateProgramRequest struct {
	Name          string
	Description   string
	MinPoints     int64
	MinScore      int64
	BenefitAmount int64
}

// Service runs benefit programs: the same consumption pattern as the loan
// manager (eligibility gate in, best-effort reward out), structured as
// program pools instead of a single lending pool.
type Service struct {
	repo        Repository
	eligibility EligibilityChecker
	tokens      TokenLedger
	rewards     RewardMinter
	events      ledger.Recorder
	clock       ledger.Clock
	logger      *zap.Logger
	sm          *workflows.StateMachine
	address     ledger.Address
	guard       ledger.CallGuard
}

func NewService(repo Repository, eligibility EligibilityChecker, tokens TokenLedger, rewards RewardMinter,
	events ledger.Recorder, clock ledger.Clock, logger *zap.Logger, address ledger.Address) *Service {
	return &Service{
		repo:        repo,
		eligibility: eligibility,
		tokens:      tokens,
		rewards:     rewards,
		events:      events,
		clock:       clock,
		logger:      logger,
		sm:          workflows.NewApplicationStateMachine(),
		address:     address,
	}
}

// CreateProgram opens a new program owned by the caller.
func (s *Service) CreateProgram(ctx context.Context, caller ledger.Address, req CreateProgramRequest) (*Program, error) {
	if req.BenefitAmount <= 0 {
		return nil, ledger.ErrAmountOutOfRange
	}
	if req.MinPoints < 0 || req.MinScore < 0 || req.MinScore > ledger.MaxScoreValue {
		return nil, ledger.ErrOutOfRange
	}

	program := &Program{
		Owner:         caller.String(),
		Name:          req.Name,
		Description:   req.Description,
		MinPoints:     req.MinPoints,
		MinScore:      req.MinScore,
		BenefitAmount: req.BenefitAmount,
		Active:        true,
	}
	if err := s.repo.CreateProgram(ctx, program); err != nil {
		return nil, fmt.Errorf("create program: %w", err)
	}

	if err := s.events.Record(ctx, "benefits", "program_created", caller, caller, map[string]interface{}{
		"program_id":     program.ID,
		"benefit_amount": program.BenefitAmount,
	}); err != nil {
		return nil, err
	}
	return program, nil
}

// FundProgram pulls stablecoins from the program owner into the program pool.
// Requires a prior allowance for the benefits ledger.
func (s *Service) FundProgram(ctx context.Context, caller ledger.Address, programID uuid.UUID, amount int64) error {
	if amount <= 0 {
		return ledger.ErrAmountOutOfRange
	}
	program, err := s.repo.GetProgram(ctx, programID)
	if err != nil {
		return err
	}
	if caller.String() != program.Owner {
		return ledger.ErrNotProgramOwner
	}

	// Effects before interactions.
	program.PoolBalance += amount
	if err := s.repo.SaveProgram(ctx, program); err != nil {
		return err
	}

	if err := s.tokens.TransferFrom(ctx, s.address, caller, s.address, amount); err != nil {
		program.PoolBalance -= amount
		if saveErr := s.repo.SaveProgram(ctx, program); saveErr != nil {
			s.logger.Error("funding rollback failed", zap.Error(saveErr),
				zap.String("program_id", programID.String()))
		}
		return fmt.Errorf("fund transfer: %w", err)
	}
	return s.events.Record(ctx, "benefits", "program_funded", caller, caller, map[string]interface{}{
		"program_id": programID,
		"amount":     amount,
	})
}

// Apply opens a PENDING application after the program's eligibility gates
// pass. Both gates are conjunctive, exactly as the Point Ledger checks them.
func (s *Service) Apply(ctx context.Context, caller ledger.Address, programID uuid.UUID) (*Application, error) {
	release, err := s.guard.Enter()
	if err != nil {
		return nil, err
	}
	defer release()

	program, err := s.repo.GetProgram(ctx, programID)
	if err != nil {
		return nil, err
	}
	if !program.Active {
		return nil, ledger.ErrNotFound
	}

	if _, err := s.repo.FindOpenApplication(ctx, programID, caller); err == nil {
		return nil, ledger.ErrAlreadyActive
	} else if !errors.Is(err, ledger.ErrNotFound) {
		return nil, err
	}

	result, err := s.eligibility.CheckEligibility(ctx, caller)
	if err != nil {
		return nil, err
	}
	if !result.ScoreValid {
		return nil, ledger.ErrStaleScore
	}
	if result.Points < program.MinPoints {
		return nil, ledger.ErrInsufficientReputation
	}
	if result.Score < program.MinScore {
		return nil, ledger.ErrInsufficientScore
	}

	app := &Application{
		ProgramID:     programID,
		Applicant:     caller.String(),
		Status:        ApplicationPending,
		PointsAtApply: result.Points,
		ScoreAtApply:  result.Score,
	}
	if err := s.repo.CreateApplication(ctx, app); err != nil {
		return nil, fmt.Errorf("create application: %w", err)
	}

	if err := s.events.Record(ctx, "benefits", "application_submitted", caller, caller, map[string]interface{}{
		"program_id":     programID,
		"application_id": app.ID,
		"points":         result.Points,
		"score":          result.Score,
	}); err != nil {
		return nil, err
	}
	return app, nil
}

// Decide moves a PENDING application to APPROVED or REJECTED. Program owner
// only.
func (s *Service) Decide(ctx context.Context, caller ledger.Address, applicationID uuid.UUID, approve bool) error {
	app, program, err := s.getOwnedApplication(ctx, caller, applicationID)
	if err != nil {
		return err
	}

	target := ApplicationRejected
	if approve {
		target = ApplicationApproved
	}
	if !s.sm.CanTransition(string(app.Status), string(target)) {
		return ledger.ErrAlreadyApproved
	}

	now := s.clock.Now()
	app.Status = target
	app.DecidedAt = &now
	if err := s.repo.SaveApplication(ctx, app); err != nil {
		return err
	}
	return s.events.Record(ctx, "benefits", "application_decided", caller, ledger.Address(app.Applicant), map[string]interface{}{
		"program_id":     program.ID,
		"application_id": app.ID,
		"approved":       approve,
	})
}

// Disburse pays the benefit out of the program pool. The application status
// is committed before the token transfer.
func (s *Service) Disburse(ctx context.Context, caller ledger.Address, applicationID uuid.UUID) error {
	release, err := s.guard.Enter()
	if err != nil {
		return err
	}
	defer release()

	app, program, err := s.getOwnedApplication(ctx, caller, applicationID)
	if err != nil {
		return err
	}
	if !s.sm.CanTransition(string(app.Status), string(ApplicationDisbursed)) {
		return ledger.ErrNotApproved
	}
	if program.PoolBalance < program.BenefitAmount {
		return ledger.ErrInsufficientFunds
	}

	// Effects before interactions.
	now := s.clock.Now()
	app.Status = ApplicationDisbursed
	app.DisbursedAt = &now
	program.PoolBalance -= program.BenefitAmount
	if err := s.repo.SaveApplication(ctx, app); err != nil {
		return err
	}
	if err := s.repo.SaveProgram(ctx, program); err != nil {
		return err
	}

	if err := s.tokens.Transfer(ctx, s.address, ledger.Address(app.Applicant), program.BenefitAmount); err != nil {
		app.Status = ApplicationApproved
		app.DisbursedAt = nil
		program.PoolBalance += program.BenefitAmount
		if saveErr := s.repo.SaveApplication(ctx, app); saveErr != nil {
			s.logger.Error("disbursement rollback failed", zap.Error(saveErr))
		}
		if saveErr := s.repo.SaveProgram(ctx, program); saveErr != nil {
			s.logger.Error("pool rollback failed", zap.Error(saveErr))
		}
		return fmt.Errorf("benefit transfer: %w", err)
	}

	return s.events.Record(ctx, "benefits", "benefit_disbursed", caller, ledger.Address(app.Applicant), map[string]interface{}{
		"program_id":     program.ID,
		"application_id": app.ID,
		"amount":         program.BenefitAmount,
	})
}

// Complete closes a disbursed application and mints the participation reward
// best-effort, at most once.
func (s *Service) Complete(ctx context.Context, caller ledger.Address, applicationID uuid.UUID) error {
	app, program, err := s.getOwnedApplication(ctx, caller, applicationID)
	if err != nil {
		return err
	}
	if !s.sm.CanTransition(string(app.Status), string(ApplicationCompleted)) {
		return ledger.ErrNotApproved
	}

	// Effects before interactions. The reward flag is committed before the
	// mint so a retry after a partial failure can never mint twice.
	mintReward := !app.RewardMinted
	app.Status = ApplicationCompleted
	app.RewardMinted = true
	if err := s.repo.SaveApplication(ctx, app); err != nil {
		return err
	}

	rewardMinted := false
	if mintReward {
		_, err := s.rewards.Issue(ctx, s.address, registry.IssueRequest{
			Holder:     ledger.Address(app.Applicant),
			TaskType:   registry.TaskCommunityService,
			PointLevel: registry.LevelBronze,
			Title:      fmt.Sprintf("Completed benefit program %s", program.Name),
		})
		if err != nil {
			s.logger.Warn("benefit reward mint failed",
				zap.String("applicant", app.Applicant),
				zap.Error(err))
		} else {
			rewardMinted = true
		}
	}

	return s.events.Record(ctx, "benefits", "application_completed", caller, ledger.Address(app.Applicant), map[string]interface{}{
		"program_id":     program.ID,
		"application_id": app.ID,
		"reward_minted":  rewardMinted,
	})
}

// SetProgramActive toggles a program. Program owner only.
func (s *Service) SetProgramActive(ctx context.Context, caller ledger.Address, programID uuid.UUID, active bool) error {
	program, err := s.repo.GetProgram(ctx, programID)
	if err != nil {
		return err
	}
	if caller.String() != program.Owner {
		return ledger.ErrNotProgramOwner
	}
	program.Active = active
	return s.repo.SaveProgram(ctx, program)
}

// GetProgram returns one program.
func (s *Service) GetProgram(ctx context.Context, id uuid.UUID) (*Program, error) {
	return s.repo.GetProgram(ctx, id)
}

// ListPrograms returns programs, optionally only active ones.
func (s *Service) ListPrograms(ctx context.Context, activeOnly bool) ([]Program, error) {
	return s.repo.ListPrograms(ctx, activeOnly)
}

// ListApplications returns a program's applications.
func (s *Service) ListApplications(ctx context.Context, programID uuid.UUID) ([]Application, error) {
	return s.repo.ListApplications(ctx, programID)
}

func (s *Service) getOwnedApplication(ctx context.Context, caller ledger.Address, applicationID uuid.UUID) (*Application, *Program, error) {
	app, err := s.repo.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, nil, err
	}
	program, err := s.repo.GetProgram(ctx, app.ProgramID)
	if err != nil {
		return nil, nil, err
	}
	if caller.String() != program.Owner {
		return nil, nil, ledger.ErrNotProgramOwner
	}
	return app, program, nil
}
