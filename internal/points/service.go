package points

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ObiomaIkpe/credo-brige/internal/ledger"
)

// ScoreSource is the Score Oracle as seen from the Point Ledger. LatestScore
// is the audited, state-mutating read; LatestScoreView is the pure variant.
type ScoreSource interface {
	LatestScore(ctx context.Context, caller, holder ledger.Address, scoreType ledger.ScoreType) (int64, error)
	LatestScoreView(ctx context.Context, holder ledger.Address, scoreType ledger.ScoreType) (value int64, valid bool, age time.Duration, err error)
}

// EligibilityResult is the outcome of a dual-criteria eligibility check.
type EligibilityResult struct {
	Holder     string `json:"holder"`
	Points     int64  `json:"points"`
	MinPoints  int64  `json:"min_points"`
	Score      int64  `json:"score"`
	MinScore   int64  `json:"min_score"`
	ScoreValid bool   `json:"score_valid"`
	Eligible   bool   `json:"eligible"`
}

// Service owns the per-holder reputation aggregate. Its sole write path is
// the Achievement Registry.
type Service struct {
	repo    Repository
	oracle  ScoreSource
	events  ledger.Recorder
	logger  *zap.Logger
	owner   ledger.Address
	address ledger.Address
}

func NewService(repo Repository, oracle ScoreSource, events ledger.Recorder, logger *zap.Logger, owner, address ledger.Address) *Service {
	return &Service{
		repo:    repo,
		oracle:  oracle,
		events:  events,
		logger:  logger,
		owner:   owner,
		address: address,
	}
}

// SetRegistry binds the Achievement Registry address. The binding is
// set-once: a second call fails with AlreadyConfigured regardless of value.
func (s *Service) SetRegistry(ctx context.Context, caller, registry ledger.Address) error {
	if caller != s.owner {
		return ledger.ErrUnauthorized
	}
	if registry.IsZero() {
		return ledger.ErrInvalidRecipient
	}
	cfg, err := s.repo.GetConfig(ctx)
	if err != nil {
		return err
	}
	if cfg.RegistryAddress != "" {
		return ledger.ErrAlreadyConfigured
	}
	cfg.RegistryAddress = registry.String()
	if err := s.repo.SaveConfig(ctx, cfg); err != nil {
		return err
	}
	s.logger.Info("registry bound to point ledger", zap.String("registry", registry.String()))
	return nil
}

// AddPoints credits points to a holder. Only the bound registry may call it;
// every other caller fails with Unauthorized.
func (s *Service) AddPoints(ctx context.Context, caller, holder ledger.Address, amount int64) error {
	cfg, err := s.repo.GetConfig(ctx)
	if err != nil {
		return err
	}
	if cfg.RegistryAddress == "" || caller.String() != cfg.RegistryAddress {
		return ledger.ErrUnauthorized
	}
	if holder.IsZero() {
		return ledger.ErrInvalidRecipient
	}
	if amount <= 0 {
		return ledger.ErrAmountOutOfRange
	}

	newTotal, err := s.repo.AddToTotal(ctx, holder, amount)
	if err != nil {
		return fmt.Errorf("add to total: %w", err)
	}

	return s.events.Record(ctx, "points", "points_added", caller, holder, map[string]interface{}{
		"amount":    amount,
		"new_total": newTotal,
	})
}

// GetPoints returns the holder's aggregate, zero when never credited.
func (s *Service) GetPoints(ctx context.Context, holder ledger.Address) (int64, error) {
	return s.repo.GetTotal(ctx, holder)
}

// GetBatchPoints returns the aggregates for many holders at once.
func (s *Service) GetBatchPoints(ctx context.Context, holders []ledger.Address) (map[string]int64, error) {
	out := make(map[string]int64, len(holders))
	for _, h := range holders {
		total, err := s.repo.GetTotal(ctx, h)
		if err != nil {
			return nil, err
		}
		out[h.String()] = total
	}
	return out, nil
}

// CheckEligibility is the side-effect-free eligibility check. A stale or
// missing score makes the holder ineligible rather than failing the call;
// read-only consumers should prefer this variant.
func (s *Service) CheckEligibility(ctx context.Context, holder ledger.Address) (*EligibilityResult, error) {
	if s.oracle == nil {
		return nil, ledger.ErrOracleUnavailable
	}
	cfg, err := s.repo.GetConfig(ctx)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.GetTotal(ctx, holder)
	if err != nil {
		return nil, err
	}

	value, valid, _, err := s.oracle.LatestScoreView(ctx, holder, ledger.ScoreUBIEligibility)
	if err != nil {
		return nil, err
	}

	return &EligibilityResult{
		Holder:     holder.String(),
		Points:     total,
		MinPoints:  cfg.MinPoints,
		Score:      value,
		MinScore:   cfg.MinScore,
		ScoreValid: valid,
		Eligible:   valid && total >= cfg.MinPoints && value >= cfg.MinScore,
	}, nil
}

// CheckEligibilityLogged is the logging variant: it uses the oracle's audited
// read, so a stale or missing score aborts with the oracle's failure, and a
// successful check emits an analytics event.
func (s *Service) CheckEligibilityLogged(ctx context.Context, holder ledger.Address) (*EligibilityResult, error) {
	if s.oracle == nil {
		return nil, ledger.ErrOracleUnavailable
	}
	cfg, err := s.repo.GetConfig(ctx)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.GetTotal(ctx, holder)
	if err != nil {
		return nil, err
	}

	value, err := s.oracle.LatestScore(ctx, s.address, holder, ledger.ScoreUBIEligibility)
	if err != nil {
		return nil, err
	}

	result := &EligibilityResult{
		Holder:     holder.String(),
		Points:     total,
		MinPoints:  cfg.MinPoints,
		Score:      value,
		MinScore:   cfg.MinScore,
		ScoreValid: true,
		Eligible:   total >= cfg.MinPoints && value >= cfg.MinScore,
	}

	if err := s.events.Record(ctx, "points", "eligibility_checked", s.address, holder, map[string]interface{}{
		"points":   result.Points,
		"score":    result.Score,
		"eligible": result.Eligible,
	}); err != nil {
		return nil, err
	}
	return result, nil
}

// SetThresholds adjusts the eligibility thresholds. Owner only; minScore is
// bound to the score scale.
func (s *Service) SetThresholds(ctx context.Context, caller ledger.Address, minPoints, minScore int64) error {
	if caller != s.owner {
		return ledger.ErrUnauthorized
	}
	if minPoints < 0 || minScore < 0 || minScore > ledger.MaxScoreValue {
		return ledger.ErrOutOfRange
	}
	cfg, err := s.repo.GetConfig(ctx)
	if err != nil {
		return err
	}
	old := *cfg
	cfg.MinPoints = minPoints
	cfg.MinScore = minScore
	if err := s.repo.SaveConfig(ctx, cfg); err != nil {
		return err
	}
	return s.events.Record(ctx, "points", "thresholds_changed", caller, ledger.ZeroAddress, map[string]interface{}{
		"old_min_points": old.MinPoints,
		"new_min_points": minPoints,
		"old_min_score":  old.MinScore,
		"new_min_score":  minScore,
	})
}

// Thresholds returns the current eligibility thresholds.
func (s *Service) Thresholds(ctx context.Context) (minPoints, minScore int64, err error) {
	cfg, err := s.repo.GetConfig(ctx)
	if err != nil {
		return 0, 0, err
	}
	return cfg.MinPoints, cfg.MinScore, nil
}
