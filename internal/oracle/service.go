package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ObiomaIkpe/credo-brige/internal/ledger"
)

// Service accepts self-published scores and serves as the single source of
// truth for "current score". Freshness is a derived invariant: every read
// recomputes validity against the clock, nothing is scheduled.
type Service struct {
	repo   Repository
	events ledger.Recorder
	clock  ledger.Clock
	logger *zap.Logger
	owner  ledger.Address
}

func NewService(repo Repository, events ledger.Recorder, clock ledger.Clock, logger *zap.Logger, owner ledger.Address) *Service {
	return &Service{
		repo:   repo,
		events: events,
		clock:  clock,
		logger: logger,
		owner:  owner,
	}
}

// Publish records a new score for the caller's own slot. Subjects publish for
// themselves only; the publisher is always the holder.
func (s *Service) Publish(ctx context.Context, caller ledger.Address, scoreType ledger.ScoreType, value int64) error {
	if !scoreType.IsValid() {
		return ledger.ErrOutOfRange
	}
	if value < 0 || value > ledger.MaxScoreValue {
		return ledger.ErrOutOfRange
	}

	cfg, err := s.repo.GetConfig(ctx)
	if err != nil {
		return err
	}
	if cfg.PublishingPaused {
		return ledger.ErrPublishingPaused
	}

	now := s.clock.Now()
	var previous int64
	existing, err := s.repo.GetScore(ctx, caller, scoreType)
	switch {
	case err == nil:
		if now.Sub(existing.PublishedAt) < cfg.MinPublishInterval() {
			return ledger.ErrRateLimited
		}
		previous = existing.Value
	case errors.Is(err, ledger.ErrNoScore):
		// First publish for this slot.
	default:
		return err
	}

	score := &VerifiedScore{
		Holder:      caller.String(),
		ScoreType:   scoreType,
		Value:       value,
		PublishedAt: now,
	}
	if err := s.repo.SaveScore(ctx, score); err != nil {
		return fmt.Errorf("save score: %w", err)
	}

	if cfg.HistoryEnabled {
		entry := &ScoreHistoryEntry{
			Holder:      caller.String(),
			ScoreType:   scoreType,
			Value:       value,
			PublishedAt: now,
		}
		if err := s.repo.AppendHistory(ctx, entry); err != nil {
			return fmt.Errorf("append history: %w", err)
		}
	}

	return s.events.Record(ctx, "oracle", "score_published", caller, caller, map[string]interface{}{
		"score_type":     scoreType,
		"value":          value,
		"previous_value": previous,
	})
}

// LatestScore is the audited read used by dependent ledgers. Every
// successful call emits a query event even though the data does not change;
// a stale score emits a rejection event before failing.
func (s *Service) LatestScore(ctx context.Context, caller, holder ledger.Address, scoreType ledger.ScoreType) (int64, error) {
	score, err := s.repo.GetScore(ctx, holder, scoreType)
	if err != nil {
		return 0, err
	}

	cfg, err := s.repo.GetConfig(ctx)
	if err != nil {
		return 0, err
	}

	age := s.clock.Now().Sub(score.PublishedAt)
	if age > cfg.MaxScoreAge() {
		if recErr := s.events.Record(ctx, "oracle", "stale_score_rejected", caller, holder, map[string]interface{}{
			"score_type": scoreType,
			"age_secs":   int64(age.Seconds()),
			"max_age":    cfg.MaxScoreAgeSecs,
		}); recErr != nil {
			return 0, recErr
		}
		return 0, ledger.ErrStaleScore
	}

	if err := s.events.Record(ctx, "oracle", "score_queried", caller, holder, map[string]interface{}{
		"score_type": scoreType,
		"value":      score.Value,
	}); err != nil {
		return 0, err
	}
	return score.Value, nil
}

// LatestScoreView is the pure read. It never fails on freshness; callers must
// check valid themselves.
func (s *Service) LatestScoreView(ctx context.Context, holder ledger.Address, scoreType ledger.ScoreType) (int64, bool, time.Duration, error) {
	score, err := s.repo.GetScore(ctx, holder, scoreType)
	if errors.Is(err, ledger.ErrNoScore) {
		return 0, false, 0, nil
	}
	if err != nil {
		return 0, false, 0, err
	}

	cfg, err := s.repo.GetConfig(ctx)
	if err != nil {
		return 0, false, 0, err
	}

	age := s.clock.Now().Sub(score.PublishedAt)
	return score.Value, age <= cfg.MaxScoreAge(), age, nil
}

// BatchScores reads many holders at once with the same per-entry freshness
// semantics and no partial failure.
func (s *Service) BatchScores(ctx context.Context, holders []ledger.Address, scoreType ledger.ScoreType) ([]BatchScoreEntry, error) {
	out := make([]BatchScoreEntry, 0, len(holders))
	for _, h := range holders {
		value, valid, age, err := s.LatestScoreView(ctx, h, scoreType)
		if err != nil {
			return nil, err
		}
		out = append(out, BatchScoreEntry{
			Holder:  h.String(),
			Value:   value,
			Valid:   valid,
			AgeSecs: int64(age.Seconds()),
		})
	}
	return out, nil
}

// History returns the append-only publish log for a slot.
func (s *Service) History(ctx context.Context, holder ledger.Address, scoreType ledger.ScoreType) ([]ScoreHistoryEntry, error) {
	return s.repo.ListHistory(ctx, holder, scoreType)
}

// SetMaxScoreAge adjusts the staleness window. Owner only.
func (s *Service) SetMaxScoreAge(ctx context.Context, caller ledger.Address, maxAge time.Duration) error {
	if caller != s.owner {
		return ledger.ErrUnauthorized
	}
	if maxAge <= 0 {
		return ledger.ErrOutOfRange
	}
	return s.updateConfig(ctx, caller, "max_score_age_changed", func(cfg *OracleConfig) (prev, next interface{}) {
		prev, next = cfg.MaxScoreAgeSecs, int64(maxAge.Seconds())
		cfg.MaxScoreAgeSecs = int64(maxAge.Seconds())
		return
	})
}

// SetMinPublishInterval adjusts the anti-spam window. Owner only.
func (s *Service) SetMinPublishInterval(ctx context.Context, caller ledger.Address, interval time.Duration) error {
	if caller != s.owner {
		return ledger.ErrUnauthorized
	}
	if interval < 0 {
		return ledger.ErrOutOfRange
	}
	return s.updateConfig(ctx, caller, "min_publish_interval_changed", func(cfg *OracleConfig) (prev, next interface{}) {
		prev, next = cfg.MinPublishGapSecs, int64(interval.Seconds())
		cfg.MinPublishGapSecs = int64(interval.Seconds())
		return
	})
}

// SetPublishingPaused toggles the global publish halt. Owner only.
func (s *Service) SetPublishingPaused(ctx context.Context, caller ledger.Address, paused bool) error {
	if caller != s.owner {
		return ledger.ErrUnauthorized
	}
	return s.updateConfig(ctx, caller, "publishing_paused_changed", func(cfg *OracleConfig) (prev, next interface{}) {
		prev, next = cfg.PublishingPaused, paused
		cfg.PublishingPaused = paused
		return
	})
}

// SetHistoryEnabled toggles history tracking. Owner only.
func (s *Service) SetHistoryEnabled(ctx context.Context, caller ledger.Address, enabled bool) error {
	if caller != s.owner {
		return ledger.ErrUnauthorized
	}
	return s.updateConfig(ctx, caller, "history_enabled_changed", func(cfg *OracleConfig) (prev, next interface{}) {
		prev, next = cfg.HistoryEnabled, enabled
		cfg.HistoryEnabled = enabled
		return
	})
}

func (s *Service) updateConfig(ctx context.Context, caller ledger.Address, eventType string, mutate func(cfg *OracleConfig) (prev, next interface{})) error {
	cfg, err := s.repo.GetConfig(ctx)
	if err != nil {
		return err
	}
	oldValue, newValue := mutate(cfg)
	if err := s.repo.SaveConfig(ctx, cfg); err != nil {
		return err
	}
	s.logger.Info("oracle config changed", zap.String("change", eventType))
	return s.events.Record(ctx, "oracle", eventType, caller, ledger.ZeroAddress, map[string]interface{}{
		"old": oldValue,
		"new": newValue,
	})
}
