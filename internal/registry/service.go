package registry

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ObiomaIkpe/credo-brige/internal/ledger"
)

// PointSink is the Point Ledger's point-addition entry point as seen from the
// registry. The sink authenticates the caller address itself.
type PointSink interface {
	AddPoints(ctx context.Context, caller, holder ledger.Address, amount int64) error
}

// IssueRequest carries the parameters of a new achievement issuance.
type IssueRequest struct {
	Holder      ledger.Address
	TaskType    TaskType
	PointLevel  PointLevel
	Title       string
	MetadataRef string
}

// Service issues non-transferable achievement records and pushes the earned
// points into the Point Ledger.
type Service struct {
	repo    Repository
	points  PointSink
	events  ledger.Recorder
	clock   ledger.Clock
	logger  *zap.Logger
	owner   ledger.Address
	address ledger.Address
	guard   ledger.CallGuard
}

func NewService(repo Repository, points PointSink, events ledger.Recorder, clock ledger.Clock, logger *zap.Logger, owner, address ledger.Address) *Service {
	return &Service{
		repo:    repo,
		points:  points,
		events:  events,
		clock:   clock,
		logger:  logger,
		owner:   owner,
		address: address,
	}
}

// Address returns the registry's own ledger address, the identity it uses
// when calling into the Point Ledger.
func (s *Service) Address() ledger.Address { return s.address }

// Issue creates a new achievement record for holder and synchronously credits
// its point value. The point-ledger call is not best-effort: if it fails, the
// whole issuance fails.
func (s *Service) Issue(ctx context.Context, caller ledger.Address, req IssueRequest) (*AchievementRecord, error) {
	release, err := s.guard.Enter()
	if err != nil {
		return nil, err
	}
	defer release()

	ok, err := s.repo.IsIssuer(ctx, caller)
	if err != nil {
		return nil, fmt.Errorf("issuer lookup: %w", err)
	}
	if !ok {
		return nil, ledger.ErrUnauthorized
	}
	if req.Holder.IsZero() {
		return nil, ledger.ErrInvalidRecipient
	}
	if !req.TaskType.IsValid() {
		return nil, ledger.ErrOutOfRange
	}
	points, ok := req.PointLevel.PointValue()
	if !ok {
		return nil, ledger.ErrOutOfRange
	}

	record := &AchievementRecord{
		Holder:      req.Holder.String(),
		TaskType:    req.TaskType,
		PointLevel:  req.PointLevel,
		Title:       req.Title,
		Issuer:      caller.String(),
		MetadataRef: req.MetadataRef,
		IssuedAt:    s.clock.Now(),
	}
	if err := s.repo.CreateRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("create record: %w", err)
	}

	if err := s.points.AddPoints(ctx, s.address, req.Holder, points); err != nil {
		// Records and totals move together: undo the record so no
		// achievement exists whose points were never credited.
		if delErr := s.repo.DeleteRecord(ctx, record.ID); delErr != nil {
			s.logger.Error("issuance rollback failed", zap.Error(delErr), zap.Uint64("record_id", record.ID))
		}
		return nil, fmt.Errorf("point ledger rejected issuance: %w", err)
	}

	if err := s.events.Record(ctx, "registry", "achievement_issued", caller, req.Holder, map[string]interface{}{
		"record_id":   record.ID,
		"task_type":   record.TaskType,
		"point_level": record.PointLevel,
		"points":      points,
		"title":       record.Title,
	}); err != nil {
		return nil, err
	}

	return record, nil
}

// Burn removes a record. Only the holder or the registry owner may burn.
// Points already aggregated are left untouched: reputation is permanent once
// earned.
func (s *Service) Burn(ctx context.Context, caller ledger.Address, id uint64) error {
	release, err := s.guard.Enter()
	if err != nil {
		return err
	}
	defer release()

	record, err := s.repo.GetRecord(ctx, id)
	if err != nil {
		return err
	}
	if caller.String() != record.Holder && caller != s.owner {
		return ledger.ErrNotAuthorized
	}

	if err := s.repo.DeleteRecord(ctx, id); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}

	return s.events.Record(ctx, "registry", "achievement_burned", caller, ledger.Address(record.Holder), map[string]interface{}{
		"record_id": id,
	})
}

// GetData returns a single record by id.
func (s *Service) GetData(ctx context.Context, id uint64) (*AchievementRecord, error) {
	return s.repo.GetRecord(ctx, id)
}

// GetByHolder returns all records currently held by an address.
func (s *Service) GetByHolder(ctx context.Context, holder ledger.Address) ([]AchievementRecord, error) {
	return s.repo.ListByHolder(ctx, holder)
}

// Transfer exists to document the non-transferability invariant. Records can
// only move between the zero address and a holder (mint and burn); every
// holder-to-holder attempt fails.
func (s *Service) Transfer(ctx context.Context, caller ledger.Address, id uint64, to ledger.Address) error {
	if _, err := s.repo.GetRecord(ctx, id); err != nil {
		return err
	}
	if to.IsZero() {
		return s.Burn(ctx, caller, id)
	}
	return ledger.ErrNonTransferable
}

// AddIssuer adds an address to the issuer set. Owner only.
func (s *Service) AddIssuer(ctx context.Context, caller, issuer ledger.Address) error {
	if caller != s.owner {
		return ledger.ErrUnauthorized
	}
	if issuer.IsZero() {
		return ledger.ErrInvalidRecipient
	}
	if err := s.repo.AddIssuer(ctx, &AuthorizedIssuer{Address: issuer.String(), AddedBy: caller.String()}); err != nil {
		return err
	}
	s.logger.Info("issuer added", zap.String("issuer", issuer.String()))
	return s.events.Record(ctx, "registry", "issuer_added", caller, issuer, nil)
}

// RemoveIssuer removes an address from the issuer set. Owner only.
func (s *Service) RemoveIssuer(ctx context.Context, caller, issuer ledger.Address) error {
	if caller != s.owner {
		return ledger.ErrUnauthorized
	}
	if err := s.repo.RemoveIssuer(ctx, issuer); err != nil {
		return err
	}
	s.logger.Info("issuer removed", zap.String("issuer", issuer.String()))
	return s.events.Record(ctx, "registry", "issuer_removed", caller, issuer, nil)
}
