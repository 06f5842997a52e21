package token

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ObiomaIkpe/credo-brige/internal/ledger"
)

// TransferHook is invoked after a transfer's balances have settled. The live
// system leaves it nil; tests install hooks to simulate a callee that calls
// back into a ledger mid-operation.
type TransferHook func(ctx context.Context, from, to ledger.Address, amount int64)

// Service is the stablecoin ledger: standard move-value semantics with
// balances, allowances and an owner-gated mint.
type Service struct {
	db     *gorm.DB
	owner  ledger.Address
	logger *zap.Logger
	hook   TransferHook
}

func NewService(db *gorm.DB, owner ledger.Address, logger *zap.Logger) *Service {
	return &Service{db: db, owner: owner, logger: logger}
}

// SetTransferHook installs a post-transfer callback.
func (s *Service) SetTransferHook(hook TransferHook) { s.hook = hook }

// BalanceOf returns the balance for an address, zero when never credited.
func (s *Service) BalanceOf(ctx context.Context, addr ledger.Address) (int64, error) {
	var bal Balance
	err := s.db.WithContext(ctx).First(&bal, "address = ?", addr.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return bal.Amount, nil
}

// Allowance returns how much spender may still pull from owner.
func (s *Service) Allowance(ctx context.Context, owner, spender ledger.Address) (int64, error) {
	var alw Allowance
	err := s.db.WithContext(ctx).First(&alw, "owner = ? AND spender = ?", owner.String(), spender.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return alw.Amount, nil
}

// Approve sets the spender's allowance over the caller's balance.
func (s *Service) Approve(ctx context.Context, caller, spender ledger.Address, amount int64) error {
	if spender.IsZero() {
		return ledger.ErrInvalidRecipient
	}
	if amount < 0 {
		return ledger.ErrAmountOutOfRange
	}
	alw := Allowance{Owner: caller.String(), Spender: spender.String(), Amount: amount}
	return s.db.WithContext(ctx).Save(&alw).Error
}

// Transfer moves amount from the caller to the recipient.
func (s *Service) Transfer(ctx context.Context, caller, to ledger.Address, amount int64) error {
	if err := s.move(ctx, caller, to, amount); err != nil {
		return err
	}
	if s.hook != nil {
		s.hook(ctx, caller, to, amount)
	}
	return nil
}

// TransferFrom moves amount from `from` to `to` on the caller's allowance.
func (s *Service) TransferFrom(ctx context.Context, caller, from, to ledger.Address, amount int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var alw Allowance
		err := tx.First(&alw, "owner = ? AND spender = ?", from.String(), caller.String()).Error
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && alw.Amount < amount) {
			return ledger.ErrInsufficientAllowance
		}
		if err != nil {
			return err
		}
		alw.Amount -= amount
		if err := tx.Save(&alw).Error; err != nil {
			return err
		}
		return s.moveTx(tx, from, to, amount)
	})
	if err != nil {
		return err
	}
	if s.hook != nil {
		s.hook(ctx, from, to, amount)
	}
	return nil
}

// Mint credits newly issued tokens to an account. Owner only.
func (s *Service) Mint(ctx context.Context, caller, to ledger.Address, amount int64) error {
	if caller != s.owner {
		return ledger.ErrUnauthorized
	}
	if to.IsZero() {
		return ledger.ErrInvalidRecipient
	}
	if amount <= 0 {
		return ledger.ErrAmountOutOfRange
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.credit(tx, to, amount)
	})
	if err != nil {
		return fmt.Errorf("mint: %w", err)
	}
	s.logger.Info("tokens minted", zap.String("to", to.String()), zap.Int64("amount", amount))
	return nil
}

func (s *Service) move(ctx context.Context, from, to ledger.Address, amount int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.moveTx(tx, from, to, amount)
	})
}

func (s *Service) moveTx(tx *gorm.DB, from, to ledger.Address, amount int64) error {
	if to.IsZero() {
		return ledger.ErrInvalidRecipient
	}
	if amount <= 0 {
		return ledger.ErrAmountOutOfRange
	}

	var src Balance
	err := tx.First(&src, "address = ?", from.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && src.Amount < amount) {
		return ledger.ErrInsufficientBalance
	}
	if err != nil {
		return err
	}

	src.Amount -= amount
	if err := tx.Save(&src).Error; err != nil {
		return err
	}
	return s.credit(tx, to, amount)
}

func (s *Service) credit(tx *gorm.DB, to ledger.Address, amount int64) error {
	var dst Balance
	err := tx.First(&dst, "address = ?", to.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		dst = Balance{Address: to.String()}
	} else if err != nil {
		return err
	}
	dst.Amount += amount
	return tx.Save(&dst).Error
}
