package token

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ObiomaIkpe/credo-brige/internal/ledger"
)

const (
	ownerAddr = ledger.Address("0x0000000000000000000000000000000000000001")
	aliceAddr = ledger.Address("0x00000000000000000000000000000000000000aa")
	bobAddr   = ledger.Address("0x00000000000000000000000000000000000000bb")
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Balance{}, &Allowance{}))
	return NewService(db, ownerAddr, zap.NewNop())
}

func TestMintOwnerOnly(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Mint(ctx, ownerAddr, aliceAddr, 500))
	bal, err := svc.BalanceOf(ctx, aliceAddr)
	require.NoError(t, err)
	assert.Equal(t, int64(500), bal)

	err = svc.Mint(ctx, aliceAddr, bobAddr, 100)
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)

	assert.ErrorIs(t, svc.Mint(ctx, ownerAddr, ledger.ZeroAddress, 100), ledger.ErrInvalidRecipient)
	assert.ErrorIs(t, svc.Mint(ctx, ownerAddr, aliceAddr, 0), ledger.ErrAmountOutOfRange)
}

func TestTransfer(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.Mint(ctx, ownerAddr, aliceAddr, 300))

	require.NoError(t, svc.Transfer(ctx, aliceAddr, bobAddr, 120))

	aliceBal, _ := svc.BalanceOf(ctx, aliceAddr)
	bobBal, _ := svc.BalanceOf(ctx, bobAddr)
	assert.Equal(t, int64(180), aliceBal)
	assert.Equal(t, int64(120), bobBal)

	assert.ErrorIs(t, svc.Transfer(ctx, aliceAddr, bobAddr, 1000), ledger.ErrInsufficientBalance)
	assert.ErrorIs(t, svc.Transfer(ctx, bobAddr, ledger.ZeroAddress, 1), ledger.ErrInvalidRecipient)

	// A failed transfer must not move anything.
	aliceBal, _ = svc.BalanceOf(ctx, aliceAddr)
	assert.Equal(t, int64(180), aliceBal)
}

func TestTransferFromConsumesAllowance(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.Mint(ctx, ownerAddr, aliceAddr, 300))

	assert.ErrorIs(t, svc.TransferFrom(ctx, bobAddr, aliceAddr, bobAddr, 50), ledger.ErrInsufficientAllowance)

	require.NoError(t, svc.Approve(ctx, aliceAddr, bobAddr, 100))
	require.NoError(t, svc.TransferFrom(ctx, bobAddr, aliceAddr, bobAddr, 60))

	remaining, err := svc.Allowance(ctx, aliceAddr, bobAddr)
	require.NoError(t, err)
	assert.Equal(t, int64(40), remaining)

	assert.ErrorIs(t, svc.TransferFrom(ctx, bobAddr, aliceAddr, bobAddr, 41), ledger.ErrInsufficientAllowance)
}

func TestTransferHookRunsAfterSettlement(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.Mint(ctx, ownerAddr, aliceAddr, 100))

	var balanceInsideHook int64
	svc.SetTransferHook(func(ctx context.Context, from, to ledger.Address, amount int64) {
		balanceInsideHook, _ = svc.BalanceOf(ctx, to)
	})

	require.NoError(t, svc.Transfer(ctx, aliceAddr, bobAddr, 30))
	assert.Equal(t, int64(30), balanceInsideHook, "hook must observe settled balances")
}
