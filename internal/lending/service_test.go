package lending

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ObiomaIkpe/credo-brige/internal/ledger"
	"github.com/ObiomaIkpe/credo-brige/internal/registry"
)

const (
	ownerAddr    = ledger.Address("0x0000000000000000000000000000000000000001")
	adminAddr    = ledger.Address("0x0000000000000000000000000000000000000002")
	poolAddr     = ledger.Address("0x0000000000000000000000000000000000000011")
	borrowerAddr = ledger.Address("0x00000000000000000000000000000000000000aa")
	strangerAddr = ledger.Address("0x00000000000000000000000000000000000000bb")
)

type fakePoints struct {
	totals map[ledger.Address]int64
}

func (p *fakePoints) GetPoints(ctx context.Context, holder ledger.Address) (int64, error) {
	return p.totals[holder], nil
}

type fakeScores struct {
	values map[ledger.Address]int64
	err    error
}

func (o *fakeScores) LatestScore(ctx context.Context, caller, holder ledger.Address, scoreType ledger.ScoreType) (int64, error) {
	if o.err != nil {
		return 0, o.err
	}
	v, ok := o.values[holder]
	if !ok {
		return 0, ledger.ErrNoScore
	}
	return v, nil
}

// fakeTokens is an in-memory stablecoin with an optional transfer hook for
// exercising calls that arrive mid-settlement.
type fakeTokens struct {
	balances     map[ledger.Address]int64
	allowances   map[string]int64
	transferHook func()
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{
		balances:   make(map[ledger.Address]int64),
		allowances: make(map[string]int64),
	}
}

func (t *fakeTokens) BalanceOf(ctx context.Context, addr ledger.Address) (int64, error) {
	return t.balances[addr], nil
}

func (t *fakeTokens) Transfer(ctx context.Context, caller, to ledger.Address, amount int64) error {
	if t.balances[caller] < amount {
		return ledger.ErrInsufficientBalance
	}
	t.balances[caller] -= amount
	t.balances[to] += amount
	if t.transferHook != nil {
		t.transferHook()
	}
	return nil
}

func (t *fakeTokens) TransferFrom(ctx context.Context, caller, from, to ledger.Address, amount int64) error {
	key := from.String() + ":" + caller.String()
	if t.allowances[key] < amount {
		return ledger.ErrInsufficientAllowance
	}
	if t.balances[from] < amount {
		return ledger.ErrInsufficientBalance
	}
	t.allowances[key] -= amount
	t.balances[from] -= amount
	t.balances[to] += amount
	return nil
}

func (t *fakeTokens) approve(owner, spender ledger.Address, amount int64) {
	t.allowances[owner.String()+":"+spender.String()] = amount
}

type fakeRewards struct {
	requests []registry.IssueRequest
	err      error
}

func (r *fakeRewards) Issue(ctx context.Context, caller ledger.Address, req registry.IssueRequest) (*registry.AchievementRecord, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.requests = append(r.requests, req)
	return &registry.AchievementRecord{ID: uint64(len(r.requests))}, nil
}

type memRecorder struct {
	types []string
}

func (r *memRecorder) Record(ctx context.Context, ledgerName, eventType string, actor, subject ledger.Address, payload map[string]interface{}) error {
	r.types = append(r.types, eventType)
	return nil
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	svc     *Service
	points  *fakePoints
	scores  *fakeScores
	tokens  *fakeTokens
	rewards *fakeRewards
	events  *memRecorder
	clock   *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Loan{}, &LendingConfig{}))

	f := &fixture{
		points:  &fakePoints{totals: map[ledger.Address]int64{borrowerAddr: 600}},
		scores:  &fakeScores{values: map[ledger.Address]int64{borrowerAddr: 720}},
		tokens:  newFakeTokens(),
		rewards: &fakeRewards{},
		events:  &memRecorder{},
		clock:   &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
	}
	f.tokens.balances[poolAddr] = 50000
	f.svc = NewService(NewRepository(db), f.points, f.scores, f.tokens, f.rewards,
		f.events, f.clock, zap.NewNop(), ownerAddr, poolAddr)
	return f
}

func (f *fixture) applyAndApprove(t *testing.T, principal, durationDays int64) *Loan {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.ApplyForLoan(ctx, borrowerAddr, principal)
	require.NoError(t, err)
	require.NoError(t, f.svc.ApproveAndDisburse(ctx, ownerAddr, borrowerAddr, durationDays))
	loan, err := f.svc.GetLoan(ctx, borrowerAddr)
	require.NoError(t, err)
	return loan
}

func TestApplyGates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Principal outside the configured bounds.
	_, err := f.svc.ApplyForLoan(ctx, borrowerAddr, 99)
	assert.ErrorIs(t, err, ledger.ErrAmountOutOfRange)
	_, err = f.svc.ApplyForLoan(ctx, borrowerAddr, 100001)
	assert.ErrorIs(t, err, ledger.ErrAmountOutOfRange)

	// Reputation below the gate.
	f.points.totals[borrowerAddr] = 499
	_, err = f.svc.ApplyForLoan(ctx, borrowerAddr, 1000)
	assert.ErrorIs(t, err, ledger.ErrInsufficientReputation)
	f.points.totals[borrowerAddr] = 500

	// Score below the gate.
	f.scores.values[borrowerAddr] = 599
	_, err = f.svc.ApplyForLoan(ctx, borrowerAddr, 1000)
	assert.ErrorIs(t, err, ledger.ErrInsufficientScore)

	// A stale oracle read surfaces as a score failure too.
	f.scores.values[borrowerAddr] = 720
	f.scores.err = ledger.ErrStaleScore
	_, err = f.svc.ApplyForLoan(ctx, borrowerAddr, 1000)
	assert.ErrorIs(t, err, ledger.ErrInsufficientScore)
	assert.ErrorIs(t, err, ledger.ErrStaleScore)
	f.scores.err = nil

	loan, err := f.svc.ApplyForLoan(ctx, borrowerAddr, 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(720), loan.ScoreAtApply)
	assert.Equal(t, int64(500), loan.PointsAtApply)
	assert.Equal(t, int64(750), loan.InterestRateBps)
}

func TestApplySingleActiveLoan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ApplyForLoan(ctx, borrowerAddr, 1000)
	require.NoError(t, err)
	_, err = f.svc.ApplyForLoan(ctx, borrowerAddr, 2000)
	assert.ErrorIs(t, err, ledger.ErrAlreadyActive)

	// Cancelling frees the slot.
	require.NoError(t, f.svc.CancelLoanApplication(ctx, borrowerAddr))
	_, err = f.svc.ApplyForLoan(ctx, borrowerAddr, 2000)
	require.NoError(t, err)
}

func TestApplyWhilePaused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.SetPaused(ctx, strangerAddr, true), ledger.ErrUnauthorized)
	require.NoError(t, f.svc.SetPaused(ctx, ownerAddr, true))

	_, err := f.svc.ApplyForLoan(ctx, borrowerAddr, 1000)
	assert.ErrorIs(t, err, ledger.ErrPaused)

	require.NoError(t, f.svc.SetPaused(ctx, ownerAddr, false))
	_, err = f.svc.ApplyForLoan(ctx, borrowerAddr, 1000)
	require.NoError(t, err)
}

func TestApproveAndDisburse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ApplyForLoan(ctx, borrowerAddr, 1000)
	require.NoError(t, err)

	// Only the owner or designated admin may approve.
	assert.ErrorIs(t, f.svc.ApproveAndDisburse(ctx, strangerAddr, borrowerAddr, 90), ledger.ErrUnauthorized)
	assert.ErrorIs(t, f.svc.ApproveAndDisburse(ctx, adminAddr, borrowerAddr, 90), ledger.ErrUnauthorized)
	require.NoError(t, f.svc.SetAdmin(ctx, ownerAddr, adminAddr))

	assert.ErrorIs(t, f.svc.ApproveAndDisburse(ctx, adminAddr, borrowerAddr, 0), ledger.ErrInvalidDuration)
	assert.ErrorIs(t, f.svc.ApproveAndDisburse(ctx, adminAddr, borrowerAddr, 366), ledger.ErrInvalidDuration)

	require.NoError(t, f.svc.ApproveAndDisburse(ctx, adminAddr, borrowerAddr, 90))
	assert.Equal(t, int64(1000), f.tokens.balances[borrowerAddr])
	assert.Equal(t, int64(49000), f.tokens.balances[poolAddr])

	loan, err := f.svc.GetLoan(ctx, borrowerAddr)
	require.NoError(t, err)
	assert.True(t, loan.IsApproved)
	assert.Equal(t, int64(90), loan.DurationDays)
	require.NotNil(t, loan.RepaymentDeadline)
	assert.Equal(t, f.clock.now.Add(90*24*time.Hour), *loan.RepaymentDeadline)

	// A second approval is rejected.
	assert.ErrorIs(t, f.svc.ApproveAndDisburse(ctx, adminAddr, borrowerAddr, 90), ledger.ErrAlreadyApproved)
}

func TestDisburseInsufficientPool(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.tokens.balances[poolAddr] = 500

	_, err := f.svc.ApplyForLoan(ctx, borrowerAddr, 1000)
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.ApproveAndDisburse(ctx, ownerAddr, borrowerAddr, 90), ledger.ErrInsufficientFunds)

	loan, err := f.svc.GetLoan(ctx, borrowerAddr)
	require.NoError(t, err)
	assert.False(t, loan.IsApproved)
}

func TestDisburseRollsBackOnTransferFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ApplyForLoan(ctx, borrowerAddr, 1000)
	require.NoError(t, err)

	f.svc.tokens = &failingTokens{inner: f.tokens}
	err = f.svc.ApproveAndDisburse(ctx, ownerAddr, borrowerAddr, 90)
	require.Error(t, err)

	loan, err := f.svc.GetLoan(ctx, borrowerAddr)
	require.NoError(t, err)
	assert.False(t, loan.IsApproved)
	assert.Nil(t, loan.DisbursedAt)
	assert.Nil(t, loan.RepaymentDeadline)
}

// failingTokens reports a healthy balance but refuses every transfer.
type failingTokens struct {
	inner *fakeTokens
}

func (t *failingTokens) BalanceOf(ctx context.Context, addr ledger.Address) (int64, error) {
	return t.inner.BalanceOf(ctx, addr)
}

func (t *failingTokens) Transfer(ctx context.Context, caller, to ledger.Address, amount int64) error {
	return ledger.ErrInsufficientBalance
}

func (t *failingTokens) TransferFrom(ctx context.Context, caller, from, to ledger.Address, amount int64) error {
	return ledger.ErrInsufficientAllowance
}

func TestRepayLoan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.applyAndApprove(t, 1000, 365)

	// 720 maps to 750 bps; a full year accrues the whole rate.
	totalDue := TotalRepayment(1000, 750, 365)
	assert.Equal(t, int64(1075), totalDue)

	// No allowance yet.
	err := f.svc.RepayLoan(ctx, borrowerAddr)
	require.Error(t, err)
	loan, err := f.svc.GetLoan(ctx, borrowerAddr)
	require.NoError(t, err)
	assert.False(t, loan.IsRepaid)

	f.tokens.balances[borrowerAddr] += 100
	f.tokens.approve(borrowerAddr, poolAddr, totalDue)
	require.NoError(t, f.svc.RepayLoan(ctx, borrowerAddr))

	assert.Equal(t, int64(49000+1075), f.tokens.balances[poolAddr])
	assert.Equal(t, int64(25), f.tokens.balances[borrowerAddr])

	// The loan slot is cleared after settlement.
	_, err = f.svc.GetLoan(ctx, borrowerAddr)
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	require.Len(t, f.rewards.requests, 1)
	assert.Equal(t, registry.TaskLoanRepaid, f.rewards.requests[0].TaskType)
	assert.Equal(t, registry.LevelSilver, f.rewards.requests[0].PointLevel)
	assert.Contains(t, f.events.types, "loan_repaid")
}

func TestRepayLargeLoanMintsGold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.applyAndApprove(t, 10000, 30)

	totalDue := TotalRepayment(10000, 750, 30)
	f.tokens.approve(borrowerAddr, poolAddr, totalDue)
	f.tokens.balances[borrowerAddr] += totalDue
	require.NoError(t, f.svc.RepayLoan(ctx, borrowerAddr))

	require.Len(t, f.rewards.requests, 1)
	assert.Equal(t, registry.TaskLargeLoanRepaid, f.rewards.requests[0].TaskType)
	assert.Equal(t, registry.LevelGold, f.rewards.requests[0].PointLevel)
}

func TestRepayRewardIsBestEffort(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.applyAndApprove(t, 1000, 365)
	f.rewards.err = ledger.ErrUnauthorized

	f.tokens.balances[borrowerAddr] += 100
	f.tokens.approve(borrowerAddr, poolAddr, 1075)

	// A reverting reward mint never blocks settlement.
	require.NoError(t, f.svc.RepayLoan(ctx, borrowerAddr))
	_, err := f.svc.GetLoan(ctx, borrowerAddr)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestRepayLateDoesNotChangeAmount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.applyAndApprove(t, 1000, 30)
	f.clock.Advance(45 * 24 * time.Hour)

	totalDue := TotalRepayment(1000, 750, 30)
	f.tokens.balances[borrowerAddr] += totalDue
	f.tokens.approve(borrowerAddr, poolAddr, totalDue)
	require.NoError(t, f.svc.RepayLoan(ctx, borrowerAddr))
	assert.Equal(t, int64(49000+totalDue), f.tokens.balances[poolAddr])
}

func TestRepayRequiresApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.ApplyForLoan(ctx, borrowerAddr, 1000)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.RepayLoan(ctx, borrowerAddr), ledger.ErrNotApproved)
	assert.ErrorIs(t, f.svc.RepayLoan(ctx, strangerAddr), ledger.ErrNotFound)
}

func TestCancelAndRejectPreApprovalOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ApplyForLoan(ctx, borrowerAddr, 1000)
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.RejectLoanApplication(ctx, strangerAddr, borrowerAddr), ledger.ErrUnauthorized)
	require.NoError(t, f.svc.RejectLoanApplication(ctx, ownerAddr, borrowerAddr))

	f.applyAndApprove(t, 1000, 90)
	assert.ErrorIs(t, f.svc.CancelLoanApplication(ctx, borrowerAddr), ledger.ErrAlreadyApproved)
	assert.ErrorIs(t, f.svc.RejectLoanApplication(ctx, ownerAddr, borrowerAddr), ledger.ErrAlreadyApproved)
}

func TestReentrantCallDuringDisbursement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ApplyForLoan(ctx, borrowerAddr, 1000)
	require.NoError(t, err)

	var reentryErr error
	f.tokens.transferHook = func() {
		reentryErr = f.svc.RepayLoan(ctx, borrowerAddr)
	}
	require.NoError(t, f.svc.ApproveAndDisburse(ctx, ownerAddr, borrowerAddr, 90))
	assert.ErrorIs(t, reentryErr, ledger.ErrReentrantCall)
}

func TestSimulateLoan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	quote, err := f.svc.SimulateLoan(ctx, 1000, 365)
	require.NoError(t, err)
	assert.Equal(t, int64(650), quote.ReferenceScore)
	assert.Equal(t, int64(1000), quote.InterestRateBps)
	assert.Equal(t, int64(1100), quote.TotalRepayment)

	_, err = f.svc.SimulateLoan(ctx, 50, 365)
	assert.ErrorIs(t, err, ledger.ErrAmountOutOfRange)
	_, err = f.svc.SimulateLoan(ctx, 1000, 400)
	assert.ErrorIs(t, err, ledger.ErrInvalidDuration)
}

func TestWithdraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.Withdraw(ctx, strangerAddr, strangerAddr, 100), ledger.ErrUnauthorized)
	assert.ErrorIs(t, f.svc.Withdraw(ctx, ownerAddr, ledger.ZeroAddress, 100), ledger.ErrInvalidRecipient)
	assert.ErrorIs(t, f.svc.Withdraw(ctx, ownerAddr, ownerAddr, 50001), ledger.ErrInsufficientFunds)
	assert.ErrorIs(t, f.svc.Withdraw(ctx, ownerAddr, ownerAddr, 0), ledger.ErrInsufficientFunds)

	require.NoError(t, f.svc.Withdraw(ctx, ownerAddr, ownerAddr, 20000))
	assert.Equal(t, int64(30000), f.tokens.balances[poolAddr])
	assert.Equal(t, int64(20000), f.tokens.balances[ownerAddr])
}

func TestSetLoanLimitsOrdering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.SetLoanLimits(ctx, strangerAddr, 100, 5000, 10000), ledger.ErrUnauthorized)
	assert.ErrorIs(t, f.svc.SetLoanLimits(ctx, ownerAddr, 0, 5000, 10000), ledger.ErrOutOfRange)
	assert.ErrorIs(t, f.svc.SetLoanLimits(ctx, ownerAddr, 5000, 5000, 10000), ledger.ErrOutOfRange)
	assert.ErrorIs(t, f.svc.SetLoanLimits(ctx, ownerAddr, 100, 20000, 10000), ledger.ErrOutOfRange)

	require.NoError(t, f.svc.SetLoanLimits(ctx, ownerAddr, 200, 5000, 20000))
	_, err := f.svc.ApplyForLoan(ctx, borrowerAddr, 150)
	assert.ErrorIs(t, err, ledger.ErrAmountOutOfRange)
}

func TestSetEligibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.SetEligibility(ctx, strangerAddr, 100, 500), ledger.ErrUnauthorized)
	assert.ErrorIs(t, f.svc.SetEligibility(ctx, ownerAddr, -1, 500), ledger.ErrOutOfRange)
	assert.ErrorIs(t, f.svc.SetEligibility(ctx, ownerAddr, 100, 1001), ledger.ErrOutOfRange)

	require.NoError(t, f.svc.SetEligibility(ctx, ownerAddr, 700, 600))
	_, err := f.svc.ApplyForLoan(ctx, borrowerAddr, 1000)
	assert.ErrorIs(t, err, ledger.ErrInsufficientReputation)
}
