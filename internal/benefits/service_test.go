package benefits

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
	"github.com/ObiomaIkpe/credo-brige/internal/points"
	"github.com/ObiomaIkpe/credo-brige/internal/registry"
)

const (
	benefitsAddr  = ledger.Address("0x0000000000000000000000000000000000000012")
	sponsorAddr   = ledger.Address("0x00000000000000000000000000000000000000dd")
	applicantAddr = ledger.Address("0x00000000000000000000000000000000000000aa")
	strangerAddr  = ledger.Address("0x00000000000000000000000000000000000000bb")
)

type fakeEligibility struct {
	result points.EligibilityResult
	err    error
}

func (e *fakeEligibility) CheckEligibility(ctx context.Context, holder ledger.Address) (*points.EligibilityResult, error) {
	if e.err != nil {
		return nil, e.err
	}
	r := e.result
	r.Holder = holder.String()
	return &r, nil
}

type fakeTokens struct {
	balances   map[ledger.Address]int64
	allowances map[string]int64
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{
		balances:   make(map[ledger.Address]int64),
		allowances: make(map[string]int64),
	}
}

func (t *fakeTokens) Transfer(ctx context.Context, caller, to ledger.Address, amount int64) error {
	if t.balances[caller] < amount {
		return ledger.ErrInsufficientBalance
	}
	t.balances[caller] -= amount
	t.balances[to] += amount
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

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

type fixture struct {
	svc         *Service
	eligibility *fakeEligibility
	tokens      *fakeTokens
	rewards     *fakeRewards
	events      *memRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Program{}, &Application{}))

	f := &fixture{
		eligibility: &fakeEligibility{result: points.EligibilityResult{
			Points:     800,
			Score:      750,
			ScoreValid: true,
			Eligible:   true,
		}},
		tokens:  newFakeTokens(),
		rewards: &fakeRewards{},
		events:  &memRecorder{},
	}
	f.tokens.balances[sponsorAddr] = 10000
	clock := &fixedClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	f.svc = NewService(NewRepository(db), f.eligibility, f.tokens, f.rewards,
		f.events, clock, zap.NewNop(), benefitsAddr)
	return f
}

func (f *fixture) createFundedProgram(t *testing.T, amount int64) *Program {
	t.Helper()
	ctx := context.Background()
	program, err := f.svc.CreateProgram(ctx, sponsorAddr, CreateProgramRequest{
		Name:          "Community scholarship",
		MinPoints:     500,
		MinScore:      700,
		BenefitAmount: 250,
	})
	require.NoError(t, err)
	f.tokens.approve(sponsorAddr, benefitsAddr, amount)
	require.NoError(t, f.svc.FundProgram(ctx, sponsorAddr, program.ID, amount))
	fresh, err := f.svc.GetProgram(ctx, program.ID)
	require.NoError(t, err)
	return fresh
}

func TestCreateProgramValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateProgram(ctx, sponsorAddr, CreateProgramRequest{BenefitAmount: 0})
	assert.ErrorIs(t, err, ledger.ErrAmountOutOfRange)

	_, err = f.svc.CreateProgram(ctx, sponsorAddr, CreateProgramRequest{BenefitAmount: 100, MinScore: 1001})
	assert.ErrorIs(t, err, ledger.ErrOutOfRange)

	program, err := f.svc.CreateProgram(ctx, sponsorAddr, CreateProgramRequest{Name: "p", BenefitAmount: 100})
	require.NoError(t, err)
	assert.True(t, program.Active)
	assert.Equal(t, sponsorAddr.String(), program.Owner)
	assert.Contains(t, f.events.types, "program_created")
}

func TestFundProgram(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	program, err := f.svc.CreateProgram(ctx, sponsorAddr, CreateProgramRequest{Name: "p", BenefitAmount: 100})
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.FundProgram(ctx, strangerAddr, program.ID, 500), ledger.ErrNotProgramOwner)
	assert.ErrorIs(t, f.svc.FundProgram(ctx, sponsorAddr, program.ID, 0), ledger.ErrAmountOutOfRange)

	// Funding pulls through an allowance; a failed pull leaves the recorded
	// pool untouched.
	err = f.svc.FundProgram(ctx, sponsorAddr, program.ID, 500)
	assert.ErrorIs(t, err, ledger.ErrInsufficientAllowance)
	fresh, err := f.svc.GetProgram(ctx, program.ID)
	require.NoError(t, err)
	assert.Zero(t, fresh.PoolBalance)

	f.tokens.approve(sponsorAddr, benefitsAddr, 500)
	require.NoError(t, f.svc.FundProgram(ctx, sponsorAddr, program.ID, 500))
	assert.Equal(t, int64(500), f.tokens.balances[benefitsAddr])

	fresh, err = f.svc.GetProgram(ctx, program.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), fresh.PoolBalance)
}

func TestApplyGates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	program := f.createFundedProgram(t, 1000)

	f.eligibility.result.ScoreValid = false
	_, err := f.svc.Apply(ctx, applicantAddr, program.ID)
	assert.ErrorIs(t, err, ledger.ErrStaleScore)
	f.eligibility.result.ScoreValid = true

	f.eligibility.result.Points = 499
	_, err = f.svc.Apply(ctx, applicantAddr, program.ID)
	assert.ErrorIs(t, err, ledger.ErrInsufficientReputation)
	f.eligibility.result.Points = 800

	f.eligibility.result.Score = 699
	_, err = f.svc.Apply(ctx, applicantAddr, program.ID)
	assert.ErrorIs(t, err, ledger.ErrInsufficientScore)
	f.eligibility.result.Score = 750

	app, err := f.svc.Apply(ctx, applicantAddr, program.ID)
	require.NoError(t, err)
	assert.Equal(t, ApplicationPending, app.Status)
	assert.Equal(t, int64(800), app.PointsAtApply)
	assert.Equal(t, int64(750), app.ScoreAtApply)

	// One open application per (program, applicant) pair.
	_, err = f.svc.Apply(ctx, applicantAddr, program.ID)
	assert.ErrorIs(t, err, ledger.ErrAlreadyActive)
}

func TestApplyInactiveProgram(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	program := f.createFundedProgram(t, 1000)

	assert.ErrorIs(t, f.svc.SetProgramActive(ctx, strangerAddr, program.ID, false), ledger.ErrNotProgramOwner)
	require.NoError(t, f.svc.SetProgramActive(ctx, sponsorAddr, program.ID, false))

	_, err := f.svc.Apply(ctx, applicantAddr, program.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestDecideOwnerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	program := f.createFundedProgram(t, 1000)
	app, err := f.svc.Apply(ctx, applicantAddr, program.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Decide(ctx, strangerAddr, app.ID, true), ledger.ErrNotProgramOwner)
	require.NoError(t, f.svc.Decide(ctx, sponsorAddr, app.ID, true))

	// Decisions are one-shot; re-deciding or reversing fails.
	assert.ErrorIs(t, f.svc.Decide(ctx, sponsorAddr, app.ID, true), ledger.ErrAlreadyApproved)
	assert.ErrorIs(t, f.svc.Decide(ctx, sponsorAddr, app.ID, false), ledger.ErrAlreadyApproved)

	apps, err := f.svc.ListApplications(ctx, program.ID)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, ApplicationApproved, apps[0].Status)
	assert.NotNil(t, apps[0].DecidedAt)
}

func TestRejectedApplicationStaysRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	program := f.createFundedProgram(t, 1000)
	app, err := f.svc.Apply(ctx, applicantAddr, program.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.Decide(ctx, sponsorAddr, app.ID, false))
	assert.ErrorIs(t, f.svc.Disburse(ctx, sponsorAddr, app.ID), ledger.ErrNotApproved)
}

func TestDisburse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	program := f.createFundedProgram(t, 1000)
	app, err := f.svc.Apply(ctx, applicantAddr, program.ID)
	require.NoError(t, err)

	// Disbursing a pending application fails.
	assert.ErrorIs(t, f.svc.Disburse(ctx, sponsorAddr, app.ID), ledger.ErrNotApproved)

	require.NoError(t, f.svc.Decide(ctx, sponsorAddr, app.ID, true))
	assert.ErrorIs(t, f.svc.Disburse(ctx, strangerAddr, app.ID), ledger.ErrNotProgramOwner)
	require.NoError(t, f.svc.Disburse(ctx, sponsorAddr, app.ID))

	assert.Equal(t, int64(250), f.tokens.balances[applicantAddr])
	fresh, err := f.svc.GetProgram(ctx, program.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(750), fresh.PoolBalance)

	// A second disbursement is rejected by the state machine.
	assert.ErrorIs(t, f.svc.Disburse(ctx, sponsorAddr, app.ID), ledger.ErrNotApproved)
	assert.Contains(t, f.events.types, "benefit_disbursed")
}

func TestDisburseInsufficientPool(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	program := f.createFundedProgram(t, 100)
	app, err := f.svc.Apply(ctx, applicantAddr, program.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.Decide(ctx, sponsorAddr, app.ID, true))

	// Pool holds 100, the benefit is 250.
	assert.ErrorIs(t, f.svc.Disburse(ctx, sponsorAddr, app.ID), ledger.ErrInsufficientFunds)

	apps, err := f.svc.ListApplications(ctx, program.ID)
	require.NoError(t, err)
	assert.Equal(t, ApplicationApproved, apps[0].Status)
}

func TestDisburseRollsBackOnTransferFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	program := f.createFundedProgram(t, 1000)
	app, err := f.svc.Apply(ctx, applicantAddr, program.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.Decide(ctx, sponsorAddr, app.ID, true))

	// The ledger balance no longer backs the recorded pool.
	f.tokens.balances[benefitsAddr] = 0
	require.Error(t, f.svc.Disburse(ctx, sponsorAddr, app.ID))

	apps, err := f.svc.ListApplications(ctx, program.ID)
	require.NoError(t, err)
	assert.Equal(t, ApplicationApproved, apps[0].Status)
	fresh, err := f.svc.GetProgram(ctx, program.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), fresh.PoolBalance)
}

func TestCompleteMintsRewardOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	program := f.createFundedProgram(t, 1000)
	app, err := f.svc.Apply(ctx, applicantAddr, program.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.Decide(ctx, sponsorAddr, app.ID, true))

	// Completion requires a disbursed application.
	assert.ErrorIs(t, f.svc.Complete(ctx, sponsorAddr, app.ID), ledger.ErrNotApproved)

	require.NoError(t, f.svc.Disburse(ctx, sponsorAddr, app.ID))
	require.NoError(t, f.svc.Complete(ctx, sponsorAddr, app.ID))

	require.Len(t, f.rewards.requests, 1)
	assert.Equal(t, registry.TaskCommunityService, f.rewards.requests[0].TaskType)
	assert.Equal(t, registry.LevelBronze, f.rewards.requests[0].PointLevel)

	// Completing again is a no-op for the reward.
	assert.ErrorIs(t, f.svc.Complete(ctx, sponsorAddr, app.ID), ledger.ErrNotApproved)
	assert.Len(t, f.rewards.requests, 1)
}

func TestCompleteRewardIsBestEffort(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	program := f.createFundedProgram(t, 1000)
	app, err := f.svc.Apply(ctx, applicantAddr, program.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.Decide(ctx, sponsorAddr, app.ID, true))
	require.NoError(t, f.svc.Disburse(ctx, sponsorAddr, app.ID))

	f.rewards.err = ledger.ErrUnauthorized
	require.NoError(t, f.svc.Complete(ctx, sponsorAddr, app.ID))

	apps, err := f.svc.ListApplications(ctx, program.ID)
	require.NoError(t, err)
	assert.Equal(t, ApplicationCompleted, apps[0].Status)
	assert.Empty(t, f.rewards.requests)
}

// flakyRepo fails a fixed number of application saves, then recovers.
type flakyRepo struct {
	Repository
	failSaves int
}

func (r *flakyRepo) SaveApplication(ctx context.Context, app *Application) error {
	if r.failSaves > 0 {
		r.failSaves--
		return gorm.ErrInvalidTransaction
	}
	return r.Repository.SaveApplication(ctx, app)
}

func TestCompleteRetryAfterSaveFailureMintsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	program := f.createFundedProgram(t, 1000)
	app, err := f.svc.Apply(ctx, applicantAddr, program.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.Decide(ctx, sponsorAddr, app.ID, true))
	require.NoError(t, f.svc.Disburse(ctx, sponsorAddr, app.ID))

	// The completion save fails before any mint is attempted; the retry
	// succeeds and mints exactly once.
	f.svc.repo = &flakyRepo{Repository: f.svc.repo, failSaves: 1}
	require.Error(t, f.svc.Complete(ctx, sponsorAddr, app.ID))
	assert.Empty(t, f.rewards.requests)

	require.NoError(t, f.svc.Complete(ctx, sponsorAddr, app.ID))
	assert.Len(t, f.rewards.requests, 1)
}

func TestListProgramsActiveFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	active, err := f.svc.CreateProgram(ctx, sponsorAddr, CreateProgramRequest{Name: "a", BenefitAmount: 100})
	require.NoError(t, err)
	dormant, err := f.svc.CreateProgram(ctx, sponsorAddr, CreateProgramRequest{Name: "b", BenefitAmount: 100})
	require.NoError(t, err)
	require.NoError(t, f.svc.SetProgramActive(ctx, sponsorAddr, dormant.ID, false))

	all, err := f.svc.ListPrograms(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyActive, err := f.svc.ListPrograms(ctx, true)
	require.NoError(t, err)
	require.Len(t, onlyActive, 1)
	assert.Equal(t, active.ID, onlyActive[0].ID)
}
