package oracle

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
)

const (
	ownerAddr  = ledger.Address("0x0000000000000000000000000000000000000001")
	holderAddr = ledger.Address("0x00000000000000000000000000000000000000aa")
	readerAddr = ledger.Address("0x0000000000000000000000000000000000000011")
)

// fakeClock lets tests move ledger time by hand.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// memRecorder captures events in order.
type memRecorder struct {
	events []recordedEvent
}

type recordedEvent struct {
	Ledger  string
	Type    string
	Actor   ledger.Address
	Subject ledger.Address
	Payload map[string]interface{}
}

func (r *memRecorder) Record(ctx context.Context, ledgerName, eventType string, actor, subject ledger.Address, payload map[string]interface{}) error {
	r.events = append(r.events, recordedEvent{ledgerName, eventType, actor, subject, payload})
	return nil
}

func (r *memRecorder) typesOf(kind string) []recordedEvent {
	var out []recordedEvent
	for _, e := range r.events {
		if e.Type == kind {
			out = append(out, e)
		}
	}
	return out
}

func newTestService(t *testing.T) (*Service, *fakeClock, *memRecorder) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&VerifiedScore{}, &ScoreHistoryEntry{}, &OracleConfig{}))

	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	recorder := &memRecorder{}
	svc := NewService(NewRepository(db), recorder, clock, zap.NewNop(), ownerAddr)
	return svc, clock, recorder
}

func TestPublishValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Publish(ctx, holderAddr, "BOGUS", 500), ledger.ErrOutOfRange)
	assert.ErrorIs(t, svc.Publish(ctx, holderAddr, ledger.ScoreFinancialRisk, -1), ledger.ErrOutOfRange)
	assert.ErrorIs(t, svc.Publish(ctx, holderAddr, ledger.ScoreFinancialRisk, 1001), ledger.ErrOutOfRange)

	assert.NoError(t, svc.Publish(ctx, holderAddr, ledger.ScoreFinancialRisk, 1000))
}

func TestPublishRateLimit(t *testing.T) {
	svc, clock, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Publish(ctx, holderAddr, ledger.ScoreFinancialRisk, 700))

	// One second short of the gap fails.
	clock.Advance(time.Hour - time.Second)
	assert.ErrorIs(t, svc.Publish(ctx, holderAddr, ledger.ScoreFinancialRisk, 710), ledger.ErrRateLimited)

	// Exactly the gap succeeds.
	clock.Advance(time.Second)
	assert.NoError(t, svc.Publish(ctx, holderAddr, ledger.ScoreFinancialRisk, 710))

	// Separate score streams do not share the rate limit.
	assert.NoError(t, svc.Publish(ctx, holderAddr, ledger.ScoreUBIEligibility, 400))
}

func TestPublishWhilePaused(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SetPublishingPaused(ctx, ownerAddr, true))
	assert.ErrorIs(t, svc.Publish(ctx, holderAddr, ledger.ScoreFinancialRisk, 700), ledger.ErrPublishingPaused)

	require.NoError(t, svc.SetPublishingPaused(ctx, ownerAddr, false))
	assert.NoError(t, svc.Publish(ctx, holderAddr, ledger.ScoreFinancialRisk, 700))
}

func TestLatestScoreStalenessBoundary(t *testing.T) {
	svc, clock, recorder := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Publish(ctx, holderAddr, ledger.ScoreFinancialRisk, 720))

	// Exactly at the max age the score is still fresh.
	clock.Advance(24 * time.Hour)
	value, err := svc.LatestScore(ctx, readerAddr, holderAddr, ledger.ScoreFinancialRisk)
	require.NoError(t, err)
	assert.Equal(t, int64(720), value)

	// One second past the window the read fails and records the rejection.
	clock.Advance(time.Second)
	_, err = svc.LatestScore(ctx, readerAddr, holderAddr, ledger.ScoreFinancialRisk)
	assert.ErrorIs(t, err, ledger.ErrStaleScore)
	assert.Len(t, recorder.typesOf("stale_score_rejected"), 1)

	// The view reports invalid instead of failing.
	value, valid, age, err := svc.LatestScoreView(ctx, holderAddr, ledger.ScoreFinancialRisk)
	require.NoError(t, err)
	assert.Equal(t, int64(720), value)
	assert.False(t, valid)
	assert.Equal(t, 24*time.Hour+time.Second, age)
}

func TestLatestScoreAuditTrail(t *testing.T) {
	svc, _, recorder := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Publish(ctx, holderAddr, ledger.ScoreFinancialRisk, 650))

	// Two consecutive reads of unchanged data still record two query events.
	_, err := svc.LatestScore(ctx, readerAddr, holderAddr, ledger.ScoreFinancialRisk)
	require.NoError(t, err)
	_, err = svc.LatestScore(ctx, readerAddr, holderAddr, ledger.ScoreFinancialRisk)
	require.NoError(t, err)
	assert.Len(t, recorder.typesOf("score_queried"), 2)
}

func TestLatestScoreMissing(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.LatestScore(ctx, readerAddr, holderAddr, ledger.ScoreFinancialRisk)
	assert.ErrorIs(t, err, ledger.ErrNoScore)

	value, valid, age, err := svc.LatestScoreView(ctx, holderAddr, ledger.ScoreFinancialRisk)
	require.NoError(t, err)
	assert.Zero(t, value)
	assert.False(t, valid)
	assert.Zero(t, age)
}

func TestPublishOverwritesSlot(t *testing.T) {
	svc, clock, recorder := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Publish(ctx, holderAddr, ledger.ScoreFinancialRisk, 600))
	clock.Advance(2 * time.Hour)
	require.NoError(t, svc.Publish(ctx, holderAddr, ledger.ScoreFinancialRisk, 640))

	value, err := svc.LatestScore(ctx, readerAddr, holderAddr, ledger.ScoreFinancialRisk)
	require.NoError(t, err)
	assert.Equal(t, int64(640), value)

	published := recorder.typesOf("score_published")
	require.Len(t, published, 2)
	assert.Equal(t, int64(600), published[1].Payload["previous_value"])
}

func TestHistoryTracking(t *testing.T) {
	svc, clock, _ := newTestService(t)
	ctx := context.Background()

	// Disabled by default: nothing is appended.
	require.NoError(t, svc.Publish(ctx, holderAddr, ledger.ScoreFinancialRisk, 600))
	entries, err := svc.History(ctx, holderAddr, ledger.ScoreFinancialRisk)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, svc.SetHistoryEnabled(ctx, ownerAddr, true))
	clock.Advance(2 * time.Hour)
	require.NoError(t, svc.Publish(ctx, holderAddr, ledger.ScoreFinancialRisk, 620))
	clock.Advance(2 * time.Hour)
	require.NoError(t, svc.Publish(ctx, holderAddr, ledger.ScoreFinancialRisk, 640))

	entries, err = svc.History(ctx, holderAddr, ledger.ScoreFinancialRisk)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(620), entries[0].Value)
	assert.Equal(t, int64(640), entries[1].Value)
}

func TestConfigOwnerGated(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.SetMaxScoreAge(ctx, holderAddr, time.Hour), ledger.ErrUnauthorized)
	assert.ErrorIs(t, svc.SetMinPublishInterval(ctx, holderAddr, time.Minute), ledger.ErrUnauthorized)
	assert.ErrorIs(t, svc.SetPublishingPaused(ctx, holderAddr, true), ledger.ErrUnauthorized)
	assert.ErrorIs(t, svc.SetMaxScoreAge(ctx, ownerAddr, 0), ledger.ErrOutOfRange)

	assert.NoError(t, svc.SetMaxScoreAge(ctx, ownerAddr, 48*time.Hour))
	assert.NoError(t, svc.SetMinPublishInterval(ctx, ownerAddr, 10*time.Minute))
}

func TestBatchScores(t *testing.T) {
	svc, clock, _ := newTestService(t)
	ctx := context.Background()

	other := ledger.Address("0x00000000000000000000000000000000000000bb")
	require.NoError(t, svc.Publish(ctx, holderAddr, ledger.ScoreFinancialRisk, 810))
	clock.Advance(time.Minute)

	entries, err := svc.BatchScores(ctx, []ledger.Address{holderAddr, other}, ledger.ScoreFinancialRisk)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, int64(810), entries[0].Value)
	assert.True(t, entries[0].Valid)
	assert.Equal(t, int64(60), entries[0].AgeSecs)

	// Unknown holders read invalid, not failed.
	assert.False(t, entries[1].Valid)
	assert.Zero(t, entries[1].Value)
}
