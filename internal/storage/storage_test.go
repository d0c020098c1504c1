package storage

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/unslug/backend/internal/contracts"
)

const schema = `
	CREATE TABLE IF NOT EXISTS signals (
		id             BIGSERIAL PRIMARY KEY,
		symbol         TEXT NOT NULL,
		ts             TIMESTAMPTZ NOT NULL,
		unslug_score   DOUBLE PRECISION NOT NULL,
		fear_score     DOUBLE PRECISION NOT NULL,
		flow_score     DOUBLE PRECISION NOT NULL,
		combined_trust DOUBLE PRECISION NOT NULL,
		signal         TEXT NOT NULL,
		status         TEXT NOT NULL,
		recommendation JSONB,
		explain        JSONB,
		meta           JSONB,
		created_at     TIMESTAMPTZ NOT NULL,
		updated_at     TIMESTAMPTZ NOT NULL
	);
	CREATE TABLE IF NOT EXISTS signal_approvals (
		id          BIGSERIAL PRIMARY KEY,
		signal_id   BIGINT NOT NULL REFERENCES signals(id),
		symbol      TEXT NOT NULL,
		approved_by TEXT NOT NULL,
		status      TEXT NOT NULL,
		note        TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL
	);
`

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test")
	}
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	pool, err := pgxpool.New(context.Background(), url)
	require.NoError(t, err, "database connection failed")
	t.Cleanup(pool.Close)

	_, err = pool.Exec(context.Background(), schema)
	require.NoError(t, err, "schema setup failed")

	_, err = pool.Exec(context.Background(), `DELETE FROM signal_approvals; DELETE FROM signals;`)
	require.NoError(t, err, "table cleanup failed")

	return pool
}

func testRecord(symbol string, trust float64, ts time.Time) *contracts.SignalRecord {
	return &contracts.SignalRecord{
		Symbol:        symbol,
		TS:            ts,
		UnslugScore:   trust,
		FearScore:     trust,
		FlowScore:     trust,
		CombinedTrust: trust,
		Signal:        contracts.SignalNeutral,
		Status:        contracts.StatusPendingReview,
		Recommendation: contracts.Recommendation{
			Suggested: contracts.SignalNeutral,
			Unslug:    trust,
			Fear:      trust,
		},
		Explain: map[string][]contracts.ExplainEntry{
			"UNSLUG": {{Name: "rebound", Value: trust, Contribution: contracts.IncreasesTrust}},
		},
		Meta:      map[string]any{"interval": "1d"},
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

func TestSignalRepository_RoundTrip(t *testing.T) {
	pool := testPool(t)
	repo := NewSignalRepository(pool)
	ctx := context.Background()
	ts := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	rec := testRecord("SPY", 0.63, ts)
	require.NoError(t, repo.SaveSignal(ctx, rec))
	assert.NotZero(t, rec.ID, "SaveSignal should fill the ID")

	got, err := repo.LatestBySymbol(ctx, "SPY")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "SPY", got.Symbol)
	assert.InDelta(t, 0.63, got.CombinedTrust, 1e-9)
	assert.Equal(t, contracts.StatusPendingReview, got.Status)
	assert.Equal(t, "1d", got.Meta["interval"])
	require.Len(t, got.Explain["UNSLUG"], 1)
	assert.Equal(t, "rebound", got.Explain["UNSLUG"][0].Name)
}

func TestSignalRepository_LatestBySymbolMissing(t *testing.T) {
	pool := testPool(t)
	repo := NewSignalRepository(pool)

	got, err := repo.LatestBySymbol(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.Nil(t, got, "unknown symbol should return nil without error")
}

func TestSignalRepository_ListLatest(t *testing.T) {
	pool := testPool(t)
	repo := NewSignalRepository(pool)
	ctx := context.Background()
	ts := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	// two cycles for SPY, one for QQQ
	require.NoError(t, repo.SaveSignal(ctx, testRecord("SPY", 0.40, ts)))
	require.NoError(t, repo.SaveSignal(ctx, testRecord("SPY", 0.80, ts.AddDate(0, 0, 1))))
	require.NoError(t, repo.SaveSignal(ctx, testRecord("QQQ", 0.55, ts.AddDate(0, 0, 1))))

	got, err := repo.ListLatest(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2, "one record per symbol")
	assert.Equal(t, "SPY", got[0].Symbol, "strongest combined trust first")
	assert.InDelta(t, 0.80, got[0].CombinedTrust, 1e-9, "newest SPY record wins")
	assert.Equal(t, "QQQ", got[1].Symbol)
}

func TestSignalRepository_ApproveFirstWriterWins(t *testing.T) {
	pool := testPool(t)
	repo := NewSignalRepository(pool)
	ctx := context.Background()

	rec := testRecord("SPY", 0.7, time.Now().UTC())
	require.NoError(t, repo.SaveSignal(ctx, rec))

	got, applied, err := repo.ApproveSignal(ctx, rec.ID, contracts.StatusApprovedBuy)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, contracts.StatusApprovedBuy, got.Status)

	// second writer loses but sees the winner's status
	got, applied, err = repo.ApproveSignal(ctx, rec.ID, contracts.StatusApprovedRisk)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, contracts.StatusApprovedBuy, got.Status)

	// unknown id reports nothing applied and no record
	got, applied, err = repo.ApproveSignal(ctx, 999999, contracts.StatusApprovedBuy)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Nil(t, got)
}

func TestApprovalRepository_AuditTrail(t *testing.T) {
	pool := testPool(t)
	signals := NewSignalRepository(pool)
	approvals := NewApprovalRepository(pool)
	ctx := context.Background()
	base := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

	rec := testRecord("SPY", 0.7, base)
	require.NoError(t, signals.SaveSignal(ctx, rec))

	for i, by := range []string{"alice", "system"} {
		require.NoError(t, approvals.SaveApproval(ctx, &contracts.ApprovalRecord{
			SignalID:   rec.ID,
			Symbol:     "SPY",
			ApprovedBy: by,
			Status:     contracts.SignalBuy,
			Note:       fmt.Sprintf("note %d", i),
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}

	trail, err := approvals.ListApprovals(ctx, "SPY")
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, "alice", trail[0].ApprovedBy, "oldest first")
	assert.Equal(t, "system", trail[1].ApprovedBy)
	assert.Equal(t, rec.ID, trail[0].SignalID)

	other, err := approvals.ListApprovals(ctx, "QQQ")
	require.NoError(t, err)
	assert.Empty(t, other)
}
