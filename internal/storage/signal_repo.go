// Package storage implements the contracts repositories on PostgreSQL.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/unslug/backend/internal/contracts"
)

// SignalRepository implements contracts.SignalRepository.
type SignalRepository struct {
	pool *pgxpool.Pool
}

// NewSignalRepository creates a signal repository.
func NewSignalRepository(pool *pgxpool.Pool) *SignalRepository {
	return &SignalRepository{pool: pool}
}

// SaveSignal inserts a fresh PENDING_REVIEW record and fills in its ID.
// Every cycle writes a new row; approved history is never reopened.
func (r *SignalRepository) SaveSignal(ctx context.Context, rec *contracts.SignalRecord) error {
	explainJSON, err := json.Marshal(rec.Explain)
	if err != nil {
		return fmt.Errorf("marshal explain: %w", err)
	}
	recJSON, err := json.Marshal(rec.Recommendation)
	if err != nil {
		return fmt.Errorf("marshal recommendation: %w", err)
	}
	metaJSON, err := json.Marshal(rec.Meta)
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}

	query := `
		INSERT INTO signals (
			symbol, ts, unslug_score, fear_score, flow_score,
			combined_trust, signal, status, recommendation, explain, meta,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`

	return r.pool.QueryRow(ctx, query,
		rec.Symbol, rec.TS,
		rec.UnslugScore, rec.FearScore, rec.FlowScore,
		rec.CombinedTrust, string(rec.Signal), string(rec.Status),
		recJSON, explainJSON, metaJSON,
		rec.CreatedAt, rec.UpdatedAt,
	).Scan(&rec.ID)
}

// LatestBySymbol returns the newest record for a symbol, or nil when the
// symbol has never been scored.
func (r *SignalRepository) LatestBySymbol(ctx context.Context, symbol string) (*contracts.SignalRecord, error) {
	query := selectColumns + `
		FROM signals
		WHERE symbol = $1
		ORDER BY ts DESC, id DESC
		LIMIT 1
	`
	rec, err := scanSignal(r.pool.QueryRow(ctx, query, symbol))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

// ListLatest returns the newest record per symbol, strongest combined
// trust first, capped at n.
func (r *SignalRepository) ListLatest(ctx context.Context, n int) ([]contracts.SignalRecord, error) {
	query := selectColumns + `
		FROM signals s
		WHERE id = (
			SELECT id FROM signals
			WHERE symbol = s.symbol
			ORDER BY ts DESC, id DESC
			LIMIT 1
		)
		ORDER BY combined_trust DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []contracts.SignalRecord
	for rows.Next() {
		rec, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// ApproveSignal atomically moves a pending record to the target status.
// The WHERE clause is the whole first-writer-wins story: a concurrent
// approval that lost the race updates zero rows and gets applied=false
// with the winner's record.
func (r *SignalRepository) ApproveSignal(ctx context.Context, signalID int64, status contracts.Status) (*contracts.SignalRecord, bool, error) {
	query := `
		UPDATE signals
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING_REVIEW'
	`
	tag, err := r.pool.Exec(ctx, query, signalID, string(status))
	if err != nil {
		return nil, false, err
	}

	rec, err := r.getByID(ctx, signalID)
	if err != nil {
		return nil, false, err
	}
	if rec == nil {
		return nil, false, nil
	}
	return rec, tag.RowsAffected() == 1, nil
}

func (r *SignalRepository) getByID(ctx context.Context, id int64) (*contracts.SignalRecord, error) {
	query := selectColumns + ` FROM signals WHERE id = $1`
	rec, err := scanSignal(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

const selectColumns = `
		SELECT id, symbol, ts, unslug_score, fear_score, flow_score,
		       combined_trust, signal, status, recommendation, explain, meta,
		       created_at, updated_at
`

// rowScanner covers pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSignal(row rowScanner) (*contracts.SignalRecord, error) {
	var (
		rec            contracts.SignalRecord
		signal, status string
		recJSON        []byte
		explainJSON    []byte
		metaJSON       []byte
	)
	err := row.Scan(
		&rec.ID, &rec.Symbol, &rec.TS,
		&rec.UnslugScore, &rec.FearScore, &rec.FlowScore,
		&rec.CombinedTrust, &signal, &status,
		&recJSON, &explainJSON, &metaJSON,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Signal = contracts.Signal(signal)
	rec.Status = contracts.Status(status)
	if len(recJSON) > 0 {
		if err := json.Unmarshal(recJSON, &rec.Recommendation); err != nil {
			return nil, fmt.Errorf("unmarshal recommendation: %w", err)
		}
	}
	if len(explainJSON) > 0 {
		if err := json.Unmarshal(explainJSON, &rec.Explain); err != nil {
			return nil, fmt.Errorf("unmarshal explain: %w", err)
		}
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &rec.Meta); err != nil {
			return nil, fmt.Errorf("unmarshal meta: %w", err)
		}
	}
	return &rec, nil
}
