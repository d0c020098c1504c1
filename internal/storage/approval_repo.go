package storage

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/unslug/backend/internal/contracts"
)

// ApprovalRepository implements contracts.ApprovalRepository. The table
// is append-only; approvals are never updated or deleted.
type ApprovalRepository struct {
	pool *pgxpool.Pool
}

// NewApprovalRepository creates an approval repository.
func NewApprovalRepository(pool *pgxpool.Pool) *ApprovalRepository {
	return &ApprovalRepository{pool: pool}
}

// SaveApproval appends one approval row and fills in its ID.
func (r *ApprovalRepository) SaveApproval(ctx context.Context, rec *contracts.ApprovalRecord) error {
	query := `
		INSERT INTO signal_approvals (signal_id, symbol, approved_by, status, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	return r.pool.QueryRow(ctx, query,
		rec.SignalID, rec.Symbol, rec.ApprovedBy, string(rec.Status), rec.Note, rec.CreatedAt,
	).Scan(&rec.ID)
}

// ListApprovals returns the approval audit trail for a symbol, oldest
// first.
func (r *ApprovalRepository) ListApprovals(ctx context.Context, symbol string) ([]contracts.ApprovalRecord, error) {
	query := `
		SELECT id, signal_id, symbol, approved_by, status, note, created_at
		FROM signal_approvals
		WHERE symbol = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.pool.Query(ctx, query, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []contracts.ApprovalRecord
	for rows.Next() {
		var (
			rec    contracts.ApprovalRecord
			status string
		)
		if err := rows.Scan(&rec.ID, &rec.SignalID, &rec.Symbol, &rec.ApprovedBy, &status, &rec.Note, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Status = contracts.Signal(status)
		out = append(out, rec)
	}
	return out, rows.Err()
}
