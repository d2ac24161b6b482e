package postgres

import (
	"context"

	"github.com/gofrs/uuid/v5"
	"github.com/philippemarquet/my-money-muse/internal/model"
)

// MappingRepo implements MappingRepository using PostgreSQL.
type MappingRepo struct{ db *DB }

// NewMappingRepo constructs a mapping repository.
func NewMappingRepo(db *DB) *MappingRepo { return &MappingRepo{db: db} }

// ListByConnection returns all account mappings of a connection.
func (r *MappingRepo) ListByConnection(ctx context.Context, connectionID uuid.UUID) ([]model.AccountMapping, error) {
	const q = `
SELECT id, connection_id, account_id, bunq_monetary_account_id, last_payment_id
FROM bunq_account_mappings
WHERE connection_id=$1
ORDER BY created_at ASC`
	rows, err := r.db.Pool.Query(ctx, q, connectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AccountMapping
	for rows.Next() {
		var m model.AccountMapping
		if err = rows.Scan(&m.ID, &m.ConnectionID, &m.AccountID, &m.RemoteAccountID, &m.LastPaymentID); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AdvanceWatermark raises last_payment_id to the given value. The GREATEST
// guard keeps the watermark monotonically non-decreasing under re-runs.
func (r *MappingRepo) AdvanceWatermark(ctx context.Context, id uuid.UUID, lastPaymentID int64) error {
	const q = `
UPDATE bunq_account_mappings
SET last_payment_id = GREATEST(last_payment_id, $2)
WHERE id = $1`
	_, err := r.db.Pool.Exec(ctx, q, id, lastPaymentID)
	return err
}
