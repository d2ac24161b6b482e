package repository

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/philippemarquet/my-money-muse/internal/model"
)

// TransactionRepository stores imported ledger rows.
type TransactionRepository interface {
	// ListInRange returns rows with datum in [from, to] for the given
	// accounts, projected to the fingerprint-relevant columns only.
	ListInRange(ctx context.Context, householdID uuid.UUID, accountIDs []uuid.UUID, from, to time.Time) ([]model.Transaction, error)
	// InsertBatch bulk-inserts rows in one statement. Empty input is a no-op.
	InsertBatch(ctx context.Context, txs []model.Transaction) error
}
