package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/philippemarquet/my-money-muse/internal/model"
	"github.com/shopspring/decimal"
)

// TransactionRepo implements TransactionRepository using PostgreSQL.
type TransactionRepo struct{ db *DB }

// NewTransactionRepo constructs a transaction repository.
func NewTransactionRepo(db *DB) *TransactionRepo { return &TransactionRepo{db: db} }

// ListInRange returns the fingerprint-relevant columns of rows in the
// inclusive date range, scoped to the given accounts.
func (r *TransactionRepo) ListInRange(ctx context.Context, householdID uuid.UUID, accountIDs []uuid.UUID, from, to time.Time) ([]model.Transaction, error) {
	const q = `
SELECT account_id, datum, bedrag::text, omschrijving, COALESCE(alias_tegenrekening, '')
FROM transactions
WHERE household_id=$1 AND account_id = ANY($2) AND datum BETWEEN $3 AND $4`
	rows, err := r.db.Pool.Query(ctx, q, householdID, accountIDs, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		var (
			t      model.Transaction
			bedrag string
		)
		if err = rows.Scan(&t.AccountID, &t.Date, &bedrag, &t.Description, &t.CounterpartyAlias); err != nil {
			return nil, err
		}
		t.Amount, err = decimal.NewFromString(bedrag)
		if err != nil {
			return nil, fmt.Errorf("parse bedrag %q: %w", bedrag, err)
		}
		t.HouseholdID = householdID
		out = append(out, t)
	}
	return out, rows.Err()
}

// InsertBatch inserts all rows with a single multi-row statement.
func (r *TransactionRepo) InsertBatch(ctx context.Context, txs []model.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	var (
		sb   strings.Builder
		args = make([]any, 0, len(txs)*9)
	)
	sb.WriteString(`INSERT INTO transactions
  (id, household_id, account_id, datum, omschrijving, bedrag,
   iban_tegenrekening, alias_tegenrekening, subcategory_id)
VALUES `)
	for i, t := range txs {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 9
		fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9)
		args = append(args, t.ID, t.HouseholdID, t.AccountID, t.Date, t.Description,
			t.Amount.String(), nullable(t.CounterpartyIBAN), nullable(t.CounterpartyAlias), t.SubcategoryID)
	}

	_, err := r.db.Pool.Exec(ctx, sb.String(), args...)
	return err
}

// nullable maps "" to SQL NULL for optional text columns.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
