// Package model defines domain entities used by services and repositories.
package model

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
)

// Connection is the per-household credential bundle for the remote bank.
// At most one row exists per household (upsert keyed by household_id).
type Connection struct {
	ID            uuid.UUID
	HouseholdID   uuid.UUID
	PrivateKeyPEM string
	PublicKeyPEM  string

	InstallationToken string
	// ServerPublicKey is returned by the installation call and stored, but the
	// engine never verifies response signatures with it.
	ServerPublicKey string
	DeviceServerID  int64

	SessionToken  string
	SessionUserID int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AccountMapping links a local account to one remote monetary account,
// scoped to a Connection. Created by an operator, never auto-deleted.
type AccountMapping struct {
	ID              uuid.UUID
	ConnectionID    uuid.UUID
	AccountID       uuid.UUID // local account
	RemoteAccountID int64     // bunq monetary-account id
	// LastPaymentID is the highest imported remote payment id, monotonically
	// non-decreasing. Informational; dedup works on fingerprints, not ids.
	LastPaymentID int64
}

// Transaction is one ledger row owned by a household. Column names in storage
// follow the Dutch schema (datum, omschrijving, bedrag, ...).
type Transaction struct {
	ID                uuid.UUID
	HouseholdID       uuid.UUID
	AccountID         uuid.UUID
	Date              time.Time // date component only
	Description       string
	Amount            decimal.Decimal // signed; negative = expense
	CounterpartyIBAN  string
	CounterpartyAlias string
	SubcategoryID     uuid.UUID
}

// Fingerprint is a composite dedup key over the payment attributes that are
// stored locally. Two real payments identical in all five parts collide;
// that is an accepted limitation of fingerprint dedup.
type Fingerprint string

// Fingerprint derives the dedup key for a transaction.
func (t *Transaction) Fingerprint() Fingerprint {
	return Fingerprint(fmt.Sprintf("%s|%s|%s|%s|%s",
		t.AccountID, t.Date.Format("2006-01-02"), t.Amount.String(), t.Description, t.CounterpartyAlias))
}

// Category groups subcategories; Type is free text such as "uitgaven" or "income".
type Category struct {
	ID          uuid.UUID
	HouseholdID uuid.UUID
	Name        string
	Type        string
}

// Subcategory is the unit transactions are tagged with.
type Subcategory struct {
	ID         uuid.UUID
	CategoryID uuid.UUID
	Name       string
}

// CategoryDefaults holds the per-household default subcategories for imported
// payments, one per direction. Resolved once per sync run.
type CategoryDefaults struct {
	IncomeSubcategoryID  uuid.UUID
	ExpenseSubcategoryID uuid.UUID
}

// InsertResult reports the outcome of a dedup insert.
type InsertResult struct {
	Inserted int
	Skipped  int
}
