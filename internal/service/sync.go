// Package service contains the bank synchronization engine: identity
// bootstrap, session guard, account discovery and dedup ingestion.
package service

import (
	"context"
	"crypto/rsa"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/philippemarquet/my-money-muse/internal/bunq"
	"github.com/philippemarquet/my-money-muse/internal/model"
	"github.com/philippemarquet/my-money-muse/internal/repository"
)

// ErrAPIKeyMissing indicates the long-lived bunq API secret is not configured.
// Checked before any network call.
var ErrAPIKeyMissing = errors.New("bunq api key not configured")

// BankAPI is the slice of the remote API used by the engine. Implemented by
// *bunq.Client.
type BankAPI interface {
	CreateInstallation(ctx context.Context, publicKeyPEM string) (bunq.Installation, error)
	RegisterDevice(ctx context.Context, installationToken, description, apiKey string) (int64, error)
	CreateSession(ctx context.Context, installationToken, apiKey string) (bunq.Session, error)
	ListMonetaryAccounts(ctx context.Context, s bunq.Session) ([]bunq.MonetaryAccount, error)
	FetchPaymentsSince(ctx context.Context, s bunq.Session, accountID int64, dateFrom time.Time) ([]bunq.Payment, error)
}

// BankDialer opens a signed API client for one connection's private key.
type BankDialer func(key *rsa.PrivateKey) BankAPI

// Orchestrator drives the engine's three modes for one household at a time.
// All operations for a single connection are sequential; the renew-and-persist
// step in the session guard is not safe to race.
type Orchestrator struct {
	conns repository.ConnectionRepository
	maps  repository.MappingRepository
	txs   repository.TransactionRepository
	cats  repository.CategoryRepository

	bank       BankDialer
	apiKey     string
	deviceName string
	log        *zap.Logger
}

// NewOrchestrator constructs the engine. All secrets are explicit parameters;
// nothing is read from the environment here.
func NewOrchestrator(
	conns repository.ConnectionRepository,
	maps repository.MappingRepository,
	txs repository.TransactionRepository,
	cats repository.CategoryRepository,
	bank BankDialer,
	apiKey, deviceName string,
	log *zap.Logger,
) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		conns: conns, maps: maps, txs: txs, cats: cats,
		bank: bank, apiKey: apiKey, deviceName: deviceName, log: log,
	}
}

// SyncResult is the outcome of one sync run for a household.
type SyncResult struct {
	Imported int
	DateFrom time.Time
	// Accounts is set instead of importing when the household has no account
	// mappings yet; the operator maps accounts out-of-band first.
	Accounts []bunq.MonetaryAccount
}

// DiscoverAccounts returns the normalized remote account list so an operator
// can create account mappings.
func (o *Orchestrator) DiscoverAccounts(ctx context.Context, householdID uuid.UUID) ([]bunq.MonetaryAccount, error) {
	api, conn, err := o.dialHousehold(ctx, householdID)
	if err != nil {
		return nil, err
	}
	sess, accounts, err := o.ensureValidSession(ctx, api, conn)
	if err != nil {
		return nil, err
	}
	if accounts != nil {
		return accounts, nil
	}
	return api.ListMonetaryAccounts(ctx, sess)
}

// Sync imports new payments for every mapped account of the household.
// A failure on one mapping is logged and does not stop the others; partial
// success is reported, not treated as total failure.
func (o *Orchestrator) Sync(ctx context.Context, householdID uuid.UUID, dateFrom time.Time) (SyncResult, error) {
	api, conn, err := o.dialHousehold(ctx, householdID)
	if err != nil {
		return SyncResult{}, err
	}

	mappings, err := o.maps.ListByConnection(ctx, conn.ID)
	if err != nil {
		return SyncResult{}, err
	}

	sess, probed, err := o.ensureValidSession(ctx, api, conn)
	if err != nil {
		return SyncResult{}, err
	}

	if len(mappings) == 0 {
		accounts := probed
		if accounts == nil {
			if accounts, err = api.ListMonetaryAccounts(ctx, sess); err != nil {
				return SyncResult{}, err
			}
		}
		return SyncResult{DateFrom: dateFrom, Accounts: accounts}, nil
	}

	// Mis-tagging money is worse than refusing to import: a missing default
	// for either direction is fatal for the whole household before any insert.
	defaults, err := o.resolveCategoryDefaults(ctx, householdID)
	if err != nil {
		return SyncResult{}, err
	}

	res := SyncResult{DateFrom: dateFrom}
	for _, m := range mappings {
		n, err := o.syncMapping(ctx, api, sess, householdID, m, dateFrom, defaults)
		if err != nil {
			o.log.Error("mapping sync failed",
				zap.Stringer("mapping_id", m.ID),
				zap.Int64("remote_account_id", m.RemoteAccountID),
				zap.Error(err),
			)
			continue
		}
		res.Imported += n
	}
	return res, nil
}

// dialHousehold loads the household's connection and opens a client signing
// with its key.
func (o *Orchestrator) dialHousehold(ctx context.Context, householdID uuid.UUID) (BankAPI, *model.Connection, error) {
	if o.apiKey == "" {
		return nil, nil, ErrAPIKeyMissing
	}
	conn, err := o.conns.GetByHousehold(ctx, householdID)
	if err != nil {
		return nil, nil, err
	}
	key, err := bunq.ParsePrivateKeyPEM(conn.PrivateKeyPEM)
	if err != nil {
		return nil, nil, err
	}
	return o.bank(key), conn, nil
}

// syncMapping runs pager, mapper and dedup sink for one account mapping.
func (o *Orchestrator) syncMapping(
	ctx context.Context,
	api BankAPI,
	sess bunq.Session,
	householdID uuid.UUID,
	m model.AccountMapping,
	dateFrom time.Time,
	defaults model.CategoryDefaults,
) (int, error) {
	payments, err := api.FetchPaymentsSince(ctx, sess, m.RemoteAccountID, dateFrom)
	if err != nil {
		return 0, err
	}
	if len(payments) == 0 {
		return 0, nil
	}

	cands := make([]model.Transaction, 0, len(payments))
	var maxID int64
	for _, p := range payments {
		t, err := mapPayment(householdID, m.AccountID, p, defaults)
		if err != nil {
			return 0, err
		}
		cands = append(cands, t)
		if p.ID > maxID {
			maxID = p.ID
		}
	}

	result, err := o.insertNew(ctx, householdID, m.AccountID, cands)
	if err != nil {
		return 0, err
	}

	// Advance only after a committed insert so a failed run re-covers the
	// same window next time.
	if err := o.maps.AdvanceWatermark(ctx, m.ID, maxID); err != nil {
		return result.Inserted, err
	}

	o.log.Info("imported payments",
		zap.Int64("remote_account_id", m.RemoteAccountID),
		zap.Int("inserted", result.Inserted),
		zap.Int("skipped", result.Skipped),
	)
	return result.Inserted, nil
}

// insertNew is the dedup sink: it fingerprints the candidate batch against
// the already-persisted rows in the batch's date range and inserts only the
// unseen remainder. Best effort, not a uniqueness constraint.
func (o *Orchestrator) insertNew(ctx context.Context, householdID, accountID uuid.UUID, cands []model.Transaction) (model.InsertResult, error) {
	if len(cands) == 0 {
		return model.InsertResult{}, nil
	}

	minDate, maxDate := cands[0].Date, cands[0].Date
	for _, c := range cands[1:] {
		if c.Date.Before(minDate) {
			minDate = c.Date
		}
		if c.Date.After(maxDate) {
			maxDate = c.Date
		}
	}

	existing, err := o.txs.ListInRange(ctx, householdID, []uuid.UUID{accountID}, minDate, maxDate)
	if err != nil {
		return model.InsertResult{}, err
	}
	seen := make(map[model.Fingerprint]struct{}, len(existing))
	for i := range existing {
		seen[existing[i].Fingerprint()] = struct{}{}
	}

	fresh := make([]model.Transaction, 0, len(cands))
	skipped := 0
	for _, c := range cands {
		fp := c.Fingerprint()
		if _, ok := seen[fp]; ok {
			skipped++
			continue
		}
		seen[fp] = struct{}{}
		fresh = append(fresh, c)
	}

	if len(fresh) > 0 {
		if err := o.txs.InsertBatch(ctx, fresh); err != nil {
			return model.InsertResult{}, err
		}
	}
	return model.InsertResult{Inserted: len(fresh), Skipped: skipped}, nil
}
