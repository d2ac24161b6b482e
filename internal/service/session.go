package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/philippemarquet/my-money-muse/internal/bunq"
	"github.com/philippemarquet/my-money-muse/internal/model"
)

// ensureValidSession confirms the stored session is usable, lazily: it
// probes with the account list and renews at most once on any failure,
// without distinguishing expiry from revocation. A second failure
// propagates; the next scheduled run is the retry mechanism.
//
// The probe's account list is returned on success so callers that need it
// do not repeat the call. It is nil after a renewal.
func (o *Orchestrator) ensureValidSession(ctx context.Context, api BankAPI, conn *model.Connection) (bunq.Session, []bunq.MonetaryAccount, error) {
	sess := bunq.Session{Token: conn.SessionToken, UserID: conn.SessionUserID}
	accounts, err := api.ListMonetaryAccounts(ctx, sess)
	if err == nil {
		return sess, accounts, nil
	}
	o.log.Info("session probe failed, renewing",
		zap.Stringer("connection_id", conn.ID),
		zap.Error(err),
	)

	fresh, err := api.CreateSession(ctx, conn.InstallationToken, o.apiKey)
	if err != nil {
		return bunq.Session{}, nil, fmt.Errorf("renew session: %w", err)
	}
	if err := o.conns.UpdateSession(ctx, conn.ID, fresh.Token, fresh.UserID); err != nil {
		return bunq.Session{}, nil, fmt.Errorf("persist renewed session: %w", err)
	}
	conn.SessionToken = fresh.Token
	conn.SessionUserID = fresh.UserID
	return fresh, nil, nil
}
