package service

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/philippemarquet/my-money-muse/internal/bunq"
	"github.com/philippemarquet/my-money-muse/internal/model"
)

// Bootstrap runs the one-time identity handshake for a household and
// persists the resulting connection. The three calls are sequential and the
// connection is written only after all of them succeed; partial identity
// state is never persisted. Safe to re-run: the upsert overwrites.
func (o *Orchestrator) Bootstrap(ctx context.Context, householdID uuid.UUID) (int64, error) {
	if o.apiKey == "" {
		return 0, ErrAPIKeyMissing
	}

	kp, err := bunq.GenerateKeyPair()
	if err != nil {
		return 0, err
	}
	api := o.bank(kp.Private)

	o.log.Info("creating installation", zap.Stringer("household_id", householdID))
	inst, err := api.CreateInstallation(ctx, kp.PublicPEM)
	if err != nil {
		return 0, fmt.Errorf("create installation: %w", err)
	}

	o.log.Info("registering device", zap.Stringer("household_id", householdID))
	deviceID, err := api.RegisterDevice(ctx, inst.Token, o.deviceName, o.apiKey)
	if err != nil {
		return 0, fmt.Errorf("register device: %w", err)
	}

	o.log.Info("creating session", zap.Stringer("household_id", householdID))
	sess, err := api.CreateSession(ctx, inst.Token, o.apiKey)
	if err != nil {
		return 0, fmt.Errorf("create session: %w", err)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return 0, err
	}
	conn := &model.Connection{
		ID:                id,
		HouseholdID:       householdID,
		PrivateKeyPEM:     kp.PrivatePEM,
		PublicKeyPEM:      kp.PublicPEM,
		InstallationToken: inst.Token,
		ServerPublicKey:   inst.ServerPublicKey,
		DeviceServerID:    deviceID,
		SessionToken:      sess.Token,
		SessionUserID:     sess.UserID,
	}
	if err := o.conns.Upsert(ctx, conn); err != nil {
		return 0, fmt.Errorf("persist connection: %w", err)
	}
	return sess.UserID, nil
}
