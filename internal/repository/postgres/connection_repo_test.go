package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/philippemarquet/my-money-muse/internal/errs"
	"github.com/philippemarquet/my-money-muse/internal/model"
)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

func TestConnectionRepo_Upsert(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewConnectionRepo(db)
	ctx := context.Background()

	c := &model.Connection{
		ID:                uuid.Must(uuid.NewV4()),
		HouseholdID:       uuid.Must(uuid.NewV4()),
		PrivateKeyPEM:     "prv",
		PublicKeyPEM:      "pub",
		InstallationToken: "inst",
		ServerPublicKey:   "srv",
		DeviceServerID:    42,
		SessionToken:      "sess",
		SessionUserID:     11,
	}

	mock.ExpectExec(`INSERT INTO bunq_connections`).
		WithArgs(c.ID, c.HouseholdID, c.PrivateKeyPEM, c.PublicKeyPEM, c.InstallationToken,
			c.ServerPublicKey, c.DeviceServerID, c.SessionToken, c.SessionUserID).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.Upsert(ctx, c))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectionRepo_GetByHousehold(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewConnectionRepo(db)
	ctx := context.Background()
	hh := uuid.Must(uuid.NewV4())
	id := uuid.Must(uuid.NewV4())
	now := time.Now()

	cols := []string{"id", "household_id", "private_key_pem", "public_key_pem", "installation_token",
		"server_public_key", "device_server_id", "session_token", "session_user_id", "created_at", "updated_at"}

	mock.ExpectQuery(`SELECT id, household_id, private_key_pem, public_key_pem, installation_token, server_public_key, device_server_id, session_token, session_user_id, created_at, updated_at FROM bunq_connections WHERE household_id=\$1`).
		WithArgs(hh).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow(id, hh, "prv", "pub", "inst", "srv", int64(42), "sess", int64(11), now, now))
	c, err := r.GetByHousehold(ctx, hh)
	require.NoError(t, err)
	require.Equal(t, id, c.ID)
	require.Equal(t, int64(11), c.SessionUserID)

	// A household without a connection maps to the setup-first sentinel.
	mock.ExpectQuery(`FROM bunq_connections WHERE household_id=\$1`).
		WithArgs(hh).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByHousehold(ctx, hh)
	require.ErrorIs(t, err, errs.ErrNoConnection)
}

func TestConnectionRepo_UpdateSession(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewConnectionRepo(db)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())

	mock.ExpectExec(`UPDATE bunq_connections SET session_token = \$2, session_user_id = \$3, updated_at = now\(\) WHERE id = \$1`).
		WithArgs(id, "new-sess", int64(12)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, r.UpdateSession(ctx, id, "new-sess", 12))

	mock.ExpectExec(`UPDATE bunq_connections`).
		WithArgs(id, "new-sess", int64(12)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	require.ErrorIs(t, r.UpdateSession(ctx, id, "new-sess", 12), errs.ErrNotFound)
}
