package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/philippemarquet/my-money-muse/internal/errs"
	"github.com/philippemarquet/my-money-muse/internal/model"
)

// ConnectionRepo implements ConnectionRepository using PostgreSQL.
type ConnectionRepo struct{ db *DB }

// NewConnectionRepo constructs a connection repository.
func NewConnectionRepo(db *DB) *ConnectionRepo { return &ConnectionRepo{db: db} }

// Upsert inserts the connection or replaces the existing row of the same
// household. Re-running bootstrap is safe: the new identity wins.
func (r *ConnectionRepo) Upsert(ctx context.Context, c *model.Connection) error {
	const q = `
INSERT INTO bunq_connections
  (id, household_id, private_key_pem, public_key_pem, installation_token,
   server_public_key, device_server_id, session_token, session_user_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (household_id) DO UPDATE SET
  private_key_pem = EXCLUDED.private_key_pem,
  public_key_pem = EXCLUDED.public_key_pem,
  installation_token = EXCLUDED.installation_token,
  server_public_key = EXCLUDED.server_public_key,
  device_server_id = EXCLUDED.device_server_id,
  session_token = EXCLUDED.session_token,
  session_user_id = EXCLUDED.session_user_id,
  updated_at = now()`
	_, err := r.db.Pool.Exec(ctx, q,
		c.ID, c.HouseholdID, c.PrivateKeyPEM, c.PublicKeyPEM, c.InstallationToken,
		c.ServerPublicKey, c.DeviceServerID, c.SessionToken, c.SessionUserID)
	return err
}

// GetByHousehold loads the household's connection.
func (r *ConnectionRepo) GetByHousehold(ctx context.Context, householdID uuid.UUID) (*model.Connection, error) {
	const q = `
SELECT id, household_id, private_key_pem, public_key_pem, installation_token,
       server_public_key, device_server_id, session_token, session_user_id,
       created_at, updated_at
FROM bunq_connections WHERE household_id=$1`
	row := r.db.Pool.QueryRow(ctx, q, householdID)
	var c model.Connection
	if err := row.Scan(&c.ID, &c.HouseholdID, &c.PrivateKeyPEM, &c.PublicKeyPEM,
		&c.InstallationToken, &c.ServerPublicKey, &c.DeviceServerID,
		&c.SessionToken, &c.SessionUserID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNoConnection
		}
		return nil, err
	}
	return &c, nil
}

// UpdateSession persists a renewed session on an existing connection.
func (r *ConnectionRepo) UpdateSession(ctx context.Context, id uuid.UUID, sessionToken string, sessionUserID int64) error {
	const q = `
UPDATE bunq_connections
SET session_token = $2, session_user_id = $3, updated_at = now()
WHERE id = $1`
	tag, err := r.db.Pool.Exec(ctx, q, id, sessionToken, sessionUserID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
