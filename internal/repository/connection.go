// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"
	"github.com/philippemarquet/my-money-muse/internal/model"
)

// ConnectionRepository stores per-household bank credentials.
type ConnectionRepository interface {
	// Upsert inserts or replaces the connection for its household.
	Upsert(ctx context.Context, c *model.Connection) error
	// GetByHousehold loads the single connection of a household.
	GetByHousehold(ctx context.Context, householdID uuid.UUID) (*model.Connection, error)
	// UpdateSession persists a renewed session token and remote user id.
	UpdateSession(ctx context.Context, id uuid.UUID, sessionToken string, sessionUserID int64) error
}
