package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"
	"github.com/philippemarquet/my-money-muse/internal/model"
)

// MappingRepository stores local-account to remote-account links.
type MappingRepository interface {
	// ListByConnection returns all mappings of a connection.
	ListByConnection(ctx context.Context, connectionID uuid.UUID) ([]model.AccountMapping, error)
	// AdvanceWatermark raises last_payment_id; it never decreases it.
	AdvanceWatermark(ctx context.Context, id uuid.UUID, lastPaymentID int64) error
}
