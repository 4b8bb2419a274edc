package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/joefazee/marketcore/models"
)

// Repository defines the data access the ledger needs
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListUserIDs(ctx context.Context) ([]uuid.UUID, error)

	// CompareAndSwapUser writes balance, version and counters only if the
	// stored ledger_version still equals expectedVersion.
	CompareAndSwapUser(ctx context.Context, user *models.User, expectedVersion int64) (bool, error)
	CreateEntry(ctx context.Context, entry *models.LedgerEntry) error

	ListEntries(ctx context.Context, userID uuid.UUID, filters *EntryFilters) ([]models.LedgerEntry, int64, error)
	AllEntries(ctx context.Context, userID uuid.UUID) ([]models.LedgerEntry, error)
}
