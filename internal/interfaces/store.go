package interfaces

import (
	"context"
	"errors"

	"github.com/cardbank/ledger/internal/models"
)

// ErrNoRecord is returned by stores when a lookup targets an id that has no
// row in the snapshot table.
var ErrNoRecord = errors.New("no such record")

// Store is the durable backing for the transaction log: an append-only audit
// table plus a current-state account snapshot table. Implementations are not
// required to be safe for concurrent use; the log worker is the only caller.
type Store interface {
	// Audit table.
	AppendEntry(ctx context.Context, entry models.LedgerEntry) error
	EntriesByAccount(ctx context.Context, accountID string) ([]models.LedgerEntry, error)
	PurgeEntries(ctx context.Context) error

	// Snapshot table.
	UpsertAccount(ctx context.Context, rec models.AccountRecord) error
	UpdateCash(ctx context.Context, id string, cash int64) error
	UpdateProperties(ctx context.Context, id string, properties []string) error
	SetCredentials(ctx context.Context, id string, salt, hash []byte) error
	DeleteAccount(ctx context.Context, id string) error
	AllAccounts(ctx context.Context) ([]models.AccountRecord, error)
	PurgeAccounts(ctx context.Context) error

	Close() error
}
