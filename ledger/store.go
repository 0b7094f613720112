/*
store.go - Persistence interface for raw records

PURPOSE:
  Defines the interface between the engine and the external data store.
  The store speaks RAW records only: it returns whatever historical shape
  was persisted and accepts the canonical shape back as a raw record. The
  engine never assumes the store enforces any schema - every record read
  from a Store passes through normalize.go before use.

IMPLEMENTATIONS:
  - store/sqlite:      Production SQLite store (raw JSON blobs per record)
  - ledger/store:      In-memory store for tests and dev

SEE ALSO:
  - cache.go: The only consumer of this interface
  - normalize.go: Makes the raw records safe to use
*/
package ledger

import "context"

// Store is the external data-store collaborator. All operations are scoped
// to one user; Delete takes only the record id because ids are globally
// unique, and returns ErrRecordNotFound when the id does not exist.
// Implementations return records verbatim - no normalization.
type Store interface {
	ListLoops(ctx context.Context, userID string) ([]RawRecord, error)
	UpsertLoop(ctx context.Context, userID string, raw RawRecord) (RawRecord, error)
	DeleteLoop(ctx context.Context, id string) error

	ListExpenses(ctx context.Context, userID string) ([]RawRecord, error)
	UpsertExpense(ctx context.Context, userID string, raw RawRecord) (RawRecord, error)
	DeleteExpense(ctx context.Context, id string) error

	// LoadSettings returns (nil, nil) when the user has never saved
	// settings; callers fall back to defaults via NormalizeSettings(nil).
	LoadSettings(ctx context.Context, userID string) (RawRecord, error)
	SaveSettings(ctx context.Context, userID string, raw RawRecord) (RawRecord, error)
}
