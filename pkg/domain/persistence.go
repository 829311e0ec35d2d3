package domain

import "context"

// Well-known storage keys.
const (
	// DraftKey holds the single in-progress invoice of the creation form.
	DraftKey = "invoiceData"
	// DraftDocumentKey holds the document reference attached to the draft.
	DraftDocumentKey = "invoicePdfData"
	// SessionUserKey holds the identifier of the last active user.
	SessionUserKey = "user"
)

// InvoicesKey returns the storage key holding a user's invoice collection.
func InvoicesKey(user string) string {
	return "invoices_" + user
}

// KeyValueStore is the persistent storage backend: a synchronous byte store
// addressed by string keys, without transactions.
type KeyValueStore interface {
	// Get returns the stored bytes and true, or nil and false when the key is absent.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set replaces the value stored under key.
	Set(ctx context.Context, key string, value []byte) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}
