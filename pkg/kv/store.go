package kv

import "context"

// Well-known record keys used by the storefront core.
const (
	KeyCart        = "cart"
	KeyPurchases   = "purchases"
	KeyPreferences = "preferences"
	KeyFavorites   = "favorites"
)

// Store is the persistence port for durable state blobs. Implementations are
// synchronous: Save must not return before the blob is durably written.
type Store interface {
	// Load returns the blob stored at key. The boolean reports whether the
	// key existed; a missing key is not an error.
	Load(ctx context.Context, key string) ([]byte, bool, error)
	// Save writes the blob at key, replacing any previous value.
	Save(ctx context.Context, key string, blob []byte) error
}
