package ledger

import (
	"time"

	"github.com/google/uuid"
)

// CartEntry is a track pending checkout. Display fields are snapshotted at
// add time so a catalog change cannot corrupt an open cart.
type CartEntry struct {
	TrackID  int64     `json:"track_id"`
	Price    int64     `json:"price"`
	Title    string    `json:"title"`
	Producer string    `json:"producer"`
	Image    string    `json:"image,omitempty"`
	AddedAt  time.Time `json:"added_at"`
}

// Purchase is an immutable record that a track was paid for. Purchases made
// in one checkout share an order id.
type Purchase struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"order_id"`
	TrackID     int64     `json:"track_id"`
	Price       int64     `json:"price"`
	Title       string    `json:"title"`
	Producer    string    `json:"producer"`
	Image       string    `json:"image,omitempty"`
	PurchasedAt time.Time `json:"purchased_at"`
	DownloadRef string    `json:"download_ref,omitempty"`
}
