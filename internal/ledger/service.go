package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/beat22/storefront-core/internal/catalog"
	pkgerrors "github.com/beat22/storefront-core/pkg/errors"
	"github.com/beat22/storefront-core/pkg/kv"
	"github.com/beat22/storefront-core/pkg/logger"
	"github.com/beat22/storefront-core/pkg/metrics"
	"github.com/google/uuid"
)

// Service owns the cart and purchase sets and is the single authority on
// download rights. Every mutation persists the affected collection before
// returning.
type Service interface {
	AddToCart(ctx context.Context, track catalog.Track) error
	RemoveFromCart(ctx context.Context, trackID int64) error
	IsInCart(trackID int64) bool
	CartItems() []CartEntry
	CartTotal() int64
	ClearCart(ctx context.Context) error

	RecordPurchase(ctx context.Context, purchase Purchase) error
	CanDownload(trackID int64) bool
	PurchaseFor(trackID int64) (Purchase, bool)
	Purchases() []Purchase
}

type service struct {
	store   kv.Store
	logg    *logger.Logger
	metrics *metrics.CommerceMetrics

	cart      []CartEntry
	purchases []Purchase
}

// NewService loads both collections from the persistence port. Corrupt blobs
// fail open to empty collections; losing state beats losing the session.
func NewService(ctx context.Context, store kv.Store, logg *logger.Logger, commerce *metrics.CommerceMetrics) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("persistence store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}

	s := &service{
		store:   store,
		logg:    logg,
		metrics: commerce,
	}
	s.cart = loadCollection[CartEntry](ctx, s, kv.KeyCart)
	s.purchases = loadCollection[Purchase](ctx, s, kv.KeyPurchases)
	return s, nil
}

func loadCollection[T any](ctx context.Context, s *service, key string) []T {
	blob, ok, err := s.store.Load(ctx, key)
	if err != nil {
		s.logg.Error(ctx, fmt.Sprintf("loading %s collection", key), err)
		return nil
	}
	if !ok {
		return nil
	}
	var items []T
	if err := json.Unmarshal(blob, &items); err != nil {
		corrupt := pkgerrors.Wrap(pkgerrors.CodeStorageCorrupt, err, fmt.Sprintf("%s record unreadable", key))
		s.logg.Warn(s.logg.WithField(ctx, "error", corrupt.Error()), "discarding corrupt collection")
		return nil
	}
	return items
}

// AddToCart inserts a snapshot entry keyed by track id. Adding a track that
// is already carted is a no-op; the captured price is not refreshed.
func (s *service) AddToCart(ctx context.Context, track catalog.Track) error {
	if track.ID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "track id is required")
	}
	if s.IsInCart(track.ID) {
		return nil
	}

	next := append(append([]CartEntry(nil), s.cart...), CartEntry{
		TrackID:  track.ID,
		Price:    track.Price,
		Title:    track.Title,
		Producer: track.Producer,
		Image:    track.Image,
		AddedAt:  time.Now().UTC(),
	})
	if err := s.saveCart(ctx, next); err != nil {
		return err
	}
	s.cart = next
	return nil
}

// RemoveFromCart drops the entry for the track if present.
func (s *service) RemoveFromCart(ctx context.Context, trackID int64) error {
	if !s.IsInCart(trackID) {
		return nil
	}
	next := make([]CartEntry, 0, len(s.cart)-1)
	for _, entry := range s.cart {
		if entry.TrackID != trackID {
			next = append(next, entry)
		}
	}
	if err := s.saveCart(ctx, next); err != nil {
		return err
	}
	s.cart = next
	return nil
}

func (s *service) IsInCart(trackID int64) bool {
	for _, entry := range s.cart {
		if entry.TrackID == trackID {
			return true
		}
	}
	return false
}

// CartItems returns the entries in insertion order.
func (s *service) CartItems() []CartEntry {
	return append([]CartEntry(nil), s.cart...)
}

// CartTotal sums the captured prices; 0 for an empty cart.
func (s *service) CartTotal() int64 {
	var total int64
	for _, entry := range s.cart {
		total += entry.Price
	}
	return total
}

// ClearCart empties the cart without touching purchases.
func (s *service) ClearCart(ctx context.Context) error {
	if len(s.cart) == 0 {
		return nil
	}
	if err := s.saveCart(ctx, []CartEntry{}); err != nil {
		return err
	}
	s.cart = nil
	return nil
}

// RecordPurchase appends a purchase unless the same (order id, track id) pair
// was already recorded, which makes retried submissions no-ops without
// swallowing the other lines of a multi-track order. A recorded purchase also
// consumes the matching cart entry.
func (s *service) RecordPurchase(ctx context.Context, purchase Purchase) error {
	if purchase.ID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "purchase id is required")
	}
	if purchase.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if purchase.TrackID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "track id is required")
	}

	for _, existing := range s.purchases {
		if existing.OrderID == purchase.OrderID && existing.TrackID == purchase.TrackID {
			return nil
		}
	}

	next := append(append([]Purchase(nil), s.purchases...), purchase)
	if err := s.savePurchases(ctx, next); err != nil {
		return err
	}
	s.purchases = next
	s.metrics.IncPurchaseRecorded()

	if err := s.RemoveFromCart(ctx, purchase.TrackID); err != nil {
		// The purchase is durably recorded; a stale cart line is a cosmetic
		// failure, not a reason to report the purchase as lost.
		s.logg.Error(s.logg.WithTrackID(ctx, purchase.TrackID), "removing purchased track from cart", err)
	}
	return nil
}

// CanDownload reports whether a purchase exists for the track. Cart state is
// never consulted.
func (s *service) CanDownload(trackID int64) bool {
	_, ok := s.PurchaseFor(trackID)
	return ok
}

// PurchaseFor returns the purchase granting download rights for the track.
func (s *service) PurchaseFor(trackID int64) (Purchase, bool) {
	for _, purchase := range s.purchases {
		if purchase.TrackID == trackID {
			return purchase, true
		}
	}
	return Purchase{}, false
}

// Purchases returns the append-only purchase set in record order.
func (s *service) Purchases() []Purchase {
	return append([]Purchase(nil), s.purchases...)
}

func (s *service) saveCart(ctx context.Context, entries []CartEntry) error {
	blob, err := json.Marshal(entries)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding cart")
	}
	if err := s.store.Save(ctx, kv.KeyCart, blob); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting cart")
	}
	return nil
}

func (s *service) savePurchases(ctx context.Context, purchases []Purchase) error {
	blob, err := json.Marshal(purchases)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding purchases")
	}
	if err := s.store.Save(ctx, kv.KeyPurchases, blob); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting purchases")
	}
	return nil
}
