package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/beat22/storefront-core/internal/catalog"
	pkgerrors "github.com/beat22/storefront-core/pkg/errors"
	"github.com/beat22/storefront-core/pkg/kv"
	"github.com/beat22/storefront-core/pkg/logger"
	"github.com/google/uuid"
)

type failingStore struct {
	inner   kv.Store
	failKey string
}

func (f *failingStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	return f.inner.Load(ctx, key)
}

func (f *failingStore) Save(ctx context.Context, key string, blob []byte) error {
	if key == f.failKey {
		return errors.New("disk full")
	}
	return f.inner.Save(ctx, key, blob)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newTestService(t *testing.T, store kv.Store) Service {
	t.Helper()
	svc, err := NewService(context.Background(), store, testLogger(), nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func track(id int64, price int64) catalog.Track {
	return catalog.Track{ID: id, Title: "Track", Producer: "Producer", Price: price}
}

func purchase(orderID uuid.UUID, trackID int64, price int64) Purchase {
	return Purchase{
		ID:          uuid.New(),
		OrderID:     orderID,
		TrackID:     trackID,
		Price:       price,
		Title:       "Track",
		Producer:    "Producer",
		PurchasedAt: time.Now().UTC(),
	}
}

func TestAddToCartIsIdempotent(t *testing.T) {
	svc := newTestService(t, kv.NewMemory())
	ctx := context.Background()

	if err := svc.AddToCart(ctx, track(7, 699)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.AddToCart(ctx, track(7, 999)); err != nil {
		t.Fatalf("repeat add: %v", err)
	}

	items := svc.CartItems()
	if len(items) != 1 {
		t.Fatalf("expected one entry, got %d", len(items))
	}
	if items[0].Price != 699 {
		t.Fatalf("price must not be re-captured, got %d", items[0].Price)
	}
}

func TestCartTotalAndRemove(t *testing.T) {
	svc := newTestService(t, kv.NewMemory())
	ctx := context.Background()

	if svc.CartTotal() != 0 {
		t.Fatalf("empty cart total should be 0, got %d", svc.CartTotal())
	}

	_ = svc.AddToCart(ctx, track(1, 699))
	_ = svc.AddToCart(ctx, track(2, 899))
	if svc.CartTotal() != 1598 {
		t.Fatalf("expected 1598, got %d", svc.CartTotal())
	}

	if err := svc.RemoveFromCart(ctx, 1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if svc.IsInCart(1) {
		t.Fatal("track 1 should be gone")
	}
	if err := svc.RemoveFromCart(ctx, 1); err != nil {
		t.Fatalf("removing absent entry must be a no-op, got %v", err)
	}
	if svc.CartTotal() != 899 {
		t.Fatalf("expected 899, got %d", svc.CartTotal())
	}
}

func TestRecordPurchaseIdempotentByOrderAndTrack(t *testing.T) {
	svc := newTestService(t, kv.NewMemory())
	ctx := context.Background()
	orderID := uuid.New()

	first := purchase(orderID, 1, 699)
	if err := svc.RecordPurchase(ctx, first); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := svc.RecordPurchase(ctx, first); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if got := len(svc.Purchases()); got != 1 {
		t.Fatalf("retried submission must not duplicate, got %d purchases", got)
	}

	// A second line of the same order is a distinct purchase, not a duplicate.
	if err := svc.RecordPurchase(ctx, purchase(orderID, 2, 899)); err != nil {
		t.Fatalf("second line: %v", err)
	}
	if got := len(svc.Purchases()); got != 2 {
		t.Fatalf("expected both order lines recorded, got %d", got)
	}
}

func TestRecordPurchaseValidation(t *testing.T) {
	svc := newTestService(t, kv.NewMemory())
	ctx := context.Background()

	bad := purchase(uuid.New(), 1, 100)
	bad.ID = uuid.Nil
	if err := svc.RecordPurchase(ctx, bad); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for missing id, got %v", err)
	}

	bad = purchase(uuid.Nil, 1, 100)
	if err := svc.RecordPurchase(ctx, bad); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for missing order id, got %v", err)
	}

	bad = purchase(uuid.New(), 0, 100)
	if err := svc.RecordPurchase(ctx, bad); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for missing track id, got %v", err)
	}
}

func TestDownloadGating(t *testing.T) {
	svc := newTestService(t, kv.NewMemory())
	ctx := context.Background()

	_ = svc.AddToCart(ctx, track(5, 499))
	if svc.CanDownload(5) {
		t.Fatal("cart membership must never grant downloads")
	}

	if err := svc.RecordPurchase(ctx, purchase(uuid.New(), 5, 499)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if !svc.CanDownload(5) {
		t.Fatal("download should be allowed immediately after commit")
	}

	// recordPurchase consumed the cart line; rights survive regardless.
	if svc.IsInCart(5) {
		t.Fatal("checkout should consume the cart entry")
	}
	_ = svc.RemoveFromCart(ctx, 5)
	if !svc.CanDownload(5) {
		t.Fatal("download rights must survive cart changes")
	}

	got, ok := svc.PurchaseFor(5)
	if !ok || got.TrackID != 5 {
		t.Fatalf("PurchaseFor(5) = %+v ok=%v", got, ok)
	}
}

func TestMutationsPersistSynchronously(t *testing.T) {
	mem := kv.NewMemory()
	svc := newTestService(t, mem)
	ctx := context.Background()

	_ = svc.AddToCart(ctx, track(7, 699))
	blob, ok, _ := mem.Load(ctx, kv.KeyCart)
	if !ok {
		t.Fatal("cart blob missing after AddToCart returned")
	}
	var entries []CartEntry
	if err := json.Unmarshal(blob, &entries); err != nil || len(entries) != 1 {
		t.Fatalf("persisted cart unreadable: %v (%s)", err, blob)
	}

	_ = svc.RecordPurchase(ctx, purchase(uuid.New(), 7, 699))
	if _, ok, _ := mem.Load(ctx, kv.KeyPurchases); !ok {
		t.Fatal("purchase blob missing after RecordPurchase returned")
	}
}

func TestSaveFailureLeavesStateUntouched(t *testing.T) {
	store := &failingStore{inner: kv.NewMemory(), failKey: kv.KeyCart}
	svc := newTestService(t, store)
	ctx := context.Background()

	err := svc.AddToCart(ctx, track(1, 100))
	if !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if svc.IsInCart(1) {
		t.Fatal("failed save must not leave a phantom cart entry")
	}
}

func TestCorruptBlobsFailOpen(t *testing.T) {
	mem := kv.NewMemory()
	mem.Seed(kv.KeyCart, []byte("{definitely not json"))
	mem.Seed(kv.KeyPurchases, []byte("also garbage"))

	svc := newTestService(t, mem)
	if len(svc.CartItems()) != 0 || len(svc.Purchases()) != 0 {
		t.Fatal("corrupt blobs should load as empty collections")
	}

	// The service still works after failing open.
	if err := svc.AddToCart(context.Background(), track(3, 300)); err != nil {
		t.Fatalf("add after corrupt load: %v", err)
	}
}

func TestStateSurvivesReload(t *testing.T) {
	mem := kv.NewMemory()
	svc := newTestService(t, mem)
	ctx := context.Background()

	_ = svc.AddToCart(ctx, track(1, 699))
	_ = svc.RecordPurchase(ctx, purchase(uuid.New(), 2, 899))

	reloaded := newTestService(t, mem)
	if !reloaded.IsInCart(1) {
		t.Fatal("cart should survive reload")
	}
	if !reloaded.CanDownload(2) {
		t.Fatal("purchases should survive reload")
	}
}

func TestClearCart(t *testing.T) {
	svc := newTestService(t, kv.NewMemory())
	ctx := context.Background()

	_ = svc.AddToCart(ctx, track(1, 100))
	_ = svc.AddToCart(ctx, track(2, 200))
	if err := svc.ClearCart(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(svc.CartItems()) != 0 || svc.CartTotal() != 0 {
		t.Fatal("cart should be empty after clear")
	}
	if err := svc.ClearCart(ctx); err != nil {
		t.Fatalf("clearing an empty cart must be a no-op, got %v", err)
	}
}
