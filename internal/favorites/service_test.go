package favorites

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/beat22/storefront-core/internal/catalog"
	pkgerrors "github.com/beat22/storefront-core/pkg/errors"
	"github.com/beat22/storefront-core/pkg/kv"
	"github.com/beat22/storefront-core/pkg/logger"
)

type failingStore struct {
	inner kv.Store
}

func (f *failingStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	return f.inner.Load(ctx, key)
}

func (f *failingStore) Save(ctx context.Context, key string, blob []byte) error {
	return errors.New("disk full")
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newTestService(t *testing.T, store kv.Store) Service {
	t.Helper()
	svc, err := NewService(context.Background(), store, testLogger())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func track(id int64) catalog.Track {
	return catalog.Track{ID: id, Title: "Track", Producer: "Producer", Price: 699}
}

func TestToggleFlipsMembership(t *testing.T) {
	svc := newTestService(t, kv.NewMemory())
	ctx := context.Background()

	favored, err := svc.Toggle(ctx, track(1))
	if err != nil {
		t.Fatalf("toggle on: %v", err)
	}
	if !favored || !svc.IsFavorite(1) {
		t.Fatal("first toggle should favorite the track")
	}

	favored, err = svc.Toggle(ctx, track(1))
	if err != nil {
		t.Fatalf("toggle off: %v", err)
	}
	if favored || svc.IsFavorite(1) {
		t.Fatal("second toggle should unfavorite the track")
	}
	if len(svc.List()) != 0 {
		t.Fatalf("expected empty set, got %v", svc.List())
	}
}

func TestAddIsIdempotent(t *testing.T) {
	svc := newTestService(t, kv.NewMemory())
	ctx := context.Background()

	if err := svc.Add(ctx, track(7)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.Add(ctx, track(7)); err != nil {
		t.Fatalf("repeat add: %v", err)
	}
	if got := len(svc.List()); got != 1 {
		t.Fatalf("expected one entry, got %d", got)
	}
}

func TestAddRejectsMissingTrackID(t *testing.T) {
	svc := newTestService(t, kv.NewMemory())
	if err := svc.Add(context.Background(), catalog.Track{}); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRemoveAbsentEntryIsNoop(t *testing.T) {
	svc := newTestService(t, kv.NewMemory())
	if err := svc.Remove(context.Background(), 42); err != nil {
		t.Fatalf("removing absent entry must be a no-op, got %v", err)
	}
}

func TestMutationsPersistSynchronously(t *testing.T) {
	mem := kv.NewMemory()
	svc := newTestService(t, mem)
	ctx := context.Background()

	if err := svc.Add(ctx, track(3)); err != nil {
		t.Fatalf("add: %v", err)
	}
	blob, ok, _ := mem.Load(ctx, kv.KeyFavorites)
	if !ok {
		t.Fatal("favorites blob missing after Add returned")
	}
	var entries []Entry
	if err := json.Unmarshal(blob, &entries); err != nil || len(entries) != 1 {
		t.Fatalf("persisted favorites unreadable: %v (%s)", err, blob)
	}
}

func TestSaveFailureLeavesStateUntouched(t *testing.T) {
	svc := newTestService(t, &failingStore{inner: kv.NewMemory()})

	err := svc.Add(context.Background(), track(1))
	if !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if svc.IsFavorite(1) {
		t.Fatal("failed save must not leave a phantom favorite")
	}
}

func TestCorruptBlobFailsOpen(t *testing.T) {
	mem := kv.NewMemory()
	mem.Seed(kv.KeyFavorites, []byte("{not json"))

	svc := newTestService(t, mem)
	if len(svc.List()) != 0 {
		t.Fatal("corrupt blob should load as an empty set")
	}
	if err := svc.Add(context.Background(), track(2)); err != nil {
		t.Fatalf("add after corrupt load: %v", err)
	}
}

func TestStateSurvivesReload(t *testing.T) {
	mem := kv.NewMemory()
	svc := newTestService(t, mem)

	if err := svc.Add(context.Background(), track(5)); err != nil {
		t.Fatalf("add: %v", err)
	}
	reloaded := newTestService(t, mem)
	if !reloaded.IsFavorite(5) {
		t.Fatal("favorites should survive reload")
	}
}
