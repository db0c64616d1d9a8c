package kv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/beat22/storefront-core/pkg/config"
	"github.com/beat22/storefront-core/pkg/db"
)

func TestMemoryRoundTrip(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	if _, ok, err := store.Load(ctx, KeyCart); err != nil || ok {
		t.Fatalf("missing key should be (nil, false, nil), got ok=%v err=%v", ok, err)
	}

	if err := store.Save(ctx, KeyCart, []byte(`[{"track_id":7}]`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	blob, ok, err := store.Load(ctx, KeyCart)
	if err != nil || !ok {
		t.Fatalf("load after save: ok=%v err=%v", ok, err)
	}
	if string(blob) != `[{"track_id":7}]` {
		t.Fatalf("unexpected blob %s", blob)
	}

	// Mutating the returned slice must not corrupt the stored copy.
	blob[0] = 'X'
	again, _, _ := store.Load(ctx, KeyCart)
	if string(again) != `[{"track_id":7}]` {
		t.Fatalf("stored blob was aliased: %s", again)
	}
}

func TestFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFile(dir)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	ctx := context.Background()

	if _, ok, err := store.Load(ctx, KeyPurchases); err != nil || ok {
		t.Fatalf("missing key should be (nil, false, nil), got ok=%v err=%v", ok, err)
	}

	if err := store.Save(ctx, KeyPurchases, []byte(`[]`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	blob, ok, err := store.Load(ctx, KeyPurchases)
	if err != nil || !ok {
		t.Fatalf("load after save: ok=%v err=%v", ok, err)
	}
	if string(blob) != `[]` {
		t.Fatalf("unexpected blob %s", blob)
	}

	// Overwrites replace, and no temp files are left behind.
	if err := store.Save(ctx, KeyPurchases, []byte(`[{"order_id":"a"}]`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	for _, entry := range entries {
		if filepath.Ext(entry.Name()) == ".tmp" {
			t.Fatalf("temp file left behind: %s", entry.Name())
		}
	}
}

func TestNewFileRequiresDir(t *testing.T) {
	if _, err := NewFile(""); err == nil {
		t.Fatal("expected error for empty dir")
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	client, err := db.New(context.Background(), config.DBConfig{Path: ":memory:", MaxOpenConns: 1}, nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer client.Close()

	store, err := NewSQLite(client.DB(), true)
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	ctx := context.Background()

	if _, ok, err := store.Load(ctx, KeyPreferences); err != nil || ok {
		t.Fatalf("missing key should be (nil, false, nil), got ok=%v err=%v", ok, err)
	}

	if err := store.Save(ctx, KeyPreferences, []byte(`{"volume":0.5}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, KeyPreferences, []byte(`{"volume":0.9}`)); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	blob, ok, err := store.Load(ctx, KeyPreferences)
	if err != nil || !ok {
		t.Fatalf("load after save: ok=%v err=%v", ok, err)
	}
	if string(blob) != `{"volume":0.9}` {
		t.Fatalf("expected last write to win, got %s", blob)
	}
}

func TestNewSQLiteRequiresHandle(t *testing.T) {
	if _, err := NewSQLite(nil, false); err == nil {
		t.Fatal("expected error for nil handle")
	}
}

func TestNewRedisRequiresClient(t *testing.T) {
	if _, err := NewRedis(nil); err == nil {
		t.Fatal("expected error for nil client")
	}
}
