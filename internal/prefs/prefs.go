package prefs

import (
	"context"
	"encoding/json"
	"fmt"

	pkgerrors "github.com/beat22/storefront-core/pkg/errors"
	"github.com/beat22/storefront-core/pkg/kv"
	"github.com/beat22/storefront-core/pkg/logger"
)

// DefaultVolume matches the player's initial volume.
const DefaultVolume = 0.7

// Preferences is the persisted playback preferences record. Transport
// position and active track are deliberately ephemeral.
type Preferences struct {
	Volume float64 `json:"volume"`
}

// Store reads and writes the preferences record. It owns the preferences key
// exclusively; cart and purchase records belong to the ledger.
type Store struct {
	kv   kv.Store
	logg *logger.Logger
}

// NewStore wires a preferences store.
func NewStore(store kv.Store, logg *logger.Logger) (*Store, error) {
	if store == nil {
		return nil, fmt.Errorf("kv store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Store{kv: store, logg: logg}, nil
}

// Load returns the stored preferences, failing open to defaults when the
// record is missing, unreadable, or out of range.
func (s *Store) Load(ctx context.Context) Preferences {
	defaults := Preferences{Volume: DefaultVolume}

	blob, ok, err := s.kv.Load(ctx, kv.KeyPreferences)
	if err != nil {
		s.logg.Error(ctx, "loading preferences", err)
		return defaults
	}
	if !ok {
		return defaults
	}

	var loaded Preferences
	if err := json.Unmarshal(blob, &loaded); err != nil {
		corrupt := pkgerrors.Wrap(pkgerrors.CodeStorageCorrupt, err, "preferences record unreadable")
		s.logg.Warn(s.logg.WithField(ctx, "error", corrupt.Error()), "resetting preferences to defaults")
		return defaults
	}
	if loaded.Volume < 0 || loaded.Volume > 1 {
		s.logg.Warn(ctx, "stored volume out of range, resetting to default")
		return defaults
	}
	return loaded
}

// Save persists the preferences record synchronously.
func (s *Store) Save(ctx context.Context, prefs Preferences) error {
	blob, err := json.Marshal(prefs)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding preferences")
	}
	if err := s.kv.Save(ctx, kv.KeyPreferences, blob); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting preferences")
	}
	return nil
}
