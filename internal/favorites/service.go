package favorites

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/beat22/storefront-core/internal/catalog"
	pkgerrors "github.com/beat22/storefront-core/pkg/errors"
	"github.com/beat22/storefront-core/pkg/kv"
	"github.com/beat22/storefront-core/pkg/logger"
)

// Entry is a favorited track. Display fields are snapshotted at save time,
// same as cart entries, so catalog changes cannot corrupt the saved list.
type Entry struct {
	TrackID  int64     `json:"track_id"`
	Title    string    `json:"title"`
	Producer string    `json:"producer"`
	Image    string    `json:"image,omitempty"`
	AddedAt  time.Time `json:"added_at"`
}

// Service owns the favorites set. Set semantics keyed by track id; every
// mutation persists before returning.
type Service interface {
	Toggle(ctx context.Context, track catalog.Track) (bool, error)
	Add(ctx context.Context, track catalog.Track) error
	Remove(ctx context.Context, trackID int64) error
	IsFavorite(trackID int64) bool
	List() []Entry
}

type service struct {
	store kv.Store
	logg  *logger.Logger

	entries []Entry
}

// NewService loads the favorites record from the persistence port. A corrupt
// blob fails open to an empty set.
func NewService(ctx context.Context, store kv.Store, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("persistence store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}

	s := &service{store: store, logg: logg}
	blob, ok, err := store.Load(ctx, kv.KeyFavorites)
	if err != nil {
		logg.Error(ctx, "loading favorites record", err)
		return s, nil
	}
	if ok {
		if err := json.Unmarshal(blob, &s.entries); err != nil {
			corrupt := pkgerrors.Wrap(pkgerrors.CodeStorageCorrupt, err, "favorites record unreadable")
			logg.Warn(logg.WithField(ctx, "error", corrupt.Error()), "discarding corrupt favorites")
			s.entries = nil
		}
	}
	return s, nil
}

// Toggle flips the track's membership and reports whether it is now a
// favorite.
func (s *service) Toggle(ctx context.Context, track catalog.Track) (bool, error) {
	if s.IsFavorite(track.ID) {
		return false, s.Remove(ctx, track.ID)
	}
	return true, s.Add(ctx, track)
}

// Add inserts a snapshot entry keyed by track id. Adding an existing favorite
// is a no-op.
func (s *service) Add(ctx context.Context, track catalog.Track) error {
	if track.ID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "track id is required")
	}
	if s.IsFavorite(track.ID) {
		return nil
	}

	next := append(append([]Entry(nil), s.entries...), Entry{
		TrackID:  track.ID,
		Title:    track.Title,
		Producer: track.Producer,
		Image:    track.Image,
		AddedAt:  time.Now().UTC(),
	})
	if err := s.save(ctx, next); err != nil {
		return err
	}
	s.entries = next
	return nil
}

// Remove drops the entry for the track if present.
func (s *service) Remove(ctx context.Context, trackID int64) error {
	if !s.IsFavorite(trackID) {
		return nil
	}
	next := make([]Entry, 0, len(s.entries)-1)
	for _, entry := range s.entries {
		if entry.TrackID != trackID {
			next = append(next, entry)
		}
	}
	if err := s.save(ctx, next); err != nil {
		return err
	}
	s.entries = next
	return nil
}

func (s *service) IsFavorite(trackID int64) bool {
	for _, entry := range s.entries {
		if entry.TrackID == trackID {
			return true
		}
	}
	return false
}

// List returns the favorites in insertion order.
func (s *service) List() []Entry {
	return append([]Entry(nil), s.entries...)
}

func (s *service) save(ctx context.Context, entries []Entry) error {
	blob, err := json.Marshal(entries)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding favorites")
	}
	if err := s.store.Save(ctx, kv.KeyFavorites, blob); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting favorites")
	}
	return nil
}
