package catalog

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
)

// Catalog is the read-only set of purchasable tracks. The core never mutates
// it; commerce components copy fields into their own snapshots.
type Catalog struct {
	tracks []Track
	byID   map[int64]Track
}

// New validates the provided tracks and indexes them by id.
func New(tracks []Track) (*Catalog, error) {
	validate := validator.New()
	byID := make(map[int64]Track, len(tracks))
	for _, track := range tracks {
		if err := validate.Struct(track); err != nil {
			return nil, fmt.Errorf("invalid track %d: %w", track.ID, err)
		}
		if _, exists := byID[track.ID]; exists {
			return nil, fmt.Errorf("duplicate track id %d", track.ID)
		}
		byID[track.ID] = track
	}
	return &Catalog{
		tracks: append([]Track(nil), tracks...),
		byID:   byID,
	}, nil
}

// LoadFile reads a JSON track list. Listed prices may be decimal strings, so
// the wire shape differs from Track.
func LoadFile(path string) (*Catalog, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	type wireTrack struct {
		Track
		Price json.RawMessage `json:"price"`
	}
	var wire []wireTrack
	if err := json.Unmarshal(blob, &wire); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}

	tracks := make([]Track, 0, len(wire))
	for _, entry := range wire {
		track := entry.Track
		if len(entry.Price) > 0 {
			var asString string
			if err := json.Unmarshal(entry.Price, &asString); err != nil {
				// Not a string; fall back to a bare number.
				if err := json.Unmarshal(entry.Price, &track.Price); err != nil {
					return nil, fmt.Errorf("track %d: unreadable price %s", track.ID, entry.Price)
				}
			} else {
				price, err := ParsePrice(asString)
				if err != nil {
					return nil, fmt.Errorf("track %d: %w", track.ID, err)
				}
				track.Price = price
			}
		}
		tracks = append(tracks, track)
	}
	return New(tracks)
}

// ByID returns the track with the given id.
func (c *Catalog) ByID(id int64) (Track, bool) {
	track, ok := c.byID[id]
	return track, ok
}

// List returns the tracks in catalog order.
func (c *Catalog) List() []Track {
	return append([]Track(nil), c.tracks...)
}

// Len returns the number of tracks.
func (c *Catalog) Len() int {
	return len(c.tracks)
}
