package media

import (
	"context"
	"fmt"

	"github.com/beat22/storefront-core/internal/catalog"
	pkgerrors "github.com/beat22/storefront-core/pkg/errors"
)

// Source is a resolved, streamable media reference.
type Source struct {
	URI             string
	DurationSeconds float64
}

// Resolver turns a track id into a streamable source. Object-store backed
// implementations (signed URLs, CDN) plug in behind this port.
type Resolver interface {
	Resolve(ctx context.Context, trackID int64) (Source, error)
}

// CatalogResolver serves media references straight from catalog metadata,
// optionally falling back to a preview URI for tracks without audio.
type CatalogResolver struct {
	catalog     *catalog.Catalog
	fallbackURI string
}

// NewCatalogResolver builds a resolver over the given catalog. fallbackURI may
// be empty, in which case tracks without audio resolve to MediaUnavailable.
func NewCatalogResolver(cat *catalog.Catalog, fallbackURI string) (*CatalogResolver, error) {
	if cat == nil {
		return nil, fmt.Errorf("catalog required")
	}
	return &CatalogResolver{catalog: cat, fallbackURI: fallbackURI}, nil
}

func (r *CatalogResolver) Resolve(ctx context.Context, trackID int64) (Source, error) {
	track, ok := r.catalog.ByID(trackID)
	if !ok {
		return Source{}, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("track %d not in catalog", trackID))
	}
	uri := track.AudioURL
	if uri == "" {
		uri = r.fallbackURI
	}
	if uri == "" {
		return Source{}, pkgerrors.New(pkgerrors.CodeMediaUnavailable, fmt.Sprintf("track %d has no media reference", trackID))
	}
	return Source{URI: uri, DurationSeconds: track.DurationSeconds}, nil
}
