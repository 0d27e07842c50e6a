package manifest

import (
	"context"

	"github.com/agentic-research/assetcat/api"
	"github.com/agentic-research/assetcat/internal/catalog"
)

// Provider enumerates the bundles of an archive and the chunks that are
// referenced from the manifest rather than from a single bundle.
type Provider interface {
	// EnumerateBundles returns bundle descriptions in discovery order. A nil
	// entry is a description that could not be resolved.
	EnumerateBundles(ctx context.Context) ([]*api.Bundle, error)
	// EnumerateManifestChunks builds chunk records using cat's allocator.
	// The records are not registered; the loader merges them.
	EnumerateManifestChunks(ctx context.Context, cat *catalog.Catalog) ([]*catalog.ChunkRecord, error)
	// ManifestBased reports whether superbundle names are unavailable, in
	// which case every bundle is bound to a placeholder superbundle.
	ManifestBased() bool
}

// Extractor populates the catalog with one family of assets from a bundle.
// Implementations call the catalog's add operations directly and must be
// safe to run concurrently for different bundles.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, b *api.Bundle, bundleID int, cat *catalog.Catalog) error
}
