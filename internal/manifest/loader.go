package manifest

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"time"

	"github.com/agentic-research/assetcat/api"
	"github.com/agentic-research/assetcat/internal/catalog"
	"golang.org/x/sync/errgroup"
)

// PlaceholderSuperBundle names the single superbundle registered for
// manifest-based sources, whose real superbundle names are not known.
const PlaceholderSuperBundle = "<none>"

// Loader builds a catalog from a Provider in a single pass. Bundles are
// extracted concurrently; the first collaborator error aborts the load and
// leaves the catalog partially populated, so callers must discard it.
type Loader struct {
	Provider   Provider
	Extractors []Extractor
	// Workers bounds concurrent bundle extraction. Zero means GOMAXPROCS.
	Workers int
}

func NewLoader(p Provider) *Loader {
	return &Loader{
		Provider:   p,
		Extractors: DefaultExtractors(),
	}
}

type bundleJob struct {
	desc *api.Bundle
	id   int
}

// Load populates cat.
func (l *Loader) Load(ctx context.Context, cat *catalog.Catalog) error {
	start := time.Now()
	log.Printf("manifest: loading data from manifest")

	descs, err := l.Provider.EnumerateBundles(ctx)
	if err != nil {
		return fmt.Errorf("enumerate bundles: %w", err)
	}

	placeholder := -1
	if l.Provider.ManifestBased() {
		placeholder = cat.AddSuperBundle(catalog.SuperBundleRecord{Name: PlaceholderSuperBundle})
	}

	// Identifiers are assigned up front, in discovery order, so they do not
	// depend on worker scheduling.
	jobs := make([]bundleJob, 0, len(descs))
	skipped := 0
	for _, d := range descs {
		if d == nil {
			skipped++
			continue
		}
		sbID := placeholder
		if sbID < 0 {
			sbID = superBundleID(cat, d.SuperBundle)
		}
		id := cat.AddBundle(catalog.BundleRecord{
			Name:          d.Name,
			SuperBundleID: sbID,
			Type:          catalog.ParseBundleType(d.Type),
		})
		jobs = append(jobs, bundleJob{desc: d, id: id})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers())
	for _, j := range jobs {
		g.Go(func() error {
			return l.extractBundle(gctx, cat, j)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	chunks, err := l.Provider.EnumerateManifestChunks(ctx, cat)
	if err != nil {
		return fmt.Errorf("enumerate manifest chunks: %w", err)
	}
	added, merged := MergeChunks(cat, chunks)

	log.Printf("manifest: %d bundles (%d unavailable), %d manifest chunks (%d new, %d merged) in %s",
		len(jobs), skipped, len(chunks), added, merged, time.Since(start).Round(time.Millisecond))
	return nil
}

func (l *Loader) extractBundle(ctx context.Context, cat *catalog.Catalog, j bundleJob) error {
	for _, ex := range l.Extractors {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := ex.Extract(ctx, j.desc, j.id, cat); err != nil {
			return fmt.Errorf("bundle %s: %s: %w", j.desc.Name, ex.Name(), err)
		}
	}
	return nil
}

func (l *Loader) workers() int {
	if l.Workers > 0 {
		return l.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// MergeChunks registers chunks that are new to cat. For chunks already
// present, the superbundle references are appended to the existing record
// without deduplication.
func MergeChunks(cat *catalog.Catalog, chunks []*catalog.ChunkRecord) (added, merged int) {
	for _, ch := range chunks {
		if ch == nil {
			continue
		}
		existing, loaded := cat.LoadOrAddChunk(ch)
		if !loaded {
			added++
			continue
		}
		existing.AddSuperBundles(ch.SuperBundles()...)
		merged++
	}
	return added, merged
}

// superBundleID resolves or registers a named superbundle. Only called from
// the loader's sequential phase.
func superBundleID(cat *catalog.Catalog, name string) int {
	if name == "" {
		name = PlaceholderSuperBundle
	}
	if id, err := cat.GetSuperBundleID(name); err == nil {
		return id
	}
	return cat.AddSuperBundle(catalog.SuperBundleRecord{Name: name})
}
