package manifest

import (
	"context"
	"errors"
	"fmt"

	"github.com/agentic-research/assetcat/api"
	"github.com/agentic-research/assetcat/internal/catalog"
	"github.com/google/uuid"
)

// DefaultExtractors returns the ebx, res and chunk extractors, in that order.
func DefaultExtractors() []Extractor {
	return []Extractor{EbxExtractor{}, ResExtractor{}, ChunkExtractor{}}
}

// EbxExtractor registers a bundle's structured-data assets.
type EbxExtractor struct{}

func (EbxExtractor) Name() string { return "ebx" }

func (EbxExtractor) Extract(ctx context.Context, b *api.Bundle, bundleID int, cat *catalog.Catalog) error {
	return extractAssets(ctx, cat, catalog.KindEbx, b.Ebx, bundleID)
}

// ResExtractor registers a bundle's resource assets.
type ResExtractor struct{}

func (ResExtractor) Name() string { return "res" }

func (ResExtractor) Extract(ctx context.Context, b *api.Bundle, bundleID int, cat *catalog.Catalog) error {
	return extractAssets(ctx, cat, catalog.KindRes, b.Res, bundleID)
}

// ChunkExtractor registers a bundle's chunks, deduplicated by chunk id.
type ChunkExtractor struct{}

func (ChunkExtractor) Name() string { return "chunk" }

func (ChunkExtractor) Extract(ctx context.Context, b *api.Bundle, bundleID int, cat *catalog.Catalog) error {
	for i := range b.Chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		d := &b.Chunks[i]
		id, err := uuid.Parse(d.ID)
		if err != nil {
			return fmt.Errorf("chunk %q: %w", d.ID, err)
		}
		if existing, ok := cat.FindChunk(id); ok {
			existing.AddOriginalBundle(bundleID)
			continue
		}
		ch, err := buildChunk(cat, id, d)
		if err != nil {
			return err
		}
		rec, _ := cat.LoadOrAddChunk(ch)
		rec.AddOriginalBundle(bundleID)
	}
	return nil
}

func extractAssets(ctx context.Context, cat *catalog.Catalog, kind catalog.Kind, descs []api.Asset, bundleID int) error {
	for i := range descs {
		if err := ctx.Err(); err != nil {
			return err
		}
		d := &descs[i]
		if d.Name == "" {
			return fmt.Errorf("%s #%d: %w", kind, i, errMissingName)
		}
		if existing, err := cat.GetAssetByName(kind, d.Name); err == nil {
			existing.AddOriginalBundle(bundleID)
			continue
		}

		a := cat.NewAsset(kind, d.Name)
		if err := fillAsset(a, d); err != nil {
			return fmt.Errorf("%s %s: %w", kind, d.Name, err)
		}
		// Another bundle may have registered the same name meanwhile.
		rec, _ := cat.LoadOrAddAsset(a)
		rec.AddOriginalBundle(bundleID)
	}
	return nil
}

var errMissingName = errors.New("missing name")

func fillAsset(a *catalog.AssetRecord, d *api.Asset) error {
	var err error
	a.Type = d.Type
	a.Size = d.Size
	a.OriginalSize = d.OriginalSize
	a.IsInline = d.Inline
	if a.ContentHash, err = catalog.ParseSha1(d.Sha1); err != nil {
		return err
	}
	if a.BaseContentHash, err = catalog.ParseSha1(d.BaseSha1); err != nil {
		return err
	}
	if a.Location, err = catalog.ParseLocation(d.Location); err != nil {
		return err
	}
	a.ExtraData, err = convertExtra(d.Extra)
	return err
}

// buildChunk creates an unregistered chunk record from a descriptor.
func buildChunk(cat *catalog.Catalog, id uuid.UUID, d *api.Chunk) (*catalog.ChunkRecord, error) {
	ch := cat.NewChunk(id)
	var err error
	if ch.ContentHash, err = catalog.ParseSha1(d.Sha1); err != nil {
		return nil, fmt.Errorf("chunk %s: %w", d.ID, err)
	}
	if ch.Location, err = catalog.ParseLocation(d.Location); err != nil {
		return nil, fmt.Errorf("chunk %s: %w", d.ID, err)
	}
	if ch.ExtraData, err = convertExtra(d.Extra); err != nil {
		return nil, fmt.Errorf("chunk %s: %w", d.ID, err)
	}
	ch.Size = d.Size
	ch.IsInline = d.Inline
	ch.LogicalOffset = d.LogicalOffset
	ch.LogicalSize = d.LogicalSize
	ch.RangeStart = d.RangeStart
	ch.RangeEnd = d.RangeEnd
	ch.FirstMip = d.FirstMip
	ch.SetOwnerHash32(d.H32)
	if len(d.SuperBundles) > 0 {
		ch.AddSuperBundles(d.SuperBundles...)
	}
	return ch, nil
}

// buildChunks converts manifest-level chunk descriptors.
func buildChunks(ctx context.Context, cat *catalog.Catalog, descs []api.Chunk) ([]*catalog.ChunkRecord, error) {
	out := make([]*catalog.ChunkRecord, 0, len(descs))
	for i := range descs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(descs[i].ID)
		if err != nil {
			return nil, fmt.Errorf("chunk %q: %w", descs[i].ID, err)
		}
		ch, err := buildChunk(cat, id, &descs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, nil
}

func convertExtra(d *api.ExtraData) (*catalog.ExtraData, error) {
	if d == nil {
		return nil, nil
	}
	base, err := catalog.ParseSha1(d.BaseSha1)
	if err != nil {
		return nil, err
	}
	delta, err := catalog.ParseSha1(d.DeltaSha1)
	if err != nil {
		return nil, err
	}
	return &catalog.ExtraData{
		BaseHash:      base,
		DeltaHash:     delta,
		DataOffset:    d.DataOffset,
		SuperBundleID: d.SuperBundleID,
		IsPatch:       d.IsPatch,
		StorePath:     d.CasPath,
	}, nil
}
