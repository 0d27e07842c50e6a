package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/agentic-research/assetcat/api"
	"github.com/agentic-research/assetcat/internal/catalog"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

const (
	DefaultBundleSelector = "$.bundles[*]"
	DefaultChunkSelector  = "$.chunks[*]"
)

// JSONProvider reads a manifest document from a JSON file. Bundles and
// manifest chunks are selected with JSONPath expressions, so manifests that
// nest them differently can still be read.
type JSONProvider struct {
	Path           string
	BundleSelector string
	ChunkSelector  string

	once sync.Once
	doc  any
	err  error
}

func NewJSONProvider(path string) *JSONProvider {
	return &JSONProvider{
		Path:           path,
		BundleSelector: DefaultBundleSelector,
		ChunkSelector:  DefaultChunkSelector,
	}
}

// ManifestBased implements Provider.
func (p *JSONProvider) ManifestBased() bool { return true }

func (p *JSONProvider) load() (any, error) {
	p.once.Do(func() {
		content, err := os.ReadFile(p.Path)
		if err != nil {
			p.err = err
			return
		}
		if p.doc, err = oj.Parse(content); err != nil {
			p.err = fmt.Errorf("failed to parse json %s: %w", p.Path, err)
		}
	})
	return p.doc, p.err
}

// query runs selector against the document and decodes each match into a
// fresh T. Null matches decode to nil.
func query[T any](p *JSONProvider, selector string) ([]*T, error) {
	doc, err := p.load()
	if err != nil {
		return nil, err
	}
	x, err := jp.ParseString(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", selector, err)
	}

	results := x.Get(doc)
	out := make([]*T, 0, len(results))
	for i, r := range results {
		if r == nil {
			out = append(out, nil)
			continue
		}
		v := new(T)
		if err := json.Unmarshal([]byte(oj.JSON(r)), v); err != nil {
			return nil, fmt.Errorf("decode match %d of '%s': %w", i, selector, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// EnumerateBundles implements Provider.
func (p *JSONProvider) EnumerateBundles(ctx context.Context) ([]*api.Bundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return query[api.Bundle](p, p.BundleSelector)
}

// EnumerateManifestChunks implements Provider.
func (p *JSONProvider) EnumerateManifestChunks(ctx context.Context, cat *catalog.Catalog) ([]*catalog.ChunkRecord, error) {
	matches, err := query[api.Chunk](p, p.ChunkSelector)
	if err != nil {
		return nil, err
	}
	descs := make([]api.Chunk, 0, len(matches))
	for _, m := range matches {
		if m != nil {
			descs = append(descs, *m)
		}
	}
	return buildChunks(ctx, cat, descs)
}

var _ Provider = (*JSONProvider)(nil)
