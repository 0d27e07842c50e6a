package catalog

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/agentic-research/assetcat/internal/ident"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("record not found")

// BundleType classifies a bundle.
type BundleType uint8

const (
	BundleTypeNone BundleType = iota
	BundleTypeSubLevel
	BundleTypeBlueprint
	BundleTypeShared
)

// ParseBundleType maps a manifest bundle type name to a BundleType.
func ParseBundleType(s string) BundleType {
	switch strings.ToLower(s) {
	case "sublevel":
		return BundleTypeSubLevel
	case "blueprint", "blueprintbundle":
		return BundleTypeBlueprint
	case "shared", "sharedbundle":
		return BundleTypeShared
	default:
		return BundleTypeNone
	}
}

// BundleRecord is a named collection of assets within one superbundle.
// Its position in the catalog's bundle table is its identifier.
type BundleRecord struct {
	Name          string
	SuperBundleID int
	Type          BundleType
	Added         bool
}

// SuperBundleRecord groups bundles one level up the hierarchy.
type SuperBundleRecord struct {
	Name  string
	Added bool
}

// Stats summarizes catalog contents.
type Stats struct {
	SuperBundles int
	Bundles      int
	Ebx          int
	Res          int
	Chunks       int
	Modified     int
}

// Catalog owns every asset, bundle and superbundle record and is the only
// place identifiers are resolved. Each table family has its own lock, held
// only for the insertion or lookup itself.
type Catalog struct {
	alloc *ident.Allocator
	hooks *Notifier

	bundleMu      sync.RWMutex
	superBundles  []*SuperBundleRecord
	bundles       []*BundleRecord
	bundlesByName map[string]int
	superByName   map[string]int

	assetMu   sync.RWMutex
	assets    map[uint32]*AssetRecord
	ebxByName map[string]*AssetRecord
	resByName map[string]*AssetRecord

	chunkMu sync.RWMutex
	chunks  map[uuid.UUID]*ChunkRecord
}

// New creates an empty catalog drawing record ids from alloc. A nil alloc
// means ident.Default.
func New(alloc *ident.Allocator) *Catalog {
	if alloc == nil {
		alloc = ident.Default
	}
	return &Catalog{
		alloc:         alloc,
		hooks:         &Notifier{},
		bundlesByName: make(map[string]int),
		superByName:   make(map[string]int),
		assets:        make(map[uint32]*AssetRecord),
		ebxByName:     make(map[string]*AssetRecord),
		resByName:     make(map[string]*AssetRecord),
		chunks:        make(map[uuid.UUID]*ChunkRecord),
	}
}

// Subscribe registers fn for modification events on every record created by
// this catalog.
func (c *Catalog) Subscribe(fn ModifiedFunc) (unsubscribe func()) {
	return c.hooks.Subscribe(fn)
}

// NewAsset builds an ebx or res record with a fresh id. The record is not
// registered until AddAsset.
func (c *Catalog) NewAsset(kind Kind, name string) *AssetRecord {
	if kind == KindChunk {
		panic("catalog: NewAsset called with KindChunk, use NewChunk")
	}
	return newAssetRecord(c.alloc.Next(), kind, name, c.hooks)
}

// NewChunk builds a chunk record with a fresh id. Its Name is the chunk id.
func (c *Catalog) NewChunk(chunkID uuid.UUID) *ChunkRecord {
	cr := &ChunkRecord{ChunkID: chunkID}
	cr.id = c.alloc.Next()
	cr.kind = KindChunk
	cr.Name = chunkID.String()
	cr.hooks = c.hooks
	cr.chunk = cr
	return cr
}

// -----------------------------------------------------------------------------
// Bundles
// -----------------------------------------------------------------------------

// AddSuperBundle appends sb and returns its identifier.
func (c *Catalog) AddSuperBundle(sb SuperBundleRecord) int {
	c.bundleMu.Lock()
	defer c.bundleMu.Unlock()
	id := len(c.superBundles)
	c.superBundles = append(c.superBundles, &sb)
	key := strings.ToLower(sb.Name)
	if _, ok := c.superByName[key]; !ok {
		c.superByName[key] = id
	}
	return id
}

// AddBundle appends b and returns its identifier.
func (c *Catalog) AddBundle(b BundleRecord) int {
	c.bundleMu.Lock()
	defer c.bundleMu.Unlock()
	id := len(c.bundles)
	c.bundles = append(c.bundles, &b)
	key := strings.ToLower(b.Name)
	if _, ok := c.bundlesByName[key]; !ok {
		c.bundlesByName[key] = id
	}
	return id
}

func (c *Catalog) GetBundle(id int) (*BundleRecord, error) {
	c.bundleMu.RLock()
	defer c.bundleMu.RUnlock()
	if id < 0 || id >= len(c.bundles) {
		return nil, ErrNotFound
	}
	return c.bundles[id], nil
}

// GetBundleID resolves a bundle name to its identifier.
func (c *Catalog) GetBundleID(name string) (int, error) {
	c.bundleMu.RLock()
	defer c.bundleMu.RUnlock()
	id, ok := c.bundlesByName[strings.ToLower(name)]
	if !ok {
		return -1, ErrNotFound
	}
	return id, nil
}

func (c *Catalog) GetSuperBundle(id int) (*SuperBundleRecord, error) {
	c.bundleMu.RLock()
	defer c.bundleMu.RUnlock()
	if id < 0 || id >= len(c.superBundles) {
		return nil, ErrNotFound
	}
	return c.superBundles[id], nil
}

// GetSuperBundleID resolves a superbundle name to its identifier.
func (c *Catalog) GetSuperBundleID(name string) (int, error) {
	c.bundleMu.RLock()
	defer c.bundleMu.RUnlock()
	id, ok := c.superByName[strings.ToLower(name)]
	if !ok {
		return -1, ErrNotFound
	}
	return id, nil
}

// Bundles returns the bundle table in identifier order.
func (c *Catalog) Bundles() []*BundleRecord {
	c.bundleMu.RLock()
	defer c.bundleMu.RUnlock()
	return append([]*BundleRecord(nil), c.bundles...)
}

// SuperBundles returns the superbundle table in identifier order.
func (c *Catalog) SuperBundles() []*SuperBundleRecord {
	c.bundleMu.RLock()
	defer c.bundleMu.RUnlock()
	return append([]*SuperBundleRecord(nil), c.superBundles...)
}

// -----------------------------------------------------------------------------
// Assets
// -----------------------------------------------------------------------------

// AddAsset registers a. It reports false, leaving the catalog unchanged, if
// a record of the same kind and name (case-insensitive) already exists.
// Chunk records are routed to AddChunk.
func (c *Catalog) AddAsset(a *AssetRecord) bool {
	_, loaded := c.LoadOrAddAsset(a)
	return !loaded
}

// LoadOrAddAsset returns the registered record with a's kind and name if
// there is one; otherwise it registers a and returns it. loaded reports
// whether an existing record was returned.
func (c *Catalog) LoadOrAddAsset(a *AssetRecord) (rec *AssetRecord, loaded bool) {
	if ch, ok := a.Chunk(); ok {
		got, loaded := c.LoadOrAddChunk(ch)
		return &got.AssetRecord, loaded
	}

	key := strings.ToLower(a.Name)
	c.assetMu.Lock()
	defer c.assetMu.Unlock()
	byName := c.nameTable(a.kind)
	if existing, ok := byName[key]; ok {
		return existing, true
	}
	byName[key] = a
	c.assets[a.id] = a
	return a, false
}

// nameTable must be called with assetMu held.
func (c *Catalog) nameTable(k Kind) map[string]*AssetRecord {
	if k == KindRes {
		return c.resByName
	}
	return c.ebxByName
}

// GetAsset resolves any record, chunks included, by identifier.
func (c *Catalog) GetAsset(id uint32) (*AssetRecord, error) {
	c.assetMu.RLock()
	defer c.assetMu.RUnlock()
	a, ok := c.assets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

// GetAssetByName resolves an ebx or res record by exact name, ignoring case.
func (c *Catalog) GetAssetByName(kind Kind, name string) (*AssetRecord, error) {
	if kind == KindChunk {
		return nil, ErrNotFound
	}
	c.assetMu.RLock()
	defer c.assetMu.RUnlock()
	a, ok := c.nameTable(kind)[strings.ToLower(name)]
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

// Assets returns every registered record, chunks included, ordered by id.
func (c *Catalog) Assets() []*AssetRecord {
	c.assetMu.RLock()
	out := make([]*AssetRecord, 0, len(c.assets))
	for _, a := range c.assets {
		out = append(out, a)
	}
	c.assetMu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// ModifiedAssets returns the records that are modified directly or through
// a link, ordered by id.
func (c *Catalog) ModifiedAssets() []*AssetRecord {
	var out []*AssetRecord
	for _, a := range c.Assets() {
		if a.Modified() {
			out = append(out, a)
		}
	}
	return out
}

// -----------------------------------------------------------------------------
// Chunks
// -----------------------------------------------------------------------------

// AddChunk registers ch. It reports false if a chunk with the same ChunkID
// is already registered.
func (c *Catalog) AddChunk(ch *ChunkRecord) bool {
	_, loaded := c.LoadOrAddChunk(ch)
	return !loaded
}

// LoadOrAddChunk is the chunk counterpart of LoadOrAddAsset.
func (c *Catalog) LoadOrAddChunk(ch *ChunkRecord) (rec *ChunkRecord, loaded bool) {
	c.chunkMu.Lock()
	if existing, ok := c.chunks[ch.ChunkID]; ok {
		c.chunkMu.Unlock()
		return existing, true
	}
	c.chunks[ch.ChunkID] = ch
	c.chunkMu.Unlock()

	c.assetMu.Lock()
	c.assets[ch.id] = &ch.AssetRecord
	c.assetMu.Unlock()
	return ch, false
}

// FindChunk looks a chunk up by its chunk identity.
func (c *Catalog) FindChunk(chunkID uuid.UUID) (*ChunkRecord, bool) {
	c.chunkMu.RLock()
	defer c.chunkMu.RUnlock()
	ch, ok := c.chunks[chunkID]
	return ch, ok
}

// Chunks returns every registered chunk ordered by id.
func (c *Catalog) Chunks() []*ChunkRecord {
	c.chunkMu.RLock()
	out := make([]*ChunkRecord, 0, len(c.chunks))
	for _, ch := range c.chunks {
		out = append(out, ch)
	}
	c.chunkMu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (c *Catalog) Stats() Stats {
	var s Stats
	c.bundleMu.RLock()
	s.SuperBundles = len(c.superBundles)
	s.Bundles = len(c.bundles)
	c.bundleMu.RUnlock()

	c.assetMu.RLock()
	s.Ebx = len(c.ebxByName)
	s.Res = len(c.resByName)
	c.assetMu.RUnlock()

	c.chunkMu.RLock()
	s.Chunks = len(c.chunks)
	c.chunkMu.RUnlock()

	s.Modified = len(c.ModifiedAssets())
	return s
}
