package catalog

import (
	"fmt"
	"iter"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Kind discriminates the asset specializations held by the catalog.
type Kind uint8

const (
	KindEbx   Kind = iota // structured data
	KindRes               // resource
	KindChunk             // raw chunk, see ChunkRecord
)

func (k Kind) String() string {
	switch k {
	case KindEbx:
		return "ebx"
	case KindRes:
		return "res"
	case KindChunk:
		return "chunk"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Location is where the authoritative bytes of an asset currently reside.
type Location uint8

const (
	LocationContentStore Location = iota
	LocationSuperBundle
	LocationCache
	LocationUnindexedContentStore
)

var locationNames = map[Location]string{
	LocationContentStore:          "cas",
	LocationSuperBundle:           "superbundle",
	LocationCache:                 "cache",
	LocationUnindexedContentStore: "cas_nonindexed",
}

func (l Location) String() string {
	if s, ok := locationNames[l]; ok {
		return s
	}
	return fmt.Sprintf("location(%d)", uint8(l))
}

// ParseLocation maps a manifest location name to a Location. The empty
// string means LocationContentStore.
func ParseLocation(s string) (Location, error) {
	if s == "" {
		return LocationContentStore, nil
	}
	for l, name := range locationNames {
		if strings.EqualFold(s, name) {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown location %q", s)
}

// ExtraData is carried only by patch-style assets.
type ExtraData struct {
	BaseHash      Sha1
	DeltaHash     Sha1
	DataOffset    int64
	SuperBundleID int
	IsPatch       bool
	StorePath     string
}

// ModificationOverlay is the replacement payload attached to a record once a
// user edits it.
type ModificationOverlay struct {
	Data         []byte // raw replacement bytes
	Object       any    // structured in-memory replacement
	ContentHash  Sha1
	Size         int64
	OriginalSize int64

	ownerHash atomic.Uint32
}

// HasPayload reports whether the overlay carries bytes or an object.
func (m *ModificationOverlay) HasPayload() bool {
	return m != nil && (m.Data != nil || m.Object != nil)
}

// OwnerHash32 is the name hash of the asset that references this payload.
func (m *ModificationOverlay) OwnerHash32() uint32 {
	return m.ownerHash.Load()
}

func (m *ModificationOverlay) SetOwnerHash32(h uint32) {
	m.ownerHash.Store(h)
}

// AssetRecord is one logical asset. Archive-derived fields are set when the
// record is built and are not rewritten afterwards; user edits live in the
// overlay fields (added/removed bundles, modification overlay, dirty flag).
type AssetRecord struct {
	id   uint32
	kind Kind

	Name            string
	Type            string
	ContentHash     Sha1
	BaseContentHash Sha1
	Size            int64
	OriginalSize    int64
	IsInline        bool
	Location        Location
	ExtraData       *ExtraData
	IsAdded         bool

	original orderedSet[int]
	added    orderedSet[int]
	removed  orderedSet[int]
	linked   orderedSet[*AssetRecord]

	overlay atomic.Pointer[ModificationOverlay]
	dirty   atomic.Bool

	hooks *Notifier
	chunk *ChunkRecord // set iff kind == KindChunk
}

func newAssetRecord(id uint32, kind Kind, name string, hooks *Notifier) *AssetRecord {
	return &AssetRecord{id: id, kind: kind, Name: name, hooks: hooks}
}

func (a *AssetRecord) ID() uint32 { return a.id }

func (a *AssetRecord) Kind() Kind { return a.kind }

// AssetType is the short classification tag of the record.
func (a *AssetRecord) AssetType() string { return a.kind.String() }

// Filename is the part of Name after the last separator.
func (a *AssetRecord) Filename() string {
	if i := strings.LastIndexByte(a.Name, '/'); i != -1 {
		return a.Name[i+1:]
	}
	return a.Name
}

// Path is the part of Name before the last separator.
func (a *AssetRecord) Path() string {
	if i := strings.LastIndexByte(a.Name, '/'); i != -1 {
		return a.Name[:i]
	}
	return ""
}

// DisplayName is Filename with a trailing "*" while the record is dirty.
func (a *AssetRecord) DisplayName() string {
	if a.Dirty() {
		return a.Filename() + "*"
	}
	return a.Filename()
}

// Chunk returns the chunk specialization of the record, if it has one.
func (a *AssetRecord) Chunk() (*ChunkRecord, bool) {
	return a.chunk, a.chunk != nil
}

// -----------------------------------------------------------------------------
// Bundle membership
// -----------------------------------------------------------------------------

// AddOriginalBundle records archive membership. Only catalog construction
// calls this; edits go through AddToBundle.
func (a *AssetRecord) AddOriginalBundle(bundleID int) {
	a.original.Add(bundleID)
}

// AddToBundle adds the record to a bundle as an overlay edit. It returns
// false, and changes nothing, if the record is already a member.
func (a *AssetRecord) AddToBundle(bundleID int) bool {
	if a.original.Contains(bundleID) {
		return false
	}
	if !a.added.Add(bundleID) {
		return false
	}
	a.SetDirty(true)
	return true
}

// AddToBundles applies AddToBundle to each id and reports whether any was
// newly added.
func (a *AssetRecord) AddToBundles(bundleIDs []int) bool {
	added := false
	for _, bid := range bundleIDs {
		if a.AddToBundle(bid) {
			added = true
		}
	}
	return added
}

// RemoveFromBundle marks an original membership as removed. Memberships that
// only exist as additions cannot be removed this way.
func (a *AssetRecord) RemoveFromBundle(bundleID int) bool {
	if !a.original.Contains(bundleID) {
		return false
	}
	if !a.removed.Add(bundleID) {
		return false
	}
	a.SetDirty(true)
	return true
}

// IsInBundle checks original and added membership. Removals are not
// consulted.
func (a *AssetRecord) IsInBundle(bundleID int) bool {
	return a.original.Contains(bundleID) || a.added.Contains(bundleID)
}

// EnumerateBundles yields original memberships that have not been removed,
// followed by every added membership. With addedOnly set, only additions are
// yielded. The sequence is weakly consistent: edits made while it is being
// consumed may or may not be observed.
func (a *AssetRecord) EnumerateBundles(addedOnly bool) iter.Seq[int] {
	return func(yield func(int) bool) {
		if !addedOnly {
			for _, bid := range a.original.Snapshot() {
				if a.removed.Contains(bid) {
					continue
				}
				if !yield(bid) {
					return
				}
			}
		}
		for _, bid := range a.added.Snapshot() {
			if !yield(bid) {
				return
			}
		}
	}
}

func (a *AssetRecord) OriginalBundles() []int { return a.original.Snapshot() }
func (a *AssetRecord) AddedBundles() []int    { return a.added.Snapshot() }
func (a *AssetRecord) RemovedBundles() []int  { return a.removed.Snapshot() }

// -----------------------------------------------------------------------------
// Modification overlay
// -----------------------------------------------------------------------------

// Overlay returns the current modification overlay, or nil.
func (a *AssetRecord) Overlay() *ModificationOverlay {
	return a.overlay.Load()
}

// SetModification replaces the record's content with m and marks it dirty.
func (a *AssetRecord) SetModification(m *ModificationOverlay) {
	a.overlay.Store(m)
	if m != nil {
		a.SetDirty(true)
	}
}

// ClearModifications drops the modification overlay. Bundle membership
// edits are left alone.
func (a *AssetRecord) ClearModifications() {
	a.overlay.Store(nil)
}

// HasModifiedData reports whether the overlay carries a payload.
func (a *AssetRecord) HasModifiedData() bool {
	return a.overlay.Load().HasPayload()
}

// DirectlyModified reports changes to this record only.
func (a *AssetRecord) DirectlyModified() bool {
	return a.overlay.Load() != nil || a.added.Len() != 0 || a.removed.Len() != 0
}

// Modified reports whether this record or any asset reachable through its
// links is directly modified.
func (a *AssetRecord) Modified() bool {
	return reachable([]*AssetRecord{a}, (*AssetRecord).DirectlyModified)
}

// IndirectlyModified reports whether any linked asset is modified.
func (a *AssetRecord) IndirectlyModified() bool {
	return reachable(a.linked.Snapshot(), (*AssetRecord).DirectlyModified)
}

// -----------------------------------------------------------------------------
// Dirty state
// -----------------------------------------------------------------------------

// ExplicitlyDirty reports the record's own dirty flag.
func (a *AssetRecord) ExplicitlyDirty() bool {
	return a.dirty.Load()
}

// Dirty reports whether this record or any asset reachable through its
// links is explicitly dirty.
func (a *AssetRecord) Dirty() bool {
	return reachable([]*AssetRecord{a}, (*AssetRecord).ExplicitlyDirty)
}

// SetDirty sets the explicit dirty flag. Subscribers are notified once per
// false to true transition.
func (a *AssetRecord) SetDirty(v bool) {
	if !v {
		a.dirty.Store(false)
		return
	}
	if a.dirty.CompareAndSwap(false, true) {
		a.hooks.notify(a)
	}
}

// -----------------------------------------------------------------------------
// Links
// -----------------------------------------------------------------------------

// Link records that a depends on target. Linking a chunk also stamps the
// chunk with the hash of a's name: on the replacement payload when the chunk
// has modified data, otherwise on the chunk record itself.
func (a *AssetRecord) Link(target *AssetRecord) {
	a.linked.Add(target)

	c, ok := target.Chunk()
	if !ok {
		return
	}
	h := NameHash(a.Name)
	if m := target.Overlay(); m.HasPayload() {
		m.SetOwnerHash32(h)
	} else {
		c.SetOwnerHash32(h)
	}
}

// LinkedAssets returns the direct link targets in link order.
func (a *AssetRecord) LinkedAssets() []*AssetRecord {
	return a.linked.Snapshot()
}

// reachable walks the link graph from roots and reports whether pred holds
// for any visited record. Each record is inspected at most once, so cycles
// terminate.
func reachable(roots []*AssetRecord, pred func(*AssetRecord) bool) bool {
	if len(roots) == 0 {
		return false
	}
	visited := make(map[uint32]struct{})
	stack := append([]*AssetRecord(nil), roots...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := visited[n.id]; seen {
			continue
		}
		visited[n.id] = struct{}{}
		if pred(n) {
			return true
		}
		stack = append(stack, n.linked.Snapshot()...)
	}
	return false
}

// -----------------------------------------------------------------------------
// Chunks
// -----------------------------------------------------------------------------

// ChunkRecord is the chunk specialization of AssetRecord.
type ChunkRecord struct {
	AssetRecord

	ChunkID       uuid.UUID
	LogicalOffset uint32
	LogicalSize   uint32
	RangeStart    uint32
	RangeEnd      uint32
	FirstMip      int32

	ownerHash atomic.Uint32

	sbMu         sync.Mutex
	superBundles []int
}

// OwnerHash32 is the name hash of the ebx/res asset that owns this chunk.
func (c *ChunkRecord) OwnerHash32() uint32 {
	return c.ownerHash.Load()
}

func (c *ChunkRecord) SetOwnerHash32(h uint32) {
	c.ownerHash.Store(h)
}

// AddSuperBundles appends superbundle references. Duplicates are kept.
func (c *ChunkRecord) AddSuperBundles(ids ...int) {
	c.sbMu.Lock()
	defer c.sbMu.Unlock()
	c.superBundles = append(c.superBundles, ids...)
}

// SuperBundles returns a copy of the superbundle references.
func (c *ChunkRecord) SuperBundles() []int {
	c.sbMu.Lock()
	defer c.sbMu.Unlock()
	return append([]int(nil), c.superBundles...)
}
