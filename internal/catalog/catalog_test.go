package catalog

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/agentic-research/assetcat/internal/ident"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_BundleIDsArePositions(t *testing.T) {
	c := newTestCatalog()
	sb := c.AddSuperBundle(SuperBundleRecord{Name: "<none>"})
	assert.Equal(t, 0, sb)

	a := c.AddBundle(BundleRecord{Name: "BundleA", SuperBundleID: sb})
	b := c.AddBundle(BundleRecord{Name: "BundleB", SuperBundleID: sb, Type: BundleTypeShared})
	assert.Equal(t, 0, a)
	assert.Equal(t, 1, b)

	rec, err := c.GetBundle(b)
	require.NoError(t, err)
	assert.Equal(t, "BundleB", rec.Name)
	assert.Equal(t, BundleTypeShared, rec.Type)

	id, err := c.GetBundleID("bundlea")
	require.NoError(t, err)
	assert.Equal(t, a, id)

	_, err = c.GetBundle(7)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = c.GetBundleID("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	sbRec, err := c.GetSuperBundle(sb)
	require.NoError(t, err)
	assert.Equal(t, "<none>", sbRec.Name)
	sbID, err := c.GetSuperBundleID("<NONE>")
	require.NoError(t, err)
	assert.Equal(t, sb, sbID)
	_, err = c.GetSuperBundle(-1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalog_AddAssetByIDAndName(t *testing.T) {
	c := newTestCatalog()
	ebx := c.NewAsset(KindEbx, "Content/Foo")
	res := c.NewAsset(KindRes, "Content/Foo")
	require.True(t, c.AddAsset(ebx))
	require.True(t, c.AddAsset(res), "ebx and res names are separate tables")

	got, err := c.GetAsset(ebx.ID())
	require.NoError(t, err)
	assert.Same(t, ebx, got)

	got, err = c.GetAssetByName(KindEbx, "content/foo")
	require.NoError(t, err)
	assert.Same(t, ebx, got)

	got, err = c.GetAssetByName(KindRes, "CONTENT/FOO")
	require.NoError(t, err)
	assert.Same(t, res, got)

	_, err = c.GetAssetByName(KindChunk, "Content/Foo")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = c.GetAsset(9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalog_LoadOrAddAssetKeepsFirst(t *testing.T) {
	c := newTestCatalog()
	first := c.NewAsset(KindEbx, "content/foo")
	second := c.NewAsset(KindEbx, "content/foo")

	rec, loaded := c.LoadOrAddAsset(first)
	assert.False(t, loaded)
	assert.Same(t, first, rec)

	rec, loaded = c.LoadOrAddAsset(second)
	assert.True(t, loaded)
	assert.Same(t, first, rec)
	assert.False(t, c.AddAsset(second))

	_, err := c.GetAsset(second.ID())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalog_Chunks(t *testing.T) {
	c := newTestCatalog()
	id := uuid.MustParse("6a1b8c4e-0000-4000-8000-000000000001")

	_, ok := c.FindChunk(id)
	assert.False(t, ok)

	ch := c.NewChunk(id)
	require.True(t, c.AddChunk(ch))
	assert.False(t, c.AddChunk(c.NewChunk(id)))

	got, ok := c.FindChunk(id)
	require.True(t, ok)
	assert.Same(t, ch, got)

	asset, err := c.GetAsset(ch.ID())
	require.NoError(t, err)
	assert.Same(t, &ch.AssetRecord, asset)

	// Routing a chunk through AddAsset lands in the chunk table.
	other := c.NewChunk(uuid.New())
	require.True(t, c.AddAsset(&other.AssetRecord))
	_, ok = c.FindChunk(other.ChunkID)
	assert.True(t, ok)
	assert.Len(t, c.Chunks(), 2)
}

func TestCatalog_NewAssetRejectsChunkKind(t *testing.T) {
	c := newTestCatalog()
	assert.Panics(t, func() { c.NewAsset(KindChunk, "x") })
}

func TestCatalog_IDsComeFromAllocator(t *testing.T) {
	alloc := ident.New()
	c1 := New(alloc)
	c2 := New(alloc)

	a := c1.NewAsset(KindEbx, "a")
	b := c2.NewAsset(KindEbx, "b")
	ch := c1.NewChunk(uuid.New())
	assert.Equal(t, uint32(1), a.ID())
	assert.Equal(t, uint32(2), b.ID())
	assert.Equal(t, uint32(3), ch.ID())
}

func TestCatalog_ModifiedAssetsAndStats(t *testing.T) {
	c := newTestCatalog()
	c.AddSuperBundle(SuperBundleRecord{Name: "sb"})
	c.AddBundle(BundleRecord{Name: "b"})

	ebx := c.NewAsset(KindEbx, "content/mesh")
	res := c.NewAsset(KindRes, "content/mesh")
	idle := c.NewAsset(KindEbx, "content/idle")
	ch := c.NewChunk(uuid.New())
	for _, a := range []*AssetRecord{ebx, res, idle, &ch.AssetRecord} {
		require.True(t, c.AddAsset(a))
	}

	ebx.Link(res)
	res.Link(&ch.AssetRecord)
	ch.SetModification(&ModificationOverlay{Data: []byte("x")})

	mod := c.ModifiedAssets()
	require.Len(t, mod, 3)
	assert.Same(t, ebx, mod[0])
	assert.Same(t, res, mod[1])
	assert.Same(t, &ch.AssetRecord, mod[2])

	assert.Equal(t, Stats{SuperBundles: 1, Bundles: 1, Ebx: 2, Res: 1, Chunks: 1, Modified: 3}, c.Stats())
}

func TestCatalog_SubscribeAndUnsubscribe(t *testing.T) {
	c := newTestCatalog()
	var first, second int
	unsub := c.Subscribe(func(*AssetRecord) { first++ })
	c.Subscribe(func(*AssetRecord) { second++ })

	c.NewAsset(KindEbx, "a").SetDirty(true)
	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second)

	unsub()
	unsub()
	c.NewAsset(KindEbx, "b").AddToBundle(1)
	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestCatalog_ConcurrentInsertAndLookup(t *testing.T) {
	c := newTestCatalog()
	const (
		workers = 16
		perW    = 250
	)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			bid := c.AddBundle(BundleRecord{Name: fmt.Sprintf("bundle-%d", w)})
			for i := 0; i < perW; i++ {
				// Every worker races on the same shared names.
				rec, _ := c.LoadOrAddAsset(c.NewAsset(KindEbx, fmt.Sprintf("shared/%d", i)))
				rec.AddOriginalBundle(bid)
				_, _ = c.GetAssetByName(KindEbx, fmt.Sprintf("shared/%d", (i+w)%perW))
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, perW, c.Stats().Ebx)
	assert.Len(t, c.Bundles(), workers)
	for _, a := range c.Assets() {
		assert.Len(t, a.OriginalBundles(), workers, a.Name)
	}
}

func TestCatalog_ExportIndex(t *testing.T) {
	c := newTestCatalog()
	sb := c.AddSuperBundle(SuperBundleRecord{Name: "<none>"})
	b0 := c.AddBundle(BundleRecord{Name: "BundleA", SuperBundleID: sb})
	b1 := c.AddBundle(BundleRecord{Name: "BundleB", SuperBundleID: sb})
	b2 := c.AddBundle(BundleRecord{Name: "BundleC", SuperBundleID: sb})

	foo := c.NewAsset(KindEbx, "content/foo")
	foo.AddOriginalBundle(b0)
	foo.AddOriginalBundle(b1)
	require.True(t, c.AddAsset(foo))

	bar := c.NewAsset(KindRes, "content/bar")
	bar.AddOriginalBundle(b1)
	require.True(t, c.AddAsset(bar))

	ch := c.NewChunk(uuid.New())
	ch.AddOriginalBundle(b0)
	require.True(t, c.AddChunk(ch))

	// Edits: foo leaves BundleB, bar joins BundleA.
	require.True(t, foo.RemoveFromBundle(b1))
	require.True(t, bar.AddToBundle(b0))

	path := filepath.Join(t.TempDir(), "index.db")
	require.NoError(t, c.ExportIndex(path))
	// Re-export overwrites.
	require.NoError(t, c.ExportIndex(path))

	m0, err := ReadMembers(path, b0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint32{foo.ID(), bar.ID(), ch.ID()}, m0.ToArray())

	m1, err := ReadMembers(path, b1)
	require.NoError(t, err)
	assert.Equal(t, []uint32{bar.ID()}, m1.ToArray())

	m2, err := ReadMembers(path, b2)
	require.NoError(t, err)
	assert.True(t, m2.IsEmpty())
}
