package manifest

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/agentic-research/assetcat/api"
	"github.com/agentic-research/assetcat/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

const scenarioJSON = `{
  "bundles": [
    {
      "name": "BundleA",
      "ebx": [{"name": "content/foo", "type": "TextureAsset", "sha1": "0123456789abcdef0123456789abcdef01234567"}]
    },
    {
      "name": "BundleB",
      "type": "shared",
      "chunks": [{"id": "2f1e0d9c-8b7a-4654-9321-0fedcba98765", "size": 64}]
    }
  ],
  "chunks": [
    {"id": "2f1e0d9c-8b7a-4654-9321-0fedcba98765", "superbundles": [0]}
  ]
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func assertScenarioLoaded(t *testing.T, cat *catalog.Catalog) {
	t.Helper()
	bundles := cat.Bundles()
	require.Len(t, bundles, 2)
	assert.Equal(t, "BundleA", bundles[0].Name)
	assert.Equal(t, "BundleB", bundles[1].Name)

	foo, err := cat.GetAssetByName(catalog.KindEbx, "content/foo")
	require.NoError(t, err)
	assert.Equal(t, []int{0}, foo.OriginalBundles())

	chunks := cat.Chunks()
	require.Len(t, chunks, 1)
	assert.Equal(t, sharedChunkID, chunks[0].ChunkID.String())
	assert.Equal(t, []int{0}, chunks[0].SuperBundles())
	assert.Equal(t, []int{1}, chunks[0].OriginalBundles())
}

func TestJSONProvider_Load(t *testing.T) {
	p := NewJSONProvider(writeFile(t, "manifest.json", scenarioJSON))

	bundles, err := p.EnumerateBundles(context.Background())
	require.NoError(t, err)
	require.Len(t, bundles, 2)
	assert.Equal(t, "shared", bundles[1].Type)
	require.Len(t, bundles[0].Ebx, 1)
	assert.Equal(t, "TextureAsset", bundles[0].Ebx[0].Type)

	cat := newTestCatalog()
	require.NoError(t, NewLoader(p).Load(context.Background(), cat))
	assertScenarioLoaded(t, cat)
	assert.Equal(t, catalog.BundleTypeShared, cat.Bundles()[1].Type)
}

func TestJSONProvider_CustomSelectors(t *testing.T) {
	doc := `{"layout": {"groups": [{"name": "only", "res": [{"name": "content/r"}]}]}, "streaming": []}`
	p := NewJSONProvider(writeFile(t, "nested.json", doc))
	p.BundleSelector = "$.layout.groups[*]"
	p.ChunkSelector = "$.streaming[*]"

	cat := newTestCatalog()
	require.NoError(t, NewLoader(p).Load(context.Background(), cat))
	require.Len(t, cat.Bundles(), 1)
	_, err := cat.GetAssetByName(catalog.KindRes, "content/r")
	assert.NoError(t, err)
	assert.Empty(t, cat.Chunks())
}

func TestJSONProvider_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := NewJSONProvider(filepath.Join(t.TempDir(), "missing.json")).EnumerateBundles(ctx)
	assert.Error(t, err)

	_, err = NewJSONProvider(writeFile(t, "bad.json", "{not json")).EnumerateBundles(ctx)
	assert.Error(t, err)

	p := NewJSONProvider(writeFile(t, "ok.json", scenarioJSON))
	p.BundleSelector = "$[["
	_, err = p.EnumerateBundles(ctx)
	assert.ErrorContains(t, err, "invalid jsonpath")

	p = NewJSONProvider(writeFile(t, "badchunk.json", `{"bundles": [], "chunks": [{"id": "nope"}]}`))
	_, err = p.EnumerateManifestChunks(ctx, newTestCatalog())
	assert.Error(t, err)
}

func TestSQLiteProvider_RoundTrip(t *testing.T) {
	m := scenarioManifest()
	m.Bundles = append([]*api.Bundle{nil}, m.Bundles...)

	dbPath := filepath.Join(t.TempDir(), "manifest.db")
	require.NoError(t, WriteSQLite(dbPath, m))

	p := NewSQLiteProvider(dbPath)
	bundles, err := p.EnumerateBundles(context.Background())
	require.NoError(t, err)
	require.Len(t, bundles, 3)
	assert.Nil(t, bundles[0])
	assert.Equal(t, "BundleA", bundles[1].Name)

	cat := newTestCatalog()
	require.NoError(t, NewLoader(p).Load(context.Background(), cat))
	assertScenarioLoaded(t, cat)
}

func TestSQLiteProvider_CorruptRecord(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "corrupt.db")
	require.NoError(t, WriteSQLite(dbPath, &api.Manifest{}))

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO bundles (record) VALUES ('{oops')")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	err = NewLoader(NewSQLiteProvider(dbPath)).Load(context.Background(), newTestCatalog())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse bundle record 1")
}

func TestSQLiteProvider_MissingTables(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")
	_, err := NewSQLiteProvider(dbPath).EnumerateBundles(context.Background())
	assert.Error(t, err)
}
