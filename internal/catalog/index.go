package catalog

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/RoaringBitmap/roaring"
	_ "modernc.org/sqlite"
)

const indexSchema = `
	CREATE TABLE superbundles (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		added INTEGER NOT NULL
	);
	CREATE TABLE bundles (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		superbundle_id INTEGER NOT NULL,
		type INTEGER NOT NULL,
		added INTEGER NOT NULL
	);
	CREATE TABLE assets (
		id INTEGER PRIMARY KEY,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT,
		sha1 TEXT,
		size INTEGER,
		location TEXT,
		modified INTEGER NOT NULL,
		dirty INTEGER NOT NULL,
		chunk_id TEXT,
		owner_h32 INTEGER
	);
	CREATE INDEX idx_assets_name ON assets(kind, name);
	CREATE TABLE bundle_members (
		bundle_id INTEGER PRIMARY KEY,
		bitmap BLOB NOT NULL
	);
`

// ExportIndex writes a SQLite snapshot of the catalog to path, replacing any
// existing file. Effective bundle membership is stored per bundle as a
// serialized roaring bitmap of asset ids.
func (c *Catalog) ExportIndex(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove old index: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open index %s: %w", path, err)
	}
	defer func() { _ = db.Close() }() // safe to ignore

	if _, err := db.Exec(indexSchema); err != nil {
		return fmt.Errorf("create index schema: %w", err)
	}

	assets := c.Assets()
	members := make(map[int]*roaring.Bitmap)
	for _, a := range assets {
		for bid := range a.EnumerateBundles(false) {
			bm, ok := members[bid]
			if !ok {
				bm = roaring.New()
				members[bid] = bm
			}
			bm.Add(a.id)
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin index export: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // no-op if committed

	for id, sb := range c.SuperBundles() {
		if _, err := tx.Exec("INSERT INTO superbundles (id, name, added) VALUES (?, ?, ?)",
			id, sb.Name, sb.Added); err != nil {
			return fmt.Errorf("insert superbundle %s: %w", sb.Name, err)
		}
	}
	for id, b := range c.Bundles() {
		if _, err := tx.Exec("INSERT INTO bundles (id, name, superbundle_id, type, added) VALUES (?, ?, ?, ?, ?)",
			id, b.Name, b.SuperBundleID, int(b.Type), b.Added); err != nil {
			return fmt.Errorf("insert bundle %s: %w", b.Name, err)
		}
	}

	stmt, err := tx.Prepare(`INSERT INTO assets
		(id, kind, name, type, sha1, size, location, modified, dirty, chunk_id, owner_h32)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare assets insert: %w", err)
	}
	defer func() { _ = stmt.Close() }() // safe to ignore

	for _, a := range assets {
		var chunkID *string
		var owner *int64
		if ch, ok := a.Chunk(); ok {
			s := ch.ChunkID.String()
			h := int64(ch.OwnerHash32())
			chunkID, owner = &s, &h
		}
		if _, err := stmt.Exec(int64(a.id), a.kind.String(), a.Name, a.Type, a.ContentHash.String(),
			a.Size, a.Location.String(), a.Modified(), a.Dirty(), chunkID, owner); err != nil {
			return fmt.Errorf("insert asset %s: %w", a.Name, err)
		}
	}

	var buf bytes.Buffer
	for bid, bm := range members {
		buf.Reset()
		bm.RunOptimize()
		if _, err := bm.WriteTo(&buf); err != nil {
			return fmt.Errorf("serialize members of bundle %d: %w", bid, err)
		}
		if _, err := tx.Exec("INSERT INTO bundle_members (bundle_id, bitmap) VALUES (?, ?)",
			bid, buf.Bytes()); err != nil {
			return fmt.Errorf("insert members of bundle %d: %w", bid, err)
		}
	}

	return tx.Commit()
}

// ReadMembers loads the member bitmap of one bundle from an index written by
// ExportIndex. A bundle without members yields an empty bitmap.
func ReadMembers(path string, bundleID int) (*roaring.Bitmap, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open index %s: %w", path, err)
	}
	defer func() { _ = db.Close() }() // safe to ignore

	var blob []byte
	err = db.QueryRow("SELECT bitmap FROM bundle_members WHERE bundle_id = ?", bundleID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return roaring.New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("query members of bundle %d: %w", bundleID, err)
	}

	bm := roaring.New()
	if _, err := bm.ReadFrom(bytes.NewReader(blob)); err != nil {
		return nil, fmt.Errorf("decode members of bundle %d: %w", bundleID, err)
	}
	return bm, nil
}
