package manifest

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/agentic-research/assetcat/api"
	"github.com/agentic-research/assetcat/internal/catalog"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS bundles (
		id INTEGER PRIMARY KEY,
		record JSON
	);
	CREATE TABLE IF NOT EXISTS chunks (
		id INTEGER PRIMARY KEY,
		record JSON NOT NULL
	);
`

// SQLiteProvider streams a manifest stored as JSON records in a SQLite
// database: one row per bundle in `bundles`, one row per manifest-level
// chunk in `chunks`, both ordered by id. A NULL bundle record is an
// unavailable bundle description.
type SQLiteProvider struct {
	Path string
}

func NewSQLiteProvider(path string) *SQLiteProvider {
	return &SQLiteProvider{Path: path}
}

// ManifestBased implements Provider.
func (p *SQLiteProvider) ManifestBased() bool { return true }

// EnumerateBundles implements Provider.
func (p *SQLiteProvider) EnumerateBundles(ctx context.Context) ([]*api.Bundle, error) {
	var out []*api.Bundle
	err := streamRecords(ctx, p.Path, "SELECT id, record FROM bundles ORDER BY id", func(id int64, raw sql.NullString) error {
		if !raw.Valid {
			out = append(out, nil)
			return nil
		}
		var b api.Bundle
		if err := json.Unmarshal([]byte(raw.String), &b); err != nil {
			return fmt.Errorf("parse bundle record %d: %w", id, err)
		}
		out = append(out, &b)
		return nil
	})
	return out, err
}

// EnumerateManifestChunks implements Provider.
func (p *SQLiteProvider) EnumerateManifestChunks(ctx context.Context, cat *catalog.Catalog) ([]*catalog.ChunkRecord, error) {
	var descs []api.Chunk
	err := streamRecords(ctx, p.Path, "SELECT id, record FROM chunks ORDER BY id", func(id int64, raw sql.NullString) error {
		var c api.Chunk
		if err := json.Unmarshal([]byte(raw.String), &c); err != nil {
			return fmt.Errorf("parse chunk record %d: %w", id, err)
		}
		descs = append(descs, c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return buildChunks(ctx, cat, descs)
}

// streamRecords calls fn for each row of query, one row alive at a time.
func streamRecords(ctx context.Context, dbPath, query string, fn func(id int64, raw sql.NullString) error) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	defer func() { _ = db.Close() }() // safe to ignore

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("query %s: %w", dbPath, err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	for rows.Next() {
		var id int64
		var raw sql.NullString
		if err := rows.Scan(&id, &raw); err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		if err := fn(id, raw); err != nil {
			return err
		}
	}
	return rows.Err()
}

// WriteSQLite stores m in the layout SQLiteProvider reads, appending to any
// existing tables.
func WriteSQLite(dbPath string, m *api.Manifest) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	defer func() { _ = db.Close() }() // safe to ignore

	if _, err := db.Exec(sqliteSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }() // no-op if committed

	for i, b := range m.Bundles {
		var record any
		if b != nil {
			raw, err := json.Marshal(b)
			if err != nil {
				return fmt.Errorf("encode bundle %d: %w", i, err)
			}
			record = string(raw)
		}
		if _, err := tx.Exec("INSERT INTO bundles (record) VALUES (?)", record); err != nil {
			return fmt.Errorf("insert bundle %d: %w", i, err)
		}
	}
	for i := range m.Chunks {
		raw, err := json.Marshal(&m.Chunks[i])
		if err != nil {
			return fmt.Errorf("encode chunk %s: %w", m.Chunks[i].ID, err)
		}
		if _, err := tx.Exec("INSERT INTO chunks (record) VALUES (?)", string(raw)); err != nil {
			return fmt.Errorf("insert chunk %s: %w", m.Chunks[i].ID, err)
		}
	}
	return tx.Commit()
}

var _ Provider = (*SQLiteProvider)(nil)
