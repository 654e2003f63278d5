// Package blockdb stores block columns in SQLite and serves them back as
// chunks. It is the on-disk implementation of world.Source; a seeded database
// is the input to the whole meshing pipeline.
package blockdb

import (
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"terramesh.dev/internal/world"
)

// ErrNoChunk reports a chunk absent from the database. The store above keeps
// the position unresolved rather than inventing terrain.
var ErrNoChunk = errors.New("blockdb: chunk not in database")

type DB struct {
	db *sql.DB

	loadColumns *sql.Stmt
}

// Open creates or opens the database at path, applying schema and pragmas.
func Open(path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("blockdb: empty db path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	loadColumns, err := db.Prepare(
		`SELECT lx, lz, runs FROM columns WHERE cx = ? AND cz = ?;`)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{db: db, loadColumns: loadColumns}, nil
}

func initPragmas(db *sql.DB) error {
	// WAL suits the bulk-write-then-read-mostly workload of seeded worlds.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS columns (
			cx INTEGER NOT NULL,
			cz INTEGER NOT NULL,
			lx INTEGER NOT NULL,
			lz INTEGER NOT NULL,
			runs BLOB NOT NULL,
			PRIMARY KEY (cx, cz, lx, lz)
		);`,
		fmt.Sprintf(`INSERT OR IGNORE INTO meta (key, value) VALUES ('format', '%d');`, formatVersion),
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (d *DB) Close() error {
	_ = d.loadColumns.Close()
	return d.db.Close()
}

// WriteChunk stores all 256 columns of ch in one transaction, replacing any
// previous content at the same position.
func (d *DB) WriteChunk(ch *world.Chunk) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(
		`INSERT OR REPLACE INTO columns (cx, cz, lx, lz, runs) VALUES (?, ?, ?, ?, ?);`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for lz := 0; lz < world.ChunkSize; lz++ {
		for lx := 0; lx < world.ChunkSize; lx++ {
			blob := encodeRuns(ch.Tower(lx, lz))
			if _, err := stmt.Exec(ch.Pos.CX, ch.Pos.CZ, lx, lz, blob); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// LoadChunk reads the chunk at pos. It implements world.Source and returns
// ErrNoChunk when no columns exist there.
func (d *DB) LoadChunk(pos world.ChunkPos) (*world.Chunk, error) {
	rows, err := d.loadColumns.Query(pos.CX, pos.CZ)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var towers [world.ChunkSize * world.ChunkSize]world.Tower
	var seen [world.ChunkSize * world.ChunkSize]bool
	count := 0
	for rows.Next() {
		var lx, lz int
		var blob []byte
		if err := rows.Scan(&lx, &lz, &blob); err != nil {
			return nil, err
		}
		if lx < 0 || lx >= world.ChunkSize || lz < 0 || lz >= world.ChunkSize {
			return nil, fmt.Errorf("blockdb: chunk %d,%d has column %d,%d out of range", pos.CX, pos.CZ, lx, lz)
		}
		t, err := decodeRuns(blob)
		if err != nil {
			return nil, fmt.Errorf("blockdb: chunk %d,%d column %d,%d: %w", pos.CX, pos.CZ, lx, lz, err)
		}
		towers[lz*world.ChunkSize+lx] = t
		seen[lz*world.ChunkSize+lx] = true
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: %d,%d", ErrNoChunk, pos.CX, pos.CZ)
	}
	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("blockdb: chunk %d,%d missing column %d,%d", pos.CX, pos.CZ, i%world.ChunkSize, i/world.ChunkSize)
		}
	}
	return world.NewChunk(pos, towers)
}

// ChunkPositions lists every chunk stored in the database.
func (d *DB) ChunkPositions() ([]world.ChunkPos, error) {
	rows, err := d.db.Query(`SELECT DISTINCT cx, cz FROM columns ORDER BY cx, cz;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []world.ChunkPos
	for rows.Next() {
		var p world.ChunkPos
		if err := rows.Scan(&p.CX, &p.CZ); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const formatVersion = 1

// Column blob layout: repeated 3-byte records of material (1 byte) and
// top-MinY (big-endian uint16, exclusive). The world is 384 blocks tall, so
// the offset always fits.
const runRecordSize = 3

func encodeRuns(t world.Tower) []byte {
	spans := t.Spans()
	out := make([]byte, 0, len(spans)*runRecordSize)
	for _, s := range spans {
		out = append(out, byte(s.Material))
		out = binary.BigEndian.AppendUint16(out, uint16(s.Top-world.MinY))
	}
	return out
}

func decodeRuns(blob []byte) (world.Tower, error) {
	if len(blob) == 0 || len(blob)%runRecordSize != 0 {
		return world.Tower{}, fmt.Errorf("run blob has bad length %d", len(blob))
	}
	spans := make([]world.Span, 0, len(blob)/runRecordSize)
	for i := 0; i < len(blob); i += runRecordSize {
		spans = append(spans, world.Span{
			Material: world.Material(blob[i]),
			Top:      world.MinY + int(binary.BigEndian.Uint16(blob[i+1:])),
		})
	}
	return world.TowerFromSpans(spans)
}
