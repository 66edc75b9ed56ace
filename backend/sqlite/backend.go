package sqlite

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mwantia/snapcache/backend"
	"github.com/tidwall/btree"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteBackend stores the object hierarchy in a single SQLite table:
//
// Layer 1: In-memory B-tree for fast key → ID lookups (keys map)
// Layer 2: SQLite table (snapcache_objects) holding metadata and content
//
// Every row remembers its parent key so directory listings are a single
// indexed query. Timestamps are stored as Unix nanoseconds.
type SQLiteBackend struct {
	mu sync.RWMutex
	db *sql.DB

	// In-memory B-tree for fast key lookups
	keys *btree.Map[string, string]
}

// NewSQLiteBackend creates a new SQLite-backed backend.
// The dbPath can be ":memory:" for an in-memory database or a file path.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// An in-memory database only exists for the connection that created it
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, err
	}

	sb := &SQLiteBackend{
		db:   db,
		keys: btree.NewMap[string, string](0),
	}

	if err := sb.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return sb, nil
}

// initSchema creates the database schema and the root directory row.
func (sb *SQLiteBackend) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapcache_objects (
		id TEXT PRIMARY KEY,
		key TEXT NOT NULL UNIQUE,
		parent TEXT,
		mode INTEGER NOT NULL,
		size INTEGER NOT NULL DEFAULT 0,
		modify_time INTEGER NOT NULL,
		create_time INTEGER NOT NULL,
		content BLOB
	);
	CREATE INDEX IF NOT EXISTS idx_snapcache_objects_parent ON snapcache_objects(parent);
	`

	if _, err := sb.db.Exec(schema); err != nil {
		return err
	}

	now := time.Now().UnixNano()
	_, err := sb.db.Exec(`
		INSERT OR IGNORE INTO snapcache_objects (id, key, parent, mode, size, modify_time, create_time)
		VALUES (?, '', NULL, ?, 0, ?, ?)
	`, uuid.Must(uuid.NewV7()).String(), int64(rootMode), now, now)

	return err
}

// Name returns the identifier name defined for this backend
func (*SQLiteBackend) Name() string {
	return "sqlite"
}

// Open is part of the lifecycle behaviour and gets called when mounting this backend.
func (sb *SQLiteBackend) Open(ctx context.Context) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if err := sb.db.PingContext(ctx); err != nil {
		return err
	}

	// Load all keys into memory B-tree
	rows, err := sb.db.QueryContext(ctx, "SELECT key, id FROM snapcache_objects")
	if err != nil {
		return err
	}
	defer rows.Close()

	sb.keys.Clear()
	for rows.Next() {
		var key, id string
		if err := rows.Scan(&key, &id); err != nil {
			return err
		}
		sb.keys.Set(key, id)
	}

	return rows.Err()
}

// Close is part of the lifecycle behaviour and gets called when unmounting this backend.
func (sb *SQLiteBackend) Close(ctx context.Context) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	sb.keys.Clear()
	return sb.db.Close()
}

// GetCapabilities returns a list of capabilities supported by this backend.
func (sb *SQLiteBackend) GetCapabilities() *backend.BackendCapabilities {
	return &backend.BackendCapabilities{
		Capabilities: []backend.BackendCapability{
			backend.CapabilityObjectStorage,
			backend.CapabilityPersistent,
		},
	}
}
