package timeoutcache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DiskTier is the persistent cache tier fronted by the in-memory TTL+LRU
// tier. Adapted directly from the teacher's internal/work/cache.go
// key/value/expires_at schema, generalized from work-item caching to
// arbitrary function memoization.
type DiskTier struct {
	db *sql.DB
}

// OpenDiskTier opens (creating if needed) a sqlite-backed disk cache at path.
func OpenDiskTier(path string) (*DiskTier, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open disk cache: %w", err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS cache (
	key TEXT PRIMARY KEY,
	value BLOB NOT NULL,
	expires_at INTEGER NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}
	return &DiskTier{db: db}, nil
}

// Close closes the underlying database handle.
func (d *DiskTier) Close() error { return d.db.Close() }

// Get returns the cached value for key if present and unexpired.
func (d *DiskTier) Get(key string) (value []byte, ok bool, err error) {
	var expiresAt int64
	row := d.db.QueryRow("SELECT value, expires_at FROM cache WHERE key = ?", key)
	if err := row.Scan(&value, &expiresAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	if time.Now().Unix() > expiresAt {
		return nil, false, nil
	}
	return value, true, nil
}

// Set stores value under key with the given expiry.
func (d *DiskTier) Set(key string, value []byte, expiresAt time.Time) error {
	_, err := d.db.Exec(`
		INSERT INTO cache (key, value, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at
	`, key, value, expiresAt.Unix())
	return err
}

// Delete removes a cache entry.
func (d *DiskTier) Delete(key string) error {
	_, err := d.db.Exec("DELETE FROM cache WHERE key = ?", key)
	return err
}

// GCExpired removes every entry whose expiry has passed. Intended to be run
// periodically by a cron job (see internal/trainer's maintenance schedule).
func (d *DiskTier) GCExpired() (int64, error) {
	res, err := d.db.Exec("DELETE FROM cache WHERE expires_at < ?", time.Now().Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
