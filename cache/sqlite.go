package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"findsimilar/imageprocessor"
	"findsimilar/logging"
	"findsimilar/types"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/afero"
)

// schemaVersion is bumped whenever the fingerprints table changes shape
const schemaVersion = 1

const createSchemaSQL = `
CREATE TABLE IF NOT EXISTS fingerprints (
	path TEXT PRIMARY KEY,
	size INTEGER NOT NULL,
	mod_time INTEGER NOT NULL,
	algorithm TEXT NOT NULL,
	hash TEXT NOT NULL,
	updated_at TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_fingerprints_algorithm ON fingerprints(algorithm);
CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

// SQLiteCache stores fingerprints in a SQLite database file. Reads run
// concurrently on the connection pool; writes are serialized.
type SQLiteCache struct {
	db   *sql.DB
	path string

	writeMu sync.Mutex
}

// Stats summarizes the cache contents
type Stats struct {
	Entries      int
	UniqueHashes int
}

// Open opens or creates the cache database at path. A file that is not a
// readable database is moved aside and replaced by an empty cache. The
// returned error wraps ErrUnavailable when no usable database can be created.
func Open(path string) (*SQLiteCache, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, &CacheError{Op: "open", Path: path, Err: err})
		}
	}

	c, err := openDatabase(path)
	if err == nil {
		return c, nil
	}

	if _, statErr := os.Stat(path); statErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, &CacheError{Op: "open", Path: path, Err: err})
	}

	quarantined := fmt.Sprintf("%s.corrupt-%d", path, time.Now().Unix())
	logging.LogWarning("Cache %s is unreadable (%v), moving it to %s", path, err, quarantined)
	if renameErr := os.Rename(path, quarantined); renameErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, &CacheError{Op: "quarantine", Path: path, Err: renameErr})
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		os.Remove(path + suffix)
	}

	c, err = openDatabase(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, &CacheError{Op: "open", Path: path, Err: err})
	}
	return c, nil
}

func openDatabase(path string) (*SQLiteCache, error) {
	dsn, err := dsnFor(path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	// an empty database is writable; write once so unwritable files fail here
	// instead of on the first Store
	if _, err := db.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES ('opened_at', ?)", time.Now().Format(time.RFC3339)); err != nil {
		db.Close()
		return nil, err
	}

	logging.DebugLog("Opened fingerprint cache %s", path)
	return &SQLiteCache{db: db, path: path}, nil
}

// dsnFor builds a file: URI for path. The path is percent-escaped so '?'
// and '#' in directory names stay part of the file name.
func dsnFor(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	u := url.URL{
		Scheme:   "file",
		Path:     filepath.ToSlash(abs),
		RawQuery: "_busy_timeout=5000&_journal_mode=WAL",
	}
	return u.String(), nil
}

func initSchema(db *sql.DB) error {
	if _, err := db.Exec(createSchemaSQL); err != nil {
		return err
	}

	// databases written before updated_at existed
	if err := ensureColumn(db, "fingerprints", "updated_at", "TEXT NOT NULL DEFAULT ''"); err != nil {
		return err
	}

	var stored string
	err := db.QueryRow("SELECT value FROM meta WHERE key = 'schema_version'").Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = db.Exec("INSERT INTO meta (key, value) VALUES ('schema_version', ?)", strconv.Itoa(schemaVersion))
		return err
	case err != nil:
		return err
	}

	if v, convErr := strconv.Atoi(stored); convErr != nil || v > schemaVersion {
		// newer writers only add columns; rows that do not parse are misses
		logging.LogWarning("Cache schema version %q is newer than %d, reading what is compatible", stored, schemaVersion)
	}
	return nil
}

// ensureColumn adds a column to an existing table if it is missing
func ensureColumn(db *sql.DB, table, column, definition string) error {
	var present bool
	err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM pragma_table_info('%s') WHERE name = ?", table), column).Scan(&present)
	if err != nil {
		return fmt.Errorf("error checking for %s column: %v", column, err)
	}
	if present {
		return nil
	}

	if _, err := db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s;", table, column, definition)); err != nil {
		return fmt.Errorf("error adding %s column: %v", column, err)
	}
	logging.DebugLog("Added '%s' column to existing cache schema", column)
	return nil
}

// Path returns the database file location
func (c *SQLiteCache) Path() string { return c.path }

// Lookup returns the stored fingerprint when size, modification time and
// algorithm all match. Read and parse failures are logged and count as misses.
func (c *SQLiteCache) Lookup(path string, sig Signature, alg types.Algorithm) (types.Fingerprint, bool) {
	var (
		size, modTime int64
		storedAlg     string
		hash          string
	)
	err := c.db.QueryRow(
		"SELECT size, mod_time, algorithm, hash FROM fingerprints WHERE path = ?", path,
	).Scan(&size, &modTime, &storedAlg, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false
	}
	if err != nil {
		logging.DebugLog("%v", &CacheError{Op: "lookup", Path: path, Err: err})
		return 0, false
	}

	if size != sig.Size || modTime != sig.ModTime || types.Algorithm(storedAlg) != alg {
		return 0, false
	}

	fp, err := imageprocessor.ParseFingerprint(alg, hash)
	if err != nil {
		logging.DebugLog("%v", &CacheError{Op: "lookup", Path: path, Err: err})
		return 0, false
	}
	return fp, true
}

// Store records fp for path, replacing any previous entry
func (c *SQLiteCache) Store(path string, sig Signature, alg types.Algorithm, fp types.Fingerprint) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_, err := c.db.Exec(`
		INSERT OR REPLACE INTO fingerprints (path, size, mod_time, algorithm, hash, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		path, sig.Size, sig.ModTime, string(alg),
		imageprocessor.FormatFingerprint(alg, fp),
		time.Now().Format(time.RFC3339),
	)
	if err != nil {
		return &CacheError{Op: "store", Path: path, Err: err}
	}
	return nil
}

// Entries returns every readable entry computed with alg, sorted by path
func (c *SQLiteCache) Entries(alg types.Algorithm) ([]Entry, error) {
	rows, err := c.db.Query(
		"SELECT path, size, mod_time, hash FROM fingerprints WHERE algorithm = ? ORDER BY path", string(alg),
	)
	if err != nil {
		return nil, &CacheError{Op: "entries", Err: err}
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e    Entry
			hash string
		)
		if err := rows.Scan(&e.Path, &e.Signature.Size, &e.Signature.ModTime, &hash); err != nil {
			return nil, &CacheError{Op: "entries", Err: err}
		}
		fp, err := imageprocessor.ParseFingerprint(alg, hash)
		if err != nil {
			logging.DebugLog("Skipping unreadable cache entry for %s: %v", e.Path, err)
			continue
		}
		e.Algorithm = alg
		e.Fingerprint = fp
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &CacheError{Op: "entries", Err: err}
	}
	return out, nil
}

// Prune deletes entries whose file is gone or has changed on fs and returns
// how many were removed
func (c *SQLiteCache) Prune(fs afero.Fs) (int, error) {
	rows, err := c.db.Query("SELECT path, size, mod_time FROM fingerprints")
	if err != nil {
		return 0, &CacheError{Op: "prune", Err: err}
	}

	var stale []string
	for rows.Next() {
		var (
			path string
			sig  Signature
		)
		if err := rows.Scan(&path, &sig.Size, &sig.ModTime); err != nil {
			rows.Close()
			return 0, &CacheError{Op: "prune", Err: err}
		}
		if !isCurrent(fs, path, sig) {
			stale = append(stale, path)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, &CacheError{Op: "prune", Err: err}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	tx, err := c.db.Begin()
	if err != nil {
		return 0, &CacheError{Op: "prune", Err: err}
	}
	for _, path := range stale {
		if _, err := tx.Exec("DELETE FROM fingerprints WHERE path = ?", path); err != nil {
			tx.Rollback()
			return 0, &CacheError{Op: "prune", Path: path, Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, &CacheError{Op: "prune", Err: err}
	}

	logging.DebugLog("Pruned %d stale cache entries", len(stale))
	return len(stale), nil
}

// Stats counts entries and distinct fingerprints
func (c *SQLiteCache) Stats() (*Stats, error) {
	var stats Stats
	err := c.db.QueryRow("SELECT COUNT(*), COUNT(DISTINCT hash) FROM fingerprints").Scan(&stats.Entries, &stats.UniqueHashes)
	if err != nil {
		return nil, &CacheError{Op: "stats", Err: fmt.Errorf("failed to count entries: %v", err)}
	}
	return &stats, nil
}

// Close closes the database
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
