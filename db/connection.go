package db

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/xiaoyuanzhu-com/my-life-db/log"
)

var logger = log.GetLogger("DB")

// Open creates and migrates the sqlite3 connection at path, returning an
// owned handle. Callers (main, tests) hold the returned *sql.DB and pass it
// explicitly into component constructors (the Store, in particular) — there
// is no package-global connection to reach for instead.
//
// The literal path ":memory:" opens a non-persistent store, used by tests.
func Open(path string) (*sql.DB, error) {
	dsn := buildDSN(path)

	if path != ":memory:" {
		if err := ensureDatabaseDirectory(path); err != nil {
			return nil, err
		}
	}

	database, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	// SQLite works best with a single writer; readers share the same
	// connection, which database/sql hands to one caller at a time.
	database.SetMaxOpenConns(1)
	database.SetMaxIdleConns(1)

	if err := database.Ping(); err != nil {
		database.Close()
		return nil, err
	}

	if err := runMigrations(database); err != nil {
		database.Close()
		return nil, err
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return database, nil
}

// buildDSN constructs the sqlite3 DSN for the configured database path.
// File-backed stores use WAL mode; it is skipped for the ":memory:" test
// store, which SQLite doesn't support in WAL mode. Because the pool is capped
// at one connection (see Open), reads from this process still wait while the
// indexer's write transaction holds that connection. Given that cap, a plain
// ":memory:" is used rather than a shared-cache URI — the latter would let
// unrelated Open(":memory:") calls within the same test binary see each
// other's rows.
func buildDSN(path string) string {
	if path == ":memory:" {
		return ":memory:?_foreign_keys=1&_busy_timeout=5000"
	}
	return path + "?_foreign_keys=1&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_cache_size=-64000"
}

// ensureDatabaseDirectory creates the directory for the database file if it doesn't exist.
func ensureDatabaseDirectory(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
		logger.Info().Str("dir", dir).Msg("created database directory")
	}
	return nil
}
