package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/MKhiriev/go-doc-vault/internal/config"
	"github.com/MKhiriev/go-doc-vault/internal/logger"
)

const sqliteBusyTimeoutMillis = "5000"

// NewConnectSQLite opens the SQLite database described by cfg.DSN.
//
// A plain file path is created (with its parent directory) if missing and
// opened in WAL mode. ":memory:" and "file:" URIs are passed through. The pool
// is limited to a single connection: SQLite serialises writers anyway, and an
// in-memory database only lives as long as its connection.
func NewConnectSQLite(ctx context.Context, cfg config.DB, log *logger.Logger) (*DB, error) {
	raw := cfg.DSN
	if raw == "" || raw == "memory" {
		raw = ":memory:"
	}

	if isPlainPath(raw) {
		if err := createLocalDBFileIfNotExists(raw); err != nil {
			log.Err(err).Str("func", "NewConnectSQLite").Msg("error creating database file")
			return nil, fmt.Errorf("error creating database file: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", sqliteDSN(raw))
	if err != nil {
		log.Err(err).Str("func", "NewConnectSQLite").Msg("error connecting database")
		return nil, fmt.Errorf("error opening connection to DB: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	// ping database
	if err = conn.PingContext(ctx); err != nil {
		log.Err(err).Str("func", "NewConnectSQLite").Msg("error connecting database (ping)")
		_ = conn.Close()
		return nil, fmt.Errorf("error pinging DB: %w", err)
	}
	log.Debug().Str("func", "NewConnectSQLite").Str("dsn", raw).Msg("connected to database successfully")

	return NewDB(conn, log), nil
}

func isMemory(dsn string) bool {
	return strings.HasPrefix(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

func isPlainPath(dsn string) bool {
	return !isMemory(dsn) && !strings.HasPrefix(dsn, "file:")
}

// sqliteDSN appends the driver pragmas understood by mattn/go-sqlite3.
func sqliteDSN(dsn string) string {
	params := url.Values{}
	params.Set("_busy_timeout", sqliteBusyTimeoutMillis)
	if !isMemory(dsn) {
		params.Set("_journal_mode", "WAL")
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + params.Encode()
}

func createLocalDBFileIfNotExists(dbFile string) error {
	if _, err := os.Stat(dbFile); os.IsNotExist(err) {
		if dir := filepath.Dir(dbFile); dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return fmt.Errorf("error creating DB dir: %w", err)
			}
		}
		// if not found - create
		f, err := os.OpenFile(dbFile, os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("error creating DB file: %w", err)
		}
		f.Close()
	}

	// file already exists
	return nil
}
