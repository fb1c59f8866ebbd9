// Package exec runs resolved query triples against a database.
//
// SQLite goes through mattn/go-sqlite3 with a REGEXP function registered on
// every connection; Postgres goes through the pgx database/sql driver or,
// with QueryPgx, straight through a pgx connection or pool.
package exec

import (
	"database/sql"
	"fmt"
	"regexp"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mattn/go-sqlite3"

	"github.com/roach88/nestq/internal/bind"
	"github.com/roach88/nestq/internal/qerr"
)

// sqliteDriver is go-sqlite3 with a regexp(pattern, text) function, which
// SQLite calls for "text REGEXP pattern".
const sqliteDriver = "sqlite3_nestq"

func init() {
	sql.Register(sqliteDriver, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("regexp", regexpMatch, true)
		},
	})
}

func regexpMatch(pattern, s string) (bool, error) {
	return regexp.MatchString(pattern, s)
}

// Open opens the database at dsn for dialect d.
//
// SQLite databases are configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// and a single connection, so temp tables and ":memory:" databases are
// visible to every statement.
func Open(d bind.Dialect, dsn string) (*sql.DB, error) {
	driver, err := driverName(d)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if d.Name == bind.SQLite.Name {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		if err := applyPragmas(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragmas: %w", err)
		}
	}
	return db, nil
}

func driverName(d bind.Dialect) (string, error) {
	switch d.Name {
	case bind.SQLite.Name:
		return sqliteDriver, nil
	case bind.Postgres.Name:
		return "pgx", nil
	default:
		return "", qerr.NewUnsupported("Open", d.Name)
	}
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}
