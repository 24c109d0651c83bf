package database

import (
	"database/sql"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres" // lib/pq
	DriverPgx      = "pgx"      // jackc/pgx stdlib
)

type Config struct {
	Driver string
	DSN    string
}

// DB is the process-wide store handle. It is opened once by each binary and
// passed explicitly to every component that needs it.
type DB struct {
	*sql.DB
	Driver string
}

func DefaultConfig() Config {
	driver := os.Getenv("PALMER_DB_DRIVER")
	if driver == "" {
		driver = DriverSQLite
	}
	if dsn := os.Getenv("PALMER_DB_DSN"); dsn != "" || driver != DriverSQLite {
		// Open rejects an empty DSN for server drivers.
		return Config{Driver: driver, DSN: dsn}
	}

	// local default: ~/.palmer/data.db
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return Config{
		Driver: DriverSQLite,
		DSN:    filepath.Join(home, ".palmer", "data.db"),
	}
}

func EnsureDataDir(cfg Config) error {
	if cfg.Driver != DriverSQLite {
		return nil
	}
	return os.MkdirAll(filepath.Dir(cfg.DSN), 0o755)
}

func Open(cfg Config) (*DB, error) {
	switch cfg.Driver {
	case DriverSQLite, DriverPostgres, DriverPgx:
	default:
		return nil, eris.Errorf("unsupported db driver: %q", cfg.Driver)
	}
	if cfg.Driver != DriverSQLite && cfg.DSN == "" {
		return nil, eris.Errorf("db driver %q requires a dsn (PALMER_DB_DSN)", cfg.Driver)
	}

	if err := EnsureDataDir(cfg); err != nil {
		return nil, eris.Wrap(err, "ensure data dir")
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", cfg.Driver)
	}

	if cfg.Driver == DriverSQLite {
		if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
			_ = db.Close()
			return nil, eris.Wrap(err, "pragma foreign_keys")
		}
		if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
			_ = db.Close()
			return nil, eris.Wrap(err, "pragma journal_mode")
		}
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, eris.Wrapf(err, "ping %s", cfg.Driver)
	}

	return &DB{DB: db, Driver: cfg.Driver}, nil
}

func MustOpen(cfg Config) *DB {
	db, err := Open(cfg)
	if err != nil {
		zap.L().Fatal("failed to open db", zap.String("driver", cfg.Driver), zap.Error(err))
	}
	return db
}

// Rebind rewrites the ? placeholders of q into the $n form postgres drivers
// expect. Queries in this repo never contain a literal '?'.
func (d *DB) Rebind(q string) string {
	if d.Driver == DriverSQLite {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
