package shared

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Driver names a supported database/sql driver.
type Driver string

const (
	DriverSQLite   Driver = "sqlite3"
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
)

// Drivers lists the supported drivers.
func Drivers() []Driver {
	return []Driver{DriverSQLite, DriverPostgres, DriverMySQL}
}

// Rebind rewrites `?` placeholders into the driver's bind syntax.
func (d Driver) Rebind(query string) string {
	if d != DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
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

// NewDatabase opens a connection for the given driver and data source.
//
// For sqlite3 the source is a file path or ":memory:". In-memory databases are pinned to a single
// connection so every query sees the same schema. For postgres the source is validated with
// [pq.NewConnector]; for mysql it is parsed with [mysql.ParseDSN], forced to parse time values, and
// made to report matched rather than changed rows.
func NewDatabase(driver Driver, source string) (*sql.DB, error) {
	var db *sql.DB

	switch driver {
	case DriverSQLite:
		var err error
		if db, err = sql.Open(string(driver), source); err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if source == ":memory:" || strings.Contains(source, "mode=memory") {
			db.SetMaxOpenConns(1)
		}
	case DriverPostgres:
		connector, err := pq.NewConnector(source)
		if err != nil {
			return nil, fmt.Errorf("%w: postgres dsn: %v", ErrInvalidConfig, err)
		}
		db = sql.OpenDB(connector)
	case DriverMySQL:
		cfg, err := mysql.ParseDSN(source)
		if err != nil {
			return nil, fmt.Errorf("%w: mysql dsn: %v", ErrInvalidConfig, err)
		}
		cfg.ParseTime = true
		cfg.ClientFoundRows = true
		if cfg.Loc == nil {
			cfg.Loc = time.UTC
		}
		connector, err := mysql.NewConnector(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		db = sql.OpenDB(connector)
	default:
		return nil, fmt.Errorf("%w: unknown database driver %q", ErrInvalidConfig, driver)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// OpenDatabase opens, tunes, and migrates the database described by cfg.
func OpenDatabase(cfg DatabaseConfig) (*sql.DB, error) {
	driver := Driver(cfg.Driver)
	db, err := NewDatabase(driver, cfg.Source())
	if err != nil {
		return nil, err
	}

	if driver != DriverSQLite || cfg.Source() != ":memory:" {
		ConfigureDatabase(db, cfg.MaxOpenConns, cfg.MaxIdleConns)
	}

	if err := RunMigrations(db, driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// ConfigureDatabase sets connection pool settings for the database.
// Recommended for production use to limit connections and improve performance.
func ConfigureDatabase(db *sql.DB, maxOpenConns, maxIdleConns int) {
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
}
