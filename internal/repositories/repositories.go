package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/dash/internal/shared"
)

// scanner is satisfied by [sql.Row] and [sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}

// store carries what every repository needs to talk to the database.
type store struct {
	db     *sql.DB
	driver shared.Driver
	clock  shared.Clock
}

func newStore(db *sql.DB, driver shared.Driver, clock shared.Clock) store {
	if driver == "" {
		driver = shared.DriverSQLite
	}
	return store{db: db, driver: driver, clock: clock}
}

// now returns the current instant in UTC, truncated to microseconds so every driver round-trips it unchanged.
func (s store) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Microsecond)
}

func (s store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.driver.Rebind(query), args...)
}

func (s store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.driver.Rebind(query), args...)
}

func (s store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.driver.Rebind(query), args...)
}

// insert runs an INSERT and returns the generated integer id.
//
// Postgres has no LastInsertId, so the id is read back with RETURNING.
func (s store) insert(ctx context.Context, query string, args ...any) (int64, error) {
	if s.driver == shared.DriverPostgres {
		var id int64
		if err := s.queryRow(ctx, query+" RETURNING id", args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}

	res, err := s.exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// affected fails with notFound when res touched no rows.
func affected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
