package migrate

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sql/*.sql
var migrationsFS embed.FS

// Status describes the schema version of a database.
type Status struct {
	Version uint `json:"version"`
	Latest  uint `json:"latest"`
	Dirty   bool `json:"dirty"`
	Pending bool `json:"pending"`
}

// The migrator is never closed: closing the sqlite driver closes conn too.
func migrator(conn *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "sql")
	if err != nil {
		return nil, fmt.Errorf("load migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(conn, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration driver: %w", err)
	}
	return migrate.NewWithInstance("iofs", src, "sqlite", driver)
}

// Migrate applies embedded migrations in order.
func Migrate(conn *sql.DB) error {
	m, err := migrator(conn)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// CurrentStatus reports the applied and latest embedded schema versions.
func CurrentStatus(conn *sql.DB) (Status, error) {
	m, err := migrator(conn)
	if err != nil {
		return Status{}, err
	}
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return Status{}, err
	}
	src, err := iofs.New(migrationsFS, "sql")
	if err != nil {
		return Status{}, err
	}
	var latest uint
	if first, err := src.First(); err == nil {
		latest = first
		for {
			next, err := src.Next(latest)
			if err != nil {
				break
			}
			latest = next
		}
	}
	return Status{Version: version, Latest: latest, Dirty: dirty, Pending: version < latest}, nil
}
