package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"net/url"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Direction selects which way Migrate moves the schema.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// connParams are applied to every pooled connection. The sqlite time format
// keeps DATETIME values lexically comparable as long as they are written in UTC.
func connParams() url.Values {
	v := url.Values{}
	v.Add("_pragma", "foreign_keys(1)")
	v.Add("_pragma", "busy_timeout(5000)")
	v.Set("_time_format", "sqlite")
	return v
}

// Open opens the database file at dbPath and brings the schema up to date.
func Open(dbPath string) (*sql.DB, error) {
	db, err := Connect(dbPath)
	if err != nil {
		return nil, err
	}

	if err := Migrate(db, Up, 0); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("failed to run migrations: %w (also failed to close db: %v)", err, cerr)
		}
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// Connect opens the database file at dbPath without touching the schema.
func Connect(dbPath string) (*sql.DB, error) {
	params := connParams()
	params.Add("_pragma", "journal_mode(WAL)")
	dsn := fmt.Sprintf("file:%s?%s", dbPath, params.Encode())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// OpenForTesting returns a migrated, private in-memory database. The pool is
// capped at one connection so the memory database lives as long as the *sql.DB.
func OpenForTesting() (*sql.DB, error) {
	params := connParams()
	params.Set("mode", "memory")
	params.Set("cache", "shared")
	dsn := fmt.Sprintf("file:passport_%s?%s", uuid.NewString(), params.Encode())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open test database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := Migrate(db, Up, 0); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// Migrate applies embedded migrations. steps == 0 moves all the way in the
// given direction; otherwise at most steps migrations are applied or reverted.
func Migrate(db *sql.DB, direction Direction, steps int) error {
	m, err := newMigrator(db)
	if err != nil {
		return err
	}

	switch {
	case steps > 0 && direction == Down:
		err = m.Steps(-steps)
	case steps > 0:
		err = m.Steps(steps)
	case direction == Down:
		err = m.Down()
	case direction == Up:
		err = m.Up()
	default:
		return fmt.Errorf("unknown migration direction %q", direction)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to migrate %s: %w", direction, err)
	}
	return nil
}

// Version reports the applied schema version. A database with no migrations
// applied reports version 0.
func Version(db *sql.DB) (uint, bool, error) {
	m, err := newMigrator(db)
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, dirty, nil
}

// newMigrator wires the embedded migrations to db. The migrator is never
// closed because closing it would close db as well.
func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return m, nil
}
