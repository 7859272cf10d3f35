package history

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrateUp applies every pending migration.
func MigrateUp(path string) error {
	return withMigrator(path, func(m *migrate.Migrate) error {
		return ignoreNoChange(m.Up(), "apply migrations")
	})
}

// MigrateDown rolls back steps migrations; steps < 0 rolls back all.
func MigrateDown(path string, steps int) error {
	return withMigrator(path, func(m *migrate.Migrate) error {
		if steps < 0 {
			return ignoreNoChange(m.Down(), "roll back migrations")
		}
		return ignoreNoChange(m.Steps(-steps), "roll back migrations")
	})
}

// MigrationVersion reports the applied schema version, 0 on a fresh file.
func MigrationVersion(path string) (version uint, dirty bool, err error) {
	err = withMigrator(path, func(m *migrate.Migrate) error {
		var verr error
		version, dirty, verr = m.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			return nil
		}
		if verr != nil {
			return fmt.Errorf("read schema version: %w", verr)
		}
		return nil
	})
	return version, dirty, err
}

func ignoreNoChange(err error, op string) error {
	if err == nil || errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// withMigrator runs fn against a migrator on its own connection. The sqlite
// driver owns that connection and closes it with the migrator.
func withMigrator(path string, fn func(*migrate.Migrate) error) error {
	db, err := openDB(path)
	if err != nil {
		return err
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		db.Close()
		return fmt.Errorf("load migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{DatabaseName: "main"})
	if err != nil {
		db.Close()
		return fmt.Errorf("sqlite migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		driver.Close()
		return fmt.Errorf("init migrator: %w", err)
	}
	defer m.Close()
	return fn(m)
}
