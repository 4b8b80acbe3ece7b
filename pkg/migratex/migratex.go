// Package migratex applies the embedded SQL migrations every campus store
// ships with.
package migratex

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Up applies every pending migration found at the root of fsys. A schema
// that is already current is not an error. dbName only labels errors and
// golang-migrate's own logging.
func Up(fsys fs.FS, dbName string, driver database.Driver) error {
	source, err := iofs.New(fsys, ".")
	if err != nil {
		return fmt.Errorf("%s migrations: %w", dbName, err)
	}

	m, err := migrate.NewWithInstance("iofs", source, dbName, driver)
	if err != nil {
		return fmt.Errorf("%s migrations: %w", dbName, err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%s migrations: %w", dbName, err)
	}
	return nil
}
