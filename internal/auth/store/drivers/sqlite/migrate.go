package sqlite

import (
	"github.com/aussiebroadwan/campus/internal/auth/store/drivers/sqlite/migrations"
	"github.com/aussiebroadwan/campus/pkg/migratex"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
)

// ApplyMigrations brings the refresh token schema up to date.
func (s *Store) ApplyMigrations() error {
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return err
	}
	return migratex.Up(migrations.Migrations, "sqlite", driver)
}
