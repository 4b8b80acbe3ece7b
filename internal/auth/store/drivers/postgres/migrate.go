package postgres

import (
	"github.com/aussiebroadwan/campus/internal/auth/store/drivers/postgres/migrations"
	"github.com/aussiebroadwan/campus/pkg/migratex"
	"github.com/golang-migrate/migrate/v4/database/postgres"
)

// ApplyMigrations brings the schema up to date. golang-migrate takes an
// advisory lock, so replicas starting together do not race.
func (s *Store) ApplyMigrations() error {
	driver, err := postgres.WithInstance(s.db, &postgres.Config{})
	if err != nil {
		return err
	}
	return migratex.Up(migrations.Migrations, "postgres", driver)
}
