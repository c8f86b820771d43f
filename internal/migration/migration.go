package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/ramonsune/custodia360/internal/checkout"
	"github.com/ramonsune/custodia360/internal/draft"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Models lists the tables owned by the onboarding service.
func Models() []any {
	return []any{&draft.Record{}, &checkout.PendingContract{}}
}

// Apply brings the schema up to date. Postgres runs the embedded SQL
// migrations; other dialects fall back to gorm AutoMigrate.
func Apply(conn *gorm.DB, log *zap.Logger) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if conn.Dialector.Name() != "postgres" {
		log.Info("applying schema with automigrate", zap.String("dialect", conn.Dialector.Name()))
		return conn.AutoMigrate(Models()...)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return migratePostgres(sqlDB, log)
}

const migrationsTable = "onboarding_schema_migrations"

func migratePostgres(db *sql.DB, log *zap.Logger) error {
	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrator: %w", err)
	}
	// m.Close would also close the pool shared with gorm.

	if version, dirty, verr := m.Version(); verr == nil && dirty {
		return fmt.Errorf("schema version %d is dirty", version)
	}

	switch err := m.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
		log.Debug("schema up to date")
	case err != nil:
		return fmt.Errorf("apply migrations: %w", err)
	}

	if version, _, err := m.Version(); err == nil {
		log.Info("schema migrated", zap.Uint("version", version))
	}
	return nil
}
