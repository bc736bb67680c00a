// Package migration creates the schema on startup so a fresh install is
// usable out of the box, local or self-hosted.
package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"

	catalogdomain "github.com/smallbiznis/gastrack/internal/catalog/domain"
	ledgerdomain "github.com/smallbiznis/gastrack/internal/ledger/domain"
	receivabledomain "github.com/smallbiznis/gastrack/internal/receivable/domain"
	shipmentdomain "github.com/smallbiznis/gastrack/internal/shipment/domain"
)

// RunMigrations applies the embedded SQL migrations against postgres.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// AutoMigrate builds the schema from the model tags. Non-postgres dialects
// (sqlite dev setups, mysql) take this path instead of the SQL files.
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&catalogdomain.Tenant{},
		&catalogdomain.CylinderSize{},
		&catalogdomain.Product{},
		&catalogdomain.Driver{},
		&ledgerdomain.LedgerDay{},
		&ledgerdomain.ProcessedEvent{},
		&shipmentdomain.ShipmentRecord{},
		&receivabledomain.DriverDay{},
	)
}
