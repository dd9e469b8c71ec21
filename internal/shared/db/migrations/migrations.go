package migrations

import (
	"embed"
	"errors"
	"fmt"

	"github.com/cristianortiz/pigeonAuction/internal/shared/logger"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

var log = logger.GetLogger() // Instancia logger para el pakg

//go:embed sql/*.sql
var files embed.FS

// RunMigrations applies every pending up migration, the files are embedded
// in the binary so it works from any working directory
func RunMigrations(dsn string) error {
	src, err := iofs.New(files, "sql")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	version, dirty, _ := m.Version()
	log.Info("RunMigrations: schema up to date",
		zap.Uint("version", version),
		zap.Bool("dirty", dirty))
	return nil
}
