package db

import (
	"log"

	"taskflow/internal/domain/errors"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Migration applies all pending migrations from migratePath to the
// database at dbDSN.
func Migration(dbDSN, migratePath string) error {
	if dbDSN == "" {
		return errors.ErrDatabaseConnection
	}
	if migratePath == "" {
		return errors.ErrConfigInvalidFormat
	}

	m, err := migrate.New("file://"+migratePath, dbDSN)
	if err != nil {
		log.Println("[ERROR] Failed to initialize migrations:", err)
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		log.Println("[ERROR] Failed to apply migrations:", err)
		return err
	}
	return nil
}
