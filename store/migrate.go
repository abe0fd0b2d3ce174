package store

import (
	"embed"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/sirupsen/logrus"

	"github.com/mintlinehq/mintline/config"
)

//go:embed sql/*.sql
var migrationFiles embed.FS

// MigrateUp applies all pending schema migrations.
func MigrateUp(configuration *config.Configuration) error {
	db, err := ConnectDB(configuration.DataSource.Dns)
	if err != nil {
		return err
	}
	defer db.Close()

	source := migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrationFiles,
		Root:       "sql",
	}
	applied, err := migrate.Exec(db, "postgres", source, migrate.Up)
	if err != nil {
		return err
	}
	logrus.Infof("applied %d migrations", applied)
	return nil
}

// MigrateDown rolls back max steps.
func MigrateDown(configuration *config.Configuration, max int) error {
	db, err := ConnectDB(configuration.DataSource.Dns)
	if err != nil {
		return err
	}
	defer db.Close()

	source := migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrationFiles,
		Root:       "sql",
	}
	rolledBack, err := migrate.ExecMax(db, "postgres", source, migrate.Down, max)
	if err != nil {
		return err
	}
	logrus.Infof("rolled back %d migrations", rolledBack)
	return nil
}
