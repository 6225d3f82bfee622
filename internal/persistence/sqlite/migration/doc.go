// Package migration applies versioned SQL schema files to a SQLite database.
//
// Migration files are read from an fs.FS (normally an embedded directory) and
// must be named {version}_{description}.sql, e.g. "001_initial_schema.sql".
// Each file runs inside its own transaction and is recorded in the
// schema_migrations table together with its checksum, so a file is applied at
// most once and an edited file that was already applied is reported.
//
// Example usage:
//
//	manager := migration.NewManager(migration.NewScanner(files, "migrations"), migration.NewSQLiteExecutor(db), logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
