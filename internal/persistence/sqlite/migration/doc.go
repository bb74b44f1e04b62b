// Package migration applies the versioned SQL files that build the eBilik SQLite schema.
//
// Migration files follow the {version}_{description}.sql naming convention
// (e.g. "001_initial_schema.sql") and are read from an fs.FS, normally the
// directory embedded into the sqlite package. Applied versions are recorded in a
// schema_migrations table so every file runs exactly once.
//
// Example usage:
//
//	runner := migration.NewRunner(migration.NewScanner(files, "."), migration.NewSQLiteExecutor(db), logger)
//	if err := runner.Run(ctx); err != nil {
//		return err
//	}
package migration
