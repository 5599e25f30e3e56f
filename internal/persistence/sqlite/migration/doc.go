// Package migration applies versioned SQL schema changes to SQLite databases.
//
// Migration files live in an fs.FS (usually an embedded directory) and follow
// the naming convention {version}_{description}.sql, e.g. "001_initial_schema.sql".
// Applied versions are recorded in a schema_migrations table so each file runs
// exactly once, inside its own transaction.
//
// Example usage:
//
//	manager := NewManager(NewFSScanner(files), NewSQLiteExecutor(db), logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return fmt.Errorf("migrate: %w", err)
//	}
package migration
