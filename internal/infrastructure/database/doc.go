// Package database provides SQLite connectivity for the IoT admin core.
//
// The database backs the object/state tree that smart-name edits and
// mobile-app telemetry are written to. This package manages:
//   - Connection lifecycle (open, health check, close)
//   - WAL mode and busy timeout configuration
//   - Embedded schema migrations (see the migrations package)
//
// # Usage
//
//	db, err := database.Open(ctx, database.Config{
//	    Path:        cfg.Database.Path,
//	    WALMode:     cfg.Database.WALMode,
//	    BusyTimeout: cfg.Database.BusyTimeout,
//	})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Path ":memory:" opens a private in-memory database, which tests use.
package database
