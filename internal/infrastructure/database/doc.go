// Package database provides SQLite connectivity for the Midea bridge.
//
// The bridge keeps its device registry and climate state history in a
// single SQLite file opened through mattn/go-sqlite3. Schema changes are
// versioned SQL files embedded by the migrations package and applied with
// Migrate at startup or through the migrate CLI command.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
