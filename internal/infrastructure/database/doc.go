// Package database provides SQLite connectivity for the audio policy core.
//
// The only persistent state of the daemon is its route history: the routing
// tables themselves are rebuilt from the policy file and the live host graph
// on every start. This package manages:
//   - The connection (WAL mode, busy timeout, single-connection pool)
//   - Embedded, versioned schema migrations
//   - Health checks for the API
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
//
// Migration files live in the top-level migrations package and are named
// YYYYMMDD_HHMMSS_description.{up,down}.sql. Migrations are additive: new
// columns must be NULLABLE or carry a DEFAULT.
package database
