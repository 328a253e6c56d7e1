// Package db provides PostgreSQL connection and schema management.
//
// This package is responsible for:
//   - PostgreSQL connection pool initialization, waiting for a booting server
//   - Connection health checks
//   - Applying the embedded schema migrations
//
// Example usage:
//
//	pg, err := db.New(ctx, cfg.Database, log)
//	if err != nil {
//	    return err
//	}
//	defer pg.Close()
//	if err := db.Migrate(cfg.Database, log); err != nil {
//	    return err
//	}
package db
