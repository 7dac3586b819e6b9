// Package database handles database connections and schema inspection.
//
// It wraps GORM to configure the catalog database connection. MySQL is the
// production driver; sqlite is supported for tests and single-node installs.
//
// # Connect and Migrate
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//	err = database.Migrate(db, models.All()...)
//
// # Schema Inspection
//
// The inspector retrieves column definitions and verifies that the tables
// the reconciliation engine depends on actually exist, so a misconfigured
// database fails loudly at startup instead of mid-save.
package database
