package database

import (
	"gorm.io/gorm"
)

// VerifyTables checks that every listed table exists and returns the missing
// ones. Used at startup so a half-migrated catalog database is reported
// before any reconciliation opens a transaction against it.
func VerifyTables(db *gorm.DB, tables ...string) []string {
	var missing []string
	for _, table := range tables {
		if !db.Migrator().HasTable(table) {
			missing = append(missing, table)
		}
	}
	return missing
}
