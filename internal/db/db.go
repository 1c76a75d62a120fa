package db

import (
	"fmt"     // Error formatting
	"strings" // DSN building

	"event_wallet/internal/config" // Application configuration

	"gorm.io/driver/mysql"  // MySQL driver for GORM
	"gorm.io/driver/sqlite" // SQLite driver for local runs
	"gorm.io/gorm"          // GORM ORM library
)

// Open connects to the database selected by cfg.DBDriver. TranslateError is
// required: the ledger relies on gorm.ErrDuplicatedKey to detect a reference
// that was already written.
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "mysql":
		dialector = mysql.Open(cfg.DSN())
	case "sqlite":
		dialector = sqlite.Open(sqliteDSN(cfg.SQLitePath))
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	return OpenDialector(dialector)
}

// OpenDialector opens a connection with the settings the services expect
func OpenDialector(dialector gorm.Dialector) (*gorm.DB, error) {
	return gorm.Open(dialector, &gorm.Config{TranslateError: true})
}

// sqliteDSN waits on a locked database instead of failing the write at once
func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_busy_timeout=5000"
}
