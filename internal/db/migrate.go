package db

import (
	"event_wallet/internal/domain" // Importing domain models

	"gorm.io/gorm" // GORM ORM library
)

// Models lists every table owned by the service
var Models = []any{
	&domain.User{},
	&domain.Wallet{},
	&domain.Transaction{},
	&domain.GuestClaim{},
	&domain.WithdrawalRequest{},
	&domain.ContestEntry{},
	&domain.ContestEffect{},
}

// Migrate performs automatic migration for the database schema
func Migrate(db *gorm.DB) error {
	// AutoMigrate will create tables, missing foreign keys, constraints, columns and indexes
	return db.AutoMigrate(Models...)
}
