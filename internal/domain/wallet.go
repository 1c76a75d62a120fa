package domain

import "time"

// Wallet is the per-user token balance. Balance is never negative and every
// change to it is paired with exactly one Transaction row.
type Wallet struct {
	ID         uint      `gorm:"primaryKey" json:"id"`                // Primary key
	UserID     uint      `gorm:"uniqueIndex;not null" json:"user_id"` // Foreign key to User
	Balance    int64     `gorm:"not null;default:0" json:"balance"`   // Token balance
	LastAction string    `gorm:"size:255" json:"last_action"`         // Audit-only description of the last mutation
	CreatedAt  time.Time `json:"created_at"`                          // Creation time
	UpdatedAt  time.Time `json:"updated_at"`                          // Last mutation time
}
