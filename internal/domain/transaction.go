package domain

import "time"

// Transaction statuses
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Transaction types
const (
	TypeDeposit    = "deposit"
	TypeWithdrawal = "withdrawal"
	TypeGift       = "gift"
	TypeVote       = "vote"
)

// Transaction is an append-only ledger entry. Only Status may change after
// insert, and only from pending to completed or failed.
type Transaction struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`                   // UUID
	UserID      uint      `gorm:"index;not null" json:"user_id"`                  // Owner of the wallet
	Reference   string    `gorm:"uniqueIndex;size:191;not null" json:"reference"` // Idempotency key
	TokenAmount int64     `gorm:"not null" json:"token_amount"`                   // Magnitude of the change
	FiatAmount  int64     `gorm:"not null" json:"fiat_amount"`                    // token_amount * unit price
	Status      string    `gorm:"size:16;not null;index" json:"status"`           // pending, completed, failed
	Type        string    `gorm:"size:16;not null;index" json:"type"`             // deposit, withdrawal, gift, vote
	Description string    `gorm:"size:255" json:"description"`                    // Free text
	EventID     *uint     `gorm:"index" json:"event_id,omitempty"`                // Contest event for gifts and votes
	CandidateID *uint     `json:"candidate_id,omitempty"`                         // Contest entry for gifts and votes
	CreatedAt   time.Time `gorm:"index" json:"created_at"`                        // Creation time
	UpdatedAt   time.Time `json:"updated_at"`                                     // Status change time
}
