package domain

import "time"

// GuestClaim holds tokens bought without an account until a user claims them.
type GuestClaim struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	GuestToken  string     `gorm:"uniqueIndex;size:64;not null" json:"guest_token"`
	CaptureID   string     `gorm:"uniqueIndex;size:128;not null" json:"capture_id"`
	TokenAmount int64      `gorm:"not null" json:"token_amount"`
	UserID      *uint      `gorm:"index" json:"user_id,omitempty"`
	ClaimedAt   *time.Time `json:"claimed_at,omitempty"`
	ExpiresAt   time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Claimed reports whether the claim has been consumed
func (g GuestClaim) Claimed() bool {
	return g.ClaimedAt != nil || g.UserID != nil
}
