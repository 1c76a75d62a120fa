package domain

import "time"

// WithdrawalRequest is a payout request. Its tokens are reserved (debited) when
// the request is created; settlement happens out of band.
type WithdrawalRequest struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	UserID        uint       `gorm:"index;not null" json:"user_id"`
	TokenAmount   int64      `gorm:"not null" json:"token_amount"`
	BankName      string     `gorm:"size:128;not null" json:"bank_name"`
	AccountNumber string     `gorm:"size:64;not null" json:"account_number"`
	AccountName   string     `gorm:"size:128;not null" json:"account_name"`
	Approved      bool       `gorm:"not null;default:false" json:"approved"`
	Sent          bool       `gorm:"not null;default:false" json:"sent"`
	SentAmount    int64      `json:"sent_amount"`
	SentTime      *time.Time `json:"sent_time,omitempty"`
	Rejected      bool       `gorm:"not null;default:false" json:"rejected"`
	RejectReason  string     `gorm:"size:255" json:"reject_reason,omitempty"`
	TransactionID string     `gorm:"size:36;index" json:"transaction_id"` // Pending withdrawal transaction
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
