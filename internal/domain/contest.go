package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

var pointsDivisor = decimal.NewFromInt(10)

// ContestEntry is the denormalized vote/gift tally of one candidate in an event.
type ContestEntry struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	EventID     uint            `gorm:"uniqueIndex:idx_contest_event_candidate;not null" json:"event_id"`
	CandidateID uint            `gorm:"uniqueIndex:idx_contest_event_candidate;not null" json:"candidate_id"`
	Votes       int64           `gorm:"not null;default:0" json:"votes"`
	Gifts       int64           `gorm:"not null;default:0" json:"gifts"`
	Points      decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"points"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ComputePoints returns (votes + gifts) / 10
func ComputePoints(votes, gifts int64) decimal.Decimal {
	return decimal.NewFromInt(votes + gifts).Div(pointsDivisor)
}

// Effect kinds applied to a ContestEntry
const (
	EffectGift = "gift"
	EffectVote = "vote"
)

// ContestEffect is an outbox row written in the same database transaction as
// the ledger entry it belongs to and applied to ContestEntry later.
type ContestEffect struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	TransactionID string     `gorm:"uniqueIndex;size:36;not null" json:"transaction_id"`
	Kind          string     `gorm:"size:16;not null" json:"kind"`
	EventID       uint       `gorm:"not null" json:"event_id"`
	CandidateID   uint       `gorm:"not null" json:"candidate_id"`
	Amount        int64      `gorm:"not null" json:"amount"`
	Attempts      int        `gorm:"not null;default:0" json:"attempts"`
	LastError     string     `gorm:"size:512" json:"last_error,omitempty"`
	ProcessedAt   *time.Time `gorm:"index" json:"processed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}
