package wallet

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"event_wallet/internal/apperr"
	"event_wallet/internal/domain"
)

// GuestClaims links payments made without an account to the account that
// later claims them, at most once per guest token.
type GuestClaims struct {
	db     *gorm.DB
	wallet *Service
	ttl    time.Duration
	now    func() time.Time
}

// ClaimRequest is a user's attempt to take over a guest payment
type ClaimRequest struct {
	UserID      uint
	CaptureID   string
	TokenAmount int64
	GuestToken  string
}

// ClaimResult is returned after a successful claim
type ClaimResult struct {
	NewBalance  int64              `json:"newBalance"`
	TokenAmount int64              `json:"tokenAmount"`
	Claimed     bool               `json:"claimed"`
	Transaction domain.Transaction `json:"transaction"`
}

// NewGuestClaims builds the bridge; unclaimed tokens expire after ttl
func NewGuestClaims(db *gorm.DB, wallet *Service, ttl time.Duration) *GuestClaims {
	return &GuestClaims{db: db, wallet: wallet, ttl: ttl, now: time.Now}
}

// Create stores an unclaimed guest token for a verified capture. Calling it
// again for the same capture returns the claim created the first time.
func (g *GuestClaims) Create(ctx context.Context, captureID string, tokens int64) (*domain.GuestClaim, error) {
	captureID = strings.TrimSpace(captureID)
	if captureID == "" {
		return nil, apperr.WithMessage(apperr.ErrInvalidRequest, "capture id is required")
	}
	if tokens <= 0 {
		return nil, apperr.ErrInvalidAmount
	}
	db := g.db.WithContext(ctx)

	var credited int64
	if err := db.Model(&domain.Transaction{}).Where("reference = ?", PayPalReference(captureID)).Count(&credited).Error; err != nil {
		return nil, apperr.Persistence(err)
	}
	if credited > 0 {
		return nil, apperr.WithMessage(apperr.ErrConflict, "capture already credited to an account")
	}

	if existing, err := g.byCapture(db, captureID); err != nil || existing != nil {
		return existing, err
	}

	now := g.now()
	claim := domain.GuestClaim{
		GuestToken:  uuid.NewString(),
		CaptureID:   captureID,
		TokenAmount: tokens,
		ExpiresAt:   now.Add(g.ttl),
		CreatedAt:   now,
	}
	if err := db.Create(&claim).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return g.byCapture(db, captureID)
		}
		return nil, apperr.Persistence(err)
	}
	logrus.WithFields(logrus.Fields{
		"capture_id": captureID,
		"amount":     tokens,
		"expires_at": claim.ExpiresAt.Format(time.RFC3339),
	}).Info("Guest claim created")
	return &claim, nil
}

func (g *GuestClaims) byCapture(db *gorm.DB, captureID string) (*domain.GuestClaim, error) {
	var existing domain.GuestClaim
	found := db.Where("capture_id = ?", captureID).Limit(1).Find(&existing)
	if found.Error != nil {
		return nil, apperr.Persistence(found.Error)
	}
	if found.RowsAffected == 0 {
		return nil, nil
	}
	if existing.Claimed() {
		return nil, apperr.ErrAlreadyClaimed
	}
	return &existing, nil
}

// Claim credits the guest payment to req.UserID. Marking the claim consumed
// and crediting the wallet commit together, so a claim is never credited
// without being marked and vice versa.
func (g *GuestClaims) Claim(ctx context.Context, req ClaimRequest) (*ClaimResult, error) {
	if req.UserID == 0 {
		return nil, apperr.ErrUnauthorized
	}
	if strings.TrimSpace(req.GuestToken) == "" {
		return nil, apperr.WithMessage(apperr.ErrInvalidRequest, "guest token is required")
	}

	var res *ClaimResult
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var claim domain.GuestClaim
		if err := tx.Where("guest_token = ?", req.GuestToken).First(&claim).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.WithMessage(apperr.ErrNotFound, "guest token not found")
			}
			return err
		}
		if claim.Claimed() {
			return apperr.ErrAlreadyClaimed
		}
		if req.CaptureID != "" && req.CaptureID != claim.CaptureID {
			return apperr.WithMessage(apperr.ErrInvalidRequest, "capture id does not match guest token")
		}
		if req.TokenAmount != 0 && req.TokenAmount != claim.TokenAmount {
			return apperr.WithMessage(apperr.ErrInvalidRequest, "token amount does not match guest payment")
		}
		now := g.now()
		if !now.Before(claim.ExpiresAt) {
			return apperr.ErrClaimExpired
		}

		marked := tx.Model(&domain.GuestClaim{}).
			Where("id = ? AND claimed_at IS NULL AND user_id IS NULL", claim.ID).
			Updates(map[string]any{"user_id": req.UserID, "claimed_at": now})
		if marked.Error != nil {
			return marked.Error
		}
		if marked.RowsAffected == 0 {
			return apperr.ErrAlreadyClaimed
		}

		credit, err := g.wallet.credit(tx, CreditRequest{
			UserID:      req.UserID,
			Reference:   PayPalReference(claim.CaptureID),
			TokenAmount: claim.TokenAmount,
			Description: "claimed guest payment",
		})
		if errors.Is(err, apperr.ErrConflict) {
			return apperr.ErrAlreadyClaimed // Capture credited directly to another wallet
		}
		if err != nil {
			return err
		}
		if credit.Duplicate {
			return apperr.ErrAlreadyClaimed
		}
		res = &ClaimResult{
			NewBalance:  credit.Balance,
			TokenAmount: claim.TokenAmount,
			Claimed:     true,
			Transaction: credit.Transaction,
		}
		return nil
	})
	if errors.Is(err, errReferenceTaken) {
		return nil, apperr.ErrAlreadyClaimed
	}
	if err != nil {
		if !errors.Is(err, apperr.ErrAlreadyClaimed) {
			logrus.WithFields(logrus.Fields{
				"user_id": req.UserID,
				"error":   err.Error(),
			}).Warn("Guest claim rejected")
		}
		return nil, apperr.Persistence(err)
	}
	g.wallet.committed(ctx, "Guest payment claimed", &Result{Transaction: res.Transaction, Balance: res.NewBalance})
	return res, nil
}
