package api

import (
	"context"  // Provider calls
	"fmt"      // Descriptions
	"net/http" // HTTP status codes
	"net/url"  // Claim link
	"strings"  // Trimming
	"time"     // Expiry formatting

	"github.com/gin-gonic/gin" // Gin web framework

	"event_wallet/internal/apperr"  // Service errors
	"event_wallet/internal/payment" // Provider verification
	"event_wallet/internal/wallet"  // Ledger
)

// OrderVerifier confirms a PayPal order and returns its capture
type OrderVerifier interface {
	VerifyOrder(ctx context.Context, orderID string) (*payment.Verification, error)
}

// CaptureRequest names a client-approved PayPal order
type CaptureRequest struct {
	OrderID string `json:"orderId" binding:"required"` // PayPal order id
}

// ClaimGuestRequest is the body of the guest claim route
type ClaimGuestRequest struct {
	UserID      uint   `json:"userId"`                        // Must match the token holder when set
	CaptureID   string `json:"captureId"`                     // Checked against the stored capture when set
	TokenAmount int64  `json:"tokenAmount"`                   // Checked against the stored amount when set
	GuestToken  string `json:"guestToken" binding:"required"` // Issued by capture-guest
}

// PayPalTokens converts verified PayPal captures into tokens
type PayPalTokens struct {
	Orders        OrderVerifier
	CentsPerToken int64
}

func (p PayPalTokens) verify(ctx context.Context, orderID string) (*payment.Verification, int64, error) {
	v, err := p.Orders.VerifyOrder(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return v, 0, err
	}
	tokens := wallet.TokensForAmount(v.Amount, p.CentsPerToken)
	if tokens <= 0 {
		return v, 0, apperr.WithMessage(apperr.ErrInvalidAmount, "paid amount does not cover one token")
	}
	return v, tokens, nil
}

// CapturePayPalHandler credits a verified PayPal capture to the caller
func CapturePayPalHandler(svc *wallet.Service, pp PayPalTokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		var req CaptureRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "orderId is required")
			return
		}
		ctx := c.Request.Context()
		v, tokens, err := pp.verify(ctx, req.OrderID)
		if err != nil {
			respondVerifyError(c, v, err)
			return
		}
		res, err := svc.Credit(ctx, wallet.CreditRequest{
			UserID:      userID,
			Reference:   wallet.PayPalReference(v.ProviderTransactionID),
			TokenAmount: tokens,
			Description: fmt.Sprintf("PayPal purchase: %d tokens", tokens),
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, creditResponse(res))
	}
}

// CaptureGuestHandler stores a verified PayPal capture made without an account
// and returns the token the buyer claims it with after signing up.
func CaptureGuestHandler(claims *wallet.GuestClaims, pp PayPalTokens, appURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CaptureRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "orderId is required")
			return
		}
		ctx := c.Request.Context()
		v, tokens, err := pp.verify(ctx, req.OrderID)
		if err != nil {
			respondVerifyError(c, v, err)
			return
		}
		claim, err := claims.Create(ctx, v.ProviderTransactionID, tokens)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"guestToken":  claim.GuestToken,
			"captureId":   claim.CaptureID,
			"tokenAmount": claim.TokenAmount,
			"expiresAt":   claim.ExpiresAt.UTC().Format(time.RFC3339),
			"claimUrl":    claimURL(appURL, claim.GuestToken, claim.CaptureID),
		})
	}
}

func claimURL(appURL, guestToken, captureID string) string {
	q := url.Values{}
	q.Set("guestToken", guestToken)
	q.Set("captureId", captureID)
	return strings.TrimRight(appURL, "/") + "/signup?" + q.Encode()
}

// ClaimGuestHandler credits a guest payment to the authenticated user
func ClaimGuestHandler(claims *wallet.GuestClaims) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		var req ClaimGuestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "guestToken is required")
			return
		}
		if req.UserID != 0 && req.UserID != userID {
			respondError(c, apperr.WithMessage(apperr.ErrForbidden, "cannot claim for another user"))
			return
		}
		res, err := claims.Claim(c.Request.Context(), wallet.ClaimRequest{
			UserID:      userID,
			CaptureID:   strings.TrimSpace(req.CaptureID),
			TokenAmount: req.TokenAmount,
			GuestToken:  req.GuestToken,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"newBalance":  res.NewBalance,
			"tokenAmount": res.TokenAmount,
			"claimed":     res.Claimed,
		})
	}
}
