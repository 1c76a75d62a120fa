package api

import (
	"fmt"      // Descriptions
	"net/http" // HTTP status codes

	"github.com/gin-gonic/gin" // Gin web framework

	"event_wallet/internal/apperr"  // Service errors
	"event_wallet/internal/payment" // Provider verification
	"event_wallet/internal/wallet"  // Ledger
)

// GiftRequest ties a card payment to a contest entry
type GiftRequest struct {
	Reference   string `json:"reference" binding:"required"`    // Provider reference
	EventID     uint   `json:"event_id" binding:"required"`     // Contest event
	CandidateID uint   `json:"candidate_id" binding:"required"` // Contest entry
}

// VerifyGiftHandler credits a verified gift payment to the payer and queues
// the gift total update of the contest entry.
func VerifyGiftHandler(svc *wallet.Service, verifier payment.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		var req GiftRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "reference, event_id and candidate_id are required")
			return
		}
		ctx := c.Request.Context()
		v, err := verifier.Verify(ctx, req.Reference)
		if err != nil {
			respondVerifyError(c, v, err)
			return
		}
		tokens := wallet.TokensForAmount(v.Amount, svc.MinorPerToken())
		if tokens <= 0 {
			respondError(c, apperr.WithMessage(apperr.ErrInvalidAmount, "paid amount does not cover one token"))
			return
		}
		res, err := svc.Credit(ctx, wallet.CreditRequest{
			UserID:      userID,
			Reference:   req.Reference,
			TokenAmount: tokens,
			Description: fmt.Sprintf("Gift: %d tokens", tokens),
			Gift:        &wallet.ContestTarget{EventID: req.EventID, CandidateID: req.CandidateID},
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, creditResponse(res))
	}
}
