package api

import (
	"errors"   // Error inspection
	"fmt"      // Descriptions
	"net/http" // HTTP status codes

	"github.com/gin-gonic/gin" // Gin web framework

	"event_wallet/internal/apperr"  // Service errors
	"event_wallet/internal/domain"  // Domain models
	"event_wallet/internal/payment" // Provider verification
	"event_wallet/internal/wallet"  // Ledger
)

// VoteRequest selects a contest entry and a number of votes
type VoteRequest struct {
	EventID     uint   `json:"event_id" binding:"required"`     // Contest event
	CandidateID uint   `json:"candidate_id" binding:"required"` // Contest entry
	Votes       int64  `json:"votes" binding:"required,gt=0"`   // One token per vote
	Key         string `json:"idempotency_key"`                 // Optional, token spends only
}

// InitializeVoteHandler records a pending paid vote and returns the reference
// the card payment must be made with.
func InitializeVoteHandler(svc *wallet.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		var req VoteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "event_id, candidate_id and votes are required")
			return
		}
		t, err := svc.RecordPending(c.Request.Context(), wallet.PendingRequest{
			UserID:      userID,
			Reference:   wallet.VoteReference(),
			TokenAmount: req.Votes,
			Type:        domain.TypeVote,
			Description: fmt.Sprintf("%d votes", req.Votes),
			Target:      &wallet.ContestTarget{EventID: req.EventID, CandidateID: req.CandidateID},
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"reference":    t.Reference,
			"amount":       t.FiatAmount,                    // Local currency
			"amount_minor": wallet.MinorUnits(t.FiatAmount), // What the card processor charges
			"votes":        t.TokenAmount,
		})
	}
}

// VerifyVoteHandler settles a paid vote. Completed and failed votes are
// answered from the ledger without calling the provider again.
func VerifyVoteHandler(svc *wallet.Service, verifier payment.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ReferenceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "reference is required")
			return
		}
		ctx := c.Request.Context()
		t, err := svc.TransactionByReference(ctx, req.Reference)
		if err != nil {
			respondError(c, err)
			return
		}
		if t.Type != domain.TypeVote {
			respondError(c, apperr.WithMessage(apperr.ErrNotFound, "vote not found"))
			return
		}
		switch t.Status {
		case domain.StatusCompleted:
			c.JSON(http.StatusOK, voteResponse(t))
			return
		case domain.StatusFailed:
			c.JSON(http.StatusBadRequest, voteResponse(t))
			return
		}

		v, err := verifier.Verify(ctx, req.Reference)
		if errors.Is(err, apperr.ErrPaymentNotSuccessful) {
			failVote(c, svc, req.Reference)
			return
		}
		if err != nil {
			respondError(c, err) // Vote stays pending, safe to retry
			return
		}
		if v.Amount < wallet.MinorUnits(t.FiatAmount) {
			failVote(c, svc, req.Reference) // Underpaid
			return
		}
		res, err := svc.CompletePending(ctx, req.Reference)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, voteResponse(&res.Transaction))
	}
}

func failVote(c *gin.Context, svc *wallet.Service, reference string) {
	t, err := svc.FailPending(c.Request.Context(), reference)
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusBadRequest
	if t.Status == domain.StatusCompleted {
		status = http.StatusOK // Completed concurrently
	}
	c.JSON(status, voteResponse(t))
}

func voteResponse(t *domain.Transaction) gin.H {
	return gin.H{
		"success":            t.Status == domain.StatusCompleted,
		"transaction_status": t.Status,
		"transaction": gin.H{
			"event_id":     t.EventID,
			"candidate_id": t.CandidateID,
			"id":           t.ID,
		},
	}
}

// SpendTokenVotesHandler pays for votes from the wallet balance
func SpendTokenVotesHandler(svc *wallet.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		var req VoteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "event_id, candidate_id and votes are required")
			return
		}
		res, err := svc.Debit(c.Request.Context(), wallet.DebitRequest{
			UserID:      userID,
			TokenAmount: req.Votes,
			Description: fmt.Sprintf("%d votes", req.Votes),
			Type:        domain.TypeVote,
			Reference:   wallet.VoteSpendReference(req.Key),
			Target:      &wallet.ContestTarget{EventID: req.EventID, CandidateID: req.CandidateID},
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"newBalance":  res.Balance,
			"votes":       res.Transaction.TokenAmount,
			"duplicate":   res.Duplicate,
			"transaction": res.Transaction,
		})
	}
}
