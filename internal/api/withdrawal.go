package api

import (
	"net/http" // HTTP status codes

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library

	"event_wallet/internal/wallet" // Ledger
)

// WithdrawalRequestBody is a payout request. Password re-authenticates the
// user for this request only.
type WithdrawalRequestBody struct {
	TokenAmount   int64  `json:"token_amount" binding:"required,gte=1"` // Tokens to pay out
	BankName      string `json:"bank_name" binding:"required"`          // Destination bank
	AccountNumber string `json:"account_number" binding:"required"`     // Destination account
	AccountName   string `json:"account_name" binding:"required"`       // Account holder
	Password      string `json:"password" binding:"required"`           // Current password
}

// SentBody optionally records the amount actually paid out
type SentBody struct {
	SentAmount int64 `json:"sent_amount"` // Defaults to the requested amount
}

// RejectBody explains a rejection
type RejectBody struct {
	Reason string `json:"reason"` // Shown to the user
}

// RequestWithdrawalHandler re-checks the password, then reserves the tokens
func RequestWithdrawalHandler(db *gorm.DB, withdrawals *wallet.Withdrawals) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		var req WithdrawalRequestBody
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "token_amount, bank details and password are required")
			return
		}
		ctx := c.Request.Context()
		if _, err := checkPassword(db.WithContext(ctx), "id = ?", userID, req.Password); err != nil {
			respondError(c, err)
			return
		}
		w, res, err := withdrawals.Request(ctx, wallet.WithdrawalInput{
			UserID:        userID,
			TokenAmount:   req.TokenAmount,
			BankName:      req.BankName,
			AccountNumber: req.AccountNumber,
			AccountName:   req.AccountName,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"withdrawal": w, "newBalance": res.Balance})
	}
}

// ListMyWithdrawalsHandler lists the caller's payout requests
func ListMyWithdrawalsHandler(withdrawals *wallet.Withdrawals) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		reqs, err := withdrawals.ForUser(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"withdrawals": reqs})
	}
}

// ListOpenWithdrawalsHandler lists requests awaiting settlement
func ListOpenWithdrawalsHandler(withdrawals *wallet.Withdrawals) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqs, err := withdrawals.Open(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"withdrawals": reqs})
	}
}

// ApproveWithdrawalHandler approves a request for payout
func ApproveWithdrawalHandler(withdrawals *wallet.Withdrawals) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		w, err := withdrawals.Approve(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"withdrawal": w})
	}
}

// MarkWithdrawalSentHandler records a completed payout
func MarkWithdrawalSentHandler(withdrawals *wallet.Withdrawals) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var body SentBody
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&body); err != nil {
				badRequest(c, "invalid sent_amount")
				return
			}
		}
		w, err := withdrawals.MarkSent(c.Request.Context(), id, body.SentAmount)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"withdrawal": w})
	}
}

// RejectWithdrawalHandler rejects a request and refunds its tokens
func RejectWithdrawalHandler(withdrawals *wallet.Withdrawals) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var body RejectBody
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&body); err != nil {
				badRequest(c, "invalid reason")
				return
			}
		}
		w, refund, err := withdrawals.Reject(c.Request.Context(), id, body.Reason)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"withdrawal": w,
			"refund":     refund.Transaction,
			"newBalance": refund.Balance,
			"duplicate":  refund.Duplicate,
		})
	}
}
