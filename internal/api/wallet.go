package api

import (
	"fmt"      // Descriptions
	"net/http" // HTTP status codes

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library

	"event_wallet/internal/apperr"  // Service errors
	"event_wallet/internal/domain"  // Domain models
	"event_wallet/internal/payment" // Provider verification
	"event_wallet/internal/utils"   // Cache helpers
	"event_wallet/internal/wallet"  // Ledger
)

// ReferenceRequest carries a card processor reference
type ReferenceRequest struct {
	Reference string `json:"reference" binding:"required"` // Provider reference
}

// GetWalletHandler returns the wallet of the authenticated user
func GetWalletHandler(svc *wallet.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		cacheKey := utils.WalletKey(userID) // Cache key for wallet
		var cached domain.Wallet
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, gin.H{"wallet": cached, "cached": true})
			return
		}
		w, err := svc.Wallet(ctx, userID) // Created on first read
		if err != nil {
			respondError(c, err)
			return
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, w, utils.CacheTTL)
		c.JSON(http.StatusOK, gin.H{"wallet": w, "cached": false})
	}
}

// GetTransactionHistoryHandler returns one page of the user's ledger
func GetTransactionHistoryHandler(svc *wallet.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		page, pageSize := pagination(c)
		ctx := c.Request.Context()
		cacheKey := utils.TxHistoryKey(userID, page, pageSize)
		var cached struct {
			Transactions []domain.Transaction `json:"transactions"` // List of transactions
			Page         int                  `json:"page"`         // Current page
			PageSize     int                  `json:"page_size"`    // Page size
			Total        int64                `json:"total"`        // Total transactions
			TotalPages   int                  `json:"total_pages"`  // Total pages
		}
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"transactions": cached.Transactions,
				"page":         cached.Page,
				"page_size":    cached.PageSize,
				"total":        cached.Total,
				"total_pages":  cached.TotalPages,
				"cached":       true,
			})
			return
		}
		txs, total, err := svc.Transactions(ctx, userID, page, pageSize)
		if err != nil {
			respondError(c, err)
			return
		}
		resp := gin.H{
			"transactions": txs,
			"page":         page,
			"page_size":    pageSize,
			"total":        total,
			"total_pages":  totalPages(total, pageSize),
			"cached":       false,
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, utils.CacheTTL)
		c.JSON(http.StatusOK, resp)
	}
}

// VerifyTopUpHandler credits a card top-up once the processor confirms it.
// The token amount comes from the verified amount, never from the client.
func VerifyTopUpHandler(svc *wallet.Service, verifier payment.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		var req ReferenceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "reference is required")
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
			Description: fmt.Sprintf("Token purchase: %d tokens", tokens),
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, creditResponse(res))
	}
}

func creditResponse(res *wallet.Result) gin.H {
	return gin.H{
		"success":     true,
		"newBalance":  res.Balance,
		"tokenAmount": res.Transaction.TokenAmount,
		"duplicate":   res.Duplicate,
		"transaction": res.Transaction,
	}
}

// respondVerifyError reports a failed verification. A payment the provider
// rejected also carries the provider status.
func respondVerifyError(c *gin.Context, v *payment.Verification, err error) {
	if v != nil && !v.Verified {
		logrus.WithFields(logrus.Fields{
			"reference":       v.Reference,      // Provider reference
			"provider_status": v.ProviderStatus, // Status reported by the provider
		}).Warn("Payment not successful")
	}
	respondError(c, err)
}
