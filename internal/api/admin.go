package api

import (
	"context"  // Effect runner
	"net/http" // HTTP status codes
	"strings"  // Cache key building

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library

	"event_wallet/internal/apperr" // Service errors
	"event_wallet/internal/domain" // Domain models
	"event_wallet/internal/utils"  // Cache helpers
)

// EffectRunner applies queued contest effects on demand
type EffectRunner interface {
	ProcessPending(ctx context.Context, limit int) (int, error)
}

// UserAdminResponse represents the user data returned to admin
type UserAdminResponse struct {
	ID       uint          `json:"id"`       // User ID
	Username string        `json:"username"` // Username
	Role     string        `json:"role"`     // User role
	Wallet   domain.Wallet `json:"wallet"`   // Associated wallet
}

// ListUsersHandler returns users with their wallet
func ListUsersHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		page, pageSize := pagination(c)
		cacheKey := "admin:users:page=" + c.DefaultQuery("page", "1") + ":size=" + c.DefaultQuery("page_size", "20")
		var cached struct {
			Users      []UserAdminResponse `json:"users"`       // List of users
			Page       int                 `json:"page"`        // Current page
			PageSize   int                 `json:"page_size"`   // Page size
			Total      int64               `json:"total"`       // Total number of users
			TotalPages int                 `json:"total_pages"` // Total pages
		}
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"users":       cached.Users,
				"page":        cached.Page,
				"page_size":   cached.PageSize,
				"total":       cached.Total,
				"total_pages": cached.TotalPages,
				"cached":      true,
			})
			return
		}
		conn := db.WithContext(ctx)
		var total int64
		if err := conn.Model(&domain.User{}).Count(&total).Error; err != nil {
			respondError(c, apperr.Persistence(err))
			return
		}
		var users []domain.User
		if err := conn.Preload("Wallet").Order("id asc").Offset((page - 1) * pageSize).Limit(pageSize).Find(&users).Error; err != nil {
			respondError(c, apperr.Persistence(err))
			return
		}
		resp := make([]UserAdminResponse, len(users))
		for i, u := range users {
			resp[i] = UserAdminResponse{ID: u.ID, Username: u.Username, Role: u.Role, Wallet: u.Wallet}
		}
		respData := gin.H{
			"users":       resp,
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": totalPages(total, pageSize),
			"cached":      false,
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, respData, utils.CacheTTL)
		c.JSON(http.StatusOK, respData)
	}
}

// ListTransactionsHandler returns ledger rows, optionally filtered by user,
// type, status or creation date
func ListTransactionsHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		filters := []string{"user_id", "type", "status", "from", "to", "page", "page_size"}
		keyParts := make([]string, 0, len(filters))
		for _, k := range filters {
			keyParts = append(keyParts, k+"="+c.Query(k)) // Every filter is part of the key
		}
		cacheKey := "admin:txs:" + strings.Join(keyParts, ":")
		var cached struct {
			Transactions []domain.Transaction `json:"transactions"` // List of transactions
			Page         int                  `json:"page"`         // Current page
			PageSize     int                  `json:"page_size"`    // Page size
			Total        int64                `json:"total"`        // Total number of transactions
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
		page, pageSize := pagination(c)
		query := db.WithContext(ctx).Model(&domain.Transaction{})
		if userID := c.Query("user_id"); userID != "" {
			query = query.Where("user_id = ?", userID)
		}
		if txType := c.Query("type"); txType != "" {
			query = query.Where("type = ?", txType)
		}
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status)
		}
		if from := c.Query("from"); from != "" {
			query = query.Where("created_at >= ?", from)
		}
		if to := c.Query("to"); to != "" {
			query = query.Where("created_at <= ?", to)
		}
		var total int64
		if err := query.Count(&total).Error; err != nil {
			respondError(c, apperr.Persistence(err))
			return
		}
		var txs []domain.Transaction
		if err := query.Order("created_at desc").Offset((page - 1) * pageSize).Limit(pageSize).Find(&txs).Error; err != nil {
			respondError(c, apperr.Persistence(err))
			return
		}
		respData := gin.H{
			"transactions": txs,
			"page":         page,
			"page_size":    pageSize,
			"total":        total,
			"total_pages":  totalPages(total, pageSize),
			"cached":       false,
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, respData, utils.CacheTTL)
		c.JSON(http.StatusOK, respData)
	}
}

// ProcessEffectsHandler applies one batch of queued contest effects now
func ProcessEffectsHandler(runner EffectRunner, batchSize int) gin.HandlerFunc {
	return func(c *gin.Context) {
		applied, err := runner.ProcessPending(c.Request.Context(), batchSize)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"applied": applied})
	}
}
