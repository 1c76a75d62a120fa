package api

import (
	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library

	"event_wallet/internal/middleware" // Auth middleware
	"event_wallet/internal/payment"    // Provider verification
	"event_wallet/internal/wallet"     // Ledger
)

// Deps are the collaborators the routes are built from. Redis may be nil.
type Deps struct {
	DB              *gorm.DB
	Redis           *redis.Client
	JWTSecret       string
	AppURL          string
	Wallet          *wallet.Service
	GuestClaims     *wallet.GuestClaims
	Withdrawals     *wallet.Withdrawals
	Effects         EffectRunner
	EffectBatchSize int
	Paystack        payment.Verifier
	PayPal          PayPalTokens
}

// RegisterRoutes mounts every route on r
func RegisterRoutes(r *gin.Engine, d Deps) {
	auth := middleware.JWTAuthMiddleware(d.JWTSecret)

	// Accounts
	r.POST("/user", RegisterHandler(d.DB))
	r.GET("/user", LoginHandler(d.DB, d.JWTSecret))

	// Wallet reads
	walletGroup := r.Group("/wallet", auth)
	walletGroup.GET("", GetWalletHandler(d.Wallet, d.Redis))
	walletGroup.GET("/transactions", GetTransactionHistoryHandler(d.Wallet, d.Redis))

	// Payment callbacks
	apiGroup := r.Group("/api")
	apiGroup.POST("/vote/verify", VerifyVoteHandler(d.Wallet, d.Paystack))
	apiGroup.POST("/paypal/capture-guest", CaptureGuestHandler(d.GuestClaims, d.PayPal, d.AppURL))

	authed := apiGroup.Group("", auth)
	authed.POST("/wallet/verify", VerifyTopUpHandler(d.Wallet, d.Paystack))
	authed.POST("/vote/initialize", InitializeVoteHandler(d.Wallet))
	authed.POST("/vote/tokens", SpendTokenVotesHandler(d.Wallet))
	authed.POST("/gift/verify", VerifyGiftHandler(d.Wallet, d.Paystack))
	authed.POST("/paypal/capture", CapturePayPalHandler(d.Wallet, d.PayPal))
	authed.POST("/paypal/claim-guest", ClaimGuestHandler(d.GuestClaims))
	authed.POST("/withdrawals", RequestWithdrawalHandler(d.DB, d.Withdrawals))
	authed.GET("/withdrawals", ListMyWithdrawalsHandler(d.Withdrawals))

	// Admin
	adminGroup := r.Group("/admin", auth, middleware.AdminOnlyMiddleware(d.DB))
	adminGroup.GET("/users", ListUsersHandler(d.DB, d.Redis))
	adminGroup.GET("/transactions", ListTransactionsHandler(d.DB, d.Redis))
	adminGroup.GET("/withdrawals", ListOpenWithdrawalsHandler(d.Withdrawals))
	adminGroup.POST("/withdrawals/:id/approve", ApproveWithdrawalHandler(d.Withdrawals))
	adminGroup.POST("/withdrawals/:id/sent", MarkWithdrawalSentHandler(d.Withdrawals))
	adminGroup.POST("/withdrawals/:id/reject", RejectWithdrawalHandler(d.Withdrawals))
	adminGroup.POST("/effects/process", ProcessEffectsHandler(d.Effects, d.EffectBatchSize))
}
