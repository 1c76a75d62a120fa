package main

import (
	"context"   // Context for startup checks and shutdown
	"errors"    // Error inspection
	"net/http"  // HTTP server
	"os"        // Signals
	"os/signal" // Signal handling
	"syscall"   // SIGTERM
	"time"      // Shutdown timeout

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging

	"event_wallet/internal/api"     // HTTP handlers
	"event_wallet/internal/config"  // Configuration
	"event_wallet/internal/db"      // Database connection
	"event_wallet/internal/payment" // Provider clients
	"event_wallet/internal/wallet"  // Ledger services
	"event_wallet/internal/worker"  // Background jobs
)

func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		gin.SetMode(gin.ReleaseMode) // No stacks in error bodies
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if cfg.JWTSecret == "" {
		logrus.Fatal("JWT_SECRET is required")
	}

	gdb, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}

	// Redis is optional; without it reads go straight to the database
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr, // Redis server address
			Password: cfg.RedisPass, // Redis password
			DB:       cfg.RedisDB,   // Redis database number
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logrus.Fatalf("failed to connect to Redis: %v", err)
		}
	}

	walletSvc := wallet.NewService(gdb, rdb, cfg.TokenUnitPrice)
	effects := wallet.NewEffectProcessor(gdb)
	paypal := payment.NewPayPalClient(cfg.PayPalBaseURL, cfg.PayPalClientID, cfg.PayPalSecret, cfg.PayPalCurrency, cfg.PaymentVerifyTimeout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	effectWorker := worker.NewEffectWorker(effects, cfg.OutboxInterval, cfg.OutboxBatchSize)
	if err := effectWorker.Start(ctx); err != nil {
		logrus.Fatalf("failed to start contest effect worker: %v", err)
	}

	r := gin.Default()
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}
	api.RegisterRoutes(r, api.Deps{
		DB:              gdb,
		Redis:           rdb,
		JWTSecret:       cfg.JWTSecret,
		AppURL:          cfg.AppURL,
		Wallet:          walletSvc,
		GuestClaims:     wallet.NewGuestClaims(gdb, walletSvc, cfg.GuestClaimTTL),
		Withdrawals:     wallet.NewWithdrawals(gdb, walletSvc),
		Effects:         effects,
		EffectBatchSize: cfg.OutboxBatchSize,
		Paystack:        payment.NewPaystackClient(cfg.PaystackBaseURL, cfg.PaystackSecretKey, cfg.PaystackCurrency, cfg.PaymentVerifyTimeout),
		PayPal:          api.PayPalTokens{Orders: paypal, CentsPerToken: cfg.PayPalCentsPerToken},
	})

	srv := &http.Server{Addr: ":" + cfg.AppPort, Handler: r}
	go func() {
		logrus.WithField("port", cfg.AppPort).Info("Server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("HTTP shutdown failed")
	}
	if err := effectWorker.Stop(); err != nil {
		logrus.WithError(err).Error("Worker shutdown failed")
	}
	if rdb != nil {
		_ = rdb.Close()
	}
}
