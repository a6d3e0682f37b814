package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"billhive/internal/caching"
	"billhive/internal/config"
	"billhive/internal/handlers"
	"billhive/internal/jobs"
	"billhive/internal/middleware"
	"billhive/internal/repositories"
	"billhive/internal/services"
	"billhive/pkg/database"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	pool, err := database.NewPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Cache service
	cacheSvc := caching.NewRedisCacheService(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	// Invoice snapshot archive
	archiveSvc, err := services.NewMinioArchiveService(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.ArchiveBucket, cfg.MinioUseSSL)
	if err != nil {
		log.Fatalf("Failed to initialize archive service: %v", err)
	}
	if err := archiveSvc.EnsureBucketExists(context.Background()); err != nil {
		log.Printf("WARN: Failed to ensure archive bucket: %v", err)
	}

	// Repositories
	userRepo := repositories.NewUserRepo(pool)
	profileRepo := repositories.NewProfileRepo(pool)
	invoiceRepo := repositories.NewInvoiceRepo(pool)
	paymentRepo := repositories.NewPaymentRepo(pool)
	taxRateRepo := repositories.NewTaxRateRepo(pool)
	serviceRateRepo := repositories.NewServiceRateRepo(pool)

	// Services
	authSvc := services.NewAuthService(cacheSvc, cfg.JWTSecret, cfg.TokenTTL, cfg.RefreshTTL)
	userSvc := services.NewUserService(userRepo, profileRepo, authSvc)
	rateLookup := services.NewRateLookupService(taxRateRepo, serviceRateRepo, cacheSvc)
	invoiceSvc := services.NewInvoiceService(invoiceRepo, paymentRepo, rateLookup, archiveSvc)
	provider := services.NewHTTPPaymentProvider(cfg.ProviderBaseURL, cfg.ProviderAPIKey, cfg.ProviderAPISecret)
	paymentSvc := services.NewPaymentService(paymentRepo, invoiceRepo, invoiceSvc, provider, cfg.ProviderTimeout, cfg.SupportedCurrencies)

	// Handlers
	authHandlers := handlers.NewAuthHandlers(userSvc, authSvc)
	profileHandlers := handlers.NewProfileHandlers(userSvc)
	invoiceHandlers := handlers.NewInvoiceHandlers(invoiceSvc)
	paymentHandlers := handlers.NewPaymentHandlers(paymentSvc)
	healthHandlers := handlers.NewHealthHandlers(pool, version)

	// Background reconciliation of pending payments
	reconciler, err := jobs.NewPaymentReconciler(paymentSvc, cfg.ReconcileInterval)
	if err != nil {
		log.Fatalf("Failed to create payment reconciler: %v", err)
	}
	reconciler.Start()
	defer func() {
		if err := reconciler.Stop(); err != nil {
			log.Printf("Failed to stop payment reconciler: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())

	// Public routes
	e.GET("/health", healthHandlers.HealthCheck)
	e.POST("/auth/register", authHandlers.Register)
	e.POST("/auth/login", authHandlers.Login)
	e.POST("/auth/refresh", authHandlers.Refresh)
	e.POST("/webhooks/payments", paymentHandlers.ProviderCallback)

	// Authenticated routes
	api := e.Group("", middleware.JWTMiddleware(authSvc))
	api.POST("/auth/logout", authHandlers.Logout)
	api.GET("/auth/me", authHandlers.Me)
	api.GET("/profile", profileHandlers.GetProfile)
	api.PUT("/profile", profileHandlers.UpdateProfile)

	api.POST("/invoices", invoiceHandlers.Create)
	api.GET("/invoices", invoiceHandlers.List)
	api.GET("/invoices/:id", invoiceHandlers.Get)
	api.PUT("/invoices/:id", invoiceHandlers.Update)
	api.POST("/invoices/:id/finalize", invoiceHandlers.Finalize)
	api.POST("/invoices/:id/cancel", invoiceHandlers.Cancel)

	api.POST("/payments/initiate", paymentHandlers.Initiate)
	api.GET("/payments/:transaction_id/verify", paymentHandlers.Verify)

	// Serve until interrupted
	go func() {
		if err := e.Start(cfg.HTTPAddr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
