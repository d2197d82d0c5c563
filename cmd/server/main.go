package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/mattn/go-sqlite3"

	"doneasy-checkout/internal/checkout"
	"doneasy-checkout/internal/config"
	"doneasy-checkout/internal/handler"
	"doneasy-checkout/internal/middleware"
	"doneasy-checkout/internal/repository"
	"doneasy-checkout/internal/service"
	"doneasy-checkout/pkg/logger"
)

func main() {
	// Create .env from .env.example if not exists
	if err := ensureEnvFile(); err != nil {
		log.Printf("Warning: Failed to create .env file: %v", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLogger := logger.New(cfg.LogLevel)
	appLogger.Info("Starting Doneasy checkout service")

	// Open confirmation storage
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DBPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}
	repo, err := repository.NewConfirmationRepository(cfg.Storage.DBPath)
	if err != nil {
		appLogger.Error("Failed to open confirmation database", "error", err)
		log.Fatalf("Failed to open confirmation database: %v", err)
	}
	defer repo.Close()

	// Receipt notifiers
	var notifiers []service.ReceiptNotifier
	var whatsappStatus handler.StatusReporter

	if cfg.Email.SendGridAPIKey != "" {
		notifiers = append(notifiers, service.NewEmailService(&cfg.Email, appLogger))
	}

	if cfg.WhatsApp.Enabled {
		whatsappService, err := service.NewWhatsAppService(&cfg.WhatsApp, logger.New(cfg.WhatsApp.LogLevel))
		if err != nil {
			appLogger.Error("Failed to initialize WhatsApp service", "error", err)
			log.Fatalf("Failed to initialize WhatsApp service: %v", err)
		}
		if err := whatsappService.Connect(context.Background()); err != nil {
			appLogger.Error("Failed to connect to WhatsApp", "error", err)
			log.Fatalf("Failed to connect to WhatsApp: %v\nPlease scan QR code first", err)
		}
		defer whatsappService.Disconnect()

		notifiers = append(notifiers, whatsappService)
		whatsappStatus = whatsappService
	}

	// Payment verification
	var verifier checkout.Verifier = checkout.DelayVerifier{Delay: cfg.Checkout.VerifyDelay}
	if cfg.Verification.URL != "" {
		verifier = service.NewVerificationService(&cfg.Verification, appLogger)
	}

	machine := checkout.NewMachine(checkout.Settings{
		Rules: checkout.FormRules{
			MinAmount:     cfg.Checkout.MinAmount,
			MaxAmount:     cfg.Checkout.MaxAmount,
			PresetAmounts: cfg.Checkout.PresetAmounts,
		},
		AdminFeeBPS:   cfg.Checkout.AdminFeeBPS,
		PaymentWindow: cfg.Checkout.PaymentWindow,
		TickInterval:  cfg.Checkout.TickInterval,
	})

	checkoutService := service.NewCheckoutService(service.CheckoutOptions{
		Machine:    machine,
		Verifier:   verifier,
		Repository: repo,
		Notifiers:  notifiers,
		FlowTTL:    cfg.Checkout.FlowTTL,
	}, appLogger)
	defer checkoutService.Close()

	// Initialize handlers
	checkoutHandler := handler.NewCheckoutHandler(checkoutService, appLogger)
	campaignHandler := handler.NewCampaignHandler(checkoutService, appLogger)
	healthHandler := handler.NewHealthHandler(checkoutService, whatsappStatus, cfg, appLogger)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.Security.APIKey, appLogger)

	// Setup HTTP routes
	router := mux.NewRouter()
	router.Use(middleware.RequestLogger(appLogger))
	handler.RegisterRoutes(router, authMiddleware.Middleware, checkoutHandler, campaignHandler, healthHandler)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		appLogger.Info("HTTP server starting", "address", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("HTTP server error", "error", err)
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	appLogger.Info("Doneasy checkout service started successfully",
		"address", addr,
		"payment_window", cfg.Checkout.PaymentWindow.String(),
		"admin_fee_bps", cfg.Checkout.AdminFeeBPS,
		"verification_url_configured", cfg.Verification.URL != "",
		"notifiers", len(notifiers),
	)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
	}

	appLogger.Info("Server stopped gracefully")
}

// ensureEnvFile creates .env from .env.example if .env doesn't exist
func ensureEnvFile() error {
	if _, err := os.Stat(".env"); err == nil {
		return nil
	}

	if _, err := os.Stat(".env.example"); os.IsNotExist(err) {
		return fmt.Errorf(".env.example not found")
	}

	source, err := os.Open(".env.example")
	if err != nil {
		return fmt.Errorf("failed to open .env.example: %w", err)
	}
	defer source.Close()

	destination, err := os.Create(".env")
	if err != nil {
		return fmt.Errorf("failed to create .env: %w", err)
	}
	defer destination.Close()

	if _, err := io.Copy(destination, source); err != nil {
		return fmt.Errorf("failed to copy .env.example to .env: %w", err)
	}

	log.Println("Created .env file from .env.example")
	return nil
}
