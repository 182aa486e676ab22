// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/land-escrow-backend/internal/config"
	"github.com/javajoker/land-escrow-backend/internal/database"
	"github.com/javajoker/land-escrow-backend/internal/i18n"
	"github.com/javajoker/land-escrow-backend/internal/repositories"
	"github.com/javajoker/land-escrow-backend/internal/router"
	"github.com/javajoker/land-escrow-backend/internal/services"
	"github.com/javajoker/land-escrow-backend/internal/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	configureLogging(cfg)
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize i18n
	if err := i18n.Initialize(cfg.I18n.DefaultLocale); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize i18n")
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize storage")
	}
	defer closeStore()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize services
	var settings repositories.SettingsReader = store
	var settingsCache *repositories.CachedSettings
	if cfg.Redis.Enabled {
		client := repositories.NewRedisClient(cfg.Redis)
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			logrus.WithError(err).Warn("Redis unreachable, settings will be read from the database")
		}
		settingsCache = repositories.NewCachedSettings(store, client, time.Duration(cfg.Redis.SettingsTTLSecs)*time.Second)
		settings = settingsCache
	}

	senders := []services.Sender{services.NewEmailSender(cfg.Email)}
	smsSender, err := services.NewSMSSender(cfg.AWS)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize SMS sender")
	}
	if smsSender != nil {
		senders = append(senders, smsSender)
	}

	storageService, err := services.NewStorageService(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize evidence storage")
	}

	var initiator services.PayoutInitiator = services.ManualPayoutInitiator{}
	if cfg.Payment.StripeSecretKey != "" {
		initiator = services.NewStripePayoutInitiator(cfg.Payment)
	}

	policy, err := services.NewRolePolicy(cfg.Escrow.RolePolicy)
	if err != nil {
		logrus.WithError(err).Fatal("Invalid escrow role policy")
	}

	auditService := services.NewAuditService(store)
	payoutService := services.NewPayoutService(store, auditService, initiator)
	notificationService := services.NewNotificationService(store, senders, cfg.Escrow, cfg.I18n.DefaultLocale)
	feeService := services.NewFeeService(store, settings, cfg.Payment.PlatformFeePercent)
	escrowService := services.NewEscrowService(store, feeService, auditService, notificationService, payoutService, policy)
	disputeService := services.NewDisputeService(store, escrowService, feeService, auditService)
	adminService := services.NewAdminService(store, auditService, notificationService, payoutService, cfg.Payment.PlatformFeePercent)
	if settingsCache != nil {
		adminService.WithSettingsCache(settingsCache)
	}

	if err := adminService.EnsureDefaults(ctx); err != nil {
		logrus.WithError(err).Fatal("Failed to seed platform settings")
	}
	if cfg.Database.SeedDemoData {
		if err := seedDemoData(ctx, store, cfg); err != nil {
			logrus.WithError(err).Fatal("Failed to seed demo data")
		}
	}

	// Workers outlive the signal context so queued messages drain on shutdown.
	notificationService.Start(context.Background())

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	r := router.Initialize(router.Services{
		Escrow:   escrowService,
		Disputes: disputeService,
		Fees:     feeService,
		Audit:    auditService,
		Payouts:  payoutService,
		Admin:    adminService,
		Storage:  storageService,
	}, cfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logrus.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()
	logrus.Info("Shutting down server...")

	// Create a deadline for shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown server
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Server forced to shutdown")
	}

	payoutService.Wait()
	notificationService.Stop()

	logrus.Info("Server exited")
}

func configureLogging(cfg *config.Config) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stdout)

	if cfg.Environment == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// openStore picks the persistence backend. The in-memory store is for local
// runs and demos; it loses everything on restart.
func openStore(cfg *config.Config) (repositories.Store, func(), error) {
	if cfg.Database.InMemory() {
		logrus.Warn("Using in-memory store, data will not survive a restart")
		return repositories.NewMemoryStore(), func() {}, nil
	}

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	// Run database migrations
	if err := database.RunMigrations(db); err != nil {
		database.Close(db)
		return nil, nil, err
	}

	return repositories.NewGormStore(db), func() { database.Close(db) }, nil
}
