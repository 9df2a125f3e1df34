// cmd/api/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/giftcard-backend/internal/config"
	"github.com/your-org/giftcard-backend/internal/domain/admin"
	"github.com/your-org/giftcard-backend/internal/domain/cart"
	"github.com/your-org/giftcard-backend/internal/domain/catalog"
	"github.com/your-org/giftcard-backend/internal/domain/inventory"
	"github.com/your-org/giftcard-backend/internal/domain/order"
	"github.com/your-org/giftcard-backend/internal/domain/payment"
	"github.com/your-org/giftcard-backend/internal/domain/user"
	"github.com/your-org/giftcard-backend/internal/infrastructure/database/postgres"
	"github.com/your-org/giftcard-backend/internal/infrastructure/database/redis"
	"github.com/your-org/giftcard-backend/internal/interfaces/http"
	"github.com/your-org/giftcard-backend/internal/interfaces/http/handlers"
	"github.com/your-org/giftcard-backend/internal/interfaces/http/routes"
	"github.com/your-org/giftcard-backend/internal/jobs"
	"github.com/your-org/giftcard-backend/internal/pkg/auth"
	"github.com/your-org/giftcard-backend/internal/pkg/dbtx"
	"github.com/your-org/giftcard-backend/internal/pkg/email"
	"github.com/your-org/giftcard-backend/internal/pkg/logger"
	"github.com/your-org/giftcard-backend/internal/pkg/pdf"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log := logger.New(cfg.Logging)
	log.WithFields(logrus.Fields{
		"app":         cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	}).Info("Starting")

	db, err := postgres.NewConnection(cfg, log)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	redisClient, err := redis.NewConnection(cfg, log)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	migration := postgres.NewMigration(db.GetDB(), log)
	if err := migration.RunAutoMigrations(); err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}
	if err := migration.CreateIndexes(); err != nil {
		log.WithError(err).Warn("Index creation incomplete")
	}
	if cfg.IsDevelopment() {
		if err := migration.SeedInitialData(); err != nil {
			log.WithError(err).Warn("Data seeding failed")
		}
	}

	// Domain services
	gormDB := db.GetDB()
	rdb := redisClient.GetClient()

	catalogRepo := catalog.NewCachedRepository(catalog.NewGormRepository(gormDB), rdb, cfg.Store.CatalogCacheTTL, log)
	catalogSvc := catalog.NewService(catalogRepo, cfg.Store.DefaultCurrency, log)
	inventorySvc := inventory.NewService(inventory.NewGormStore(gormDB), cfg.Store.LowStockThreshold, log)
	cartSvc := cart.NewService(cart.NewRedisRepository(rdb, cfg.Store.CartTTL), catalogSvc, log)
	orderSvc := order.NewService(dbtx.NewGormTransactor(gormDB), order.NewGormRepository(gormDB), inventorySvc, cartSvc, catalogSvc, cfg, log)
	orderSvc.SetNotifier(email.NewEmailService(cfg, log))
	if cfg.Payment.RazorpayKeyID != "" {
		orderSvc.SetPaymentInitiator(payment.NewRazorpayGateway(cfg, log))
	} else {
		log.Warn("Razorpay is not configured, asynchronous payment methods stay PENDING until completed by webhook or admin")
	}
	passwords := auth.NewPasswordManager(cfg)
	userSvc := user.NewService(user.NewGormRepository(gormDB), passwords, log)
	adminSvc := admin.NewService(catalogSvc, inventorySvc, orderSvc, log)

	scheduler, err := jobs.NewScheduler(orderSvc, cfg.Store.OrderExpirySchedule, log)
	if err != nil {
		log.Fatalf("Failed to set up scheduler: %v", err)
	}
	scheduler.Start()

	jwtManager := auth.NewJWTManager(cfg)
	server := http.NewServer(cfg, http.Dependencies{
		DB:     gormDB,
		Redis:  rdb,
		JWT:    jwtManager,
		Logger: log,
		Handlers: routes.Handlers{
			Auth:    handlers.NewAuthHandler(userSvc, cartSvc, jwtManager, passwords, cfg, log),
			Catalog: handlers.NewCatalogHandler(catalogSvc),
			Cart:    handlers.NewCartHandler(cartSvc, cfg, log),
			Order:   handlers.NewOrderHandler(orderSvc, pdf.NewService(cfg)),
			Webhook: handlers.NewWebhookHandler(payment.NewWebhookProcessor(cfg.Payment.RazorpayWebhookSecret, orderSvc, log)),
			Admin:   handlers.NewAdminHandler(adminSvc),
		},
	})

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		log.WithError(err).Error("Failed to shutdown HTTP server gracefully")
	}
	scheduler.Stop(ctx)

	log.Info("Server shutdown completed")
}
