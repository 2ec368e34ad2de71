package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NguyenNhuTu09/TIT-Shop/auth"
	"github.com/NguyenNhuTu09/TIT-Shop/config"
	orderControllers "github.com/NguyenNhuTu09/TIT-Shop/controllers/order"
	"github.com/NguyenNhuTu09/TIT-Shop/database"
	"github.com/NguyenNhuTu09/TIT-Shop/events"
	"github.com/NguyenNhuTu09/TIT-Shop/routes"
	"github.com/NguyenNhuTu09/TIT-Shop/storage"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"gorm.io/gorm"
)

func main() {
	seed := flag.Bool("seed", false, "load the bundled SQL seed data (postgres) and exit")
	flag.Parse()

	log.Println("✅ Starting application...")

	// Load environment variables
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	if *seed {
		runSeed(cfg)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init DB
	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("❌ DB connection failed: %v", err)
	}

	// Auto-migrate all tables
	if err := database.Migrate(db); err != nil {
		log.Fatalf("❌ AutoMigrate failed: %v", err)
	}
	if err := database.EnsureAdmin(db, cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatalf("❌ Failed to create admin user: %v", err)
	}

	hub := orderControllers.NewHub()
	publisher, err := buildPublisher(ctx, cfg, db, hub)
	if err != nil {
		log.Fatalf("❌ Failed to set up events: %v", err)
	}

	store, err := buildStore(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to set up storage: %v", err)
	}

	// Gin setup
	gin.SetMode(cfg.GinMode)
	r := gin.Default()

	r.MaxMultipartMemory = 32 << 20

	// CORS settings
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-KEY"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: !containsWildcard(cfg.CORSOrigins),
		MaxAge:           12 * time.Hour,
	}))

	// Serve uploaded images
	if cfg.StorageBackend == "local" {
		r.Static("/uploads", cfg.UploadDir)
		if cfg.BackupDir != "" {
			// Back up uploads at 2 AM daily
			go storage.StartDailyBackup(ctx, cfg.UploadDir, cfg.BackupDir, cfg.BackupRetention, 2, 0)
		}
	}

	// Setup routes
	routes.SetupRoutes(r, db, routes.Options{
		Config:    cfg,
		Tokens:    auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL),
		Publisher: publisher,
		Hub:       hub,
		Store:     store,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("🚀 Server running on port %s...", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("⚠️ Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("❌ Graceful shutdown failed: %v", err)
	}
}

func runSeed(cfg *config.Config) {
	sqlDB, err := database.OpenSQL(cfg)
	if err != nil {
		log.Fatalf("❌ Seed connection failed: %v", err)
	}
	defer sqlDB.Close()

	n, err := database.Seed(context.Background(), sqlDB, database.SeedFiles())
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}
	log.Printf("✅ Applied %d seed files", n)
}

// buildPublisher combines the websocket hub with the configured broker.
// For amqp it also starts the payment update consumer.
func buildPublisher(ctx context.Context, cfg *config.Config, db *gorm.DB, hub *orderControllers.Hub) (events.Publisher, error) {
	switch cfg.EventsBackend {
	case "", "none":
		return events.Multi(events.Nop{}, hub), nil

	case "amqp":
		conn, err := amqp.Dial(cfg.AMQPURL)
		if err != nil {
			return nil, err
		}
		go func() {
			<-ctx.Done()
			conn.Close()
		}()

		open := events.ConnChannels(conn)
		publisher := events.Multi(events.NewAMQPPublisher(open, cfg.OrderEventsQueue), hub)

		go func() {
			handle := orderControllers.PaymentConsumer(db, publisher)
			if err := events.ConsumePayments(ctx, open, cfg.PaymentUpdatesQueue, handle); err != nil {
				log.Printf("❌ Payment consumer stopped: %v", err)
			}
		}()
		log.Printf("✅ Publishing order events to AMQP queue %s", cfg.OrderEventsQueue)
		return publisher, nil

	case "sqs":
		client, err := events.NewSQSClient(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, err
		}
		log.Printf("✅ Publishing order events to SQS %s", cfg.SQSQueueURL)
		return events.Multi(events.NewSQSPublisher(client, cfg.SQSQueueURL), hub), nil

	default:
		return nil, errors.New("unknown EVENTS_BACKEND " + cfg.EventsBackend)
	}
}

func buildStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.StorageBackend {
	case "", "local":
		return storage.NewLocal(cfg.UploadDir, cfg.PublicBaseURL), nil
	case "s3":
		client, err := storage.NewS3Client(cfg.AWSRegion)
		if err != nil {
			return nil, err
		}
		return storage.NewS3(client, cfg.S3Bucket, cfg.AWSRegion), nil
	default:
		return nil, errors.New("unknown STORAGE_BACKEND " + cfg.StorageBackend)
	}
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
