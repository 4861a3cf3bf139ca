package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/buildsite-dev/buildsite/db"
	"github.com/buildsite-dev/buildsite/internal/auth"
	"github.com/buildsite-dev/buildsite/internal/events"
	"github.com/buildsite-dev/buildsite/internal/handlers"
	"github.com/buildsite-dev/buildsite/internal/identity"
	"github.com/buildsite-dev/buildsite/internal/logging"
	"github.com/buildsite-dev/buildsite/internal/router"
	"github.com/buildsite-dev/buildsite/internal/store"
	"github.com/buildsite-dev/buildsite/internal/sweeper"
	"github.com/buildsite-dev/buildsite/internal/triggers"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	logging.Init(logger)

	if err := auth.InitJWTSecret(); err != nil {
		logger.Fatal("jwt init failed", zap.Error(err))
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Fatal("DATABASE_URL environment variable is not set")
	}

	if err := db.ConnectDatabase(dsn); err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}

	if err := db.MigrateDatabase(); err != nil {
		logger.Fatal("database migration failed", zap.Error(err))
	}

	bus := events.NewBus(logger)
	defer bus.Close()

	profileStore := store.New(db.DB, logger)
	identitySvc := identity.NewService(db.DB, bus, logger)

	triggers.NewPipeline(profileStore, identitySvc, logger).
		WithNotifier(handlers.BroadcastUserRefresh).
		Register(bus)

	sweep := sweeper.New(profileStore, identitySvc, sweepInterval(), logger)
	sweep.Start()
	defer sweep.Stop()

	handlers.Configure(identitySvc, bus)

	r := router.NewRouter()

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
		logger.Info("PORT not set, defaulting to 3000")
	}

	if err := r.Run(":" + port); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func sweepInterval() time.Duration {
	raw := os.Getenv("SWEEP_INTERVAL_SECONDS")
	if raw == "" {
		return 5 * time.Minute
	}

	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		log.Printf("Invalid SWEEP_INTERVAL_SECONDS %q, defaulting to 300", raw)
		return 5 * time.Minute
	}

	return time.Duration(seconds) * time.Second
}
