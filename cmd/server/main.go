package main // Entry point package

import (
	"context"   // lifetime of background workers
	"log"       // Logging library
	"os"        // signal set
	"os/signal" // graceful shutdown
	"time"      // shutdown deadline

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/seat-picker/internal/config"     // Internal config loader
	"github.com/iliyamo/seat-picker/internal/database"   // MySQL connection and schema
	"github.com/iliyamo/seat-picker/internal/handler"    // HTTP handlers
	"github.com/iliyamo/seat-picker/internal/middleware" // rate limiting and caching
	"github.com/iliyamo/seat-picker/internal/queue"      // selection.completed consumer
	"github.com/iliyamo/seat-picker/internal/repository" // venue storage
	"github.com/iliyamo/seat-picker/internal/router"     // Internal router setup
	queue_publisher "github.com/iliyamo/seat-picker/internal/service"
	"github.com/iliyamo/seat-picker/internal/session" // selection sessions
)

func main() {
	config.LoadDotEnv()  // pick up a local .env when present
	cfg := config.Load() // Load environment config

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Venues live in MySQL when configured, otherwise in memory with the
	// demo hall preloaded.
	var venues repository.VenueStore
	if cfg.UseDatabase() {
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			log.Fatalf("db open: %v", err)
		}
		defer db.Close()
		if err := database.EnsureSchema(ctx, db); err != nil {
			log.Fatalf("db schema: %v", err)
		}
		venues = repository.NewVenueRepo(db)
	} else {
		log.Printf("DB_HOST not set; serving the demo venue from memory")
		venues = repository.NewSeededVenueRepo()
	}

	rdb := config.NewRedisClient() // nil when Redis is disabled or unreachable
	if rdb != nil {
		defer rdb.Close()
	}

	sessions := session.NewStore(cfg.SessionTTL)
	go sessions.Run(ctx, cfg.SweepInterval)

	var publisher handler.SelectionPublisher
	if cfg.PublishEnabled {
		publisher = queue_publisher.New(queue.BrokerURL())
	}
	if cfg.ConsumerEnabled {
		go func() {
			if err := queue.StartSelectionConsumer(ctx, queue.BrokerURL(), cfg.ConsumerLogDir); err != nil && ctx.Err() == nil {
				log.Printf("selection-consumer: stopped: %v", err)
			}
		}()
	}

	e := echo.New() // Create Echo instance
	e.HideBanner = true

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e, sessions)
	router.RegisterVenues(e, handler.NewVenueHandler(venues), cache, limiter, cfg.OperatorSecret)
	router.RegisterSessions(e,
		handler.NewSelectionHandler(venues, sessions, cfg.SessionSecret, cfg.SessionTTL, publisher),
		cfg.SessionSecret, limiter)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	if err := e.Start(addr); err != nil && ctx.Err() == nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
