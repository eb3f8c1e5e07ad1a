package main // Entry point package

import (
	"context"
	"log"

	"github.com/joho/godotenv" // loads .env files in development
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-registration/internal/client"
	"github.com/iliyamo/event-registration/internal/clock"
	"github.com/iliyamo/event-registration/internal/config"
	"github.com/iliyamo/event-registration/internal/database"
	"github.com/iliyamo/event-registration/internal/handler"
	"github.com/iliyamo/event-registration/internal/middleware"
	"github.com/iliyamo/event-registration/internal/queue"
	"github.com/iliyamo/event-registration/internal/repository"
	"github.com/iliyamo/event-registration/internal/router"
	"github.com/iliyamo/event-registration/internal/service"
)

func main() {
	_ = godotenv.Load() // best-effort; real deployments set env directly
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	// Repositories own their tables; everything else goes through them.
	registrations := repository.NewRegistrationRepo(db)
	seats := repository.NewSeatLedgerRepo(db)
	sessions := repository.NewSessionRepo(db)

	// External collaborators behind bounded-timeout HTTP clients.
	catalog := client.NewCatalogClient(cfg.CatalogURL, cfg.CatalogToken, cfg.ClientTimeout)
	gateway := client.NewGatewayClient(cfg.GatewayBaseURL, cfg.GatewayKeyID, cfg.GatewayKeySecret, cfg.ClientTimeout)
	mirror := client.NewMirrorClient(cfg.CatalogURL, cfg.CatalogToken, cfg.ClientTimeout)
	retry := queue.NewPublisher(cfg.AmqpURL)

	clk := clock.Real{}
	coordinator := service.NewOrderCoordinator(catalog, gateway, seats, registrations, clk)
	confirmation := service.NewPaymentConfirmation(registrations, seats, mirror, retry, cfg.GatewayKeySecret, clk)
	sweeper := service.NewReservationSweeper(registrations, seats, cfg.ReservationTTL, cfg.SweepInterval, clk)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sweeper.Run(ctx)
	go func() {
		if err := queue.StartMirrorConsumer(cfg.AmqpURL, mirror, registrations); err != nil {
			log.Printf("mirror consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	rdb := config.NewRedisClient() // nil disables rate limiting
	ratelimit := middleware.RateLimit(config.LoadRateLimitConfig(), rdb)
	auth := middleware.Authenticate(sessions, cfg.JWTSecret)

	router.RegisterRoutes(e)
	router.RegisterRegistration(e, handler.NewRegistrationHandler(coordinator, confirmation, registrations), auth, ratelimit)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
