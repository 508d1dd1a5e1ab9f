package main // Entry point package

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/seatflow/seat-coordinator/internal/config"
	"github.com/seatflow/seat-coordinator/internal/database"
	"github.com/seatflow/seat-coordinator/internal/gateway"
	"github.com/seatflow/seat-coordinator/internal/handler"
	"github.com/seatflow/seat-coordinator/internal/queue"
	"github.com/seatflow/seat-coordinator/internal/repository"
	"github.com/seatflow/seat-coordinator/internal/router"
	"github.com/seatflow/seat-coordinator/internal/service"
)

func main() {
	// Load .env when present; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}
	if err := database.EnsureSchema(context.Background(), db); err != nil {
		log.Fatalf("mysql schema: %v", err)
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		// Occupancy and the waitlist live in Redis; without it the
		// coordinator cannot hand out a single seat.
		log.Fatal("redis: connection failed")
	}

	seats := repository.NewSeatRepo(db)
	occupancy := repository.NewOccupancyRepo(rdb)
	waitlist := repository.NewWaitlistRepo(rdb)

	allocator := service.NewSeatAllocator(seats, occupancy, waitlist)
	manager := service.NewWaitlistManager(waitlist, occupancy)

	hub := gateway.NewHub(allocator, manager, func(ctx context.Context, ev queue.SeatEvent) {
		_ = queue.PublishSeatEvent(ctx, ev) // logged inside; allocation never waits on the broker
	})
	go hub.Run(context.Background())

	// Audit-log consumer for seat.events; reconnects on its own.
	go func() {
		if err := queue.StartSeatEventConsumer(); err != nil {
			log.Printf("seat-consumer: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, &handler.AuthHandler{
		JWTSecret:   cfg.JWTSecret,
		StationKey:  cfg.OperatorKey,
		TokenTTLMin: cfg.OperatorTTLMin,
	})
	router.RegisterGateway(e, &handler.WSHandler{Hub: hub, JWTSecret: cfg.JWTSecret})
	router.RegisterAdmin(e, handler.NewAdminHandler(allocator, manager, hub), cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
