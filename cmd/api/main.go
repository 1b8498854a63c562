package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/gbrmora6/roomly-reserve-space-sub001/internal/app"
	"github.com/gbrmora6/roomly-reserve-space-sub001/internal/cache"
	"github.com/gbrmora6/roomly-reserve-space-sub001/internal/clock"
	"github.com/gbrmora6/roomly-reserve-space-sub001/internal/config"
	"github.com/gbrmora6/roomly-reserve-space-sub001/internal/domain"
	"github.com/gbrmora6/roomly-reserve-space-sub001/internal/schedule"
	"github.com/gbrmora6/roomly-reserve-space-sub001/internal/storage/postgres"
	transporthttp "github.com/gbrmora6/roomly-reserve-space-sub001/internal/transport/http"
	"github.com/gbrmora6/roomly-reserve-space-sub001/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := log.Default()
	config.LoadEnvFile(logger)

	cfg, err := config.Load(logger)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect to db: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		log.Fatalf("db ping: %v", err)
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	clk := clock.NewSystem()
	catalogRepo := postgres.NewCatalogRepository(pool)

	var scheduleSource schedule.Source = catalogRepo
	var invalidator *cache.ScheduleCache
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("parse redis url: %v", err)
		}
		client := redis.NewClient(opts)
		defer func() { _ = client.Close() }()

		if err := client.Ping(startupCtx).Err(); err != nil {
			log.Fatalf("redis ping: %v", err)
		}
		scheduleCache := cache.NewScheduleCache(catalogRepo, cache.NewRedisStore(client), cfg.ScheduleCacheTTL, logger)
		scheduleSource = scheduleCache
		invalidator = scheduleCache
		logger.Printf("schedule cache enabled via redis")
	} else {
		logger.Printf("WARN: REDIS_URL not set, schedule cache disabled")
	}

	resolver := schedule.NewResolver(scheduleSource, cfg.Location)

	holdRepo := postgres.NewHoldRepository(pool)
	holdSvc := app.NewHoldService(holdRepo, resolver, clk,
		app.WithHoldTTL(domain.ResourceKindRoom, cfg.RoomHoldTTL),
		app.WithHoldTTL(domain.ResourceKindEquipment, cfg.EquipmentHoldTTL),
		app.WithAcquireTimeout(cfg.AcquireTimeout),
	)
	bookingRepo := postgres.NewBookingRepository(pool)
	bookingSvc := app.NewBookingService(bookingRepo, clk)
	availabilityRepo := postgres.NewAvailabilityRepository(pool)
	availabilitySvc := app.NewAvailabilityService(availabilityRepo, resolver, clk,
		app.WithSlotGranularity(cfg.SlotGranularity),
	)

	catalogOpts := []app.CatalogServiceOption{}
	if invalidator != nil {
		catalogOpts = append(catalogOpts, app.WithScheduleInvalidator(invalidator))
	}
	catalogSvc := app.NewCatalogService(catalogRepo, clk, catalogOpts...)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", transporthttp.HealthHandler)
	mux.Handle("/resources/", transporthttp.HandleResourceAvailability(availabilitySvc, cfg.Location))
	mux.Handle("/holds", transporthttp.HandleAcquireHold(holdSvc))
	mux.Handle("/holds/", transporthttp.HandleHoldByID(holdSvc, bookingSvc))
	mux.Handle("/admin/resources", transporthttp.HandleAdminResources(catalogSvc))
	mux.Handle("/admin/resources/", transporthttp.HandleAdminResourceByID(catalogSvc))
	mux.Handle("/admin/bookings/", transporthttp.HandleAdminCancelBooking(bookingSvc))
	mux.Handle("/", transporthttp.NotFoundHandler())

	handler := transporthttp.RequestLogger(transporthttp.CORS(cfg.CORSOrigins, mux), logger)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	sweeper := app.NewSweeper(holdSvc, logger, cfg.SweepInterval)
	go sweeper.Run(sweepCtx)

	log.Printf("api listening on :%s", cfg.Port)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server error: %v", err)
		}
	case <-stopCtx.Done():
		log.Printf("shutdown signal received, stopping server")
	}

	stopSweep()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("server shutdown error: %v", err)
	}
	log.Printf("server stopped")
}
