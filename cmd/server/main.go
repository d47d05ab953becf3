package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/hostel-bed-reservation/internal/catalog"
	"github.com/iliyamo/hostel-bed-reservation/internal/clock"
	"github.com/iliyamo/hostel-bed-reservation/internal/config"
	"github.com/iliyamo/hostel-bed-reservation/internal/database"
	"github.com/iliyamo/hostel-bed-reservation/internal/handler"
	"github.com/iliyamo/hostel-bed-reservation/internal/middleware"
	"github.com/iliyamo/hostel-bed-reservation/internal/model"
	"github.com/iliyamo/hostel-bed-reservation/internal/pricing"
	"github.com/iliyamo/hostel-bed-reservation/internal/queue"
	"github.com/iliyamo/hostel-bed-reservation/internal/repository"
	"github.com/iliyamo/hostel-bed-reservation/internal/router"
	"github.com/iliyamo/hostel-bed-reservation/internal/service"
	"github.com/iliyamo/hostel-bed-reservation/internal/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cat, err := loadCatalog(cfg)
	if err != nil {
		log.Fatalf("room catalog: %v", err)
	}
	log.Printf("catalog: %d rooms, %d beds (advertised %d)", len(cat.ListRooms()), cat.TotalBeds(), cfg.AdvertisedBeds)

	store, db, err := openStore(ctx, cfg, cat)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	if db != nil {
		defer db.Close()
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable: caching and rate limiting disabled")
	} else {
		defer rdb.Close()
	}
	cacheCfg := config.LoadCacheConfig()
	invalidator := middleware.NewCacheInvalidator(cacheCfg, rdb)

	publishers := service.Publishers{invalidator}
	if cfg.RabbitMQURL != "" {
		publishers = append(publishers, queue.NewPublisher(cfg.RabbitMQURL))
		go func() {
			if err := queue.StartBookingConsumer(ctx, cfg.RabbitMQURL, cfg.BookingLogDir); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("booking-consumer: stopped: %v", err)
			}
		}()
	} else {
		log.Printf("RABBITMQ_URL not set: domain events disabled")
	}

	clk := clock.NewSystem()
	engine := pricing.NewEngine(cat.ListRooms(), model.Money(cfg.BasePriceCents),
		pricing.WithLargeGroupThreshold(cfg.LargeGroupThreshold))
	holds := service.NewHoldManager(store, cat, engine, clk,
		service.WithHoldTTL(cfg.HoldTTL),
		service.WithFlexibleWindow(cfg.FlexibleRoomWindow),
		service.WithLocation(cfg.Location),
		service.WithPublisher(publishers),
	)

	sweeper := service.NewSweeper(holds, cfg.SweepInterval)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	e := router.NewEcho()
	router.RegisterRoutes(e)
	router.RegisterPublic(e, handler.NewPublicHandler(cat, holds, cfg.AdvertisedBeds), middleware.NewRedisCache(cacheCfg, rdb))
	router.RegisterHolds(e, handler.NewHoldHandler(holds), cfg.JWTSecret, limiter, invalidator)
	router.RegisterPayments(e, handler.NewPaymentHandler(holds), cfg.JWTSecret, limiter, invalidator)
	router.RegisterAdmin(e, handler.NewAdminHandler(holds,
		utils.AdminCredentials{User: cfg.AdminUser, PasswordHash: cfg.AdminPasswordHash},
		handler.AdminTokens{
			Secret:     cfg.JWTSecret,
			AccessTTL:  time.Duration(cfg.AccessTTLMin) * time.Minute,
			GatewayTTL: time.Duration(cfg.GatewayTTLHours) * time.Hour,
		},
	), cfg.JWTSecret, limiter, invalidator)

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s, store=%s, hold ttl=%s)", addr, cfg.Env, cfg.StoreDriver, cfg.HoldTTL)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
}

func loadCatalog(cfg config.Config) (*catalog.Catalog, error) {
	base := model.Money(cfg.BasePriceCents)
	if cfg.RoomsFile == "" {
		return catalog.Reference(base), nil
	}
	return catalog.Load(cfg.RoomsFile, base)
}

// openStore returns the configured store.  The *sql.DB is nil for the
// in-memory store.
func openStore(ctx context.Context, cfg config.Config, cat *catalog.Catalog) (service.Store, *sql.DB, error) {
	if cfg.StoreDriver != config.StoreMySQL {
		log.Printf("using in-memory store: state is lost on restart")
		return repository.NewMemoryStore(), nil, nil
	}
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}
	s := repository.NewMySQLStore(db)
	if err := s.SyncRooms(ctx, cat.ListRooms()); err != nil {
		db.Close()
		return nil, nil, err
	}
	return s, db, nil
}
