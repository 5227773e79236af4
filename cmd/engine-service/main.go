package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auction-marketplace/internal/api/handlers"
	"auction-marketplace/internal/config"
	"auction-marketplace/internal/domain"
	"auction-marketplace/internal/infrastructure/leader"
	"auction-marketplace/internal/infrastructure/mysql"
	"auction-marketplace/internal/infrastructure/redis"
	"auction-marketplace/internal/services"
	"auction-marketplace/pkg/logger"

	redisClient "github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func main() {
	log := logger.New()
	log.Info("Starting auction engine service")

	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	rdb := redisClient.NewClient(&redisClient.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("Connected to Redis", "address", cfg.Redis.Address)

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		log.Error("Failed to open MySQL", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close MySQL connection", "error", err)
		}
	}()

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		log.Error("Failed to ping MySQL", "error", err)
		os.Exit(1)
	}
	log.Info("Connected to MySQL")

	// Repositories
	auctionRepo := mysql.NewMySQLAuctionRepository(db)
	bidRepo := mysql.NewMySQLBidRepository(db)
	proxyRepo := mysql.NewMySQLProxyBidRepository(db)
	commandRepo := mysql.NewMySQLCommandRepository(db)

	// Redis-backed capabilities
	locker := redis.NewRedisAuctionLock(rdb, cfg.Bidding.LockWaitTimeout, cfg.Bidding.LockLeaseTimeout, log)
	eventPublisher := redis.NewRedisEventPublisher(rdb)
	snapshotCache := redis.NewRedisSnapshotCache(rdb)
	leaderElection := leader.NewRedisLeaderElection(rdb, cfg.Leader.TTL)

	increments := services.NewIncrementService(rdb, log)
	if err := increments.LoadRules(ctx); err != nil {
		log.Error("Failed to load increment tiers", "error", err)
		os.Exit(1)
	}

	antiSnipe := services.AntiSnipePolicy{
		Enabled:   cfg.Bidding.SnipeEnabled,
		Threshold: cfg.Bidding.SnipeThreshold,
		Extension: cfg.Bidding.SnipeExtension,
	}
	fastFinish := services.FastFinishPolicy{
		Enabled: cfg.Bidding.FastFinishEnabled,
		Window:  cfg.Bidding.FastFinishWindow,
	}

	publisher := services.NewStatePublisher(eventPublisher, snapshotCache, log)
	scheduler := services.NewCronLifecycleScheduler(commandRepo, leaderElection, cfg.Instance.ID, log)

	lifecycle := services.NewLifecycleService(auctionRepo, locker, scheduler, publisher, log)
	bidService := services.NewBidService(auctionRepo, bidRepo, locker, increments,
		antiSnipe, fastFinish, scheduler, publisher, log)
	proxyService := services.NewProxyService(auctionRepo, bidRepo, proxyRepo, locker, increments,
		antiSnipe, fastFinish, scheduler, publisher, log)

	// Command dispatch table, validated by scheduler.Start.
	scheduler.Register(domain.CommandStartAuction, lifecycle.HandleStart)
	scheduler.Register(domain.CommandEndAuction, lifecycle.HandleEnd)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	auctionHandler := handlers.NewAuctionHandler(lifecycle, bidService, proxyService,
		auctionRepo, bidRepo, snapshotCache, log)

	api := e.Group("/api/v1")
	api.POST("/auctions", auctionHandler.CreateAuction)
	api.GET("/auctions", auctionHandler.ListActiveAuctions)
	api.GET("/auctions/:id", auctionHandler.GetAuction)
	api.GET("/auctions/:id/state", auctionHandler.GetAuctionState)
	api.GET("/auctions/:id/bids", auctionHandler.GetBidHistory)
	api.POST("/auctions/:id/bids", auctionHandler.PlaceBid)
	api.POST("/auctions/:id/proxy-bids", auctionHandler.PlaceMaxBid)
	api.POST("/auctions/:id/cancel", auctionHandler.CancelAuction)
	api.POST("/auctions/:id/hammer", auctionHandler.HammerDown)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"service":   "engine-service",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	defer stopScheduler()
	if err := scheduler.Start(schedulerCtx); err != nil {
		log.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}

	// Keep contending for leadership; the scheduler only executes commands
	// while this instance holds it.
	go func() {
		for {
			became, err := leaderElection.BecomeLeader(context.Background(), cfg.Instance.ID)
			if err != nil {
				log.Error("Leadership attempt failed", "error", err)
			} else if became {
				log.Info("Became lifecycle leader", "instance_id", cfg.Instance.ID)
			}
			time.Sleep(10 * time.Second)
		}
	}()

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()
	log.Info("Engine service listening", "address", serverAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down engine service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := scheduler.Stop(); err != nil {
		log.Error("Failed to stop scheduler", "error", err)
	}
	if err := leaderElection.ReleaseLeadership(shutdownCtx, cfg.Instance.ID); err != nil {
		log.Error("Failed to release leadership", "error", err)
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Engine service stopped")
}
