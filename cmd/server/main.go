package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cinema-booking-engine/config"
	"cinema-booking-engine/internal/cache"
	"cinema-booking-engine/internal/database"
	"cinema-booking-engine/internal/handler"
	"cinema-booking-engine/internal/queue"
	"cinema-booking-engine/internal/repository"
	"cinema-booking-engine/internal/service"
	"cinema-booking-engine/internal/worker"
	"cinema-booking-engine/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()
	log := logger.WithComponent("server")

	pool, err := database.InitDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		log.Fatal("Failed to initialize redis", zap.Error(err))
	}
	defer rdb.Close()

	notificationQueue, cleanup, err := buildQueue(cfg, rdb)
	if err != nil {
		log.Fatal("Failed to initialize notification queue", zap.Error(err))
	}
	if cleanup != nil {
		defer cleanup()
	}

	bookings := repository.NewBookingRepository(pool)
	seats := repository.NewSeatRepository(pool)
	catalog := repository.NewCatalogRepository(pool)
	inventory := repository.NewInventoryRepository(pool)
	promos := repository.NewPromoRepository(pool)
	loyalty := repository.NewLoyaltyRepository(pool)
	references := repository.NewReferenceRepository(pool)
	availability := cache.NewRedisSeatAvailabilityCache(rdb)

	bookingService := service.NewBookingService(
		pool, cfg.Booking,
		bookings, seats, catalog, inventory, promos, loyalty, references,
		notificationQueue, availability,
	)
	inventoryService := service.NewInventoryService(pool, inventory, notificationQueue)
	loyaltyService := service.NewLoyaltyService(pool, loyalty)
	promoService := service.NewPromoService(promos)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notificationWorker := worker.NewNotificationWorker(notificationQueue, worker.NewLogNotifier())
	go func() {
		if err := notificationWorker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Notification worker stopped", zap.Error(err))
		}
	}()

	router := gin.Default()
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	handler.NewBookingHandler(bookingService).RegisterRoutes(router)
	handler.NewInventoryHandler(inventoryService).RegisterRoutes(router)
	handler.NewLoyaltyHandler(loyaltyService).RegisterRoutes(router)
	handler.NewPromoHandler(promoService).RegisterRoutes(router)

	srv := &http.Server{
		Addr:    ":8080",
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server stopped", zap.Error(err))
			stop()
		}
	}()
	log.Info("Server started", zap.String("addr", srv.Addr))

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Shutdown did not complete cleanly", zap.Error(err))
	}
}

func buildQueue(cfg *config.Config, rdb *redis.Client) (queue.NotificationQueue, func(), error) {
	switch cfg.Queue.Backend {
	case "memory":
		return queue.NewMemoryNotificationQueue(256), nil, nil
	case "redis":
		consumerID, _ := os.Hostname()
		q, err := queue.NewRedisStreamNotificationQueue(rdb, consumerID, nil)
		return q, nil, err
	case "amqp":
		q, err := queue.NewAMQPNotificationQueue(cfg.Queue.AMQPURL)
		if err != nil {
			return nil, nil, err
		}
		return q, func() { _ = q.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown queue backend %q", cfg.Queue.Backend)
	}
}
