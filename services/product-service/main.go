package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	awspkg "github.com/mss-commerce/backend/pkg/aws"
	ddb "github.com/mss-commerce/backend/pkg/dynamodb"
	"github.com/mss-commerce/backend/services/common/logger"
	"github.com/mss-commerce/backend/services/product-service/config"
	"github.com/mss-commerce/backend/services/product-service/controllers"
	"github.com/mss-commerce/backend/services/product-service/repository"
	"github.com/mss-commerce/backend/services/product-service/routes"
	"github.com/mss-commerce/backend/services/product-service/services"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Initialize(cfg.Environment)
	defer logger.Sync()

	awsCfg, err := awspkg.LoadAWSConfig(context.Background())
	if err != nil {
		logger.Log.Fatal("failed to load AWS config", zap.Error(err))
	}

	table := ddb.NewTable(ddb.NewClientFromConfig(awsCfg), cfg.TableName, cfg.PrimaryKey)
	repo := repository.NewProductRepository(table)

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Log.Fatal("invalid REDIS_URL", zap.Error(err))
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
	}
	cache := services.NewProductCache(redisClient, logger.Log)

	controller := controllers.NewProductController(repo, cache)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(logger.RequestLogger(), gin.Recovery())
	routes.RegisterProductRoutes(router, controller)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Log.Info("product service listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Log.Info("shutting down gracefully")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal("shutdown error", zap.Error(err))
	}
	logger.Log.Info("server shutdown complete")
}
