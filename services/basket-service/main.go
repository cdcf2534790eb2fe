package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	awspkg "github.com/mss-commerce/backend/pkg/aws"
	ddb "github.com/mss-commerce/backend/pkg/dynamodb"
	"github.com/mss-commerce/backend/pkg/eventbus"
	"github.com/mss-commerce/backend/services/basket-service/config"
	"github.com/mss-commerce/backend/services/basket-service/controllers"
	"github.com/mss-commerce/backend/services/basket-service/kafka"
	"github.com/mss-commerce/backend/services/basket-service/repository"
	"github.com/mss-commerce/backend/services/basket-service/routes"
	"github.com/mss-commerce/backend/services/basket-service/services"
	"github.com/mss-commerce/backend/services/common/logger"
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
	repo := repository.NewBasketRepository(table)

	var target eventbus.Enqueuer
	switch cfg.EventTarget {
	case "kafka":
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.CheckoutTopic)
		defer producer.Close()
		target = producer
	default:
		if cfg.OrderQueueURL == "" {
			logger.Log.Fatal("ORDER_QUEUE_URL is required when EVENT_TARGET is sqs")
		}
		target = awspkg.NewSQSConsumer(awsCfg, cfg.OrderQueueURL, 0)
	}

	rule, err := eventbus.NewRule("CheckoutBasketRule",
		eventbus.Pattern{Source: cfg.EventSource, DetailType: cfg.DetailType},
		eventbus.WithQueue(target),
	)
	if err != nil {
		logger.Log.Fatal("failed to build checkout rule", zap.Error(err))
	}
	bus, err := eventbus.NewBus(cfg.EventBusName, logger.Log, rule)
	if err != nil {
		logger.Log.Fatal("failed to build event bus", zap.Error(err))
	}

	orchestrator := services.NewCheckoutOrchestrator(repo, bus, cfg.EventSource, cfg.DetailType, logger.Log)
	metrics, err := awspkg.NewMetricsClient(context.Background())
	if err != nil {
		logger.Log.Fatal("failed to init metrics client", zap.Error(err))
	}
	controller := controllers.NewBasketController(repo, orchestrator, metrics)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(logger.RequestLogger(), gin.Recovery())
	routes.RegisterBasketRoutes(router, controller)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Log.Info("basket service listening", zap.String("port", cfg.Port))
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
