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
	"github.com/mss-commerce/backend/services/common/logger"
	"github.com/mss-commerce/backend/services/order-service/config"
	"github.com/mss-commerce/backend/services/order-service/controllers"
	"github.com/mss-commerce/backend/services/order-service/repository"
	"github.com/mss-commerce/backend/services/order-service/routes"
	"github.com/mss-commerce/backend/services/order-service/services"
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

	table := ddb.NewTable(ddb.NewClientFromConfig(awsCfg), cfg.TableName, cfg.PrimaryKey).
		WithSortKey(cfg.SortKey)
	repo := repository.NewOrderRepository(table)
	handler := services.NewOrderHandler(repo, logger.Log)

	metrics, err := awspkg.NewMetricsClient(context.Background())
	if err != nil {
		logger.Log.Fatal("failed to init metrics client", zap.Error(err))
	}

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()

	switch cfg.EventSource {
	case "kafka":
		go services.StartKafkaCheckoutConsumer(consumerCtx,
			cfg.KafkaBrokers, cfg.CheckoutTopic, cfg.KafkaGroupID, handler, logger.Log)
	default:
		if cfg.OrderQueueURL == "" {
			logger.Log.Fatal("ORDER_QUEUE_URL is required when consuming from SQS")
		}
		consumer := awspkg.NewSQSConsumer(awsCfg, cfg.OrderQueueURL, cfg.SQSBatchSize)
		go services.StartSQSCheckoutConsumer(consumerCtx, consumer, handler, metrics, logger.Log)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(logger.RequestLogger(), gin.Recovery())
	routes.RegisterOrderRoutes(router, controllers.NewOrderController(handler))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Log.Info("order service listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Log.Info("shutting down gracefully")
	stopConsumer()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal("shutdown error", zap.Error(err))
	}
	logger.Log.Info("server shutdown complete")
}
