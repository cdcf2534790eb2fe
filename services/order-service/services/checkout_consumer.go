package services

import (
	"context"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	awspkg "github.com/mss-commerce/backend/pkg/aws"
)

// StartSQSCheckoutConsumer polls the order queue and feeds each routed event
// to the handler. A handler failure leaves the message on the queue for
// redelivery. Blocks until ctx is cancelled.
func StartSQSCheckoutConsumer(ctx context.Context, consumer *awspkg.SQSConsumer, handler *OrderHandler, metrics *awspkg.MetricsClient, log *zap.Logger) {
	log.Info("checkout consumer polling order queue")
	err := consumer.StartPolling(ctx, func(ctx context.Context, body string) error {
		if err := handler.HandleMessage(ctx, body); err != nil {
			return err
		}
		if metrics.IsEnabled() {
			mctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			if err := metrics.RecordCount(mctx, awspkg.MetricOrdersCreated, map[string]string{"Service": "order-service"}); err != nil {
				log.Warn("failed to record order metric", zap.Error(err))
			}
		}
		return nil
	})
	if err != nil && ctx.Err() == nil {
		log.Error("checkout consumer stopped", zap.Error(err))
	}
}

// StartKafkaCheckoutConsumer reads routed events off a Kafka topic. Offsets
// are committed only after the handler succeeds, so a crash mid-handle
// replays the event.
func StartKafkaCheckoutConsumer(ctx context.Context, brokers []string, topic, groupID string, handler *OrderHandler, log *zap.Logger) {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1e3,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	log.Info("checkout consumer listening",
		zap.String("topic", topic),
		zap.String("group", groupID),
	)

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("kafka fetch failed", zap.Error(err))
			continue
		}

		if err := handler.HandleMessage(ctx, string(msg.Value)); err != nil {
			log.Error("failed to handle checkout event, leaving offset uncommitted",
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
			continue
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("kafka commit failed", zap.Error(err))
		}
	}
}
