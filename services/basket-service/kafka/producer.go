package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// Producer writes routed checkout events to a Kafka topic. It satisfies
// eventbus.Enqueuer so a rule can target Kafka instead of SQS.
type Producer struct {
	writer *kafka.Writer
	topic  string
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}

	return &Producer{
		writer: writer,
		topic:  topic,
	}
}

func (p *Producer) Enqueue(ctx context.Context, body []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{Value: body})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
