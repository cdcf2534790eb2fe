package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port          string
	TableName     string
	PrimaryKey    string
	SortKey       string
	EventSource   string // "sqs" or "kafka"
	OrderQueueURL string
	SQSBatchSize  int32
	KafkaBrokers  []string
	CheckoutTopic string
	KafkaGroupID  string
	Environment   string
}

func Load() Config {
	return Config{
		Port:          getEnv("PORT", "8082"),
		TableName:     getEnv("DYNAMODB_TABLE_NAME", "order"),
		PrimaryKey:    getEnv("PRIMARY_KEY", "userName"),
		SortKey:       getEnv("SORT_KEY", "orderDate"),
		EventSource:   getEnv("EVENT_SOURCE_KIND", "sqs"),
		OrderQueueURL: getEnv("ORDER_QUEUE_URL", ""),
		SQSBatchSize:  int32(getEnvInt("SQS_BATCH_SIZE", 3)),
		KafkaBrokers:  strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		CheckoutTopic: getEnv("CHECKOUT_TOPIC", "checkout.basket"),
		KafkaGroupID:  getEnv("KAFKA_GROUP_ID", "order-service"),
		Environment:   getEnv("APP_ENV", "development"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}
