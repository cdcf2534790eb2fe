package config

import (
	"os"
	"strings"
)

type Config struct {
	Port          string
	TableName     string
	PrimaryKey    string
	EventBusName  string
	EventSource   string
	DetailType    string
	EventTarget   string // "sqs" or "kafka"
	OrderQueueURL string
	KafkaBrokers  []string
	CheckoutTopic string
	Environment   string
}

func Load() Config {
	return Config{
		Port:          getEnv("PORT", "8081"),
		TableName:     getEnv("DYNAMODB_TABLE_NAME", "basket"),
		PrimaryKey:    getEnv("PRIMARY_KEY", "userName"),
		EventBusName:  getEnv("EVENT_BUS", "MssEventBus"),
		EventSource:   getEnv("EVENT_SOURCE", "com.swn.basket.checkoutbasket"),
		DetailType:    getEnv("DETAIL_TYPE", "CheckoutBasket"),
		EventTarget:   getEnv("EVENT_TARGET", "sqs"),
		OrderQueueURL: getEnv("ORDER_QUEUE_URL", ""),
		KafkaBrokers:  strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		CheckoutTopic: getEnv("CHECKOUT_TOPIC", "checkout.basket"),
		Environment:   getEnv("APP_ENV", "development"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
