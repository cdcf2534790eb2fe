package config

import "os"

type Config struct {
	Port        string
	TableName   string
	PrimaryKey  string
	RedisURL    string
	Environment string
}

func Load() Config {
	return Config{
		Port:        getEnv("PORT", "8080"),
		TableName:   getEnv("DYNAMODB_TABLE_NAME", "product"),
		PrimaryKey:  getEnv("PRIMARY_KEY", "id"),
		RedisURL:    getEnv("REDIS_URL", ""),
		Environment: getEnv("APP_ENV", "development"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
