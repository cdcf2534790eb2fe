package main

import (
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mss-commerce/backend/api-gateway/routes"
	"github.com/mss-commerce/backend/services/common/logger"
)

func main() {
	_ = godotenv.Load()

	logger.Initialize(os.Getenv("APP_ENV"))
	defer logger.Sync()

	logger.Log.Info("starting API gateway")

	r := gin.New()
	r.Use(logger.RequestLogger(), gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterAllRoutes(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}

	logger.Log.Info("API gateway listening", zap.String("port", port))
	if err := r.Run(":" + port); err != nil {
		logger.Log.Fatal("failed to start server", zap.Error(err))
	}
}
