package routes

import (
	"os"

	"github.com/gin-gonic/gin"

	"github.com/mss-commerce/backend/api-gateway/utils"
)

func RegisterAllRoutes(r *gin.Engine) {
	forwardTo := func(targetBase string) gin.HandlerFunc {
		return func(c *gin.Context) {
			utils.ForwardRequest(c, utils.ForwardOptions{TargetBase: targetBase})
		}
	}

	products := forwardTo(getEnv("PRODUCT_SERVICE_URL", "http://product-service:8080") + "/product")
	r.GET("/product", products)
	r.POST("/product", products)
	r.GET("/product/*any", products)
	r.PUT("/product/*any", products)
	r.DELETE("/product/*any", products)

	baskets := forwardTo(getEnv("BASKET_SERVICE_URL", "http://basket-service:8081") + "/basket")
	r.GET("/basket", baskets)
	r.POST("/basket", baskets)
	r.GET("/basket/*any", baskets)
	r.DELETE("/basket/*any", baskets)
	// /basket/checkout is covered by the wildcard POST below.
	r.POST("/basket/*any", baskets)

	orders := forwardTo(getEnv("ORDER_SERVICE_URL", "http://order-service:8082") + "/order")
	r.GET("/order", orders)
	r.GET("/order/*any", orders)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
