package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/mss-commerce/backend/services/basket-service/controllers"
)

func RegisterBasketRoutes(router *gin.Engine, bc *controllers.BasketController) {
	basket := router.Group("/basket")
	{
		basket.GET("", bc.GetAllBaskets)
		basket.POST("", bc.CreateBasket)
		basket.GET("/:userName", bc.GetBasket)
		basket.DELETE("/:userName", bc.DeleteBasket)
		basket.POST("/checkout", bc.Checkout)
	}
}
