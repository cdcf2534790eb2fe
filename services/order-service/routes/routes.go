package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/mss-commerce/backend/services/order-service/controllers"
)

func RegisterOrderRoutes(router *gin.Engine, oc *controllers.OrderController) {
	order := router.Group("/order")
	{
		order.GET("", oc.GetAllOrders)
		order.GET("/:userName", oc.GetOrder)
	}
}
