package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/mss-commerce/backend/services/product-service/controllers"
)

func RegisterProductRoutes(router *gin.Engine, pc *controllers.ProductController) {
	product := router.Group("/product")
	{
		product.GET("", pc.GetAllProducts)
		product.POST("", pc.CreateProduct)
		product.GET("/:id", pc.GetProduct)
		product.PUT("/:id", pc.UpdateProduct)
		product.DELETE("/:id", pc.DeleteProduct)
	}
}
