package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mss-commerce/backend/services/order-service/services"
)

// OrderController translates HTTP requests into synchronous envelopes for
// the dual-mode handler, so the HTTP surface and the queue surface exercise
// the exact same dispatch.
type OrderController struct {
	handler *services.OrderHandler
}

func NewOrderController(handler *services.OrderHandler) *OrderController {
	return &OrderController{handler: handler}
}

func (oc *OrderController) dispatch(c *gin.Context, env services.Envelope) {
	resp, err := oc.handler.Handle(c.Request.Context(), env)
	if err != nil {
		// The synchronous path never returns an error; this is unreachable
		// unless an event envelope leaks in through HTTP.
		c.JSON(http.StatusInternalServerError, gin.H{"errorMsg": err.Error()})
		return
	}
	c.JSON(resp.StatusCode, resp.Body)
}

// GetAllOrders handles GET /order with an optional limit.
func (oc *OrderController) GetAllOrders(c *gin.Context) {
	oc.dispatch(c, services.Envelope{
		HTTPMethod:            http.MethodGet,
		Path:                  "/order",
		QueryStringParameters: queryParams(c, "limit"),
	})
}

// GetOrder handles GET /order/:userName with optional orderDate and limit in
// the query string.
func (oc *OrderController) GetOrder(c *gin.Context) {
	oc.dispatch(c, services.Envelope{
		HTTPMethod:            http.MethodGet,
		Path:                  "/order/" + c.Param("userName"),
		PathParameters:        map[string]string{"userName": c.Param("userName")},
		QueryStringParameters: queryParams(c, "orderDate", "limit"),
	})
}

func queryParams(c *gin.Context, keys ...string) map[string]string {
	var params map[string]string
	for _, key := range keys {
		if v, ok := c.GetQuery(key); ok {
			if params == nil {
				params = make(map[string]string, len(keys))
			}
			params[key] = v
		}
	}
	return params
}
