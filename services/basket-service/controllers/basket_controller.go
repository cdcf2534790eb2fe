package controllers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	awspkg "github.com/mss-commerce/backend/pkg/aws"
	"github.com/mss-commerce/backend/services/basket-service/models"
	"github.com/mss-commerce/backend/services/basket-service/repository"
	"github.com/mss-commerce/backend/services/basket-service/services"
	apperrors "github.com/mss-commerce/backend/services/common/errors"
	"github.com/mss-commerce/backend/services/common/logger"
)

const maxScanLimit = 100

// BasketController serves the basket CRUD and checkout endpoints.
type BasketController struct {
	Repo         *repository.BasketRepository
	Orchestrator *services.CheckoutOrchestrator
	Metrics      *awspkg.MetricsClient
	validate     *validator.Validate
}

func NewBasketController(repo *repository.BasketRepository, orchestrator *services.CheckoutOrchestrator, metrics *awspkg.MetricsClient) *BasketController {
	return &BasketController{
		Repo:         repo,
		Orchestrator: orchestrator,
		Metrics:      metrics,
		validate:     validator.New(),
	}
}

func respond(c *gin.Context, resp *apperrors.Response) {
	c.JSON(resp.StatusCode, resp.Body)
}

// CreateBasket creates or wholly replaces a user's basket.
func (bc *BasketController) CreateBasket(c *gin.Context) {
	var basket models.Basket
	if err := c.ShouldBindJSON(&basket); err != nil {
		respond(c, apperrors.Failure(apperrors.Validation("invalid basket payload: %v", err)))
		return
	}
	if err := bc.validate.Var(basket.UserName, "required"); err != nil {
		respond(c, apperrors.Failure(apperrors.Validation("userName is required")))
		return
	}
	for _, item := range basket.Items {
		if err := bc.validate.Var(item.ProductID, "required"); err != nil {
			respond(c, apperrors.Failure(apperrors.Validation("every item requires a productId")))
			return
		}
	}

	if err := bc.Repo.Put(c.Request.Context(), &basket); err != nil {
		logger.Log.Error("failed to save basket", zap.String("userName", basket.UserName), zap.Error(err))
		respond(c, apperrors.Failure(err))
		return
	}
	respond(c, apperrors.OK(http.MethodPost, basket))
}

// GetBasket returns the basket for a user, or an empty object when absent.
func (bc *BasketController) GetBasket(c *gin.Context) {
	userName := c.Param("userName")

	basket, ok, err := bc.Repo.Get(c.Request.Context(), userName)
	if err != nil {
		logger.Log.Error("failed to get basket", zap.String("userName", userName), zap.Error(err))
		respond(c, apperrors.Failure(err))
		return
	}
	if !ok {
		respond(c, apperrors.OK(http.MethodGet, gin.H{}))
		return
	}
	respond(c, apperrors.OK(http.MethodGet, basket))
}

// GetAllBaskets lists baskets, capped by the limit query parameter.
func (bc *BasketController) GetAllBaskets(c *gin.Context) {
	baskets, err := bc.Repo.GetAll(c.Request.Context(), scanLimit(c))
	if err != nil {
		logger.Log.Error("failed to scan baskets", zap.Error(err))
		respond(c, apperrors.Failure(err))
		return
	}
	respond(c, apperrors.OK(http.MethodGet, baskets))
}

// DeleteBasket removes a user's basket.
func (bc *BasketController) DeleteBasket(c *gin.Context) {
	userName := c.Param("userName")

	if err := bc.Repo.Delete(c.Request.Context(), userName); err != nil {
		logger.Log.Error("failed to delete basket", zap.String("userName", userName), zap.Error(err))
		respond(c, apperrors.Failure(err))
		return
	}
	respond(c, apperrors.OK(http.MethodDelete, gin.H{"userName": userName}))
}

// Checkout publishes the basket as an order-creation event and retires it.
func (bc *BasketController) Checkout(c *gin.Context) {
	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, apperrors.Failure(apperrors.Validation("invalid checkout payload: %v", err)))
		return
	}

	if bc.Metrics.IsEnabled() {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = bc.Metrics.RecordCount(ctx, awspkg.MetricCheckoutsStarted, map[string]string{"Service": "basket-service"})
		}()
	}

	eventID, err := bc.Orchestrator.Checkout(c.Request.Context(), &req)
	if err != nil {
		logger.Log.Error("checkout failed", zap.String("userName", req.UserName), zap.Error(err))
		respond(c, apperrors.Failure(err))
		return
	}
	respond(c, apperrors.OK(http.MethodPost, gin.H{"eventId": eventID}))
}

func scanLimit(c *gin.Context) int32 {
	if raw, ok := c.GetQuery("limit"); ok {
		if n, err := strconv.ParseInt(raw, 10, 32); err == nil && n > 0 && n <= maxScanLimit {
			return int32(n)
		}
	}
	return maxScanLimit
}
