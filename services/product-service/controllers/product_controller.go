package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	apperrors "github.com/mss-commerce/backend/services/common/errors"
	"github.com/mss-commerce/backend/services/common/logger"
	"github.com/mss-commerce/backend/services/product-service/models"
	"github.com/mss-commerce/backend/services/product-service/services"
)

const maxScanLimit = 100

// ProductStore is the repository surface the controller depends on; tests
// substitute a fake.
type ProductStore interface {
	Create(ctx context.Context, product *models.Product) error
	Get(ctx context.Context, id string) (*models.Product, bool, error)
	GetAll(ctx context.Context, category string, limit int32) ([]*models.Product, error)
	Update(ctx context.Context, id string, update *models.ProductUpdate) error
	Delete(ctx context.Context, id string) error
}

// ProductController serves the product CRUD endpoints with a read-through
// cache on single-product lookups.
type ProductController struct {
	store    ProductStore
	cache    *services.ProductCache
	validate *validator.Validate
}

func NewProductController(store ProductStore, cache *services.ProductCache) *ProductController {
	return &ProductController{
		store:    store,
		cache:    cache,
		validate: validator.New(),
	}
}

func respond(c *gin.Context, resp *apperrors.Response) {
	c.JSON(resp.StatusCode, resp.Body)
}

// CreateProduct assigns a fresh id server-side; any client-supplied id is
// discarded.
func (pc *ProductController) CreateProduct(c *gin.Context) {
	var product models.Product
	if err := c.ShouldBindJSON(&product); err != nil {
		respond(c, apperrors.Failure(apperrors.Validation("invalid product payload: %v", err)))
		return
	}
	if err := pc.validate.Var(product.Name, "required"); err != nil {
		respond(c, apperrors.Failure(apperrors.Validation("name is required")))
		return
	}

	if err := pc.store.Create(c.Request.Context(), &product); err != nil {
		logger.Log.Error("failed to create product", zap.String("name", product.Name), zap.Error(err))
		respond(c, apperrors.Failure(err))
		return
	}
	pc.cache.SetAsync(product.ID, &product)
	respond(c, apperrors.OK(http.MethodPost, product))
}

func (pc *ProductController) GetProduct(c *gin.Context) {
	id := c.Param("id")

	if product, ok := pc.cache.Get(c.Request.Context(), id); ok {
		respond(c, apperrors.OK(http.MethodGet, product))
		return
	}

	product, ok, err := pc.store.Get(c.Request.Context(), id)
	if err != nil {
		logger.Log.Error("failed to get product", zap.String("id", id), zap.Error(err))
		respond(c, apperrors.Failure(err))
		return
	}
	if !ok {
		respond(c, apperrors.OK(http.MethodGet, gin.H{}))
		return
	}
	pc.cache.SetAsync(id, product)
	respond(c, apperrors.OK(http.MethodGet, product))
}

// GetAllProducts lists products, optionally narrowed by the category query
// parameter.
func (pc *ProductController) GetAllProducts(c *gin.Context) {
	category := c.Query("category")

	products, err := pc.store.GetAll(c.Request.Context(), category, maxScanLimit)
	if err != nil {
		logger.Log.Error("failed to scan products", zap.Error(err))
		respond(c, apperrors.Failure(err))
		return
	}
	respond(c, apperrors.OK(http.MethodGet, products))
}

func (pc *ProductController) UpdateProduct(c *gin.Context) {
	id := c.Param("id")

	var update models.ProductUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		respond(c, apperrors.Failure(apperrors.Validation("invalid update payload: %v", err)))
		return
	}

	if err := pc.store.Update(c.Request.Context(), id, &update); err != nil {
		logger.Log.Error("failed to update product", zap.String("id", id), zap.Error(err))
		respond(c, apperrors.Failure(err))
		return
	}
	pc.cache.Invalidate(c.Request.Context(), id)
	respond(c, apperrors.OK(http.MethodPut, gin.H{"id": id}))
}

func (pc *ProductController) DeleteProduct(c *gin.Context) {
	id := c.Param("id")

	if err := pc.store.Delete(c.Request.Context(), id); err != nil {
		logger.Log.Error("failed to delete product", zap.String("id", id), zap.Error(err))
		respond(c, apperrors.Failure(err))
		return
	}
	pc.cache.Invalidate(c.Request.Context(), id)
	respond(c, apperrors.OK(http.MethodDelete, gin.H{"id": id}))
}
