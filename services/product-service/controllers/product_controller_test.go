package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "github.com/mss-commerce/backend/services/common/errors"
	"github.com/mss-commerce/backend/services/product-service/models"
	"github.com/mss-commerce/backend/services/product-service/services"
)

type fakeProductStore struct {
	products map[string]*models.Product
	err      error
	updates  map[string]*models.ProductUpdate
}

func newFakeProductStore() *fakeProductStore {
	return &fakeProductStore{
		products: make(map[string]*models.Product),
		updates:  make(map[string]*models.ProductUpdate),
	}
}

func (s *fakeProductStore) Create(ctx context.Context, product *models.Product) error {
	if s.err != nil {
		return s.err
	}
	product.ID = uuid.NewString()
	copied := *product
	s.products[product.ID] = &copied
	return nil
}

func (s *fakeProductStore) Get(ctx context.Context, id string) (*models.Product, bool, error) {
	if s.err != nil {
		return nil, false, s.err
	}
	p, ok := s.products[id]
	return p, ok, nil
}

func (s *fakeProductStore) GetAll(ctx context.Context, category string, limit int32) ([]*models.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []*models.Product
	for _, p := range s.products {
		if category != "" && p.Category != category {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *fakeProductStore) Update(ctx context.Context, id string, update *models.ProductUpdate) error {
	if s.err != nil {
		return s.err
	}
	s.updates[id] = update
	return nil
}

func (s *fakeProductStore) Delete(ctx context.Context, id string) error {
	if s.err != nil {
		return s.err
	}
	delete(s.products, id)
	return nil
}

// a client whose dialer always fails, so cache paths degrade to misses
func newTestCache() *services.ProductCache {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:0",
		Dialer: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return nil, errors.New("redis disabled in tests")
		},
	})
	return services.NewProductCache(client, nil)
}

func newTestRouter(store *fakeProductStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	controller := NewProductController(store, newTestCache())
	router := gin.New()
	router.POST("/product", controller.CreateProduct)
	router.GET("/product", controller.GetAllProducts)
	router.GET("/product/:id", controller.GetProduct)
	router.PUT("/product/:id", controller.UpdateProduct)
	router.DELETE("/product/:id", controller.DeleteProduct)
	return router
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) apperrors.ResponseBody {
	t.Helper()
	var body apperrors.ResponseBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
	}
	return body
}

func TestCreateProductAssignsID(t *testing.T) {
	store := newFakeProductStore()
	router := newTestRouter(store)

	payload := `{"id": "client-chosen", "name": "IPhone X", "category": "Phone", "price": "950.00"}`
	req := httptest.NewRequest(http.MethodPost, "/product", bytes.NewBufferString(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(store.products) != 1 {
		t.Fatalf("stored products = %d, want 1", len(store.products))
	}
	for id := range store.products {
		if id == "client-chosen" {
			t.Error("client-supplied id was honored")
		}
		if _, err := uuid.Parse(id); err != nil {
			t.Errorf("id %q is not a uuid", id)
		}
	}
}

func TestCreateProductRequiresName(t *testing.T) {
	router := newTestRouter(newFakeProductStore())

	req := httptest.NewRequest(http.MethodPost, "/product", bytes.NewBufferString(`{"category": "Phone"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if body := decodeEnvelope(t, rec); body.ErrorMsg == "" {
		t.Error("error envelope has no errorMsg")
	}
}

func TestGetProductAbsentIsEmptyResult(t *testing.T) {
	router := newTestRouter(newFakeProductStore())

	req := httptest.NewRequest(http.MethodGet, "/product/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for absent product", rec.Code)
	}
}

func TestGetAllProductsByCategory(t *testing.T) {
	store := newFakeProductStore()
	price := decimal.NewFromFloat(950)
	store.products["a"] = &models.Product{ID: "a", Name: "IPhone X", Category: "Phone", Price: &price}
	store.products["b"] = &models.Product{ID: "b", Name: "Desk", Category: "Furniture"}
	router := newTestRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/product?category=Phone", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	list, ok := body.Body.([]any)
	if !ok {
		t.Fatalf("unexpected body type %T", body.Body)
	}
	if len(list) != 1 {
		t.Fatalf("products = %d, want 1", len(list))
	}
}

func TestUpdateProductPartialFields(t *testing.T) {
	store := newFakeProductStore()
	router := newTestRouter(store)

	req := httptest.NewRequest(http.MethodPut, "/product/p1",
		bytes.NewBufferString(`{"price": "12.50"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	update := store.updates["p1"]
	if update == nil || update.Price == nil {
		t.Fatal("price update not forwarded")
	}
	if update.Name != nil {
		t.Error("absent field forwarded as an assignment")
	}
	if got := update.Price.String(); got != "12.5" {
		t.Errorf("price = %s, want 12.5", got)
	}
}

func TestStoreFailureYieldsErrorEnvelope(t *testing.T) {
	store := newFakeProductStore()
	store.err = apperrors.TransientStore("throttled", nil)
	router := newTestRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/product", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if body := decodeEnvelope(t, rec); body.ErrorMsg == "" {
		t.Error("error envelope has no errorMsg")
	}
}
