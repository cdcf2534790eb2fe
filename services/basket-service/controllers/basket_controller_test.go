package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	ddb "github.com/mss-commerce/backend/pkg/dynamodb"
	"github.com/mss-commerce/backend/pkg/eventbus"
	"github.com/mss-commerce/backend/services/basket-service/controllers"
	"github.com/mss-commerce/backend/services/basket-service/repository"
	"github.com/mss-commerce/backend/services/basket-service/routes"
	"github.com/mss-commerce/backend/services/basket-service/services"
	apperrors "github.com/mss-commerce/backend/services/common/errors"
)

type sinkQueue struct {
	events []eventbus.Event
}

func (q *sinkQueue) Enqueue(ctx context.Context, body []byte) error {
	var evt eventbus.Event
	if err := json.Unmarshal(body, &evt); err != nil {
		return err
	}
	q.events = append(q.events, evt)
	return nil
}

func newBasketRouter(t *testing.T) (*gin.Engine, *ddb.MemoryAPI, *sinkQueue) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	api := ddb.NewMemoryAPI()
	api.CreateTable("basket", "userName", "")
	repo := repository.NewBasketRepository(ddb.NewTable(api, "basket", "userName"))

	queue := &sinkQueue{}
	rule, err := eventbus.NewRule("CheckoutBasketRule",
		eventbus.Pattern{Source: "com.swn.basket.checkoutbasket", DetailType: "CheckoutBasket"},
		eventbus.WithQueue(queue),
	)
	if err != nil {
		t.Fatal(err)
	}
	bus, err := eventbus.NewBus("MssEventBus", zap.NewNop(), rule)
	if err != nil {
		t.Fatal(err)
	}

	orchestrator := services.NewCheckoutOrchestrator(
		repo, bus, "com.swn.basket.checkoutbasket", "CheckoutBasket", zap.NewNop())

	router := gin.New()
	routes.RegisterBasketRoutes(router, controllers.NewBasketController(repo, orchestrator, nil))
	return router, api, queue
}

func do(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestBasketLifecycleOverHTTP(t *testing.T) {
	router, api, queue := newBasketRouter(t)

	rec := do(t, router, http.MethodPost, "/basket",
		`{"userName": "alice", "items": [{"productId": "p1", "quantity": 2, "price": "10.00"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("create: status = %d, body %s", rec.Code, rec.Body.String())
	}
	if api.Len("basket") != 1 {
		t.Fatalf("baskets stored = %d, want 1", api.Len("basket"))
	}

	rec = do(t, router, http.MethodGet, "/basket/alice", "")
	var body apperrors.ResponseBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if body.Message == "" || body.Body == nil {
		t.Fatalf("envelope incomplete: %s", rec.Body.String())
	}

	rec = do(t, router, http.MethodPost, "/basket/checkout", `{"userName": "alice"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("checkout: status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(queue.events) != 1 {
		t.Fatalf("published events = %d, want 1", len(queue.events))
	}
	if api.Len("basket") != 0 {
		t.Fatal("basket survived checkout")
	}
}

func TestCheckoutMissingUserNameIsClientError(t *testing.T) {
	router, _, queue := newBasketRouter(t)

	rec := do(t, router, http.MethodPost, "/basket/checkout", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(queue.events) != 0 {
		t.Fatal("event published for invalid checkout")
	}
}

func TestCheckoutUnknownUserIsNotFound(t *testing.T) {
	router, _, queue := newBasketRouter(t)

	rec := do(t, router, http.MethodPost, "/basket/checkout", `{"userName": "ghost"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var body apperrors.ResponseBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.ErrorMsg == "" {
		t.Error("error envelope has no errorMsg")
	}
	if len(queue.events) != 0 {
		t.Fatal("event published without a basket")
	}
}

func TestGetBasketAbsentIsEmptyObject(t *testing.T) {
	router, _, _ := newBasketRouter(t)

	rec := do(t, router, http.MethodGet, "/basket/nobody", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for absent basket", rec.Code)
	}
}
