package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"

	ddb "github.com/mss-commerce/backend/pkg/dynamodb"
	"github.com/mss-commerce/backend/pkg/eventbus"
	basketmodels "github.com/mss-commerce/backend/services/basket-service/models"
	basketrepo "github.com/mss-commerce/backend/services/basket-service/repository"
	basketservices "github.com/mss-commerce/backend/services/basket-service/services"
	apperrors "github.com/mss-commerce/backend/services/common/errors"
	"github.com/mss-commerce/backend/services/order-service/repository"
)

// checkoutFixture wires the whole choreography over in-memory tables: the
// basket store, the bus with its checkout rule, and the order consumer as
// the rule's target.
type checkoutFixture struct {
	api          *ddb.MemoryAPI
	baskets      *basketrepo.BasketRepository
	orders       *repository.OrderRepository
	handler      *OrderHandler
	orchestrator *basketservices.CheckoutOrchestrator
}

const (
	checkoutSource     = "com.swn.basket.checkoutbasket"
	checkoutDetailType = "CheckoutBasket"
)

// newCheckoutFixture wires the handler behind the rule either directly
// (viaQueue=false) or through a capture queue drained by HandleMessage,
// mimicking the SQS leg (viaQueue=true).
func newCheckoutFixture(t *testing.T, viaQueue bool) (*checkoutFixture, func()) {
	t.Helper()

	api := ddb.NewMemoryAPI()
	api.CreateTable("basket", "userName", "")
	api.CreateTable("order", "userName", "orderDate")

	baskets := basketrepo.NewBasketRepository(ddb.NewTable(api, "basket", "userName"))
	orders := repository.NewOrderRepository(
		ddb.NewTable(api, "order", "userName").WithSortKey("orderDate"))
	handler := NewOrderHandler(orders, zap.NewNop())

	var target eventbus.RuleOption
	queue := &captureQueue{}
	if viaQueue {
		target = eventbus.WithQueue(queue)
	} else {
		target = eventbus.WithConsumer(handler)
	}

	rule, err := eventbus.NewRule("CheckoutBasketRule",
		eventbus.Pattern{Source: checkoutSource, DetailType: checkoutDetailType},
		target,
	)
	if err != nil {
		t.Fatal(err)
	}
	bus, err := eventbus.NewBus("MssEventBus", zap.NewNop(), rule)
	if err != nil {
		t.Fatal(err)
	}

	fx := &checkoutFixture{
		api:     api,
		baskets: baskets,
		orders:  orders,
		handler: handler,
		orchestrator: basketservices.NewCheckoutOrchestrator(
			baskets, bus, checkoutSource, checkoutDetailType, zap.NewNop()),
	}
	drain := func() {
		for _, body := range queue.bodies {
			if err := handler.HandleMessage(context.Background(), string(body)); err != nil {
				t.Fatalf("drain queue: %v", err)
			}
		}
		queue.bodies = nil
	}
	return fx, drain
}

func mustParseTime(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatal(err)
	}
	return parsed
}

type captureQueue struct {
	bodies [][]byte
}

func (q *captureQueue) Enqueue(ctx context.Context, body []byte) error {
	q.bodies = append(q.bodies, body)
	return nil
}

func seedAliceBasket(t *testing.T, fx *checkoutFixture) {
	t.Helper()
	basket := &basketmodels.Basket{}
	if err := json.Unmarshal([]byte(`{
		"userName": "alice",
		"items": [
			{"productId": "p1", "quantity": 2, "price": "10.00"},
			{"productId": "p2", "quantity": 1, "price": "5.50"}
		],
		"giftWrap": true
	}`), basket); err != nil {
		t.Fatal(err)
	}
	if err := fx.baskets.Put(context.Background(), basket); err != nil {
		t.Fatal(err)
	}
}

func assertAliceOrder(t *testing.T, fx *checkoutFixture, eventID string) {
	t.Helper()
	orders, err := fx.orders.GetByUser(context.Background(), "alice", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 1 {
		t.Fatalf("orders for alice = %d, want 1", len(orders))
	}
	order := orders[0]
	if got := order.TotalPrice.String(); got != "25.5" {
		t.Errorf("totalPrice = %s, want 25.5", got)
	}
	if len(order.Items) != 2 {
		t.Errorf("items = %d, want 2", len(order.Items))
	}
	if order.OrderDate == "" {
		t.Error("orderDate not stamped")
	}
	if order.EventID != eventID {
		t.Errorf("eventId = %q, want the checkout ack %q", order.EventID, eventID)
	}
	if string(order.Extra["giftWrap"]) != "true" {
		t.Errorf("giftWrap not carried through: %s", order.Extra["giftWrap"])
	}
}

func TestCheckoutCreatesOrderAndRetiresBasket(t *testing.T) {
	fx, _ := newCheckoutFixture(t, false)
	seedAliceBasket(t, fx)

	eventID, err := fx.orchestrator.Checkout(context.Background(),
		&basketmodels.CheckoutRequest{UserName: "alice"})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	assertAliceOrder(t, fx, eventID)

	if _, ok, err := fx.baskets.Get(context.Background(), "alice"); err != nil {
		t.Fatal(err)
	} else if ok {
		t.Error("basket survived checkout")
	}
}

func TestCheckoutThroughQueue(t *testing.T) {
	fx, drain := newCheckoutFixture(t, true)
	seedAliceBasket(t, fx)

	eventID, err := fx.orchestrator.Checkout(context.Background(),
		&basketmodels.CheckoutRequest{UserName: "alice"})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	// Nothing on the order side until the queue is consumed.
	if orders, err := fx.orders.GetAll(context.Background(), 0); err != nil {
		t.Fatal(err)
	} else if len(orders) != 0 {
		t.Fatalf("orders before consumption = %d, want 0", len(orders))
	}

	drain()
	assertAliceOrder(t, fx, eventID)
}

func TestCheckoutWithoutBasketCreatesNothing(t *testing.T) {
	fx, _ := newCheckoutFixture(t, false)

	_, err := fx.orchestrator.Checkout(context.Background(),
		&basketmodels.CheckoutRequest{UserName: "ghost"})
	if !apperrors.Is(err, apperrors.KindNotFound) {
		t.Fatalf("want not-found, got %v", err)
	}

	orders, err := fx.orders.GetAll(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 0 {
		t.Fatalf("orders = %d, want 0", len(orders))
	}
}

func TestQueueRedeliveryIsIdempotent(t *testing.T) {
	fx, drain := newCheckoutFixture(t, true)
	seedAliceBasket(t, fx)

	eventID, err := fx.orchestrator.Checkout(context.Background(),
		&basketmodels.CheckoutRequest{UserName: "alice"})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	drain()
	assertAliceOrder(t, fx, eventID)

	// Redeliver the same event: re-publishing is not possible (the basket
	// is gone), but the queue may hand the same body over again.
	existing, err := fx.orders.GetByUser(context.Background(), "alice", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	body, err := json.Marshal(eventbus.Event{
		ID:         eventID,
		Source:     checkoutSource,
		DetailType: checkoutDetailType,
		Time:       mustParseTime(t, existing[0].OrderDate),
		Detail:     json.RawMessage(`{"userName": "alice", "items": [{"productId": "p1", "quantity": 2, "price": "10.00"}, {"productId": "p2", "quantity": 1, "price": "5.50"}], "totalPrice": "25.50", "giftWrap": true}`),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := fx.handler.HandleMessage(context.Background(), string(body)); err != nil {
		t.Fatalf("redelivery: %v", err)
	}

	orders, err := fx.orders.GetByUser(context.Background(), "alice", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 1 {
		t.Fatalf("redelivery forked %d orders, want 1", len(orders))
	}
}
