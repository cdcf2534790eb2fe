package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mss-commerce/backend/pkg/eventbus"
	apperrors "github.com/mss-commerce/backend/services/common/errors"
	"github.com/mss-commerce/backend/services/order-service/models"
)

const maxScanLimit = 100

// Envelope is the single input shape of the dual-mode handler. A routed
// event carries a detail-type marker; a synchronous query carries an
// HTTP-style method and parameters. The marker alone decides the mode.
type Envelope struct {
	ID                    string            `json:"id,omitempty"`
	Source                string            `json:"source,omitempty"`
	DetailType            string            `json:"detail-type,omitempty"`
	Time                  time.Time         `json:"time,omitempty"`
	Detail                json.RawMessage   `json:"detail,omitempty"`
	HTTPMethod            string            `json:"httpMethod,omitempty"`
	Path                  string            `json:"path,omitempty"`
	PathParameters        map[string]string `json:"pathParameters,omitempty"`
	QueryStringParameters map[string]string `json:"queryStringParameters,omitempty"`
}

// OrderStore is the slice of the repository the handler needs.
type OrderStore interface {
	Create(ctx context.Context, order *models.Order) error
	GetByUser(ctx context.Context, userName, orderDate string, limit int32) ([]*models.Order, error)
	GetAll(ctx context.Context, limit int32) ([]*models.Order, error)
}

// Clock lets tests pin the fallback timestamp.
type Clock func() time.Time

// OrderHandler dispatches incoming envelopes to order creation or order
// queries. The two modes deliberately do not share error handling: the
// asynchronous path propagates failures to the delivery mechanism, the
// synchronous path always answers with an error envelope.
type OrderHandler struct {
	orders OrderStore
	log    *zap.Logger
	now    Clock
}

func NewOrderHandler(orders OrderStore, log *zap.Logger) *OrderHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderHandler{orders: orders, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock overrides the fallback timestamp source.
func (h *OrderHandler) WithClock(now Clock) *OrderHandler {
	h.now = now
	return h
}

// Handle routes one envelope. On the asynchronous path the response is nil
// and any failure is returned so the transport can redeliver. On the
// synchronous path the error is always nil and the outcome, failures
// included, is the response envelope.
func (h *OrderHandler) Handle(ctx context.Context, env Envelope) (*apperrors.Response, error) {
	if env.DetailType != "" {
		return nil, h.CreateOrder(ctx, env)
	}
	return h.handleQuery(ctx, env), nil
}

// HandleEvent lets the handler sit behind an event-bus rule as a direct
// invocation target.
func (h *OrderHandler) HandleEvent(ctx context.Context, evt eventbus.Event) error {
	return h.CreateOrder(ctx, Envelope{
		ID:         evt.ID,
		Source:     evt.Source,
		DetailType: evt.DetailType,
		Time:       evt.Time,
		Detail:     evt.Detail,
	})
}

// HandleMessage consumes one queue message body holding a routed event.
func (h *OrderHandler) HandleMessage(ctx context.Context, body string) error {
	var evt eventbus.Event
	if err := json.Unmarshal([]byte(body), &evt); err != nil {
		return fmt.Errorf("decode queued event: %w", err)
	}
	if evt.DetailType == "" {
		return fmt.Errorf("queued message %q carries no detail-type", evt.ID)
	}
	return h.HandleEvent(ctx, evt)
}

// CreateOrder persists the event detail as an order. The sort key is the
// router-assigned event time, so a redelivery of the same event overwrites
// the same row instead of creating a duplicate. The payload never supplies
// the timestamp.
func (h *OrderHandler) CreateOrder(ctx context.Context, env Envelope) error {
	var order models.Order
	if err := json.Unmarshal(env.Detail, &order); err != nil {
		return apperrors.Validation("event %q carries a malformed detail: %v", env.ID, err)
	}
	if order.UserName == "" {
		return apperrors.Validation("event %q detail has no userName", env.ID)
	}

	stamp := env.Time
	if stamp.IsZero() {
		stamp = h.now()
	}
	// Nanosecond precision: distinct events published within the same
	// second must not collapse onto one composite key.
	order.OrderDate = stamp.UTC().Format(time.RFC3339Nano)
	order.EventID = env.ID

	if err := h.orders.Create(ctx, &order); err != nil {
		return err
	}
	h.log.Info("order created",
		zap.String("userName", order.UserName),
		zap.String("orderDate", order.OrderDate),
		zap.String("event_id", env.ID),
	)
	return nil
}

func (h *OrderHandler) handleQuery(ctx context.Context, env Envelope) *apperrors.Response {
	if env.HTTPMethod == http.MethodGet {
		limit := scanLimit(env)
		if userName := queryUser(env); userName != "" {
			return h.getOrder(ctx, userName, orderDateOf(env), limit)
		}
		if env.Path == "/order" || env.Path == "/order/" {
			if orderDateOf(env) != "" {
				return apperrors.Failure(apperrors.Validation("orderDate filter requires a userName"))
			}
			return h.getAllOrders(ctx, limit)
		}
	}
	return apperrors.Failure(apperrors.UnsupportedRoute(env.HTTPMethod, env.Path))
}

// scanLimit reads the optional limit parameter, capped server-side.
func scanLimit(env Envelope) int32 {
	if raw := env.QueryStringParameters["limit"]; raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 32); err == nil && n > 0 && n <= maxScanLimit {
			return int32(n)
		}
	}
	return maxScanLimit
}

func queryUser(env Envelope) string {
	if u := env.PathParameters["userName"]; u != "" {
		return u
	}
	if rest, ok := strings.CutPrefix(env.Path, "/order/"); ok && rest != "" && !strings.Contains(rest, "/") {
		return rest
	}
	return ""
}

// orderDateOf accepts the timestamp in either parameter form; the query
// string wins when both are present.
func orderDateOf(env Envelope) string {
	if d := env.QueryStringParameters["orderDate"]; d != "" {
		return d
	}
	return env.PathParameters["orderDate"]
}

func (h *OrderHandler) getOrder(ctx context.Context, userName, orderDate string, limit int32) *apperrors.Response {
	orders, err := h.orders.GetByUser(ctx, userName, orderDate, limit)
	if err != nil {
		h.log.Error("failed to query orders", zap.String("userName", userName), zap.Error(err))
		return apperrors.Failure(err)
	}
	return apperrors.OK(http.MethodGet, orders)
}

func (h *OrderHandler) getAllOrders(ctx context.Context, limit int32) *apperrors.Response {
	orders, err := h.orders.GetAll(ctx, limit)
	if err != nil {
		h.log.Error("failed to scan orders", zap.Error(err))
		return apperrors.Failure(err)
	}
	return apperrors.OK(http.MethodGet, orders)
}
