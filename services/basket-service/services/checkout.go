package services

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	ddb "github.com/mss-commerce/backend/pkg/dynamodb"
	"github.com/mss-commerce/backend/pkg/eventbus"
	"github.com/mss-commerce/backend/services/basket-service/models"
	apperrors "github.com/mss-commerce/backend/services/common/errors"
)

// BasketStore is the slice of the repository the orchestrator needs.
type BasketStore interface {
	Get(ctx context.Context, userName string) (*models.Basket, bool, error)
	DeleteExisting(ctx context.Context, userName string) error
}

// EventPublisher hands checkout events to the router.
type EventPublisher interface {
	PutEvents(ctx context.Context, entries ...eventbus.Entry) ([]string, error)
}

// CheckoutOrchestrator turns a basket into a published order-creation event.
// The basket is retired only after the router acknowledges the publish.
type CheckoutOrchestrator struct {
	baskets    BasketStore
	publisher  EventPublisher
	source     string
	detailType string
	log        *zap.Logger
}

func NewCheckoutOrchestrator(baskets BasketStore, publisher EventPublisher, source, detailType string, log *zap.Logger) *CheckoutOrchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &CheckoutOrchestrator{
		baskets:    baskets,
		publisher:  publisher,
		source:     source,
		detailType: detailType,
		log:        log,
	}
}

// Checkout validates the basket, publishes the merged order payload and then
// deletes the basket. Any failure before the publish acknowledgment leaves
// the basket untouched so the caller can retry the whole call.
func (o *CheckoutOrchestrator) Checkout(ctx context.Context, req *models.CheckoutRequest) (string, error) {
	if req == nil || req.UserName == "" {
		return "", apperrors.Validation("userName should exist in checkout request")
	}

	basket, ok, err := o.baskets.Get(ctx, req.UserName)
	if err != nil {
		return "", err
	}
	if !ok || len(basket.Items) == 0 {
		return "", apperrors.NotFound("no basket found for user %q", req.UserName)
	}

	payload, err := PrepareOrderPayload(req, basket)
	if err != nil {
		return "", err
	}

	ids, err := o.publisher.PutEvents(ctx, eventbus.Entry{
		Source:     o.source,
		DetailType: o.detailType,
		Detail:     payload,
	})
	if err != nil {
		return "", apperrors.Publish("failed to publish checkout event", err)
	}
	eventID := ids[0]

	// Deletion is sequenced strictly after the acknowledgment. A failure
	// past this point leaves a redundant basket, not a lost checkout.
	if err := o.baskets.DeleteExisting(ctx, req.UserName); err != nil {
		if stderrors.Is(err, ddb.ErrConditionFailed) {
			o.log.Warn("basket already deleted, likely a concurrent checkout",
				zap.String("userName", req.UserName),
				zap.String("event_id", eventID),
			)
		} else {
			o.log.Warn("basket deletion failed after publish, basket is now redundant",
				zap.String("userName", req.UserName),
				zap.String("event_id", eventID),
				zap.Error(err),
			)
		}
	}

	o.log.Info("basket checked out",
		zap.String("userName", req.UserName),
		zap.String("event_id", eventID),
	)
	return eventID, nil
}

// PrepareOrderPayload merges the basket snapshot with the checkout-time
// fields and computes the total. It is pure: the same request and basket
// always produce the same payload.
//
// Checkout-time fields win over basket fields on key collision, with one
// exception: totalPrice is always the computed sum, never a supplied value.
func PrepareOrderPayload(req *models.CheckoutRequest, basket *models.Basket) (*models.OrderPayload, error) {
	if len(basket.Items) == 0 {
		return nil, apperrors.Validation("basket for user %q should contain a list of items", basket.UserName)
	}

	total := decimal.Zero
	for _, item := range basket.Items {
		if item.Price == nil {
			return nil, apperrors.Validation("item %q has no numeric price", item.ProductID)
		}
		qty := int64(item.Quantity)
		if qty < 1 {
			qty = 1
		}
		total = total.Add(item.Price.Mul(decimal.NewFromInt(qty)))
	}

	extra := make(map[string]json.RawMessage, len(basket.Extra)+len(req.Extra))
	for k, v := range basket.Extra {
		extra[k] = v
	}
	for k, v := range req.Extra {
		extra[k] = v
	}
	// The typed fields are owned by the orchestrator; stray copies in the
	// escape hatch must not shadow them downstream.
	delete(extra, "userName")
	delete(extra, "items")
	delete(extra, "totalPrice")
	if len(extra) == 0 {
		extra = nil
	}

	return &models.OrderPayload{
		UserName:   basket.UserName,
		Items:      basket.Items,
		TotalPrice: total,
		Extra:      extra,
	}, nil
}
