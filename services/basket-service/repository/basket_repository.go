package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/shopspring/decimal"

	ddb "github.com/mss-commerce/backend/pkg/dynamodb"
	"github.com/mss-commerce/backend/services/basket-service/models"
)

// BasketRepository stores baskets in a DynamoDB table keyed by userName.
type BasketRepository struct {
	table *ddb.Table
}

func NewBasketRepository(table *ddb.Table) *BasketRepository {
	return &BasketRepository{table: table}
}

type ddbBasketItem struct {
	ProductID string           `dynamodbav:"productId"`
	Quantity  int              `dynamodbav:"quantity,omitempty"`
	Price     *decimal.Decimal `dynamodbav:"price,omitempty"`
}

type ddbBasket struct {
	UserName string          `dynamodbav:"userName"`
	Items    []ddbBasketItem `dynamodbav:"items,omitempty"`
}

func toItem(basket *models.Basket) (ddb.Item, error) {
	db := ddbBasket{UserName: basket.UserName}
	for _, it := range basket.Items {
		db.Items = append(db.Items, ddbBasketItem(it))
	}
	item, err := attributevalue.MarshalMap(db)
	if err != nil {
		return nil, fmt.Errorf("marshal basket: %w", err)
	}
	if err := mergeExtra(item, basket.Extra); err != nil {
		return nil, err
	}
	return item, nil
}

// mergeExtra folds pass-through attributes into the item without letting
// them shadow the typed fields.
func mergeExtra(item ddb.Item, extra map[string]json.RawMessage) error {
	for k, raw := range extra {
		if _, exists := item[k]; exists {
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("decode extra field %q: %w", k, err)
		}
		av, err := attributevalue.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal extra field %q: %w", k, err)
		}
		item[k] = av
	}
	return nil
}

func fromItem(item ddb.Item) (*models.Basket, error) {
	var db ddbBasket
	if err := attributevalue.UnmarshalMap(item, &db); err != nil {
		return nil, fmt.Errorf("unmarshal basket: %w", err)
	}
	basket := &models.Basket{UserName: db.UserName}
	for _, it := range db.Items {
		basket.Items = append(basket.Items, models.BasketItem(it))
	}
	extra, err := extraOf(item, "userName", "items")
	if err != nil {
		return nil, err
	}
	basket.Extra = extra
	return basket, nil
}

// extraOf decodes every attribute outside the typed fields back into raw
// JSON for the escape hatch.
func extraOf(item ddb.Item, known ...string) (map[string]json.RawMessage, error) {
	knownSet := make(map[string]bool, len(known))
	for _, k := range known {
		knownSet[k] = true
	}
	var extra map[string]json.RawMessage
	for k, av := range item {
		if knownSet[k] {
			continue
		}
		var v any
		if err := attributevalue.Unmarshal(av, &v); err != nil {
			return nil, fmt.Errorf("unmarshal extra field %q: %w", k, err)
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode extra field %q: %w", k, err)
		}
		if extra == nil {
			extra = make(map[string]json.RawMessage)
		}
		extra[k] = raw
	}
	return extra, nil
}

// Put creates or wholly replaces the user's basket.
func (r *BasketRepository) Put(ctx context.Context, basket *models.Basket) error {
	item, err := toItem(basket)
	if err != nil {
		return err
	}
	return r.table.PutItem(ctx, item)
}

// Get returns the basket for userName, reporting absence without error.
func (r *BasketRepository) Get(ctx context.Context, userName string) (*models.Basket, bool, error) {
	item, ok, err := r.table.GetItem(ctx, userName)
	if err != nil || !ok {
		return nil, false, err
	}
	basket, err := fromItem(item)
	if err != nil {
		return nil, false, err
	}
	return basket, true, nil
}

// GetAll returns up to limit baskets.
func (r *BasketRepository) GetAll(ctx context.Context, limit int32) ([]*models.Basket, error) {
	items, err := r.table.Scan(ctx, limit)
	if err != nil {
		return nil, err
	}
	baskets := make([]*models.Basket, 0, len(items))
	for _, item := range items {
		basket, err := fromItem(item)
		if err != nil {
			return nil, err
		}
		baskets = append(baskets, basket)
	}
	return baskets, nil
}

// Delete removes the user's basket unconditionally.
func (r *BasketRepository) Delete(ctx context.Context, userName string) error {
	return r.table.DeleteItem(ctx, userName)
}

// DeleteExisting removes the basket only if it still exists, surfacing
// ddb.ErrConditionFailed to a checkout that lost the race.
func (r *BasketRepository) DeleteExisting(ctx context.Context, userName string) error {
	return r.table.DeleteExisting(ctx, userName)
}
