package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/shopspring/decimal"

	ddb "github.com/mss-commerce/backend/pkg/dynamodb"
	"github.com/mss-commerce/backend/services/order-service/models"
)

// OrderRepository stores orders in a DynamoDB table with a composite
// (userName, orderDate) key.
type OrderRepository struct {
	table *ddb.Table
}

func NewOrderRepository(table *ddb.Table) *OrderRepository {
	return &OrderRepository{table: table}
}

type ddbOrderItem struct {
	ProductID string           `dynamodbav:"productId"`
	Quantity  int              `dynamodbav:"quantity,omitempty"`
	Price     *decimal.Decimal `dynamodbav:"price,omitempty"`
}

type ddbOrder struct {
	UserName   string          `dynamodbav:"userName"`
	OrderDate  string          `dynamodbav:"orderDate"`
	Items      []ddbOrderItem  `dynamodbav:"items,omitempty"`
	TotalPrice decimal.Decimal `dynamodbav:"totalPrice"`
	EventID    string          `dynamodbav:"eventId,omitempty"`
}

func toItem(order *models.Order) (ddb.Item, error) {
	do := ddbOrder{
		UserName:   order.UserName,
		OrderDate:  order.OrderDate,
		TotalPrice: order.TotalPrice,
		EventID:    order.EventID,
	}
	for _, it := range order.Items {
		do.Items = append(do.Items, ddbOrderItem(it))
	}
	item, err := attributevalue.MarshalMap(do)
	if err != nil {
		return nil, fmt.Errorf("marshal order: %w", err)
	}
	for k, raw := range order.Extra {
		if _, exists := item[k]; exists {
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode extra field %q: %w", k, err)
		}
		av, err := attributevalue.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal extra field %q: %w", k, err)
		}
		item[k] = av
	}
	return item, nil
}

func fromItem(item ddb.Item) (*models.Order, error) {
	var do ddbOrder
	if err := attributevalue.UnmarshalMap(item, &do); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	order := &models.Order{
		UserName:   do.UserName,
		OrderDate:  do.OrderDate,
		TotalPrice: do.TotalPrice,
		EventID:    do.EventID,
	}
	for _, it := range do.Items {
		order.Items = append(order.Items, models.OrderItem(it))
	}

	known := map[string]bool{
		"userName": true, "orderDate": true, "items": true,
		"totalPrice": true, "eventId": true,
	}
	for k, av := range item {
		if known[k] {
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
		if order.Extra == nil {
			order.Extra = make(map[string]json.RawMessage)
		}
		order.Extra[k] = raw
	}
	return order, nil
}

// Create writes the order. Writing the same (userName, orderDate) key again
// replaces the row, which is what makes redelivered events harmless.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	item, err := toItem(order)
	if err != nil {
		return err
	}
	return r.table.PutItem(ctx, item)
}

// GetByUser returns the user's orders ordered by orderDate. A non-empty
// orderDate narrows the result to that exact order.
func (r *OrderRepository) GetByUser(ctx context.Context, userName, orderDate string, limit int32) ([]*models.Order, error) {
	items, err := r.table.Query(ctx, userName, orderDate, limit)
	if err != nil {
		return nil, err
	}
	return ordersOf(items)
}

// GetAll returns up to limit orders across all users.
func (r *OrderRepository) GetAll(ctx context.Context, limit int32) ([]*models.Order, error) {
	items, err := r.table.Scan(ctx, limit)
	if err != nil {
		return nil, err
	}
	return ordersOf(items)
}

func ordersOf(items []ddb.Item) ([]*models.Order, error) {
	orders := make([]*models.Order, 0, len(items))
	for _, item := range items {
		order, err := fromItem(item)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}
