package repository

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	ddb "github.com/mss-commerce/backend/pkg/dynamodb"
	"github.com/mss-commerce/backend/services/product-service/models"
)

// ProductRepository stores products in a DynamoDB table keyed by id.
type ProductRepository struct {
	table *ddb.Table
}

func NewProductRepository(table *ddb.Table) *ProductRepository {
	return &ProductRepository{table: table}
}

// Create assigns a fresh id and writes the product.
func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	product.ID = uuid.NewString()
	item, err := attributevalue.MarshalMap(product)
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}
	return r.table.PutItem(ctx, item)
}

// Get returns the product by id, reporting absence without error.
func (r *ProductRepository) Get(ctx context.Context, id string) (*models.Product, bool, error) {
	item, ok, err := r.table.GetItem(ctx, id)
	if err != nil || !ok {
		return nil, false, err
	}
	var product models.Product
	if err := attributevalue.UnmarshalMap(item, &product); err != nil {
		return nil, false, fmt.Errorf("unmarshal product: %w", err)
	}
	return &product, true, nil
}

// GetAll returns up to limit products, optionally narrowed to one category.
func (r *ProductRepository) GetAll(ctx context.Context, category string, limit int32) ([]*models.Product, error) {
	var items []ddb.Item
	var err error
	if category != "" {
		items, err = r.table.ScanFilter(ctx, "category", category, limit)
	} else {
		items, err = r.table.Scan(ctx, limit)
	}
	if err != nil {
		return nil, err
	}
	products := make([]*models.Product, 0, len(items))
	for _, item := range items {
		var product models.Product
		if err := attributevalue.UnmarshalMap(item, &product); err != nil {
			return nil, fmt.Errorf("unmarshal product: %w", err)
		}
		products = append(products, &product)
	}
	return products, nil
}

// Update applies the non-nil fields as a field-level update.
func (r *ProductRepository) Update(ctx context.Context, id string, update *models.ProductUpdate) error {
	assignments := ddb.Item{}
	setString := func(field string, v *string) {
		if v != nil {
			assignments[field] = &types.AttributeValueMemberS{Value: *v}
		}
	}
	setString("name", update.Name)
	setString("description", update.Description)
	setString("imageFile", update.ImageFile)
	setString("category", update.Category)
	if update.Price != nil {
		av, err := attributevalue.Marshal(update.Price)
		if err != nil {
			return fmt.Errorf("marshal price: %w", err)
		}
		assignments["price"] = av
	}
	if len(assignments) == 0 {
		return nil
	}
	return r.table.UpdateItem(ctx, id, assignments)
}

// Delete removes the product. Deleting an absent product is not an error.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	return r.table.DeleteItem(ctx, id)
}
