package dynamodb

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	apperrors "github.com/mss-commerce/backend/services/common/errors"
)

// API is the subset of the DynamoDB client the entity store uses.
// The in-memory implementation in memory.go satisfies it for tests.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// Item is a raw DynamoDB attribute map.
type Item = map[string]types.AttributeValue

// ErrConditionFailed is returned when a conditional write loses.
var ErrConditionFailed = stderrors.New("conditional check failed")

// Table wraps one DynamoDB table with its key schema. All reads surface an
// absent item as (zero, false, nil), never as an error.
type Table struct {
	api          API
	name         string
	partitionKey string
	sortKey      string
}

// NewTable binds a client to a table with a simple partition key.
func NewTable(api API, name, partitionKey string) *Table {
	return &Table{api: api, name: name, partitionKey: partitionKey}
}

// WithSortKey returns the table configured with a composite key schema.
func (t *Table) WithSortKey(sortKey string) *Table {
	t.sortKey = sortKey
	return t
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

func (t *Table) keyOf(partition, sortVal string) Item {
	key := Item{
		t.partitionKey: &types.AttributeValueMemberS{Value: partition},
	}
	if t.sortKey != "" && sortVal != "" {
		key[t.sortKey] = &types.AttributeValueMemberS{Value: sortVal}
	}
	return key
}

// GetItem fetches one item by partition key value.
func (t *Table) GetItem(ctx context.Context, partition string) (Item, bool, error) {
	out, err := t.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &t.name,
		Key:       t.keyOf(partition, ""),
	})
	if err != nil {
		return nil, false, classify("GetItem", err)
	}
	if len(out.Item) == 0 {
		return nil, false, nil
	}
	return out.Item, true, nil
}

// PutItem writes an item, replacing any existing one with the same key.
func (t *Table) PutItem(ctx context.Context, item Item) error {
	_, err := t.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &t.name,
		Item:      item,
	})
	return classify("PutItem", err)
}

// DeleteItem removes an item by partition key value. Deleting an absent item
// is not an error.
func (t *Table) DeleteItem(ctx context.Context, partition string) error {
	_, err := t.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: &t.name,
		Key:       t.keyOf(partition, ""),
	})
	return classify("DeleteItem", err)
}

// DeleteExisting removes an item only if it still exists, so a concurrent
// deleter can observe that it lost the race via ErrConditionFailed.
func (t *Table) DeleteExisting(ctx context.Context, partition string) error {
	cond := fmt.Sprintf("attribute_exists(%s)", t.partitionKey)
	_, err := t.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           &t.name,
		Key:                 t.keyOf(partition, ""),
		ConditionExpression: &cond,
	})
	var ccf *types.ConditionalCheckFailedException
	if stderrors.As(err, &ccf) {
		return ErrConditionFailed
	}
	return classify("DeleteItem", err)
}

// Scan returns up to limit items. limit <= 0 means no cap.
func (t *Table) Scan(ctx context.Context, limit int32) ([]Item, error) {
	return t.scan(ctx, &dynamodb.ScanInput{TableName: &t.name}, limit)
}

// ScanFilter returns up to limit items whose string field equals value.
func (t *Table) ScanFilter(ctx context.Context, field, value string, limit int32) ([]Item, error) {
	filter := "#f = :v"
	input := &dynamodb.ScanInput{
		TableName:                &t.name,
		FilterExpression:         &filter,
		ExpressionAttributeNames: map[string]string{"#f": field},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberS{Value: value},
		},
	}
	return t.scan(ctx, input, limit)
}

func (t *Table) scan(ctx context.Context, input *dynamodb.ScanInput, limit int32) ([]Item, error) {
	var items []Item
	paginator := dynamodb.NewScanPaginator(t.api, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify("Scan", err)
		}
		for _, it := range page.Items {
			items = append(items, it)
			if limit > 0 && int32(len(items)) >= limit {
				return items, nil
			}
		}
	}
	return items, nil
}

// Query returns the items in one partition, optionally narrowed to an exact
// sort key value, ordered by sort key.
func (t *Table) Query(ctx context.Context, partition string, sortVal string, limit int32) ([]Item, error) {
	keyCond := "#pk = :pk"
	names := map[string]string{"#pk": t.partitionKey}
	values := map[string]types.AttributeValue{
		":pk": &types.AttributeValueMemberS{Value: partition},
	}
	if sortVal != "" {
		if t.sortKey == "" {
			return nil, fmt.Errorf("Query: table %s has no sort key", t.name)
		}
		keyCond += " AND #sk = :sk"
		names["#sk"] = t.sortKey
		values[":sk"] = &types.AttributeValueMemberS{Value: sortVal}
	}
	input := &dynamodb.QueryInput{
		TableName:                 &t.name,
		KeyConditionExpression:    &keyCond,
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	}
	if limit > 0 {
		input.Limit = sdkaws.Int32(limit)
	}
	out, err := t.api.Query(ctx, input)
	if err != nil {
		return nil, classify("Query", err)
	}
	return out.Items, nil
}

// UpdateItem applies field-level assignments to one item.
func (t *Table) UpdateItem(ctx context.Context, partition string, updates Item) error {
	if len(updates) == 0 {
		return nil
	}
	expr, names, values := BuildUpdateExpression(updates)
	_, err := t.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 &t.name,
		Key:                       t.keyOf(partition, ""),
		UpdateExpression:          &expr,
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	return classify("UpdateItem", err)
}

// BuildUpdateExpression renders a SET expression with numbered name and
// value placeholders, in stable field order.
func BuildUpdateExpression(updates Item) (string, map[string]string, map[string]types.AttributeValue) {
	fields := make([]string, 0, len(updates))
	for k := range updates {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	expr := "SET "
	names := make(map[string]string, len(fields))
	values := make(map[string]types.AttributeValue, len(fields))
	for i, field := range fields {
		if i > 0 {
			expr += ", "
		}
		namePh := fmt.Sprintf("#key%d", i)
		valuePh := fmt.Sprintf(":value%d", i)
		expr += namePh + " = " + valuePh
		names[namePh] = field
		values[valuePh] = updates[field]
	}
	return expr, names, values
}

// transientCodes are the DynamoDB error codes worth retrying.
var transientCodes = map[string]bool{
	"ProvisionedThroughputExceededException": true,
	"RequestLimitExceeded":                   true,
	"ThrottlingException":                    true,
	"InternalServerError":                    true,
	"ServiceUnavailable":                     true,
}

func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) && transientCodes[apiErr.ErrorCode()] {
		return apperrors.TransientStore(op+" throttled or unavailable", err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
