package dynamodb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// MemoryAPI is an in-process stand-in for the DynamoDB client, covering the
// operations Table issues. It backs the service tests and local runs without
// a reachable endpoint.
type MemoryAPI struct {
	mu     sync.Mutex
	tables map[string]*memoryTable

	// Fail, when set, makes every call return that error.
	Fail error
}

type memoryTable struct {
	partitionKey string
	sortKey      string
	items        map[string]Item
	order        []string
}

// NewMemoryAPI returns an empty in-memory store.
func NewMemoryAPI() *MemoryAPI {
	return &MemoryAPI{tables: make(map[string]*memoryTable)}
}

// CreateTable declares a table and its key schema.
func (m *MemoryAPI) CreateTable(name, partitionKey, sortKey string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[name] = &memoryTable{
		partitionKey: partitionKey,
		sortKey:      sortKey,
		items:        make(map[string]Item),
	}
}

// Len reports the number of items currently in a table.
func (m *MemoryAPI) Len(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tables[table]; ok {
		return len(t.items)
	}
	return 0
}

func (m *MemoryAPI) table(name *string) (*memoryTable, error) {
	if name == nil {
		return nil, fmt.Errorf("missing table name")
	}
	t, ok := m.tables[*name]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: strPtr("table not found: " + *name)}
	}
	return t, nil
}

func strPtr(s string) *string { return &s }

func stringValue(av types.AttributeValue) string {
	if s, ok := av.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func (t *memoryTable) compositeKey(key Item) string {
	pk := stringValue(key[t.partitionKey])
	if t.sortKey == "" {
		return pk
	}
	return pk + "\x00" + stringValue(key[t.sortKey])
}

func (t *memoryTable) keyOfItem(item Item) string {
	return t.compositeKey(item)
}

func cloneItem(item Item) Item {
	out := make(Item, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func (m *MemoryAPI) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	t, err := m.table(params.TableName)
	if err != nil {
		return nil, err
	}
	item, ok := t.items[t.compositeKey(params.Key)]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: cloneItem(item)}, nil
}

func (m *MemoryAPI) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	t, err := m.table(params.TableName)
	if err != nil {
		return nil, err
	}
	key := t.keyOfItem(params.Item)
	if _, exists := t.items[key]; !exists {
		t.order = append(t.order, key)
	}
	t.items[key] = cloneItem(params.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (m *MemoryAPI) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	t, err := m.table(params.TableName)
	if err != nil {
		return nil, err
	}
	key := t.compositeKey(params.Key)
	_, exists := t.items[key]
	if params.ConditionExpression != nil &&
		strings.HasPrefix(*params.ConditionExpression, "attribute_exists") && !exists {
		return nil, &types.ConditionalCheckFailedException{Message: strPtr("item absent")}
	}
	if exists {
		delete(t.items, key)
		for i, k := range t.order {
			if k == key {
				t.order = append(t.order[:i], t.order[i+1:]...)
				break
			}
		}
	}
	return &dynamodb.DeleteItemOutput{}, nil
}

func (m *MemoryAPI) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	t, err := m.table(params.TableName)
	if err != nil {
		return nil, err
	}
	var items []Item
	for _, key := range t.order {
		item := t.items[key]
		if !matchesFilter(item, params.FilterExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues) {
			continue
		}
		items = append(items, cloneItem(item))
	}
	return &dynamodb.ScanOutput{Items: items, Count: int32(len(items))}, nil
}

// matchesFilter supports the single equality form "#f = :v" that Table emits.
func matchesFilter(item Item, expr *string, names map[string]string, values map[string]types.AttributeValue) bool {
	if expr == nil {
		return true
	}
	parts := strings.SplitN(*expr, "=", 2)
	if len(parts) != 2 {
		return false
	}
	field := strings.TrimSpace(parts[0])
	if mapped, ok := names[field]; ok {
		field = mapped
	}
	want, ok := values[strings.TrimSpace(parts[1])]
	if !ok {
		return false
	}
	have, ok := item[field]
	if !ok {
		return false
	}
	return stringValue(have) == stringValue(want)
}

func (m *MemoryAPI) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	t, err := m.table(params.TableName)
	if err != nil {
		return nil, err
	}
	pk := stringValue(params.ExpressionAttributeValues[":pk"])
	sk, hasSort := params.ExpressionAttributeValues[":sk"]

	var keys []string
	for key, item := range t.items {
		if stringValue(item[t.partitionKey]) != pk {
			continue
		}
		if hasSort && stringValue(item[t.sortKey]) != stringValue(sk) {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var items []Item
	for _, key := range keys {
		items = append(items, cloneItem(t.items[key]))
		if params.Limit != nil && int32(len(items)) >= *params.Limit {
			break
		}
	}
	return &dynamodb.QueryOutput{Items: items, Count: int32(len(items))}, nil
}

func (m *MemoryAPI) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	t, err := m.table(params.TableName)
	if err != nil {
		return nil, err
	}
	key := t.compositeKey(params.Key)
	item, ok := t.items[key]
	if !ok {
		item = cloneItem(params.Key)
		t.items[key] = item
		t.order = append(t.order, key)
	}
	// Apply the numbered placeholders emitted by BuildUpdateExpression.
	for i := 0; ; i++ {
		field, ok := params.ExpressionAttributeNames[fmt.Sprintf("#key%d", i)]
		if !ok {
			break
		}
		item[field] = params.ExpressionAttributeValues[fmt.Sprintf(":value%d", i)]
	}
	return &dynamodb.UpdateItemOutput{}, nil
}
