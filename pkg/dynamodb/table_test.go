package dynamodb

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	apperrors "github.com/mss-commerce/backend/services/common/errors"
)

func newUserTable(t *testing.T) (*MemoryAPI, *Table) {
	t.Helper()
	api := NewMemoryAPI()
	api.CreateTable("basket", "userName", "")
	return api, NewTable(api, "basket", "userName")
}

func strAttr(v string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: v}
}

func TestGetItemAbsentIsNotAnError(t *testing.T) {
	_, table := newUserTable(t)

	item, ok, err := table.GetItem(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if ok || item != nil {
		t.Fatalf("absent item reported as present: %v", item)
	}
}

func TestPutGetDeleteRoundTrip(t *testing.T) {
	api, table := newUserTable(t)

	item := Item{
		"userName": strAttr("alice"),
		"note":     strAttr("hello"),
	}
	if err := table.PutItem(context.Background(), item); err != nil {
		t.Fatalf("PutItem: %v", err)
	}

	got, ok, err := table.GetItem(context.Background(), "alice")
	if err != nil || !ok {
		t.Fatalf("GetItem: ok=%v err=%v", ok, err)
	}
	if v, _ := got["note"].(*types.AttributeValueMemberS); v == nil || v.Value != "hello" {
		t.Fatalf("note attribute lost: %v", got["note"])
	}

	if err := table.DeleteItem(context.Background(), "alice"); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	if api.Len("basket") != 0 {
		t.Fatalf("table not empty after delete")
	}

	// Deleting again is a no-op, not an error.
	if err := table.DeleteItem(context.Background(), "alice"); err != nil {
		t.Fatalf("second DeleteItem: %v", err)
	}
}

func TestDeleteExistingLosesRaceOnAbsentItem(t *testing.T) {
	_, table := newUserTable(t)

	err := table.DeleteExisting(context.Background(), "alice")
	if !stderrors.Is(err, ErrConditionFailed) {
		t.Fatalf("want ErrConditionFailed, got %v", err)
	}

	if err := table.PutItem(context.Background(), Item{"userName": strAttr("alice")}); err != nil {
		t.Fatal(err)
	}
	if err := table.DeleteExisting(context.Background(), "alice"); err != nil {
		t.Fatalf("DeleteExisting on present item: %v", err)
	}
}

func TestScanFilterAndLimit(t *testing.T) {
	api := NewMemoryAPI()
	api.CreateTable("product", "id", "")
	table := NewTable(api, "product", "id")

	seed := []Item{
		{"id": strAttr("1"), "category": strAttr("Phone")},
		{"id": strAttr("2"), "category": strAttr("Phone")},
		{"id": strAttr("3"), "category": strAttr("Furniture")},
	}
	for _, item := range seed {
		if err := table.PutItem(context.Background(), item); err != nil {
			t.Fatal(err)
		}
	}

	phones, err := table.ScanFilter(context.Background(), "category", "Phone", 0)
	if err != nil {
		t.Fatalf("ScanFilter: %v", err)
	}
	if len(phones) != 2 {
		t.Fatalf("phones = %d, want 2", len(phones))
	}

	capped, err := table.Scan(context.Background(), 2)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(capped) != 2 {
		t.Fatalf("capped scan = %d, want 2", len(capped))
	}
}

func TestQueryByPartitionAndSortKey(t *testing.T) {
	api := NewMemoryAPI()
	api.CreateTable("order", "userName", "orderDate")
	table := NewTable(api, "order", "userName").WithSortKey("orderDate")

	seed := []Item{
		{"userName": strAttr("alice"), "orderDate": strAttr("2024-05-01T12:00:00Z")},
		{"userName": strAttr("alice"), "orderDate": strAttr("2024-06-01T12:00:00Z")},
		{"userName": strAttr("bob"), "orderDate": strAttr("2024-05-01T12:00:00Z")},
	}
	for _, item := range seed {
		if err := table.PutItem(context.Background(), item); err != nil {
			t.Fatal(err)
		}
	}

	all, err := table.Query(context.Background(), "alice", "", 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("alice orders = %d, want 2", len(all))
	}

	one, err := table.Query(context.Background(), "alice", "2024-05-01T12:00:00Z", 0)
	if err != nil {
		t.Fatalf("Query with sort key: %v", err)
	}
	if len(one) != 1 {
		t.Fatalf("exact query = %d, want 1", len(one))
	}
}

func TestUpdateItemAssignsFields(t *testing.T) {
	api := NewMemoryAPI()
	api.CreateTable("product", "id", "")
	table := NewTable(api, "product", "id")

	if err := table.PutItem(context.Background(), Item{
		"id":   strAttr("p1"),
		"name": strAttr("IPhone X"),
	}); err != nil {
		t.Fatal(err)
	}

	err := table.UpdateItem(context.Background(), "p1", Item{
		"name":     strAttr("IPhone 11"),
		"category": strAttr("Phone"),
	})
	if err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}

	got, _, err := table.GetItem(context.Background(), "p1")
	if err != nil {
		t.Fatal(err)
	}
	if v := got["name"].(*types.AttributeValueMemberS).Value; v != "IPhone 11" {
		t.Errorf("name = %q, want IPhone 11", v)
	}
	if v := got["category"].(*types.AttributeValueMemberS).Value; v != "Phone" {
		t.Errorf("category = %q, want Phone", v)
	}
}

func TestBuildUpdateExpressionStableOrder(t *testing.T) {
	expr, names, values := BuildUpdateExpression(Item{
		"b": strAttr("2"),
		"a": strAttr("1"),
	})
	if expr != "SET #key0 = :value0, #key1 = :value1" {
		t.Fatalf("expr = %q", expr)
	}
	if names["#key0"] != "a" || names["#key1"] != "b" {
		t.Fatalf("names not in stable field order: %v", names)
	}
	if values[":value0"].(*types.AttributeValueMemberS).Value != "1" {
		t.Fatalf("values misaligned: %v", values)
	}
}

type throttlingError struct{}

func (throttlingError) Error() string                 { return "throttled" }
func (throttlingError) ErrorCode() string             { return "ThrottlingException" }
func (throttlingError) ErrorMessage() string          { return "throttled" }
func (throttlingError) ErrorFault() smithy.ErrorFault { return smithy.FaultServer }

var _ smithy.APIError = throttlingError{}

func TestTransientFaultsAreClassified(t *testing.T) {
	api, table := newUserTable(t)
	api.Fail = throttlingError{}

	_, _, err := table.GetItem(context.Background(), "alice")
	if !apperrors.Is(err, apperrors.KindTransientStore) {
		t.Fatalf("throttling not classified as transient: %v", err)
	}

	api.Fail = stderrors.New("plain failure")
	_, _, err = table.GetItem(context.Background(), "alice")
	if apperrors.Is(err, apperrors.KindTransientStore) {
		t.Fatalf("plain failure misclassified as transient: %v", err)
	}
}
