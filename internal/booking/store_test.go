package booking

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type fakeDynamo struct {
	items   []map[string]types.AttributeValue
	puts    []map[string]types.AttributeValue
	updates []*dynamodb.UpdateItemInput
}

func (f *fakeDynamo) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.puts = append(f.puts, params.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return &dynamodb.QueryOutput{Items: f.items}, nil
}

func (f *fakeDynamo) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.updates = append(f.updates, params)
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeDynamo) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	return &dynamodb.ScanOutput{Items: f.items}, nil
}

func storedRecord(t *testing.T, rec Record) map[string]types.AttributeValue {
	t.Helper()
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		t.Fatalf("MarshalMap: %v", err)
	}
	return item
}

func TestCreateFillsTimestamp(t *testing.T) {
	fake := &fakeDynamo{}
	store := NewStore(fake, "", nil)

	err := store.Create(context.Background(), Record{
		LoanBookingID: "booking-123",
		CustomerName:  "Acme Industrial Holdings LLC",
		ProductName:   "Revolving Credit Facility",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(fake.puts) != 1 {
		t.Fatalf("expected 1 put, got %d", len(fake.puts))
	}

	var stored Record
	if err := attributevalue.UnmarshalMap(fake.puts[0], &stored); err != nil {
		t.Fatalf("UnmarshalMap: %v", err)
	}
	if stored.Timestamp == 0 {
		t.Error("timestamp not filled")
	}
	if stored.LoanBookingID != "booking-123" {
		t.Errorf("booking ID = %q", stored.LoanBookingID)
	}
}

func TestCreateRequiresID(t *testing.T) {
	store := NewStore(&fakeDynamo{}, "", nil)
	if err := store.Create(context.Background(), Record{}); err == nil {
		t.Fatal("expected error for empty booking ID")
	}
}

func TestGetReturnsLatest(t *testing.T) {
	fake := &fakeDynamo{
		items: []map[string]types.AttributeValue{
			storedRecord(t, Record{LoanBookingID: "booking-123", Timestamp: 1700000100, CustomerName: "Acme"}),
		},
	}
	store := NewStore(fake, "", nil)

	rec, err := store.Get(context.Background(), "booking-123")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Timestamp != 1700000100 || rec.CustomerName != "Acme" {
		t.Errorf("unexpected record %+v", rec)
	}
}

func TestGetNotFound(t *testing.T) {
	store := NewStore(&fakeDynamo{}, "", nil)
	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestSaveExtractedData(t *testing.T) {
	fake := &fakeDynamo{
		items: []map[string]types.AttributeValue{
			storedRecord(t, Record{LoanBookingID: "booking-123", Timestamp: 1700000100}),
		},
	}
	store := NewStore(fake, "", nil)

	data := map[string]any{"governing_law": "New York", "maturity_date": nil}
	if err := store.SaveExtractedData(context.Background(), "booking-123", data); err != nil {
		t.Fatalf("SaveExtractedData: %v", err)
	}
	if len(fake.updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(fake.updates))
	}

	update := fake.updates[0]
	key, ok := update.Key["timestamp"].(*types.AttributeValueMemberN)
	if !ok || key.Value != "1700000100" {
		t.Errorf("update key timestamp = %v", update.Key["timestamp"])
	}
	if got := aws.ToString(update.UpdateExpression); got != "SET extractedData = :d, extractionCompleted = :c" {
		t.Errorf("update expression = %q", got)
	}
}

func TestSetFlags(t *testing.T) {
	fake := &fakeDynamo{
		items: []map[string]types.AttributeValue{
			storedRecord(t, Record{LoanBookingID: "booking-123", Timestamp: 1700000100}),
		},
	}
	store := NewStore(fake, "", nil)

	if err := store.SetDocumentsUploaded(context.Background(), "booking-123"); err != nil {
		t.Fatalf("SetDocumentsUploaded: %v", err)
	}
	if err := store.SetSyncCompleted(context.Background(), "booking-123"); err != nil {
		t.Fatalf("SetSyncCompleted: %v", err)
	}
	if len(fake.updates) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(fake.updates))
	}
	if fake.updates[0].ExpressionAttributeNames["#f"] != "documentsUploaded" {
		t.Errorf("first flag = %v", fake.updates[0].ExpressionAttributeNames)
	}
	if fake.updates[1].ExpressionAttributeNames["#f"] != "kbSyncCompleted" {
		t.Errorf("second flag = %v", fake.updates[1].ExpressionAttributeNames)
	}
}

func TestListUnmarshalsRecords(t *testing.T) {
	fake := &fakeDynamo{
		items: []map[string]types.AttributeValue{
			storedRecord(t, Record{LoanBookingID: "booking-1", Timestamp: 1}),
			storedRecord(t, Record{LoanBookingID: "booking-2", Timestamp: 2}),
		},
	}
	store := NewStore(fake, "", nil)

	records, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
}
