// Package booking persists loan booking records in DynamoDB. A booking is
// keyed by its identifier with a creation timestamp as sort key; reads take
// the latest item for the identifier.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DefaultTable is the booking table used when none is configured.
const DefaultTable = "commercial-loan-bookings"

// ErrNotFound means no record exists for the booking identifier.
var ErrNotFound = errors.New("booking not found")

// DynamoDBAPI is the subset of the DynamoDB client the store uses.
type DynamoDBAPI interface {
	dynamodb.ScanAPIClient
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// Record is one loan booking.
type Record struct {
	LoanBookingID       string         `dynamodbav:"loanBookingId" json:"loan_booking_id"`
	Timestamp           int64          `dynamodbav:"timestamp" json:"timestamp"`
	ProductName         string         `dynamodbav:"productName" json:"product_name"`
	CustomerName        string         `dynamodbav:"customerName" json:"customer_name"`
	DocumentsUploaded   bool           `dynamodbav:"documentsUploaded" json:"documents_uploaded"`
	KBSyncCompleted     bool           `dynamodbav:"kbSyncCompleted" json:"kb_sync_completed"`
	ExtractionCompleted bool           `dynamodbav:"extractionCompleted" json:"extraction_completed"`
	ExtractedData       map[string]any `dynamodbav:"extractedData,omitempty" json:"extracted_data,omitempty"`
}

// Store reads and writes booking records.
type Store struct {
	client DynamoDBAPI
	table  string
	logger *slog.Logger
}

// NewStore creates a booking store.
func NewStore(client DynamoDBAPI, table string, logger *slog.Logger) *Store {
	if table == "" {
		table = DefaultTable
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{client: client, table: table, logger: logger}
}

// Create writes a new booking record. A zero timestamp is filled with the
// current time.
func (s *Store) Create(ctx context.Context, rec Record) error {
	if rec.LoanBookingID == "" {
		return fmt.Errorf("booking identifier is missing")
	}
	if rec.Timestamp == 0 {
		rec.Timestamp = time.Now().Unix()
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal booking %s: %w", rec.LoanBookingID, err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("failed to store booking %s: %w", rec.LoanBookingID, err)
	}

	s.logger.Info("booking created", "booking_id", rec.LoanBookingID, "customer", rec.CustomerName)
	return nil
}

// Get returns the latest record for a booking identifier.
func (s *Store) Get(ctx context.Context, bookingID string) (Record, error) {
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("loanBookingId = :id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":id": &types.AttributeValueMemberS{Value: bookingID},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return Record{}, fmt.Errorf("failed to query booking %s: %w", bookingID, err)
	}
	if len(out.Items) == 0 {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, bookingID)
	}

	var rec Record
	if err := attributevalue.UnmarshalMap(out.Items[0], &rec); err != nil {
		return Record{}, fmt.Errorf("failed to unmarshal booking %s: %w", bookingID, err)
	}
	return rec, nil
}

// List returns every booking record in the table.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	var records []Record
	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName: aws.String(s.table),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bookings: %w", err)
		}
		var batch []Record
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("failed to unmarshal bookings: %w", err)
		}
		records = append(records, batch...)
	}
	return records, nil
}

// SaveExtractedData attaches extraction output to the latest record for the
// booking and marks extraction complete.
func (s *Store) SaveExtractedData(ctx context.Context, bookingID string, data map[string]any) error {
	rec, err := s.Get(ctx, bookingID)
	if err != nil {
		return err
	}

	value, err := attributevalue.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal extracted data for %s: %w", bookingID, err)
	}
	if _, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(s.table),
		Key:              s.key(rec),
		UpdateExpression: aws.String("SET extractedData = :d, extractionCompleted = :c"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":d": value,
			":c": &types.AttributeValueMemberBOOL{Value: true},
		},
	}); err != nil {
		return fmt.Errorf("failed to save extracted data for %s: %w", bookingID, err)
	}

	s.logger.Info("extracted data saved", "booking_id", bookingID, "fields", len(data))
	return nil
}

// SetDocumentsUploaded marks the booking as having its documents stored.
func (s *Store) SetDocumentsUploaded(ctx context.Context, bookingID string) error {
	return s.setFlag(ctx, bookingID, "documentsUploaded")
}

// SetSyncCompleted marks the booking's documents as ingested.
func (s *Store) SetSyncCompleted(ctx context.Context, bookingID string) error {
	return s.setFlag(ctx, bookingID, "kbSyncCompleted")
}

func (s *Store) setFlag(ctx context.Context, bookingID, attribute string) error {
	rec, err := s.Get(ctx, bookingID)
	if err != nil {
		return err
	}
	if _, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(s.table),
		Key:                      s.key(rec),
		UpdateExpression:         aws.String("SET #f = :v"),
		ExpressionAttributeNames: map[string]string{"#f": attribute},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberBOOL{Value: true},
		},
	}); err != nil {
		return fmt.Errorf("failed to update %s for booking %s: %w", attribute, bookingID, err)
	}
	return nil
}

// key builds the composite primary key for a record.
func (s *Store) key(rec Record) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"loanBookingId": &types.AttributeValueMemberS{Value: rec.LoanBookingID},
		"timestamp":     &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", rec.Timestamp)},
	}
}
