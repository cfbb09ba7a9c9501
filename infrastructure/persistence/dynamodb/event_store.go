package dynamodb

import (
	"context"
	"fmt"
	"time"

	"esn-backend/application/ports"
	"esn-backend/domain/core/valueobjects"
	"esn-backend/domain/events"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// batchWriteLimit is the DynamoDB cap on items per BatchWriteItem
const batchWriteLimit = 25

// EventRecord represents how activity entries are stored in DynamoDB
type EventRecord struct {
	PK         string                 `dynamodbav:"PK"` // EVENTS#<customer numeric id>
	SK         string                 `dynamodbav:"SK"` // EVENT#<timestamp>#<event_id>
	EventID    string                 `dynamodbav:"EventID"`
	EventType  string                 `dynamodbav:"EventType"`
	CustomerID string                 `dynamodbav:"CustomerID"`
	EventData  map[string]interface{} `dynamodbav:"EventData"`
	Timestamp  string                 `dynamodbav:"Timestamp"`
	TTL        int64                  `dynamodbav:"TTL,omitempty"`
}

// DynamoDBEventStore implements ports.EventStore as a per-customer activity log
type DynamoDBEventStore struct {
	client    API
	tableName string
	retention time.Duration
}

// NewDynamoDBEventStore creates a new DynamoDB event store. Entries expire
// through the table TTL after retention; zero keeps them forever.
func NewDynamoDBEventStore(client API, tableName string, retention time.Duration) *DynamoDBEventStore {
	return &DynamoDBEventStore{
		client:    client,
		tableName: tableName,
		retention: retention,
	}
}

func eventsPK(customerNumericID string) string {
	return fmt.Sprintf("EVENTS#%s", customerNumericID)
}

// SaveEvents persists domain events to the activity log
func (es *DynamoDBEventStore) SaveEvents(ctx context.Context, domainEvents []events.DomainEvent) error {
	if len(domainEvents) == 0 {
		return nil
	}

	writeRequests := make([]types.WriteRequest, 0, len(domainEvents))
	for _, event := range domainEvents {
		record, err := es.eventToRecord(event)
		if err != nil {
			return fmt.Errorf("failed to convert event to record: %w", err)
		}

		item, err := attributevalue.MarshalMap(record)
		if err != nil {
			return fmt.Errorf("failed to marshal event record: %w", err)
		}

		writeRequests = append(writeRequests, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: item},
		})
	}

	for i := 0; i < len(writeRequests); i += batchWriteLimit {
		end := i + batchWriteLimit
		if end > len(writeRequests) {
			end = len(writeRequests)
		}

		result, err := es.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				es.tableName: writeRequests[i:end],
			},
		})
		if err != nil {
			return fmt.Errorf("failed to write events batch: %w", err)
		}

		if unprocessed := len(result.UnprocessedItems[es.tableName]); unprocessed > 0 {
			return fmt.Errorf("failed to write %d events", unprocessed)
		}
	}

	return nil
}

// GetEvents retrieves the most recent entries for a customer, newest first
func (es *DynamoDBEventStore) GetEvents(ctx context.Context, customerID valueobjects.CustomerID, limit int) ([]ports.StoredEvent, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(eventsPK(customerID.NumericID())))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build key condition: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(es.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(false),
	}
	if limit > 0 {
		input.Limit = aws.Int32(int32(limit))
	}

	var stored []ports.StoredEvent
	for {
		result, err := es.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query events: %w", err)
		}

		for _, item := range result.Items {
			var record EventRecord
			if err := attributevalue.UnmarshalMap(item, &record); err != nil {
				return nil, fmt.Errorf("failed to unmarshal event record: %w", err)
			}
			stored = append(stored, recordToStoredEvent(record))
			if limit > 0 && len(stored) >= limit {
				return stored, nil
			}
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	return stored, nil
}

func (es *DynamoDBEventStore) eventToRecord(event events.DomainEvent) (*EventRecord, error) {
	entry, err := ports.NewStoredEvent(event)
	if err != nil {
		return nil, err
	}

	customerID, err := valueobjects.NewCustomerID(entry.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("event has invalid aggregate id: %w", err)
	}

	var ttl int64
	if es.retention > 0 {
		ttl = entry.Timestamp.Add(es.retention).Unix()
	}

	return &EventRecord{
		PK:         eventsPK(customerID.NumericID()),
		SK:         fmt.Sprintf("EVENT#%s#%s", entry.Timestamp.Format(time.RFC3339Nano), entry.EventID),
		EventID:    entry.EventID,
		EventType:  entry.EventType,
		CustomerID: entry.CustomerID,
		EventData:  entry.Data,
		Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
		TTL:        ttl,
	}, nil
}

func recordToStoredEvent(record EventRecord) ports.StoredEvent {
	timestamp, _ := time.Parse(time.RFC3339Nano, record.Timestamp)
	return ports.StoredEvent{
		EventID:    record.EventID,
		EventType:  record.EventType,
		CustomerID: record.CustomerID,
		Timestamp:  timestamp,
		Data:       record.EventData,
	}
}
