package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"esn-backend/application/ports"
	"esn-backend/domain/core/valueobjects"
	"esn-backend/domain/versioning"
	pkgerrors "esn-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

const networkSortKey = "ESN#connections"

// networkItem represents the DynamoDB item holding one customer's document
type networkItem struct {
	PK         string `dynamodbav:"PK"` // CUSTOMER#<numeric id>
	SK         string `dynamodbav:"SK"` // ESN#connections
	EntityType string `dynamodbav:"EntityType"`
	CustomerID string `dynamodbav:"CustomerID"`
	Value      string `dynamodbav:"Value"`
	Version    int64  `dynamodbav:"Version"`
	UpdatedAt  string `dynamodbav:"UpdatedAt"`
}

// NetworkStore implements ports.NetworkStore on a single DynamoDB item.
// The version token is the item's numeric Version attribute.
type NetworkStore struct {
	client    API
	tableName string
	logger    *zap.Logger
}

// NewNetworkStore creates a new DynamoDB-backed store
func NewNetworkStore(client API, tableName string, logger *zap.Logger) *NetworkStore {
	return &NetworkStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

func customerPK(customerID valueobjects.CustomerID) string {
	return fmt.Sprintf("CUSTOMER#%s", customerID.NumericID())
}

// Load reads the item. A missing item returns Exists=false.
func (s *NetworkStore) Load(ctx context.Context, customerID valueobjects.CustomerID) (*ports.Document, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: customerPK(customerID)},
			"SK": &types.AttributeValueMemberS{Value: networkSortKey},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get connection list", err).WithCode("DYNAMODB_GET")
	}

	doc := &ports.Document{CustomerID: customerID}
	if len(out.Item) == 0 {
		return doc, nil
	}

	var item networkItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, pkgerrors.NewDatabaseError("decode connection list item", err)
	}

	doc.Exists = true
	doc.Value = []byte(item.Value)
	doc.Version = versioning.Counter(item.Version)
	return doc, nil
}

// Save writes the item conditionally on its Version
func (s *NetworkStore) Save(ctx context.Context, customerID valueobjects.CustomerID, value []byte, expectedVersion string) (string, error) {
	expected, ok := versioning.ParseCounter(expectedVersion)
	if !ok {
		// A token from another backend can never match
		return "", ports.NewVersionConflictError(customerID)
	}

	item := networkItem{
		PK:         customerPK(customerID),
		SK:         networkSortKey,
		EntityType: "NETWORK",
		CustomerID: customerID.String(),
		Value:      string(value),
		Version:    expected + 1,
		UpdatedAt:  time.Now().UTC().Format(time.RFC3339),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return "", pkgerrors.NewDatabaseError("encode connection list item", err)
	}

	var condition expression.ConditionBuilder
	if expected == 0 {
		condition = expression.Name("PK").AttributeNotExists()
	} else {
		condition = expression.Name("Version").Equal(expression.Value(expected))
	}

	expr, err := expression.NewBuilder().WithCondition(condition).Build()
	if err != nil {
		return "", pkgerrors.NewInternalError("failed to build condition expression").WithCause(err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(s.tableName),
		Item:                      av,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var conditionalCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionalCheckFailed) {
			s.logger.Debug("Conditional write rejected",
				zap.String("customerID", customerID.String()),
				zap.Int64("expectedVersion", expected),
			)
			return "", ports.NewVersionConflictError(customerID)
		}
		return "", pkgerrors.NewDatabaseError("put connection list", err).WithCode("DYNAMODB_PUT")
	}

	return versioning.Counter(item.Version), nil
}
