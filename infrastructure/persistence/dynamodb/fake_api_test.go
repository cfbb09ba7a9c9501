package dynamodb

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeAPI is a single-table, map-backed stand-in for DynamoDB. It
// understands only the condition expressions this package issues.
type fakeAPI struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue

	puts       int
	batches    int
	putErr     error
	unprocess  bool
	lastQuery  *dynamodb.QueryInput
	lastDelete *dynamodb.DeleteItemInput
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{items: make(map[string]map[string]types.AttributeValue)}
}

func conditionFailed() error {
	return &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
}

func stringAttr(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func numberAttr(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberN); ok {
		return v.Value
	}
	return ""
}

func itemKey(item map[string]types.AttributeValue) string {
	return stringAttr(item, "PK") + "|" + stringAttr(item, "SK")
}

func (f *fakeAPI) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[itemKey(in.Key)]}, nil
}

func (f *fakeAPI) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.puts++
	if f.putErr != nil {
		return nil, f.putErr
	}

	key := itemKey(in.Item)
	existing, exists := f.items[key]
	cond := aws.ToString(in.ConditionExpression)

	switch {
	case strings.Contains(cond, "ExpiresAt < :now"):
		if exists {
			now, _ := time.Parse(time.RFC3339Nano, stringAttr(in.ExpressionAttributeValues, ":now"))
			expiresAt, _ := time.Parse(time.RFC3339Nano, stringAttr(existing, "ExpiresAt"))
			if !expiresAt.Before(now) {
				return nil, conditionFailed()
			}
		}
	case strings.Contains(cond, "attribute_not_exists"):
		if exists {
			return nil, conditionFailed()
		}
	case cond != "":
		if !exists {
			return nil, conditionFailed()
		}
		var expected string
		for _, v := range in.ExpressionAttributeValues {
			if n, ok := v.(*types.AttributeValueMemberN); ok {
				expected = n.Value
			}
		}
		if numberAttr(existing, "Version") != expected {
			return nil, conditionFailed()
		}
	}

	f.items[key] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeAPI) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastDelete = in
	key := itemKey(in.Key)
	existing, exists := f.items[key]
	if !exists || stringAttr(existing, "LockID") != stringAttr(in.ExpressionAttributeValues, ":lockId") {
		return nil, conditionFailed()
	}
	delete(f.items, key)
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeAPI) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastQuery = in
	var pk string
	for _, v := range in.ExpressionAttributeValues {
		if s, ok := v.(*types.AttributeValueMemberS); ok {
			pk = s.Value
		}
	}

	var matched []map[string]types.AttributeValue
	for _, item := range f.items {
		if stringAttr(item, "PK") == pk {
			matched = append(matched, item)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := stringAttr(matched[i], "SK"), stringAttr(matched[j], "SK")
		if in.ScanIndexForward != nil && !*in.ScanIndexForward {
			return a > b
		}
		return a < b
	})
	if in.Limit != nil && int(*in.Limit) < len(matched) {
		matched = matched[:*in.Limit]
	}
	return &dynamodb.QueryOutput{Items: matched}, nil
}

func (f *fakeAPI) BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.batches++
	out := &dynamodb.BatchWriteItemOutput{UnprocessedItems: map[string][]types.WriteRequest{}}
	for table, requests := range in.RequestItems {
		if f.unprocess {
			out.UnprocessedItems[table] = requests[:1]
			requests = requests[1:]
		}
		for _, r := range requests {
			f.items[itemKey(r.PutRequest.Item)] = r.PutRequest.Item
		}
	}
	return out, nil
}
