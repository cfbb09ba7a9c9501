package eventbridge

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"esn-backend/domain/core/valueobjects"
	"esn-backend/domain/events"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockPutEventsAPI struct {
	mock.Mock
}

func (m *MockPutEventsAPI) PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*eventbridge.PutEventsOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

var customer = valueobjects.MustCustomerID("7001")

func addedEvents(n int) []events.DomainEvent {
	out := make([]events.DomainEvent, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, events.NewConnectionAdded(customer, valueobjects.NewConnectionID(), "Ada", "friend", i+1, time.Now()))
	}
	return out
}

func TestEventBridgePublisher_PublishBatch_Chunks(t *testing.T) {
	// Arrange
	api := new(MockPutEventsAPI)
	var sizes []int
	api.On("PutEvents", mock.Anything, mock.AnythingOfType("*eventbridge.PutEventsInput")).
		Run(func(args mock.Arguments) {
			sizes = append(sizes, len(args.Get(1).(*eventbridge.PutEventsInput).Entries))
		}).
		Return(&eventbridge.PutEventsOutput{}, nil)
	publisher := NewEventBridgePublisher(api, "esn-bus", zap.NewNop())

	// Act
	err := publisher.PublishBatch(context.Background(), addedEvents(23))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []int{10, 10, 3}, sizes)
	api.AssertNumberOfCalls(t, "PutEvents", 3)
}

func TestEventBridgePublisher_Publish_EntryShape(t *testing.T) {
	api := new(MockPutEventsAPI)
	var input *eventbridge.PutEventsInput
	api.On("PutEvents", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { input = args.Get(1).(*eventbridge.PutEventsInput) }).
		Return(&eventbridge.PutEventsOutput{}, nil)
	publisher := NewEventBridgePublisher(api, "esn-bus", zap.NewNop())
	event := addedEvents(1)[0]

	require.NoError(t, publisher.Publish(context.Background(), event))

	require.Len(t, input.Entries, 1)
	entry := input.Entries[0]
	assert.Equal(t, "esn-bus", aws.ToString(entry.EventBusName))
	assert.Equal(t, events.SourceBackend, aws.ToString(entry.Source))
	assert.Equal(t, events.TypeConnectionAdded, aws.ToString(entry.DetailType))
	assert.Equal(t, []string{customer.String()}, entry.Resources)

	var detail map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(entry.Detail)), &detail))
	assert.Equal(t, customer.String(), detail["customer_id"])
	assert.Equal(t, "Ada", detail["name"])
}

func TestEventBridgePublisher_Failures(t *testing.T) {
	tests := []struct {
		name string
		out  *eventbridge.PutEventsOutput
		err  error
	}{
		{name: "transport error", err: errors.New("timeout")},
		{
			name: "failed entries",
			out: &eventbridge.PutEventsOutput{
				FailedEntryCount: 1,
				Entries: []types.PutEventsResultEntry{
					{ErrorCode: aws.String("InternalFailure"), ErrorMessage: aws.String("try again")},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := new(MockPutEventsAPI)
			api.On("PutEvents", mock.Anything, mock.Anything).Return(tt.out, tt.err)
			publisher := NewEventBridgePublisher(api, "esn-bus", zap.NewNop())

			err := publisher.Publish(context.Background(), addedEvents(1)[0])

			assert.Error(t, err)
		})
	}
}

func TestLogPublisher(t *testing.T) {
	publisher := NewLogPublisher(zap.NewNop())

	assert.NoError(t, publisher.PublishBatch(context.Background(), addedEvents(3)))
}
