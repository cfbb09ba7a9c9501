package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"esn-backend/application/queries"
	"esn-backend/application/services"
	"esn-backend/domain/config"
	"esn-backend/domain/core/valueobjects"
	"esn-backend/domain/events"
	"esn-backend/infrastructure/cache"
	"esn-backend/infrastructure/persistence/memory"
	"esn-backend/infrastructure/persistence/schema"
	pkgerrors "esn-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var customer = valueobjects.MustCustomerID("900")

func newNetworkHandler(t *testing.T) (*GetNetworkHandler, *memory.NetworkStore, *cache.InMemoryCache) {
	t.Helper()
	logger := zap.NewNop()
	store := memory.NewNetworkStore(logger)
	backing := cache.NewInMemoryCache(time.Minute)
	t.Cleanup(func() { _ = backing.Close() })

	lists := services.NewConnectionListFactory(store, schema.NewJSONCodec(nil), config.DefaultDomainConfig(), logger)
	views := services.NewViewCache(backing, time.Minute, logger)
	return NewGetNetworkHandler(lists, views, logger), store, backing
}

func TestGetNetworkHandler_Handle(t *testing.T) {
	ctx := context.Background()
	handler, store, _ := newNetworkHandler(t)
	version := store.Put(customer, []byte(`{"schemaVersion":1,"nodes":[{"id":"c1","name":"Ada","relationshipType":"friend"}],"edges":[]}`))

	view, err := handler.Handle(ctx, queries.GetNetworkQuery{CustomerID: customer})

	require.NoError(t, err)
	assert.Equal(t, "ok", view.Status)
	assert.Equal(t, version, view.Version)
	require.Len(t, view.Nodes, 1)
	require.Len(t, view.Edges, 1)
	assert.Equal(t, queries.EdgeView{From: customer.String(), To: "c1", Type: "friend"}, view.Edges[0])
}

func TestGetNetworkHandler_Handle_ServesCacheUnlessSkipped(t *testing.T) {
	ctx := context.Background()
	handler, store, _ := newNetworkHandler(t)
	store.Put(customer, []byte(`{"nodes":[],"edges":[]}`))

	first, err := handler.Handle(ctx, queries.GetNetworkQuery{CustomerID: customer})
	require.NoError(t, err)
	assert.Zero(t, first.NodeCount)

	// Written behind the cache's back
	store.Put(customer, []byte(`{"nodes":[{"id":"c1","name":"Ada"}],"edges":[]}`))

	cached, err := handler.Handle(ctx, queries.GetNetworkQuery{CustomerID: customer})
	require.NoError(t, err)
	assert.Zero(t, cached.NodeCount)

	fresh, err := handler.Handle(ctx, queries.GetNetworkQuery{CustomerID: customer, SkipCache: true})
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.NodeCount)
}

func TestGetNetworkHandler_Handle_MalformedIsRecoveredAndNotCached(t *testing.T) {
	ctx := context.Background()
	handler, store, backing := newNetworkHandler(t)
	store.Put(customer, []byte(`[[[`))

	view, err := handler.Handle(ctx, queries.GetNetworkQuery{CustomerID: customer})

	require.NoError(t, err)
	assert.Equal(t, string(services.LoadStatusRecovered), view.Status)
	assert.NotEmpty(t, view.ParseError)
	assert.Empty(t, view.Nodes)
	assert.Equal(t, 1, backing.Len(), "only the view generation is stored")
}

func TestGetNetworkHandler_Handle_MissingDocument(t *testing.T) {
	handler, _, _ := newNetworkHandler(t)

	view, err := handler.Handle(context.Background(), queries.GetNetworkQuery{CustomerID: customer})

	require.NoError(t, err)
	assert.Equal(t, string(services.LoadStatusEmpty), view.Status)
	assert.NotNil(t, view.Nodes)
	assert.NotNil(t, view.Edges)
}

func TestGetNetworkHandler_Handle_InvalidQuery(t *testing.T) {
	handler, _, _ := newNetworkHandler(t)

	_, err := handler.Handle(context.Background(), queries.GetNetworkQuery{})

	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestGetActivityHandler_Handle(t *testing.T) {
	ctx := context.Background()
	eventStore := memory.NewEventStore(0)
	for i := 0; i < 3; i++ {
		require.NoError(t, eventStore.SaveEvents(ctx, []events.DomainEvent{
			events.NewConnectionRemoved(customer, valueobjects.NewConnectionID(), i, time.Now()),
		}))
	}
	handler := NewGetActivityHandler(eventStore, zap.NewNop())

	view, err := handler.Handle(ctx, queries.GetActivityQuery{CustomerID: customer, Limit: 2})

	require.NoError(t, err)
	assert.Equal(t, customer.String(), view.CustomerID)
	require.Len(t, view.Events, 2)
	assert.EqualValues(t, 2, view.Events[0].Data["node_count"])
}

func TestGetActivityHandler_Handle_Unconfigured(t *testing.T) {
	handler := NewGetActivityHandler(nil, zap.NewNop())

	_, err := handler.Handle(context.Background(), queries.GetActivityQuery{CustomerID: customer})

	require.Error(t, err)
	assert.True(t, pkgerrors.IsUnavailable(err))
}

func TestGetActivityHandler_Handle_LimitOutOfRange(t *testing.T) {
	handler := NewGetActivityHandler(memory.NewEventStore(0), zap.NewNop())

	_, err := handler.Handle(context.Background(), queries.GetActivityQuery{CustomerID: customer, Limit: 501})

	require.Error(t, err)
	var appErr *pkgerrors.AppError
	assert.True(t, errors.As(err, &appErr))
}
