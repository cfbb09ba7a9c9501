package memory

import (
	"context"
	"testing"
	"time"

	"esn-backend/application/ports"
	"esn-backend/domain/core/valueobjects"
	"esn-backend/domain/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var customer = valueobjects.MustCustomerID("31")

func TestNetworkStore_SaveRequiresMatchingVersion(t *testing.T) {
	ctx := context.Background()
	store := NewNetworkStore(nil)

	doc, err := store.Load(ctx, customer)
	require.NoError(t, err)
	assert.False(t, doc.Exists)
	assert.Empty(t, doc.Version)

	_, err = store.Save(ctx, customer, []byte("a"), "something")
	assert.True(t, ports.IsVersionConflict(err))

	v1, err := store.Save(ctx, customer, []byte("a"), "")
	require.NoError(t, err)

	_, err = store.Save(ctx, customer, []byte("b"), "")
	assert.True(t, ports.IsVersionConflict(err))

	v2, err := store.Save(ctx, customer, []byte("b"), v1)
	require.NoError(t, err)
	assert.NotEqual(t, v1, v2)

	doc, err = store.Load(ctx, customer)
	require.NoError(t, err)
	assert.True(t, doc.Exists)
	assert.Equal(t, "b", string(doc.Value))
	assert.Equal(t, v2, doc.Version)
}

func TestNetworkStore_LoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewNetworkStore(nil)
	store.Put(customer, []byte("abc"))

	doc, err := store.Load(ctx, customer)
	require.NoError(t, err)
	doc.Value[0] = 'z'

	again, err := store.Load(ctx, customer)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again.Value))
}

func TestNetworkStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := NewNetworkStore(nil)

	_, err := store.Load(ctx, customer)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = store.Save(ctx, customer, []byte("a"), "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEventStore_NewestFirstAndBounded(t *testing.T) {
	ctx := context.Background()
	store := NewEventStore(3)
	other := valueobjects.MustCustomerID("32")

	for i := 1; i <= 5; i++ {
		require.NoError(t, store.SaveEvents(ctx, []events.DomainEvent{
			events.NewConnectionAdded(customer, valueobjects.NewConnectionID(), "n", "friend", i, time.Now()),
		}))
	}
	require.NoError(t, store.SaveEvents(ctx, []events.DomainEvent{
		events.NewConnectionRemoved(other, valueobjects.NewConnectionID(), 0, time.Now()),
	}))

	all, err := store.GetEvents(ctx, customer, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.EqualValues(t, 5, all[0].Data["node_count"])
	assert.EqualValues(t, 3, all[2].Data["node_count"])
	for _, e := range all {
		assert.Equal(t, customer.String(), e.CustomerID)
		assert.NotEmpty(t, e.EventID)
	}

	limited, err := store.GetEvents(ctx, customer, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := store.GetEvents(ctx, valueobjects.MustCustomerID("33"), 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}
