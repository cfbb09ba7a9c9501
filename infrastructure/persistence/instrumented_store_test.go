package persistence

import (
	"context"
	"testing"

	"esn-backend/domain/core/valueobjects"
	"esn-backend/infrastructure/persistence/memory"
	"esn-backend/pkg/observability"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentedStore_RecordsOutcomes(t *testing.T) {
	ctx := context.Background()
	customer := valueobjects.MustCustomerID("12")
	metrics := observability.NewCollector("test")
	store := NewInstrumentedStore(memory.NewNetworkStore(nil), "memory", metrics, observability.NewTracer("test", false))

	_, err := store.Load(ctx, customer)
	require.NoError(t, err)
	version, err := store.Save(ctx, customer, []byte("{}"), "")
	require.NoError(t, err)
	assert.NotEmpty(t, version)
	_, err = store.Save(ctx, customer, []byte("{}"), "")
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StoreOperations.WithLabelValues("memory", "load", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StoreOperations.WithLabelValues("memory", "save", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StoreOperations.WithLabelValues("memory", "save", "conflict")))
}

func TestInstrumentedStore_NilMetrics(t *testing.T) {
	store := NewInstrumentedStore(memory.NewNetworkStore(nil), "memory", nil, nil)

	doc, err := store.Load(context.Background(), valueobjects.MustCustomerID("12"))

	require.NoError(t, err)
	assert.False(t, doc.Exists)
}
