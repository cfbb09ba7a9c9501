package bus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countQuery struct {
	Limit int
}

func (q countQuery) Validate() error {
	if q.Limit < 0 {
		return errors.New("limit cannot be negative")
	}
	return nil
}

type recordingMetrics struct {
	queries []string
}

func (m *recordingMetrics) RecordQuery(queryType string, duration time.Duration, err error) {
	m.queries = append(m.queries, queryType)
}

func TestQueryBus_Ask(t *testing.T) {
	metrics := &recordingMetrics{}
	b := NewQueryBus(metrics)
	require.NoError(t, b.Register(countQuery{}, QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		return query.(countQuery).Limit * 2, nil
	})))

	result, err := b.Ask(context.Background(), countQuery{Limit: 4})

	require.NoError(t, err)
	assert.Equal(t, 8, result)
	assert.Equal(t, []string{"countQuery"}, metrics.queries)
}

func TestQueryBus_Ask_Errors(t *testing.T) {
	boom := errors.New("boom")
	b := NewQueryBus(nil)
	require.NoError(t, b.Register(countQuery{}, QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		return nil, boom
	})))

	_, err := b.Ask(context.Background(), countQuery{Limit: -1})
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = b.Ask(context.Background(), countQuery{})
	assert.ErrorIs(t, err, boom)

	_, err = NewQueryBus(nil).Ask(context.Background(), countQuery{})
	assert.ErrorIs(t, err, ErrHandlerNotFound)

	assert.Error(t, b.Register(countQuery{}, QueryHandlerFunc(nil)))
}
