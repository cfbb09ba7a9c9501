package persistence

import (
	"context"
	"time"

	"esn-backend/application/ports"
	"esn-backend/domain/core/valueobjects"
	"esn-backend/pkg/observability"
)

// InstrumentedStore records metrics and trace subsegments around another store
type InstrumentedStore struct {
	next    ports.NetworkStore
	backend string
	metrics *observability.Collector
	tracer  *observability.Tracer
}

// NewInstrumentedStore wraps next. metrics and tracer may be nil.
func NewInstrumentedStore(
	next ports.NetworkStore,
	backend string,
	metrics *observability.Collector,
	tracer *observability.Tracer,
) *InstrumentedStore {
	return &InstrumentedStore{
		next:    next,
		backend: backend,
		metrics: metrics,
		tracer:  tracer,
	}
}

// Load implements ports.NetworkStore
func (s *InstrumentedStore) Load(ctx context.Context, customerID valueobjects.CustomerID) (*ports.Document, error) {
	var doc *ports.Document
	err := s.observe(ctx, "load", func(ctx context.Context) error {
		var err error
		doc, err = s.next.Load(ctx, customerID)
		return err
	})
	return doc, err
}

// Save implements ports.NetworkStore
func (s *InstrumentedStore) Save(ctx context.Context, customerID valueobjects.CustomerID, value []byte, expectedVersion string) (string, error) {
	var version string
	err := s.observe(ctx, "save", func(ctx context.Context) error {
		var err error
		version, err = s.next.Save(ctx, customerID, value, expectedVersion)
		return err
	})
	return version, err
}

func (s *InstrumentedStore) observe(ctx context.Context, operation string, fn func(context.Context) error) error {
	start := time.Now()

	var err error
	if s.tracer != nil {
		err = s.tracer.TraceFunction(ctx, s.backend+"."+operation, fn)
	} else {
		err = fn(ctx)
	}

	if s.metrics != nil {
		s.metrics.RecordStoreOperation(s.backend, operation, time.Since(start), err)
	}
	return err
}
