package handlers

import (
	"context"

	"esn-backend/application/ports"
	"esn-backend/application/queries"
	"esn-backend/application/services"
	"esn-backend/domain/config"
	"esn-backend/domain/core/valueobjects"

	"go.uber.org/zap"
)

// MutationOrchestrator runs one write against a customer's connection list:
// take the optional lock, load, mutate, then fan out to the view
// cache, the activity log and the event publisher.
type MutationOrchestrator struct {
	lists      *services.ConnectionListFactory
	locker     ports.Locker
	publisher  ports.EventPublisher
	eventStore ports.EventStore
	views      *services.ViewCache
	cfg        *config.DomainConfig
	logger     *zap.Logger
}

// NewMutationOrchestrator creates a new orchestrator. locker and eventStore may be nil.
func NewMutationOrchestrator(
	lists *services.ConnectionListFactory,
	locker ports.Locker,
	publisher ports.EventPublisher,
	eventStore ports.EventStore,
	views *services.ViewCache,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *MutationOrchestrator {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &MutationOrchestrator{
		lists:      lists,
		locker:     locker,
		publisher:  publisher,
		eventStore: eventStore,
		views:      views,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run loads the customer's list, hands it to mutate and, if mutate
// succeeded, publishes what changed. The returned view reflects the
// state after mutate.
func (o *MutationOrchestrator) Run(
	ctx context.Context,
	customerID valueobjects.CustomerID,
	mutate func(ctx context.Context, list *services.ConnectionList) error,
) (*queries.NetworkView, error) {
	release := o.acquire(ctx, customerID)
	defer release()

	list := o.lists.New(customerID)
	if _, err := list.Load(ctx); err != nil {
		return nil, err
	}

	if err := mutate(ctx, list); err != nil {
		// A failed write may still have been preceded by a reload that
		// saw newer state; drop whatever view is cached.
		o.views.Invalidate(ctx, customerID)
		return nil, err
	}

	o.afterWrite(ctx, customerID, list)
	return queries.NewNetworkView(list.Network(), string(list.Status())), nil
}

// acquire takes the per-customer lock when one is configured. Contention
// or lock backend errors are logged and the write proceeds unlocked: the
// store's version check still rejects stale writes.
func (o *MutationOrchestrator) acquire(ctx context.Context, customerID valueobjects.CustomerID) func() {
	if o.locker == nil {
		return func() {}
	}

	lock, err := o.locker.Acquire(ctx, "esn:"+customerID.String(), o.cfg.LockTTL, o.cfg.LockWaitTimeout)
	if err != nil {
		o.logger.Warn("Proceeding without customer lock",
			zap.String("customerID", customerID.String()),
			zap.Error(err),
		)
		return func() {}
	}

	return func() {
		// Release even if the request context was cancelled
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			o.logger.Warn("Failed to release customer lock",
				zap.String("customerID", customerID.String()),
				zap.Error(err),
			)
		}
	}
}

// afterWrite runs the side effects of a successful write. None of them
// can fail the command: the document is already stored.
func (o *MutationOrchestrator) afterWrite(
	ctx context.Context,
	customerID valueobjects.CustomerID,
	list *services.ConnectionList,
) {
	// Readers that loaded before this save cache under the old generation
	o.views.Invalidate(ctx, customerID)

	domainEvents := list.DrainEvents()
	if len(domainEvents) == 0 {
		return
	}

	if o.eventStore != nil {
		if err := o.eventStore.SaveEvents(ctx, domainEvents); err != nil {
			o.logger.Error("Failed to record connection activity",
				zap.String("customerID", customerID.String()),
				zap.Int("eventCount", len(domainEvents)),
				zap.Error(err),
			)
		}
	}

	if o.publisher != nil {
		if err := o.publisher.PublishBatch(ctx, domainEvents); err != nil {
			o.logger.Error("Failed to publish domain events",
				zap.String("customerID", customerID.String()),
				zap.Int("eventCount", len(domainEvents)),
				zap.Error(err),
			)
		}
	}
}
