package services

import (
	"esn-backend/application/ports"
	"esn-backend/domain/config"
	"esn-backend/domain/core/valueobjects"

	"go.uber.org/zap"
)

// ConnectionListFactory creates one ConnectionList per customer request
type ConnectionListFactory struct {
	store  ports.NetworkStore
	codec  ports.SnapshotCodec
	cfg    *config.DomainConfig
	logger *zap.Logger
}

// NewConnectionListFactory creates a new factory
func NewConnectionListFactory(
	store ports.NetworkStore,
	codec ports.SnapshotCodec,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *ConnectionListFactory {
	return &ConnectionListFactory{
		store:  store,
		codec:  codec,
		cfg:    cfg,
		logger: logger,
	}
}

// New returns an unloaded list for the customer
func (f *ConnectionListFactory) New(customerID valueobjects.CustomerID) *ConnectionList {
	return NewConnectionList(customerID, f.store, f.codec, f.cfg, f.logger)
}
