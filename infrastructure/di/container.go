package di

import (
	"esn-backend/application/commands/bus"
	querybus "esn-backend/application/queries/bus"
	"esn-backend/infrastructure/config"
	"esn-backend/interfaces/http/rest"
	"esn-backend/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	Metrics     *observability.Collector
	MetricsSink *observability.CloudWatchSink
	Tracer      *observability.Tracer
	CommandBus  *bus.CommandBus
	QueryBus    *querybus.QueryBus
	Router      *rest.Router
}
