package observability

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

const (
	// PutMetricData accepts at most this many datums per call
	maxDatumsPerCall = 1000

	// Datums beyond this are dropped until the next flush
	maxPendingDatums = 10000
)

// PutMetricDataAPI is the part of the CloudWatch client the sink needs
type PutMetricDataAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchSink buffers measurements recorded by a Collector and ships
// them with PutMetricData. Lambda flushes after every invocation; a
// long-running server calls Run. A nil sink ignores everything.
type CloudWatchSink struct {
	client    PutMetricDataAPI
	namespace string
	logger    *zap.Logger
	now       func() time.Time

	mu      sync.Mutex
	pending []types.MetricDatum
	dropped int
}

// NewCloudWatchSink creates a sink writing to namespace
func NewCloudWatchSink(client PutMetricDataAPI, namespace string, logger *zap.Logger) *CloudWatchSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CloudWatchSink{
		client:    client,
		namespace: namespace,
		logger:    logger,
		now:       time.Now,
	}
}

// Pending returns the number of buffered datums
func (s *CloudWatchSink) Pending() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// add buffers one datum. dims are name/value pairs.
func (s *CloudWatchSink) add(name string, value float64, unit types.StandardUnit, dims ...string) {
	if s == nil {
		return
	}

	dimensions := make([]types.Dimension, 0, len(dims)/2)
	for i := 0; i+1 < len(dims); i += 2 {
		dimensions = append(dimensions, types.Dimension{
			Name:  aws.String(dims[i]),
			Value: aws.String(dims[i+1]),
		})
	}
	datum := types.MetricDatum{
		MetricName: aws.String(name),
		Dimensions: dimensions,
		Value:      aws.Float64(value),
		Unit:       unit,
		Timestamp:  aws.Time(s.now()),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) >= maxPendingDatums {
		s.dropped++
		return
	}
	s.pending = append(s.pending, datum)
}

func (s *CloudWatchSink) count(name string, dims ...string) {
	s.add(name, 1, types.StandardUnitCount, dims...)
}

func (s *CloudWatchSink) latency(name string, d time.Duration, dims ...string) {
	s.add(name, float64(d.Milliseconds()), types.StandardUnitMilliseconds, dims...)
}

// Flush sends every buffered datum. Datums of a failed call are not retried.
func (s *CloudWatchSink) Flush(ctx context.Context) error {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	pending := s.pending
	dropped := s.dropped
	s.pending = nil
	s.dropped = 0
	s.mu.Unlock()

	if dropped > 0 {
		s.logger.Warn("Dropped metrics over the buffer limit", zap.Int("dropped", dropped))
	}

	var errs []error
	for start := 0; start < len(pending); start += maxDatumsPerCall {
		end := start + maxDatumsPerCall
		if end > len(pending) {
			end = len(pending)
		}

		_, err := s.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(s.namespace),
			MetricData: pending[start:end],
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to put %d metrics: %w", end-start, err))
		}
	}
	return errors.Join(errs...)
}

// Run flushes every interval until ctx is done
func (s *CloudWatchSink) Run(ctx context.Context, interval time.Duration) {
	if s == nil {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Flush(ctx); err != nil {
				s.logger.Warn("Failed to flush metrics", zap.Error(err))
			}
		}
	}
}
