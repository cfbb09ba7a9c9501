package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"esn-backend/pkg/common"
	pkgerrors "esn-backend/pkg/errors"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// API modes
const (
	// ModeCustomerAccount calls the Customer Account API with the shopper's token
	ModeCustomerAccount = "customer-account"
	// ModeAdmin calls the Admin API with the app's access token
	ModeAdmin = "admin"
)

// maxResponseBytes bounds how much of a GraphQL response is read
const maxResponseBytes = 4 << 20

// ClientConfig configures the GraphQL client
type ClientConfig struct {
	Mode        string
	Endpoint    string
	AccessToken string
	Timeout     time.Duration
	Breaker     BreakerConfig
}

// BreakerConfig holds the circuit breaker settings
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns a default configuration for the circuit breaker
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "shopify-graphql",
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// GraphQLError is one entry of a response's top-level errors
type GraphQLError struct {
	Message    string                 `json:"message"`
	Extensions map[string]interface{} `json:"extensions,omitempty"`
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

// GraphQLClient posts GraphQL operations to one Shopify endpoint through a
// circuit breaker
type GraphQLClient struct {
	httpClient *http.Client
	cfg        ClientConfig
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

// NewGraphQLClient creates a new client. A nil httpClient gets one with cfg.Timeout.
func NewGraphQLClient(cfg ClientConfig, httpClient *http.Client, logger *zap.Logger) *GraphQLClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeCustomerAccount
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Breaker.Name == "" {
		cfg.Breaker = DefaultBreakerConfig()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	bc := cfg.Breaker
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        bc.Name,
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < bc.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= bc.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			// Only transport failures count against the upstream
			return err == nil || !isTransportFailure(err)
		},
	})

	return &GraphQLClient{
		httpClient: httpClient,
		cfg:        cfg,
		breaker:    breaker,
		logger:     logger,
	}
}

// Mode returns the API mode the client was configured for
func (c *GraphQLClient) Mode() string {
	return c.cfg.Mode
}

// BreakerState returns the current circuit breaker state
func (c *GraphQLClient) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// Do executes one GraphQL operation and decodes its data into out
func (c *GraphQLClient) Do(ctx context.Context, query string, variables map[string]interface{}, out interface{}) error {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.post(ctx, query, variables)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return pkgerrors.NewUnavailableError("shopify").WithCause(err)
		}
		return err
	}

	resp := result.(*graphQLResponse)
	if len(resp.Errors) > 0 {
		messages := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			messages = append(messages, e.Message)
		}
		return pkgerrors.NewExternalError("shopify", errors.New(strings.Join(messages, "; "))).
			WithCode("GRAPHQL_ERROR")
	}

	if out == nil || len(resp.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return pkgerrors.NewExternalError("shopify", fmt.Errorf("decode data: %w", err))
	}
	return nil
}

func (c *GraphQLClient) post(ctx context.Context, query string, variables map[string]interface{}) (*graphQLResponse, error) {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, pkgerrors.NewInternalError("failed to encode GraphQL request").WithCause(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.NewInternalError("failed to build GraphQL request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if err := c.authorize(ctx, req); err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := c.httpClient.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return nil, &transportError{err: pkgerrors.NewTimeoutError("shopify graphql").WithCause(err)}
		}
		return nil, &transportError{err: pkgerrors.NewNetworkError("shopify request failed", err)}
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, &transportError{err: pkgerrors.NewNetworkError("failed to read shopify response", err)}
	}

	c.logger.Debug("GraphQL call",
		zap.Int("status", res.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	switch {
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return nil, pkgerrors.NewUnauthorizedError("shopify rejected the access token")
	case res.StatusCode == http.StatusTooManyRequests:
		return nil, pkgerrors.NewUnavailableError("shopify").WithCode("UPSTREAM_THROTTLED")
	case res.StatusCode >= 500:
		return nil, &transportError{err: pkgerrors.NewExternalError("shopify",
			fmt.Errorf("status %d", res.StatusCode))}
	case res.StatusCode >= 300:
		return nil, pkgerrors.NewExternalError("shopify", fmt.Errorf("status %d", res.StatusCode))
	}

	var resp graphQLResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, pkgerrors.NewExternalError("shopify", fmt.Errorf("decode response: %w", err))
	}
	return &resp, nil
}

// authorize sets the credential header for the configured API mode
func (c *GraphQLClient) authorize(ctx context.Context, req *http.Request) error {
	switch c.cfg.Mode {
	case ModeAdmin:
		if c.cfg.AccessToken == "" {
			return pkgerrors.NewInternalError("admin access token is not configured")
		}
		req.Header.Set("X-Shopify-Access-Token", c.cfg.AccessToken)
	default:
		token, ok := common.GetAccessToken(ctx)
		if !ok {
			token = c.cfg.AccessToken
		}
		if token == "" {
			return pkgerrors.NewUnauthorizedError("no customer access token")
		}
		req.Header.Set("Authorization", token)
	}
	return nil
}

// transportError marks failures that should trip the breaker
type transportError struct {
	err *pkgerrors.AppError
}

func (e *transportError) Error() string { return e.err.Error() }

func (e *transportError) Unwrap() error { return e.err }

func isTransportFailure(err error) bool {
	var te *transportError
	return errors.As(err, &te)
}
