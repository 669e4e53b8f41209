// Package content implements the typed client for the ClassTrack content
// server. Every operation is a fixed GraphQL document sent to a single
// endpoint as {query, variables, operationName}.
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/classtrack/classtrack/internal/domain/shared"
	"github.com/classtrack/classtrack/pkg/circuitbreaker"
	"github.com/classtrack/classtrack/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// TokenSource supplies the bearer token for each request. An empty token
// sends no Authorization header.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource with a fixed value.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// ClientConfig contains configuration for the content API client.
type ClientConfig struct {
	// Endpoint is the full GraphQL URL, e.g. http://localhost:3000/api/graphql
	Endpoint string

	// Timeout is the HTTP request timeout
	Timeout time.Duration

	// Circuit breaker settings
	BreakerThreshold int
	BreakerTimeout   time.Duration

	// Tokens supplies the bearer token (optional)
	Tokens TokenSource

	// HTTPClient overrides the default client (optional)
	HTTPClient *http.Client

	// Logger for structured logging
	Logger *slog.Logger
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(endpoint string) ClientConfig {
	return ClientConfig{
		Endpoint:         endpoint,
		Timeout:          15 * time.Second,
		BreakerThreshold: 5,
		BreakerTimeout:   30 * time.Second,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the content API client. It never retries; failures are
// returned to the caller as *shared.NetworkError or *GraphQLError.
type Client struct {
	config         ClientConfig
	httpClient     *http.Client
	logger         *slog.Logger
	circuitBreaker *circuitbreaker.CircuitBreaker
}

// NewClient creates a new content API client.
func NewClient(config ClientConfig) *Client {
	log := logger.OrDefault(config.Logger).With(logger.Component("content-client"))

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	cb := circuitbreaker.ContentAPIBreaker(config.BreakerThreshold, config.BreakerTimeout,
		func(name string, from, to circuitbreaker.State) {
			log.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
		circuitbreaker.WithIsFailure(isTransportFailure))

	return &Client{
		config:         config,
		httpClient:     httpClient,
		logger:         log,
		circuitBreaker: cb,
	}
}

// BreakerState reports the circuit breaker state.
func (c *Client) BreakerState() circuitbreaker.State {
	return c.circuitBreaker.State()
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// execute runs op with vars and decodes data into out. Only transport
// failures trip the circuit breaker; GraphQL errors mean the server is up.
func (c *Client) execute(ctx context.Context, op operation, vars any, out any) error {
	start := time.Now()

	err := c.circuitBreaker.Execute(ctx, func(ctx context.Context) error {
		return c.doSingleRequest(ctx, op, vars, out)
	})

	switch {
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		err = &shared.NetworkError{Op: op.name, Err: err}
	case err != nil:
		var netErr *shared.NetworkError
		var gqlErr *GraphQLError
		if !errors.As(err, &netErr) && !errors.As(err, &gqlErr) {
			err = &shared.NetworkError{Op: op.name, Err: err}
		}
	}

	if err != nil {
		c.logger.Debug("content api request failed",
			logger.Operation(op.name), logger.Latency(time.Since(start)), logger.Err(err))
		return err
	}

	c.logger.Debug("content api request",
		logger.Operation(op.name), logger.Latency(time.Since(start)))
	return nil
}

func isTransportFailure(err error) bool {
	var netErr *shared.NetworkError
	return errors.As(err, &netErr) && !errors.Is(err, context.Canceled)
}

// doSingleRequest performs a single HTTP round trip.
func (c *Client) doSingleRequest(ctx context.Context, op operation, vars any, out any) error {
	body, err := json.Marshal(Request{
		Query:         op.document,
		Variables:     vars,
		OperationName: op.name,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return &shared.NetworkError{Op: op.name, Err: fmt.Errorf("create request: %w", err)}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if c.config.Tokens != nil {
		token, err := c.config.Tokens.Token(ctx)
		if err != nil {
			return &shared.NetworkError{Op: op.name, Err: fmt.Errorf("token: %w", err)}
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &shared.NetworkError{Op: op.name, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &shared.NetworkError{Op: op.name, Err: fmt.Errorf("read response: %w", err)}
	}

	var envelope Response
	decodeErr := json.Unmarshal(respBody, &envelope)

	// A GraphQL error body wins over the status code.
	if decodeErr == nil && len(envelope.Errors) > 0 {
		return &GraphQLError{Operation: op.name, Errors: envelope.Errors}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &shared.NetworkError{Op: op.name, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	if decodeErr != nil {
		return &shared.NetworkError{Op: op.name, Err: fmt.Errorf("decode response: %w", decodeErr)}
	}

	if out != nil {
		if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
			return &shared.NetworkError{Op: op.name, Err: errors.New("response has no data")}
		}
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return &shared.NetworkError{Op: op.name, Err: fmt.Errorf("decode data: %w", err)}
		}
	}

	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH
// ══════════════════════════════════════════════════════════════════════════════

// IsHealthy checks that the endpoint answers a trivial query.
func (c *Client) IsHealthy(ctx context.Context) bool {
	var out struct {
		Typename string `json:"__typename"`
	}
	return c.doSingleRequest(ctx, opHealth, nil, &out) == nil
}
