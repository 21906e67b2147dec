package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Client is the capability the catalog matcher and the mutation executor
// depend on to reach the remote catalog. Execute runs one GraphQL operation
// and resolves its response into the normalized {data, errors} shape.
type Client interface {
	Execute(ctx context.Context, operation string, variables map[string]any) (*Result, error)
}

// HTTPClient is the production Client backed by the Admin GraphQL API.
type HTTPClient struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPClient creates a Client for the configured shop.
func NewHTTPClient(cfg Config, logger *zap.Logger) *HTTPClient {
	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}
	return &HTTPClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(timeout) * time.Second,
		},
		logger: logger,
	}
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// Execute posts the operation to the GraphQL endpoint and normalizes the
// response. Network failures and non-2xx statuses are returned as plain
// errors; callers classify them as transport errors.
func (c *HTTPClient) Execute(ctx context.Context, operation string, variables map[string]any) (*Result, error) {
	payload, err := json.Marshal(graphqlRequest{Query: operation, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.cfg.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote call failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("remote call failed: HTTP %d", resp.StatusCode)
	}

	result, err := Normalize(resp)
	if err != nil {
		return nil, err
	}

	if len(result.Errors) > 0 {
		c.logger.Debug("Remote operation reported errors",
			zap.String("errors", result.ErrorMessages()))
	}
	return result, nil
}
