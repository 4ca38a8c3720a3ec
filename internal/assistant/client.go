// Package assistant is the HTTP client for the drafting assistant service,
// the external system that performs the four reasoning capabilities of the
// pipeline (clarification, schema generation, audit, contract generation).
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nmorel/lexidraft/internal/contract"
)

const defaultTimeout = 120 * time.Second

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithModel pins the assistant model for all requests.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

// WithTimeout sets the request timeout. Ignored when a custom HTTP client is
// supplied.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// Client is a custom HTTP client for the assistant API. It satisfies
// contract.DraftingService.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	timeout    time.Duration
	httpClient *http.Client
}

var _ contract.DraftingService = (*Client)(nil)

// NewClient creates a new assistant API client.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	return c
}

// Clarify sends a clarification request.
func (c *Client) Clarify(ctx context.Context, req *contract.ClarifyRequest) (*contract.ClarifyResponse, error) {
	var resp contract.ClarifyResponse
	if err := c.post(ctx, "/v1/clarify", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GenerateSchema sends a form-schema generation request.
func (c *Client) GenerateSchema(ctx context.Context, req *contract.SchemaRequest) (*contract.SchemaResponse, error) {
	var resp contract.SchemaResponse
	if err := c.post(ctx, "/v1/form-schema", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AuditSchema sends a schema audit request.
func (c *Client) AuditSchema(ctx context.Context, req *contract.AuditRequest) (*contract.AuditResponse, error) {
	var resp contract.AuditResponse
	if err := c.post(ctx, "/v1/audit", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GenerateDocument sends a contract generation request.
func (c *Client) GenerateDocument(ctx context.Context, req *contract.DocumentRequest) (*contract.DocumentResponse, error) {
	var resp contract.DocumentResponse
	if err := c.post(ctx, "/v1/contract", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, path string, req, out any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if apiErr, err := ParseErrorResponse(respBody); err == nil && apiErr != nil {
			return apiErr
		}
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("User-Agent", "lexidraft/1.0")
	if c.model != "" {
		req.Header.Set("x-assistant-model", c.model)
	}
}
