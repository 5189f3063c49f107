// Package gateway submits orders to the trade gateway, the function that owns
// validation, risk re-checks and broker routing for order flow. Alerts and
// manual actions go through here; DCA and momentum fills go to the broker
// directly.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
)

type Client struct {
	host       string
	httpClient *http.Client
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway API error (%d): %s", e.Status, e.Body)
}

func NewClient(httpClient *http.Client, host string) *Client {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if host == "" {
		host = "http://localhost:9092"
	}
	return &Client{
		host:       host,
		httpClient: httpClient,
	}
}

type SubmitOrderRequest struct {
	ProjectID      string          `json:"project_id"`
	InternalUserID string          `json:"internal_user_id"`
	Symbol         string          `json:"symbol"`
	Side           string          `json:"side"`
	OrderType      string          `json:"order_type"`
	Quantity       decimal.Decimal `json:"quantity"`
	Source         string          `json:"source"`
}

type SubmitOrderResponse struct {
	Success bool   `json:"success"`
	OrderID string `json:"order_id,omitempty"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}

func (c *Client) SubmitOrder(ctx context.Context, req SubmitOrderRequest) (*SubmitOrderResponse, error) {
	if c == nil || c.httpClient == nil {
		return nil, fmt.Errorf("client is nil")
	}
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	if req.Symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if strings.TrimSpace(req.ProjectID) == "" {
		return nil, fmt.Errorf("project_id is required")
	}
	if req.Quantity.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("quantity must be positive")
	}
	if req.OrderType == "" {
		req.OrderType = "market"
	}
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/orders", bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	var out SubmitOrderResponse
	if len(body) > 0 {
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("failed to decode gateway response: %w", err)
		}
	}
	if !out.Success && out.Message != "" {
		return &out, fmt.Errorf("gateway rejected order: %s", out.Message)
	}
	return &out, nil
}
