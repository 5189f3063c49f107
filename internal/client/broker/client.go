// Package broker wraps the market-data-and-account HTTP API the trading loop
// reads from and places live orders through. Response parsing is defensive
// about field names because paper and live backends disagree on them.
package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

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
	return fmt.Sprintf("broker API error (%d): %s", e.Status, e.Body)
}

func NewClient(httpClient *http.Client, host string) *Client {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if host == "" {
		host = "http://localhost:9091"
	}
	return &Client{
		host:       host,
		httpClient: httpClient,
	}
}

type Account struct {
	Equity        decimal.Decimal
	Cash          decimal.Decimal
	DayPnL        decimal.Decimal
	UnrealizedPnL decimal.Decimal
}

type Position struct {
	Symbol        string          `json:"symbol"`
	Quantity      decimal.Decimal `json:"quantity"`
	AvgEntryPrice decimal.Decimal `json:"avg_entry_price"`
	MarketValue   decimal.Decimal `json:"market_value"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
}

type Order struct {
	OrderID  string
	Status   string
	Symbol   string
	Side     string
	Quantity decimal.Decimal
	AvgPrice decimal.Decimal
}

type Bar struct {
	Timestamp time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
}

func (c *Client) GetAccount(ctx context.Context, mode string) (*Account, error) {
	query := url.Values{}
	if mode != "" {
		query.Set("mode", mode)
	}
	body, err := c.doRequest(ctx, "/account", query)
	if err != nil {
		return nil, err
	}
	var root map[string]any
	if err := json.Unmarshal(body, &root); err != nil {
		return nil, fmt.Errorf("failed to decode account: %w", err)
	}
	if data, ok := root["data"].(map[string]any); ok {
		root = data
	}
	if acct, ok := root["account"].(map[string]any); ok {
		root = acct
	}
	out := &Account{}
	out.Equity = firstDecimal(root, "equity", "portfolio_value")
	out.Cash = firstDecimal(root, "cash", "buying_power")
	out.DayPnL = firstDecimal(root, "day_pnl", "daytrade_pl", "equity_change_today")
	out.UnrealizedPnL = firstDecimal(root, "unrealized_pnl", "unrealized_pl")
	return out, nil
}

func (c *Client) GetPositions(ctx context.Context, mode string) ([]Position, error) {
	query := url.Values{}
	if mode != "" {
		query.Set("mode", mode)
	}
	body, err := c.doRequest(ctx, "/positions", query)
	if err != nil {
		return nil, err
	}
	var out []Position
	if err := json.Unmarshal(body, &out); err == nil {
		return out, nil
	}
	var envelope struct {
		Positions []Position `json:"positions"`
		Data      []Position `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode positions: %w", err)
	}
	if envelope.Positions != nil {
		return envelope.Positions, nil
	}
	return envelope.Data, nil
}

// GetQuote returns the latest trade price for symbol.
func (c *Client) GetQuote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return decimal.Zero, fmt.Errorf("symbol is required")
	}
	query := url.Values{}
	query.Set("symbol", symbol)
	body, err := c.doRequest(ctx, "/quote", query)
	if err != nil {
		return decimal.Zero, err
	}
	var root map[string]any
	if err := json.Unmarshal(body, &root); err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode quote: %w", err)
	}
	if data, ok := root["data"].(map[string]any); ok {
		root = data
	}
	if quote, ok := root["quote"].(map[string]any); ok {
		root = quote
	}
	price := firstDecimal(root, "price", "last", "last_price", "p", "c")
	if price.IsZero() {
		return decimal.Zero, fmt.Errorf("no price for %s in quote response", symbol)
	}
	return price, nil
}

type CreateOrderRequest struct {
	Symbol    string          `json:"symbol"`
	Side      string          `json:"side"`
	OrderType string          `json:"order_type"`
	Quantity  decimal.Decimal `json:"quantity"`
	Mode      string          `json:"mode,omitempty"`
}

func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	if req.Symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if req.Quantity.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("quantity must be positive")
	}
	if req.OrderType == "" {
		req.OrderType = "market"
	}
	body, err := c.doJSON(ctx, http.MethodPost, "/orders", nil, req)
	if err != nil {
		return nil, err
	}
	var root map[string]any
	if err := json.Unmarshal(body, &root); err != nil {
		return nil, fmt.Errorf("failed to decode order: %w", err)
	}
	if data, ok := root["data"].(map[string]any); ok {
		root = data
	}
	if order, ok := root["order"].(map[string]any); ok {
		root = order
	}
	out := &Order{}
	out.OrderID = firstString(root, "order_id", "id", "client_order_id")
	out.Status = strings.ToLower(strings.TrimSpace(firstString(root, "status", "state")))
	out.Symbol = firstString(root, "symbol")
	out.Side = strings.ToLower(firstString(root, "side"))
	out.Quantity = firstDecimal(root, "filled_qty", "quantity", "qty")
	out.AvgPrice = firstDecimal(root, "filled_avg_price", "avg_price", "price")
	if out.OrderID == "" {
		return nil, fmt.Errorf("order id missing in response")
	}
	return out, nil
}

// GetBars returns up to limit recent bars for symbol, oldest first.
func (c *Client) GetBars(ctx context.Context, symbol, timeframe string, limit int) ([]Bar, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	query := url.Values{}
	query.Set("symbol", symbol)
	if timeframe != "" {
		query.Set("timeframe", timeframe)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	body, err := c.doRequest(ctx, "/bars", query)
	if err != nil {
		return nil, err
	}
	return parseBars(body)
}

func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return c.doJSON(ctx, http.MethodGet, path, query, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	if c == nil || c.httpClient == nil {
		return nil, fmt.Errorf("client is nil")
	}
	fullURL := c.host + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}

func parseBars(raw []byte) ([]Bar, error) {
	var rows []map[string]any
	if err := json.Unmarshal(raw, &rows); err != nil {
		var envelope struct {
			Bars []map[string]any `json:"bars"`
			Data []map[string]any `json:"data"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return nil, fmt.Errorf("failed to decode bars: %w", err)
		}
		rows = envelope.Bars
		if rows == nil {
			rows = envelope.Data
		}
	}
	out := make([]Bar, 0, len(rows))
	for _, row := range rows {
		b := Bar{
			Open:   firstDecimal(row, "open", "o"),
			High:   firstDecimal(row, "high", "h"),
			Low:    firstDecimal(row, "low", "l"),
			Close:  firstDecimal(row, "close", "c"),
			Volume: firstDecimal(row, "volume", "v"),
		}
		if s := firstString(row, "timestamp", "time", "t"); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				b.Timestamp = t.UTC()
			} else if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
				b.Timestamp = time.Unix(unix, 0).UTC()
			}
		}
		out = append(out, b)
	}
	return out, nil
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			s := strings.TrimSpace(fmt.Sprintf("%v", v))
			if s != "" && s != "<nil>" {
				return s
			}
		}
	}
	return ""
}

func firstDecimal(m map[string]any, keys ...string) decimal.Decimal {
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		s := strings.TrimSpace(fmt.Sprintf("%v", v))
		if s == "" || s == "<nil>" {
			continue
		}
		d, err := decimal.NewFromString(s)
		if err == nil {
			return d
		}
	}
	return decimal.Zero
}
