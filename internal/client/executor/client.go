// Package executor talks to the agent work executor, the hosted function that
// generates deliverable content. The executor owns the in_progress → review
// transition; this client only dispatches tasks and reports acceptance.
package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
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
	return fmt.Sprintf("executor API error (%d): %s", e.Status, e.Body)
}

func NewClient(httpClient *http.Client, host string) *Client {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if host == "" {
		host = "http://localhost:9090"
	}
	return &Client{
		host:       host,
		httpClient: httpClient,
	}
}

type TaskRequest struct {
	UserID        string          `json:"user_id"`
	ProjectID     string          `json:"project_id"`
	DeliverableID string          `json:"deliverable_id"`
	AgentID       string          `json:"agent_id"`
	TaskType      string          `json:"task_type"`
	PhaseNumber   int             `json:"phase_number"`
	InputData     json.RawMessage `json:"input_data,omitempty"`
}

type TaskResponse struct {
	Success bool   `json:"success"`
	TaskID  string `json:"task_id,omitempty"`
	Message string `json:"message,omitempty"`
}

// Dispatch submits a deliverable generation task. A nil error means the
// executor accepted the work, not that the content is ready.
func (c *Client) Dispatch(ctx context.Context, req TaskRequest) (*TaskResponse, error) {
	if strings.TrimSpace(req.DeliverableID) == "" {
		return nil, fmt.Errorf("deliverable_id is required")
	}
	if strings.TrimSpace(req.ProjectID) == "" {
		return nil, fmt.Errorf("project_id is required")
	}
	body, err := c.doJSON(ctx, http.MethodPost, "/tasks", req)
	if err != nil {
		return nil, err
	}
	var out TaskResponse
	if len(body) > 0 {
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("failed to decode executor response: %w", err)
		}
	}
	if !out.Success && out.Message != "" {
		return &out, fmt.Errorf("executor rejected task: %s", out.Message)
	}
	return &out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any) ([]byte, error) {
	if c == nil || c.httpClient == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.host+path, body)
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
