// Package client issues the dispatch and registry HTTP calls against the
// Command Center backend.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client is a minimal backend HTTP client.
type Client struct {
	BaseURL    string
	Token      string
	UserID     string
	HTTPClient *http.Client
}

func New(baseURL, token, userID string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		UserID:     userID,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError wraps non-2xx responses. Its message is derived from the HTTP
// status text so the dashboard can surface it verbatim.
type APIError struct {
	StatusCode int
	Status     string
}

func (e *APIError) Error() string {
	return e.Status
}

type dispatchRequest struct {
	Prompt string `json:"prompt"`
	UserID string `json:"userId"`
}

type dispatchResponse struct {
	TaskID string `json:"taskId"`
}

// Dispatch creates a task from a prompt and returns its identifier. No retry
// is attempted; the caller may resubmit.
func (c *Client) Dispatch(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(dispatchRequest{Prompt: prompt, UserID: c.UserID})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/dispatch", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", &APIError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	var out dispatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if out.TaskID == "" {
		return "", fmt.Errorf("dispatch response missing taskId")
	}
	return out.TaskID, nil
}
