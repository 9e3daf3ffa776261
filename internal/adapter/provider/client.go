package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/TimeTravelerFromNow/openai-helpers/internal/domain"
)

// Client is the HTTP client for the assistants API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new provider client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// APIError represents the error details.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}

type submitToolOutputsRequest struct {
	ToolOutputs []domain.ToolResult `json:"tool_outputs"`
}

type messageList struct {
	Data []domain.Message `json:"data"`
}

// RetrieveRun fetches a run.
func (c *Client) RetrieveRun(ctx context.Context, threadID, runID string) (*domain.Run, error) {
	var run domain.Run
	if err := c.do(ctx, http.MethodGet, c.runPath(threadID, runID), nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// SubmitToolOutputs submits one batch of tool outputs.
func (c *Client) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []domain.ToolResult) (*domain.Run, error) {
	if outputs == nil {
		outputs = []domain.ToolResult{}
	}
	var run domain.Run
	if err := c.do(ctx, http.MethodPost, c.runPath(threadID, runID)+"/submit_tool_outputs", submitToolOutputsRequest{ToolOutputs: outputs}, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListMessages lists a thread's messages, newest first.
func (c *Client) ListMessages(ctx context.Context, threadID string) ([]domain.Message, error) {
	var list messageList
	if err := c.do(ctx, http.MethodGet, c.threadPath(threadID)+"/messages?order=desc", nil, &list); err != nil {
		return nil, err
	}
	return list.Data, nil
}

// DeleteThread deletes a thread.
func (c *Client) DeleteThread(ctx context.Context, threadID string) (bool, error) {
	var result domain.ThreadDeleted
	if err := c.do(ctx, http.MethodDelete, c.threadPath(threadID), nil, &result); err != nil {
		return false, err
	}
	return result.Deleted, nil
}

// RetrieveAssistant fetches an assistant.
func (c *Client) RetrieveAssistant(ctx context.Context, assistantID string) (*domain.Assistant, error) {
	var assistant domain.Assistant
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/v1/assistants/%s", c.baseURL, url.PathEscape(assistantID)), nil, &assistant); err != nil {
		return nil, err
	}
	return &assistant, nil
}

func (c *Client) threadPath(threadID string) string {
	return fmt.Sprintf("%s/v1/threads/%s", c.baseURL, url.PathEscape(threadID))
}

func (c *Client) runPath(threadID, runID string) string {
	return fmt.Sprintf("%s/runs/%s", c.threadPath(threadID), url.PathEscape(runID))
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := string(respBody)
		var errResp ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != nil {
			msg = fmt.Sprintf("%s (type: %s)", errResp.Error.Message, errResp.Error.Type)
		}
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: provider API error [%d]: %s", ErrNotFound, resp.StatusCode, msg)
		}
		return fmt.Errorf("provider API error [%d]: %s", resp.StatusCode, msg)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("OpenAI-Beta", "assistants=v2")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
