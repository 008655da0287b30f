package openai

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

	"github.com/Rrens/gladius/internal/assistant"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	betaHeader     = "assistants=v2"
	listLimit      = 100
)

// Client implements assistant.Backend for the OpenAI Assistants API
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewClient creates a new Assistants API client. An empty baseURL selects the public API.
func NewClient(apiKey, baseURL string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, &assistant.ConfigurationError{Missing: []string{"OPENAI_API_KEY"}}
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}, nil
}

type threadResponse struct {
	ID string `json:"id"`
}

type messageRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	RunID     string `json:"run_id"`
	CreatedAt int64  `json:"created_at"`
	Content   []struct {
		Type string `json:"type"`
		Text struct {
			Value string `json:"value"`
		} `json:"text"`
	} `json:"content"`
}

type messageListResponse struct {
	Data    []messageResponse `json:"data"`
	HasMore bool              `json:"has_more"`
}

type runRequest struct {
	AssistantID string `json:"assistant_id"`
}

type runResponse struct {
	ID          string `json:"id"`
	ThreadID    string `json:"thread_id"`
	AssistantID string `json:"assistant_id"`
	Status      string `json:"status"`
	CreatedAt   int64  `json:"created_at"`
	LastError   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"last_error"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// CreateThread opens a new thread
func (c *Client) CreateThread(ctx context.Context) (string, error) {
	var resp threadResponse
	if err := c.do(ctx, "create_thread", http.MethodPost, "/threads", struct{}{}, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// PostMessage appends a message to a thread
func (c *Client) PostMessage(ctx context.Context, threadID string, role assistant.Role, text string) (*assistant.Message, error) {
	var resp messageResponse
	path := "/threads/" + url.PathEscape(threadID) + "/messages"
	req := messageRequest{Role: string(role), Content: text}
	if err := c.do(ctx, "post_message", http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	msg := toMessage(resp)
	return &msg, nil
}

// CreateRun starts the assistant on a thread
func (c *Client) CreateRun(ctx context.Context, threadID, assistantID string) (*assistant.Run, error) {
	var resp runResponse
	path := "/threads/" + url.PathEscape(threadID) + "/runs"
	if err := c.do(ctx, "create_run", http.MethodPost, path, runRequest{AssistantID: assistantID}, &resp); err != nil {
		return nil, err
	}
	return toRun(resp), nil
}

// GetRun fetches the current state of a run
func (c *Client) GetRun(ctx context.Context, threadID, runID string) (*assistant.Run, error) {
	var resp runResponse
	path := "/threads/" + url.PathEscape(threadID) + "/runs/" + url.PathEscape(runID)
	if err := c.do(ctx, "get_run", http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return toRun(resp), nil
}

// CancelRun asks the backend to abort an in-flight run
func (c *Client) CancelRun(ctx context.Context, threadID, runID string) error {
	var resp runResponse
	path := "/threads/" + url.PathEscape(threadID) + "/runs/" + url.PathEscape(runID) + "/cancel"
	return c.do(ctx, "cancel_run", http.MethodPost, path, struct{}{}, &resp)
}

// ListMessages returns the most recent thread messages, newest first
func (c *Client) ListMessages(ctx context.Context, threadID string) ([]assistant.Message, error) {
	var resp messageListResponse
	query := url.Values{}
	query.Set("order", "desc")
	query.Set("limit", fmt.Sprintf("%d", listLimit))
	path := "/threads/" + url.PathEscape(threadID) + "/messages?" + query.Encode()
	if err := c.do(ctx, "list_messages", http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	messages := make([]assistant.Message, 0, len(resp.Data))
	for _, m := range resp.Data {
		messages = append(messages, toMessage(m))
	}
	return messages, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &assistant.BackendError{Op: op, Err: fmt.Errorf("failed to marshal request: %w", err)}
		}
		reader = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &assistant.BackendError{Op: op, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("OpenAI-Beta", betaHeader)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return &assistant.BackendError{Op: op, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		be := &assistant.BackendError{Op: op, StatusCode: resp.StatusCode}
		var apiErr errorResponse
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&apiErr); err == nil {
			be.Code = apiErr.Error.Code
			if be.Code == "" {
				be.Code = apiErr.Error.Type
			}
			be.Message = apiErr.Error.Message
		}
		return be
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &assistant.BackendError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

func toRun(r runResponse) *assistant.Run {
	run := &assistant.Run{
		ID:          r.ID,
		ThreadID:    r.ThreadID,
		AssistantID: r.AssistantID,
		Status:      assistant.RunStatus(r.Status),
	}
	if r.CreatedAt > 0 {
		run.CreatedAt = time.Unix(r.CreatedAt, 0)
	}
	if r.LastError != nil {
		run.LastError = &assistant.RunError{Code: r.LastError.Code, Message: r.LastError.Message}
	}
	return run
}

func toMessage(m messageResponse) assistant.Message {
	msg := assistant.Message{
		ID:    m.ID,
		Role:  assistant.Role(m.Role),
		RunID: m.RunID,
	}
	if m.CreatedAt > 0 {
		msg.CreatedAt = time.Unix(m.CreatedAt, 0)
	}
	for _, part := range m.Content {
		if part.Type == "text" {
			msg.Parts = append(msg.Parts, part.Text.Value)
		}
	}
	return msg
}
