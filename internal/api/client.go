// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/jeranaias/strands-chat/internal/model"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultTimeout bounds non-streaming API requests.
	DefaultTimeout = 60 * time.Second

	// PageSize is the page length requested from list endpoints.
	PageSize = 20

	// maxResponseSize caps non-streaming response bodies.
	maxResponseSize = 10 * 1024 * 1024
)

var (
	// Shared HTTP client with connection pooling for plain API requests.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		Timeout: DefaultTimeout,
	}

	// sharedStreamingClient is used for streaming requests. It carries no
	// timeout; stream lifetime is controlled through the request context.
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrUnauthorized indicates the bearer token was rejected.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")
)

// HTTPError is an API failure that does not map to a sentinel error.
type HTTPError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error (HTTP %d)", e.Status)
}

// apiErrorResponse is the backend's error body shape.
type apiErrorResponse struct {
	Detail  string `json:"detail"`
	Message string `json:"message"`
}

// =============================================================================
// TOKEN PROVIDER
// =============================================================================

// TokenProvider supplies the bearer token for a request. Implementations may
// refresh expired credentials; Token is called once per request.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

type staticToken string

func (t staticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// StaticToken returns a TokenProvider that always yields the same token.
func StaticToken(token string) TokenProvider {
	return staticToken(strings.TrimSpace(token))
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the chat backend.
type Client struct {
	baseURL      string
	tokens       TokenProvider
	httpClient   *http.Client
	streamClient *http.Client
	limiter      *rate.Limiter
	logger       *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the pooled request client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithStreamClient overrides the pooled streaming client.
func WithStreamClient(hc *http.Client) Option {
	return func(c *Client) { c.streamClient = hc }
}

// WithRateLimit throttles outgoing requests to rps with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithLogger sets the structured logger for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a backend client for the given base URL.
func NewClient(baseURL string, tokens TokenProvider, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		tokens:       tokens,
		httpClient:   sharedHTTPClient,
		streamClient: sharedStreamingClient,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

type createChatRequest struct {
	ResourceID string `json:"resourceId"`
}

// CreateChat allocates a new conversation. The conversation ID is minted
// client-side and sent to the server, so the caller can navigate to it
// before the round trip completes; the returned record always carries the
// minted ID.
func (c *Client) CreateChat(ctx context.Context) (model.Conversation, error) {
	id := uuid.NewString()
	var conv model.Conversation
	if err := c.doJSON(ctx, http.MethodPost, "chat", nil, createChatRequest{ResourceID: id}, &conv); err != nil {
		return model.Conversation{}, fmt.Errorf("failed to create conversation: %w", err)
	}
	conv.ResourceID = id
	return conv, nil
}

// DeleteChat removes a conversation and its messages.
func (c *Client) DeleteChat(ctx context.Context, conversationID string) error {
	if err := c.doJSON(ctx, http.MethodDelete, "chat/"+url.PathEscape(conversationID), nil, nil, nil); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}

type chatListResponse struct {
	Items            []model.Conversation `json:"items"`
	LastEvaluatedKey string               `json:"lastEvaluatedKey"`
}

// ListChats fetches one page of the caller's conversations, newest first.
// Pass an empty cursor for the first page.
func (c *Client) ListChats(ctx context.Context, cursor string) (Page[model.Conversation], error) {
	var out chatListResponse
	if err := c.doJSON(ctx, http.MethodGet, "chat", pageQuery(cursor), nil, &out); err != nil {
		return Page[model.Conversation]{}, fmt.Errorf("failed to list conversations: %w", err)
	}
	return Page[model.Conversation]{Items: out.Items, NextCursor: out.LastEvaluatedKey}, nil
}

// =============================================================================
// MESSAGES
// =============================================================================

// GetMessages fetches a conversation's full transcript in order. The
// endpoint returns a bare JSON array; there is no pagination here.
func (c *Client) GetMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	path := "chat/" + url.PathEscape(conversationID) + "/messages"
	var out []model.Message
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	return out, nil
}

type messagesRequest struct {
	Messages []model.Message `json:"messages"`
}

// CreateMessages commits messages to a conversation.
func (c *Client) CreateMessages(ctx context.Context, conversationID string, msgs []model.Message) error {
	path := "chat/" + url.PathEscape(conversationID) + "/messages"
	if err := c.doJSON(ctx, http.MethodPost, path, nil, messagesRequest{Messages: msgs}, nil); err != nil {
		return fmt.Errorf("failed to create messages: %w", err)
	}
	return nil
}

// UpdateMessages overwrites previously committed messages, matched by
// resource ID.
func (c *Client) UpdateMessages(ctx context.Context, conversationID string, msgs []model.Message) error {
	path := "chat/" + url.PathEscape(conversationID) + "/messages"
	if err := c.doJSON(ctx, http.MethodPut, path, nil, messagesRequest{Messages: msgs}, nil); err != nil {
		return fmt.Errorf("failed to update messages: %w", err)
	}
	return nil
}

// =============================================================================
// TITLES AND TOOL SELECTION
// =============================================================================

type titleRequest struct {
	Messages []model.Message `json:"messages"`
}

type titleResponse struct {
	Title json.RawMessage `json:"title"`
}

// CreateTitle asks the backend to derive and store a short title for the
// conversation from its opening messages. The server persists the title
// itself; the returned value is informational.
func (c *Client) CreateTitle(ctx context.Context, conversationID string, msgs []model.Message) (string, error) {
	path := "chat/" + url.PathEscape(conversationID) + "/title"
	var out titleResponse
	if err := c.doJSON(ctx, http.MethodPost, path, nil, titleRequest{Messages: msgs}, &out); err != nil {
		return "", fmt.Errorf("failed to create title: %w", err)
	}
	return parseTitle(out.Title), nil
}

// parseTitle accepts both title encodings the backend emits: a plain string,
// or a full model message whose first text block holds the title.
func parseTitle(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var m model.Message
	if json.Unmarshal(raw, &m) == nil {
		return m.Text()
	}
	return ""
}

type selectToolsRequest struct {
	Prompt string `json:"prompt"`
}

type selectToolsResponse struct {
	Reasoning        bool `json:"reasoning"`
	ImageGeneration  bool `json:"imageGeneration"`
	WebSearch        bool `json:"webSearch"`
	AWSDocumentation bool `json:"awsDocumentation"`
	CodeInterpreter  bool `json:"codeInterpreter"`
	WebBrowser       bool `json:"webBrowser"`
}

// SelectTools asks the backend which tool modes suit the prompt. The result
// lists enabled tool identifiers in canonical order.
func (c *Client) SelectTools(ctx context.Context, prompt string) ([]string, error) {
	var out selectToolsResponse
	if err := c.doJSON(ctx, http.MethodPost, "chat/select-tools", nil, selectToolsRequest{Prompt: prompt}, &out); err != nil {
		return nil, fmt.Errorf("failed to select tools: %w", err)
	}

	var tools []string
	for _, t := range []struct {
		name    string
		enabled bool
	}{
		{model.ToolReasoning, out.Reasoning},
		{model.ToolImageGeneration, out.ImageGeneration},
		{model.ToolWebSearch, out.WebSearch},
		{model.ToolAWSDocumentation, out.AWSDocumentation},
		{model.ToolCodeInterpreter, out.CodeInterpreter},
		{model.ToolWebBrowser, out.WebBrowser},
	} {
		if t.enabled {
			tools = append(tools, t.name)
		}
	}
	return tools, nil
}

// =============================================================================
// PARAMETER AND GALLERY
// =============================================================================

// GetParameter fetches the deployment parameter: available models and
// feature toggles. The client is unusable without it.
func (c *Client) GetParameter(ctx context.Context) (model.Parameter, error) {
	var out model.Parameter
	if err := c.doJSON(ctx, http.MethodGet, "parameter", nil, nil, &out); err != nil {
		return model.Parameter{}, fmt.Errorf("failed to get parameter: %w", err)
	}
	return out, nil
}

type galleryListResponse struct {
	Items            []model.GalleryItem `json:"items"`
	LastEvaluatedKey string              `json:"lastEvaluatedKey"`
}

// ListGallery fetches one page of generated images, newest first.
func (c *Client) ListGallery(ctx context.Context, cursor string) (Page[model.GalleryItem], error) {
	var out galleryListResponse
	if err := c.doJSON(ctx, http.MethodGet, "gallery", pageQuery(cursor), nil, &out); err != nil {
		return Page[model.GalleryItem]{}, fmt.Errorf("failed to list gallery: %w", err)
	}
	return Page[model.GalleryItem]{Items: out.Items, NextCursor: out.LastEvaluatedKey}, nil
}

// =============================================================================
// STREAMING
// =============================================================================

// StreamRequest is the body of a streaming turn request.
type StreamRequest struct {
	ConversationID   string        `json:"conversationId"`
	ModelID          string        `json:"modelId"`
	ModelRegion      string        `json:"modelRegion"`
	UserMessage      model.Message `json:"userMessage"`
	AssistantMessage model.Message `json:"assistantMessage"`
}

// OpenStream starts a streaming turn and returns the raw response body.
// The caller owns the body and must close it; cancelling ctx aborts the
// stream. Decoding is the stream package's job.
func (c *Client) OpenStream(ctx context.Context, sr StreamRequest) (io.ReadCloser, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(sr)
	if err != nil {
		return nil, fmt.Errorf("failed to encode stream request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/stream", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create stream request: %w", err)
	}
	if err := c.setHeaders(ctx, req); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stream request failed: %w", err)
	}

	c.logger.DebugContext(ctx, "stream opened",
		"status", resp.StatusCode,
		"duration", time.Since(start))

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		return nil, c.statusError(resp.StatusCode, data)
	}
	return resp.Body, nil
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

func pageQuery(cursor string) url.Values {
	q := url.Values{"limit": {strconv.Itoa(PageSize)}}
	if cursor != "" {
		q.Set("exclusive_start_key", cursor)
	}
	return q
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait failed: %w", err)
	}
	return nil
}

func (c *Client) setHeaders(ctx context.Context, req *http.Request) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return nil
}

// doJSON performs one JSON request. body and out may be nil.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	u := c.baseURL + "/" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if err := c.setHeaders(ctx, req); err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "api request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// statusError maps an HTTP error response to the client error taxonomy.
func (c *Client) statusError(status int, body []byte) error {
	var apiErr apiErrorResponse
	msg := ""
	if err := json.Unmarshal(body, &apiErr); err == nil {
		msg = apiErr.Detail
		if msg == "" {
			msg = apiErr.Message
		}
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		if msg != "" {
			return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
		}
		return ErrUnauthorized
	case http.StatusNotFound:
		if msg != "" {
			return fmt.Errorf("%w: %s", ErrNotFound, msg)
		}
		return ErrNotFound
	default:
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		return &HTTPError{Status: status, Message: msg}
	}
}
