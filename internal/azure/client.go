// Package azure issues streaming chat-completion requests against Azure
// OpenAI deployments and drives retry/fallback across them.
package azure

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

	"github.com/tempopilot/coach-gateway/internal/config"
	"github.com/tempopilot/coach-gateway/internal/domain"
	"github.com/tempopilot/coach-gateway/internal/logging"
	"github.com/tempopilot/coach-gateway/internal/tools"
)

// callTimeout bounds the time from request start to response headers.
// Once the stream is open, reading it is not subject to this deadline.
const callTimeout = 30 * time.Second

// Request sampling parameters are fixed for this gateway.
const (
	maxTokens   = 1000
	temperature = 0.7
)

// Stream is an open upstream token stream. The caller owns it and must Close.
type Stream struct {
	Body       io.ReadCloser
	Deployment string
	cancel     context.CancelFunc
}

// Close releases the underlying response body and its request context.
func (s *Stream) Close() error {
	err := s.Body.Close()
	if s.cancel != nil {
		s.cancel()
	}
	return err
}

// ChatStreamer starts one streaming chat-completion attempt.
type ChatStreamer interface {
	StreamChat(ctx context.Context, deployment string, msgs []domain.Message, defs []tools.Definition) (*Stream, error)
}

// Client is the HTTP client for Azure OpenAI chat completions.
type Client struct {
	apiKey     string
	endpoint   string // normalized to origin
	apiVersion string
	http       *http.Client
	log        *logging.Logger

	pathWarning bool
}

// NewClient builds a client from the Azure config. The endpoint is
// normalized to its origin; a configured path segment is remembered so the
// terminal config error can hint at it.
func NewClient(cfg config.AzureConfig, log *logging.Logger) *Client {
	endpoint, pathWarning := normalizeEndpoint(cfg.Endpoint)
	return &Client{
		apiKey:      cfg.APIKey,
		endpoint:    endpoint,
		apiVersion:  cfg.APIVersion,
		http:        &http.Client{},
		log:         log.Sub("azure"),
		pathWarning: pathWarning,
	}
}

// PathWarning reports whether the configured endpoint carried path segments.
func (c *Client) PathWarning() bool { return c.pathWarning }

// normalizeEndpoint strips any path from the endpoint URL, keeping only the
// origin. Deployments that accidentally include /openai/... segments would
// otherwise produce doubled paths and spurious 404s.
func normalizeEndpoint(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return strings.TrimRight(raw, "/"), false
	}
	trimmed := strings.Trim(u.Path, "/")
	return u.Scheme + "://" + u.Host, trimmed != ""
}

type chatToolDef struct {
	Type     string           `json:"type"`
	Function tools.Definition `json:"function"`
}

type chatRequest struct {
	Messages    []domain.Message `json:"messages"`
	Tools       []chatToolDef    `json:"tools,omitempty"`
	ToolChoice  string           `json:"tool_choice,omitempty"`
	Stream      bool             `json:"stream"`
	MaxTokens   int              `json:"max_tokens"`
	Temperature float64          `json:"temperature"`
}

// StreamChat issues one POST against the given deployment and returns the
// raw open stream on 2xx. defs may be nil when resuming with tool results
// already folded into messages; tools and tool_choice are then omitted.
func (c *Client) StreamChat(ctx context.Context, deployment string, msgs []domain.Message, defs []tools.Definition) (*Stream, error) {
	body := chatRequest{
		Messages:    msgs,
		Stream:      true,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
	if len(defs) > 0 {
		body.ToolChoice = "auto"
		for _, d := range defs {
			body.Tools = append(body.Tools, chatToolDef{Type: "function", Function: d})
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling chat request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		c.endpoint, url.PathEscape(deployment), url.QueryEscape(c.apiVersion))

	// The timer bounds time-to-headers only; it is disarmed once the stream
	// is open so long completions are not cut off at 30s.
	callCtx, cancel := context.WithCancel(ctx)
	timer := time.AfterFunc(callTimeout, cancel)

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		timer.Stop()
		cancel()
		return nil, fmt.Errorf("creating chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		timer.Stop()
		cancel()
		return nil, &UpstreamError{Deployment: deployment, Err: err}
	}
	timer.Stop()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		cancel()
		c.log.Warn().
			Str("deployment", deployment).
			Int("status", resp.StatusCode).
			Str("url", endpoint).
			Str("body", string(errBody)).
			Msg("upstream attempt failed")
		return nil, &UpstreamError{
			Deployment: deployment,
			Status:     resp.StatusCode,
			Body:       string(errBody),
		}
	}

	c.log.Info().Str("deployment", deployment).Msg("azure streaming started")
	return &Stream{Body: resp.Body, Deployment: deployment, cancel: cancel}, nil
}
