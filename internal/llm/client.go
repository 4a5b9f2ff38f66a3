// Package llm provides a resilient client for an Ollama-style model service.
//
// The service is inconsistently versioned in the wild: the chat endpoint may
// be missing, the generate endpoint may answer with a single JSON object or a
// newline-delimited stream of partial objects, and bodies are occasionally
// malformed. The client absorbs all of that and reports failures as typed
// errors so callers can tell "the model said this" from "the call failed".
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/matome-io/matome/pkg/utils"
)

// ErrorKind classifies client failures.
type ErrorKind string

const (
	// KindConnection covers transport-level failures (dial, timeout).
	KindConnection ErrorKind = "connection"
	// KindStatus covers non-200 replies from the final attempted endpoint.
	KindStatus ErrorKind = "status"
	// KindParse covers bodies that defeat every parsing strategy.
	KindParse ErrorKind = "parse"
)

// Error is a typed client failure.
type Error struct {
	Kind   ErrorKind
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("llm %s error: %s", e.Kind, e.Detail)
}

// Service status values reported by CheckStatus.
const (
	StatusRunning  = "running"
	StatusNoModels = "running_but_no_models"
	StatusError    = "error"
)

// Status describes the model service's availability.
type Status struct {
	State   string   `json:"status"`
	Models  []string `json:"models,omitempty"`
	Message string   `json:"message,omitempty"`
}

// Per-request cap; generation against large prompts is slow.
const requestTimeout = 120 * time.Second

// Options control a single completion request. Zero values fall back to the
// client defaults.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
	Retries     int
	RetryDelay  time.Duration
}

const (
	defaultMaxTokens  = 1000
	defaultRetries    = 3
	defaultRetryDelay = 3 * time.Second
)

// Client talks to the model service. It keeps no state between calls.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger,
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  modelOptions  `json:"options"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type modelOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

type generateRequest struct {
	Model   string       `json:"model"`
	Prompt  string       `json:"prompt"`
	Options modelOptions `json:"options"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Complete sends prompt to the model and returns its reply. The chat endpoint
// is tried first; on a non-200 reply or an unparseable body it falls back to
// the generate endpoint within the same attempt. Transport failures and
// non-200 replies from the final endpoint are retried with a fixed delay;
// parse failures are not retryable (the service answered, we just could not
// read it).
func (c *Client) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Retries <= 0 {
		opts.Retries = defaultRetries
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetryDelay
	}

	var lastErr error
	for attempt := 0; attempt < opts.Retries; attempt++ {
		text, err := c.completeOnce(ctx, prompt, opts)
		if err == nil {
			return text, nil
		}
		lastErr = err

		var cerr *Error
		if errors.As(err, &cerr) && cerr.Kind == KindParse {
			return "", err
		}
		if attempt < opts.Retries-1 {
			c.logger.Warn("llm request failed, retrying",
				zap.Int("attempt", attempt+1),
				zap.Int("retries", opts.Retries),
				zap.Error(err),
			)
			select {
			case <-time.After(opts.RetryDelay):
			case <-ctx.Done():
				return "", &Error{Kind: KindConnection, Detail: ctx.Err().Error()}
			}
		}
	}
	return "", lastErr
}

func (c *Client) completeOnce(ctx context.Context, prompt string, opts Options) (string, error) {
	options := modelOptions{Temperature: opts.Temperature, NumPredict: opts.MaxTokens}

	chatBody, err := json.Marshal(chatRequest{
		Model:    opts.Model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
		Stream:   false,
		Options:  options,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	resp, err := c.post(ctx, "/api/chat", chatBody)
	if err != nil {
		return "", &Error{Kind: KindConnection, Detail: err.Error()}
	}
	if resp.StatusCode == http.StatusOK {
		var parsed chatResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&parsed)
		closeBody(resp)
		if decodeErr == nil {
			return parsed.Message.Content, nil
		}
		c.logger.Warn("chat endpoint body unparseable, falling back to generate", zap.Error(decodeErr))
	} else {
		closeBody(resp)
		c.logger.Debug("chat endpoint unavailable, falling back to generate",
			zap.Int("status", resp.StatusCode))
	}

	genBody, err := json.Marshal(generateRequest{Model: opts.Model, Prompt: prompt, Options: options})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	resp, err = c.post(ctx, "/api/generate", genBody)
	if err != nil {
		return "", &Error{Kind: KindConnection, Detail: err.Error()}
	}
	raw, err := io.ReadAll(resp.Body)
	closeBody(resp)
	if err != nil {
		return "", &Error{Kind: KindConnection, Detail: fmt.Sprintf("read generate body: %v", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &Error{Kind: KindStatus, Detail: fmt.Sprintf("generate endpoint returned status %d", resp.StatusCode)}
	}
	return c.parseGenerateBody(raw)
}

// parseGenerateBody handles the three response shapes the generate endpoint
// is known to produce: a single JSON object, an NDJSON stream of partial
// objects (last parseable line wins), and garbage that still embeds a
// response field.
func (c *Client) parseGenerateBody(raw []byte) (string, error) {
	body := string(raw)

	if strings.Count(body, "{") > 1 {
		last := ""
		found := false
		for _, line := range strings.Split(strings.TrimSpace(body), "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			var partial generateResponse
			if err := json.Unmarshal([]byte(line), &partial); err != nil {
				c.logger.Warn("skipping malformed stream line", zap.String("line", utils.Truncate(line, 50)))
				continue
			}
			last = partial.Response
			found = true
		}
		if !found {
			return "", &Error{Kind: KindParse, Detail: "no parseable line in streamed response"}
		}
		return last, nil
	}

	var single generateResponse
	if err := json.Unmarshal(raw, &single); err == nil {
		return single.Response, nil
	}

	// Best-effort salvage from raw text.
	if _, after, ok := strings.Cut(body, `"response":"`); ok {
		if value, _, ok := strings.Cut(after, `"`); ok {
			return value, nil
		}
	}
	return "", &Error{Kind: KindParse, Detail: "generate body is not valid JSON"}
}

func (c *Client) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.httpClient.Do(req)
}

func closeBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// ListModels returns the names of the models the service has loaded. Any
// failure yields an empty slice; availability questions go through
// CheckStatus.
func (c *Client) ListModels(ctx context.Context) []string {
	tags, err := c.fetchTags(ctx)
	if err != nil {
		c.logger.Warn("list models failed", zap.Error(err))
		return nil
	}
	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names
}

// CheckStatus probes the service with a tags request and reports whether it
// is reachable and has models loaded.
func (c *Client) CheckStatus(ctx context.Context) Status {
	tags, err := c.fetchTags(ctx)
	if err != nil {
		return Status{State: StatusError, Message: err.Error()}
	}
	if len(tags.Models) == 0 {
		return Status{State: StatusNoModels, Message: "service is running but no models were found"}
	}
	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return Status{State: StatusRunning, Models: names}
}

func (c *Client) fetchTags(ctx context.Context) (*tagsResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tags request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tags endpoint returned status %d", resp.StatusCode)
	}
	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decode tags response: %w", err)
	}
	return &tags, nil
}
