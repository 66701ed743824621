// Package summarize turns story clusters into bias-aware multi-perspective
// summaries through an OpenAI-compatible chat-completions endpoint, with
// ordered model fallback and a deterministic placeholder when no credential
// is configured.
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"duckwire/internal/config"
	"duckwire/internal/logger"
)

// DefaultModels are tried in order; the first model returning a non-empty
// completion wins.
var DefaultModels = []string{
	"meta-llama/llama-3.1-8b-instruct:free",
	"mistralai/mistral-7b-instruct:free",
	"google/gemma-7b-it:free",
	"qwen/qwen-2-7b-instruct:free",
}

const (
	defaultBaseURL     = "https://openrouter.ai/api/v1"
	defaultAppName     = "DuckWire/Clustering"
	defaultTemperature = 0.2
	defaultMaxTokens   = 700

	rateLimitBackoff = 800 * time.Millisecond
	failureBackoff   = 300 * time.Millisecond
)

// ChatMessage is one message in a chat-completions request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completion is the outcome of one chat call.
type Completion struct {
	Model       string
	Content     string
	Placeholder bool
}

// Client calls the generation endpoint with model-list fallback.
type Client struct {
	apiKey      string
	baseURL     string
	models      []string
	temperature float64
	maxTokens   int
	appName     string
	httpClient  *http.Client
	sleep       func(time.Duration)
}

// NewClient builds a Client from configuration. An empty API key is valid:
// every call then returns the deterministic placeholder without touching
// the network.
func NewClient(cfg config.AI) *Client {
	models := cfg.Models
	if len(models) == 0 {
		models = DefaultModels
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	appName := cfg.AppName
	if appName == "" {
		appName = defaultAppName
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	return &Client{
		apiKey:      cfg.APIKey,
		baseURL:     baseURL,
		models:      models,
		temperature: temperature,
		maxTokens:   maxTokens,
		appName:     appName,
		httpClient:  &http.Client{Timeout: config.ParseDuration(cfg.Timeout, 60*time.Second)},
		sleep:       time.Sleep,
	}
}

// ChatCompletion tries each candidate model in order. Rate-limit responses
// (429/503) back off and move to the next model; other failures are
// recorded and the next model is tried. When every model fails, the last
// error is returned.
func (c *Client) ChatCompletion(ctx context.Context, messages []ChatMessage) (Completion, error) {
	if len(messages) == 0 {
		return Completion{}, fmt.Errorf("messages required")
	}

	if c.apiKey == "" {
		return c.placeholder(messages), nil
	}

	var lastErr error
	for i, model := range c.models {
		content, err := c.call(ctx, model, messages)
		if err == nil {
			return Completion{Model: model, Content: content}, nil
		}
		if herr, ok := err.(*statusError); ok && herr.rateLimited() {
			c.backoff(ctx, rateLimitBackoff*time.Duration(i+1))
			continue
		}
		lastErr = err
		logger.Warn("model call failed", "model", model, "error", err.Error())
		c.backoff(ctx, failureBackoff*time.Duration(i+1))
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("all candidate models failed")
	}
	return Completion{}, lastErr
}

// placeholder keeps the pipeline alive without a credential: a valid
// summary document derived from the prompt alone.
func (c *Client) placeholder(messages []ChatMessage) Completion {
	headline := "Cluster Summary"
	for _, m := range messages {
		if m.Role == "user" && m.Content != "" {
			if len(m.Content) > 80 {
				headline = m.Content[:80]
			} else {
				headline = m.Content
			}
			break
		}
	}
	doc, _ := json.Marshal(map[string]any{
		"headline": headline,
		"summary":  map[string][]string{"left": {}, "center": {}, "right": {}},
		"coverage": map[string]int{},
	})
	return Completion{Model: "local/placeholder", Content: string(doc), Placeholder: true}
}

type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("generation endpoint returned %d: %s", e.status, e.body)
}

func (e *statusError) rateLimited() bool {
	return e.status == http.StatusTooManyRequests || e.status == http.StatusServiceUnavailable
}

func (c *Client) call(ctx context.Context, model string, messages []ChatMessage) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"model":       model,
		"messages":    messages,
		"temperature": c.temperature,
		"max_tokens":  c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("HTTP-Referer", c.appName)
	req.Header.Set("X-Title", c.appName)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return "", &statusError{status: resp.StatusCode, body: string(body)}
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty completion from %s", model)
	}
	return parsed.Choices[0].Message.Content, nil
}

func (c *Client) backoff(ctx context.Context, d time.Duration) {
	if ctx.Err() != nil {
		return
	}
	c.sleep(d)
}
