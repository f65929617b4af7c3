package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"

	"github.com/nconklindev/sheetdiff/internal/log"
)

const DefaultBaseURL = "https://api.openai.com/v1"

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 4 << 20

// Config configures an OpenAIClient.
type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	// RetryWaitMin and RetryWaitMax bound the backoff between attempts. Zero
	// keeps the retry library's defaults.
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// OpenAIClient implements Client for OpenAI-compatible chat completion APIs.
// Transport errors, 429 and 5xx responses are retried with backoff.
type OpenAIClient struct {
	apiKey  string
	baseURL string
	http    *retryablehttp.Client
}

// NewOpenAIClient creates a client from cfg.
func NewOpenAIClient(cfg Config) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.MaxRetries
	rc.Logger = log.Leveled{}
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.HTTPClient.Timeout = cfg.Timeout
	if cfg.RetryWaitMin > 0 {
		rc.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		rc.RetryWaitMax = cfg.RetryWaitMax
	}

	return &OpenAIClient{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    rc,
	}, nil
}

// Complete sends req to {base}/chat/completions and returns the trimmed
// content of the first choice.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Model) == "" {
		return "", ErrMissingModel
	}

	raw, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", raw)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"model":    req.Model,
		"status":   resp.StatusCode,
		"duration": time.Since(start).Round(time.Millisecond),
		"tokens":   gjson.GetBytes(body, "usage.total_tokens").Int(),
	}).Debug("completion finished")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if msg := gjson.GetBytes(body, "error.message"); msg.Exists() {
			return "", &APIError{StatusCode: resp.StatusCode, Message: msg.String()}
		}
		return "", &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("unmarshal response: invalid JSON")
	}
	content := gjson.GetBytes(body, "choices.0.message.content")
	if !content.Exists() || strings.TrimSpace(content.String()) == "" {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(content.String()), nil
}

// APIError is a non-2xx answer from the completion service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("completion api http %d: %s", e.StatusCode, e.Message)
}
