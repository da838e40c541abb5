package extraction

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/fault"
)

// Default configuration values.
const (
	defaultMaxTokens  = 8000
	defaultMaxRetries = 3
	retryBackoffStep  = 150 * time.Millisecond
)

// retryBackoff is the wait before attempt n: 150 ms before the first retry,
// 300 ms before the second. The first attempt waits nothing.
func retryBackoff(attempt int) time.Duration {
	return retryBackoffStep * time.Duration(attempt-1)
}

// Rate limiter defaults: 50 requests per minute.
const (
	defaultRateLimit = 50.0 / 60.0
	defaultBurst     = 5
)

// LLMClient is the capability the extractor needs from the model vendor.
type LLMClient interface {
	// CompleteText sends report text under the text prompt.
	CompleteText(ctx context.Context, model, text string) (string, error)
	// CompleteVision sends the PDF itself under the vision prompt.
	CompleteVision(ctx context.Context, model string, pdfData []byte) (string, error)
	// Available reports whether the client is configured.
	Available() bool
}

// visionLLMClient talks to the Anthropic-compatible messages API.
type visionLLMClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
}

// NewLLMClient creates the vendor client. callTimeout is the per-call soft
// limit; requests also honor context deadlines.
func NewLLMClient(apiKey, baseURL string, callTimeout time.Duration) LLMClient {
	if callTimeout <= 0 {
		callTimeout = 60 * time.Second
	}
	return &visionLLMClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: callTimeout,
		},
		limiter:    rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
		maxRetries: defaultMaxRetries,
	}
}

// Available returns true if the client is configured.
func (c *visionLLMClient) Available() bool {
	return c.apiKey != ""
}

// messagesRequest is the request format for the messages API.
type messagesRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	System      string        `json:"system,omitempty"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

// chatMessage is one conversation turn; content is a list of typed blocks so
// the same shape carries text and document attachments.
type chatMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type   string         `json:"type"`
	Text   string         `json:"text,omitempty"`
	Source *documentBlock `json:"source,omitempty"`
}

type documentBlock struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// messagesResponse is the response from the messages API.
type messagesResponse struct {
	ID      string `json:"id"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// messagesError is an error response from the messages API.
type messagesError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// CompleteText sends report text under the text prompt.
func (c *visionLLMClient) CompleteText(ctx context.Context, model, text string) (string, error) {
	req := messagesRequest{
		Model:       model,
		MaxTokens:   defaultMaxTokens,
		Temperature: 0, // deterministic extraction
		System:      textPrompt,
		Messages: []chatMessage{
			{Role: "user", Content: []contentBlock{{Type: "text", Text: text}}},
		},
	}
	return c.complete(ctx, req)
}

// CompleteVision sends the PDF itself under the vision prompt.
func (c *visionLLMClient) CompleteVision(ctx context.Context, model string, pdfData []byte) (string, error) {
	req := messagesRequest{
		Model:       model,
		MaxTokens:   defaultMaxTokens,
		Temperature: 0,
		System:      visionPrompt,
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []contentBlock{
					{
						Type: "document",
						Source: &documentBlock{
							Type:      "base64",
							MediaType: "application/pdf",
							Data:      base64.StdEncoding.EncodeToString(pdfData),
						},
					},
					{Type: "text", Text: "Parse this credit report."},
				},
			},
		},
	}
	return c.complete(ctx, req)
}

// complete runs the retry loop: up to maxRetries attempts with linear
// 150·i ms backoff. Only transport-class errors are retried; anything else
// ends the loop immediately.
func (c *visionLLMClient) complete(ctx context.Context, req messagesRequest) (string, error) {
	if !c.Available() {
		return "", fault.New(fault.ExtractionUnconfigured, "vision key not configured")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fault.Wrap(fault.LLMTransport, err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(retryBackoff(attempt)):
			case <-ctx.Done():
				return "", fault.Wrap(fault.LLMTransport, ctx.Err())
			}
		}

		text, err := c.doRequest(ctx, req)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !isRetryableError(err) {
			return "", err
		}
	}
	return "", fault.Wrap(fault.LLMTransport, fmt.Errorf("max retries exceeded: %w", lastErr))
}

// doRequest performs the actual HTTP request to the messages API.
func (c *visionLLMClient) doRequest(ctx context.Context, req messagesRequest) (string, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/messages", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-Key", c.apiKey)
	httpReq.Header.Set("Anthropic-Version", "2023-06-01")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &retryableError{err: fmt.Errorf("API request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &retryableError{err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &retryableError{err: fmt.Errorf("rate limited (429)")}
	}
	if resp.StatusCode >= 500 {
		return "", &retryableError{err: fmt.Errorf("server error (%d): %s", resp.StatusCode, string(body))}
	}
	if resp.StatusCode != http.StatusOK {
		var errResp messagesError
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
			return "", fault.New(fault.LLMRefusal, "API error (%d): %s", resp.StatusCode, errResp.Error.Message)
		}
		return "", fault.New(fault.LLMRefusal, "API error (%d)", resp.StatusCode)
	}

	var msgResp messagesResponse
	if err := json.Unmarshal(body, &msgResp); err != nil {
		return "", fault.Wrap(fault.JSONParse, fmt.Errorf("failed to parse response: %w", err))
	}
	if len(msgResp.Content) == 0 {
		return "", fault.New(fault.NoOutput, "empty response from API")
	}
	return msgResp.Content[0].Text, nil
}

// retryableError wraps an error to indicate it can be retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

// isRetryableError checks if an error should be retried.
func isRetryableError(err error) bool {
	for e := err; e != nil; {
		if _, ok := e.(*retryableError); ok {
			return true
		}
		if unwrapper, ok := e.(interface{ Unwrap() error }); ok {
			e = unwrapper.Unwrap()
		} else {
			break
		}
	}
	return false
}
