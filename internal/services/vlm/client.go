package vlm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"

	"framediff/internal/services"
)

const (
	defaultBaseURL         = "https://api.openai.com/v1/chat/completions"
	defaultModel           = "gpt-4.1-mini"
	defaultHTTPTimeout     = 60 * time.Second
	defaultMaxOutputTokens = 200
)

// Config captures the runtime settings required to talk to the model service.
type Config struct {
	APIKey          string
	BaseURL         string
	Model           string
	TimeoutSeconds  int
	MaxOutputTokens int
}

// Client wraps the chat completion API with bounded retry.
type Client struct {
	cfg        Config
	httpClient *http.Client
	policy     RetryPolicy
	sleeper    func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Client) {
		c.policy = policy
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a model client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:          strings.TrimSpace(cfg.APIKey),
			BaseURL:         strings.TrimSpace(cfg.BaseURL),
			Model:           strings.TrimSpace(cfg.Model),
			TimeoutSeconds:  cfg.TimeoutSeconds,
			MaxOutputTokens: cfg.MaxOutputTokens,
		},
		httpClient: &http.Client{Timeout: timeout},
		policy:     DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.cfg.Model == "" {
		client.cfg.Model = defaultModel
	}
	if client.cfg.MaxOutputTokens <= 0 {
		client.cfg.MaxOutputTokens = defaultMaxOutputTokens
	}
	return client
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.cfg.Model
}

// DescribeSingle asks the model to describe one image under the given instruction.
// A maxTokens value <= 0 uses the configured default budget.
func (c *Client) DescribeSingle(ctx context.Context, img image.Image, prompt string, maxTokens int) (string, error) {
	if img == nil {
		return "", services.Wrap(services.ErrRequest, "vlm describe single", "", "image required", nil)
	}
	url, err := EncodeDataURL(img)
	if err != nil {
		return "", services.Wrap(services.ErrRequest, "vlm describe single", "encode image", "", err)
	}
	return c.describe(ctx, "vlm describe single", prompt, maxTokens, url)
}

// DescribePair asks the model to describe the change from prev to curr.
// Images are sent in order: previous first, current second.
func (c *Client) DescribePair(ctx context.Context, prev, curr image.Image, prompt string, maxTokens int) (string, error) {
	if prev == nil || curr == nil {
		return "", services.Wrap(services.ErrRequest, "vlm describe pair", "", "both images required", nil)
	}
	prevURL, err := EncodeDataURL(prev)
	if err != nil {
		return "", services.Wrap(services.ErrRequest, "vlm describe pair", "encode previous image", "", err)
	}
	currURL, err := EncodeDataURL(curr)
	if err != nil {
		return "", services.Wrap(services.ErrRequest, "vlm describe pair", "encode current image", "", err)
	}
	return c.describe(ctx, "vlm describe pair", prompt, maxTokens, prevURL, currURL)
}

// HealthCheck issues a fast text-only ping to verify the API key and model are usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.describe(ctx, "vlm health", "Reply with the single word OK.", 5)
	return err
}

func (c *Client) describe(ctx context.Context, op, prompt string, maxTokens int, imageURLs ...string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", services.Wrap(services.ErrRequest, op, "", "prompt required", nil)
	}
	if c.cfg.APIKey == "" {
		return "", services.Wrap(services.ErrConfiguration, op, "", "api key required", nil)
	}
	if maxTokens <= 0 {
		maxTokens = c.cfg.MaxOutputTokens
	}
	content := make([]contentPart, 0, len(imageURLs)+1)
	content = append(content, contentPart{Type: "text", Text: prompt})
	for _, url := range imageURLs {
		content = append(content, contentPart{Type: "image_url", ImageURL: &imageURL{URL: url}})
	}
	payload := chatCompletionRequest{
		Model:     c.cfg.Model,
		Messages:  []chatMessage{{Role: "user", Content: content}},
		MaxTokens: maxTokens,
	}
	return c.completionWithRetry(ctx, payload, op)
}

type chatCompletionRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message completionMessage `json:"message"`
		// Some providers return the streaming schema even when stream=false.
		Delta        completionMessage `json:"delta"`
		Text         string            `json:"text"`
		FinishReason string            `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type completionMessage struct {
	Content string `json:"content"`
	Refusal string `json:"refusal"`
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, summarizePayloadSnippet(e.Body))
}

type emptyContentError struct {
	FinishReason string
	Refusal      string
	Snippet      string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf(
		"empty content (finish_reason=%q, refusal=%q, response_snippet=%s)",
		e.FinishReason,
		e.Refusal,
		e.Snippet,
	)
}

func (c *Client) completionWithRetry(ctx context.Context, payload chatCompletionRequest, op string) (string, error) {
	attempts := c.policy.Attempts()
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		content, err := c.completeOnce(ctx, payload, op)
		if err == nil {
			return content, nil
		}
		kind := classifyFailure(ctx, err)
		if kind == FailurePermanent {
			return "", err
		}
		lastErr = err
		if attempt == attempts-1 {
			break
		}
		delay, retry := c.policy.Backoff(kind, attempt)
		if !retry {
			return "", err
		}
		if err := c.sleep(ctx, delay); err != nil {
			return "", err
		}
	}

	if lastErr == nil {
		lastErr = errors.New("unknown retry failure")
	}
	return "", services.Wrap(services.ErrServiceExhausted, op, "", fmt.Sprintf("failed after %d attempts", attempts), lastErr)
}

func (c *Client) completeOnce(ctx context.Context, payload chatCompletionRequest, op string) (string, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", services.Wrap(services.ErrRequest, op, "encode body", "", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return "", services.Wrap(services.ErrRequest, op, "new request", "", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%s: %w", op, ctx.Err())
		}
		return "", services.Wrap(services.ErrTransient, op, fmt.Sprintf("http error (timeout=%s)", c.timeoutDuration()), "", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, op, "read body", "", err)
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		statusErr := &httpStatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return "", services.Wrap(services.ErrRateLimited, op, "", "", statusErr)
		case resp.StatusCode == http.StatusRequestTimeout, resp.StatusCode >= http.StatusInternalServerError:
			return "", services.Wrap(services.ErrTransient, op, "", "", statusErr)
		default:
			return "", services.Wrap(services.ErrRequest, op, "", "", statusErr)
		}
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", services.Wrap(services.ErrTransient, op, "decode response", summarizePayloadSnippet(string(body)), err)
	}
	if completion.Error != nil {
		return "", services.Wrap(services.ErrTransient, op, "api error", strings.TrimSpace(completion.Error.Message), nil)
	}
	content, finishReason, refusal := extractCompletion(completion)
	if content == "" {
		return "", services.Wrap(services.ErrTransient, op, "", "", &emptyContentError{
			FinishReason: finishReason,
			Refusal:      refusal,
			Snippet:      summarizePayloadSnippet(string(body)),
		})
	}
	return content, nil
}

func extractCompletion(completion chatCompletionResponse) (content, finishReason, refusal string) {
	for _, choice := range completion.Choices {
		if finishReason == "" {
			finishReason = strings.TrimSpace(choice.FinishReason)
		}
		if refusal == "" {
			refusal = firstNonEmpty(choice.Message.Refusal, choice.Delta.Refusal)
		}
		if text := firstNonEmpty(choice.Message.Content, choice.Delta.Content, choice.Text); text != "" {
			return text, finishReason, refusal
		}
	}
	return "", finishReason, refusal
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func (c *Client) timeoutDuration() time.Duration {
	if c.httpClient == nil || c.httpClient.Timeout <= 0 {
		return defaultHTTPTimeout
	}
	return c.httpClient.Timeout
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if delay <= 0 {
		return nil
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func summarizePayloadSnippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	clean := strings.Join(strings.Fields(trimmed), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
