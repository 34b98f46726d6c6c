package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dailyshorts/internal/content"
	"dailyshorts/internal/services"
)

const (
	defaultBaseURL     = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel       = "gemini-1.5-flash"
	defaultHTTPTimeout = 60 * time.Second
	stageName          = "plan"
)

// Config captures the runtime settings required to talk to Gemini.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// Client wraps the Gemini generateContent endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
	now        func() time.Time
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

// WithClock overrides the clock used to stamp the prompt date.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient constructs a Gemini client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
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
	return client
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.APIKey != ""
}

// GeneratePlan asks Gemini for the plan of the video published on date.
// The returned plan is raw model output; callers normalize it.
func (c *Client) GeneratePlan(ctx context.Context, date time.Time) (content.ContentPlan, error) {
	var plan content.ContentPlan
	if !c.Configured() {
		return plan, services.Wrap(services.ErrNotConfigured, stageName, "generate", "gemini api key required (set GEMINI_API_KEY)", nil)
	}
	if date.IsZero() {
		date = c.now()
	}
	text, err := c.generate(ctx, BuildPlanPrompt(date), 0.9)
	if err != nil {
		return plan, err
	}
	plan, err = decodePlan(text)
	if err != nil {
		return plan, services.Wrap(services.ErrInvalidResponse, stageName, "decode plan", "model returned malformed plan", err)
	}
	return plan, nil
}

// HealthCheck issues a fast request to verify the API key and model are usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.Configured() {
		return services.Wrap(services.ErrNotConfigured, stageName, "health", "gemini api key required", nil)
	}
	text, err := c.generate(ctx, `Respond with {"ok":true}`, 0)
	if err != nil {
		return err
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := DecodeJSON(text, &parsed); err != nil || !parsed.OK {
		return services.Wrap(services.ErrInvalidResponse, stageName, "health", "unexpected health response", err)
	}
	return nil
}

type generateRequest struct {
	Contents         []contentBlock    `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type contentBlock struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text,omitempty"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	CandidateCount   int     `json:"candidateCount,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      contentBlock `json:"content"`
		FinishReason string       `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("gemini request: http %d: %s", e.StatusCode, summarizePayloadSnippet(e.Body))
}

func (c *Client) generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	payload := generateRequest{
		Contents: []contentBlock{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			Temperature:      temperature,
			CandidateCount:   1,
			ResponseMimeType: "application/json",
		},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", services.Wrap(services.ErrInvalidResponse, stageName, "encode request", "", err)
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.cfg.BaseURL, c.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return "", services.Wrap(services.ErrInvalidResponse, stageName, "build request", "", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrInvalidResponse, stageName, "request", fmt.Sprintf("http error (timeout=%s)", c.httpClient.Timeout), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", services.Wrap(services.ErrInvalidResponse, stageName, "read body", "", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", services.Wrap(services.ErrInvalidResponse, stageName, "request", "", &httpStatusError{StatusCode: resp.StatusCode, Body: string(body)})
	}

	var decoded generateResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", services.Wrap(services.ErrInvalidResponse, stageName, "decode response", summarizePayloadSnippet(string(body)), err)
	}
	if decoded.Error != nil {
		return "", services.Wrap(services.ErrInvalidResponse, stageName, "request", "api error: "+strings.TrimSpace(decoded.Error.Message), nil)
	}
	if decoded.PromptFeedback != nil && decoded.PromptFeedback.BlockReason != "" {
		return "", services.Wrap(services.ErrInvalidResponse, stageName, "request", "prompt blocked: "+decoded.PromptFeedback.BlockReason, nil)
	}
	for _, candidate := range decoded.Candidates {
		var b strings.Builder
		for _, p := range candidate.Content.Parts {
			b.WriteString(p.Text)
		}
		if text := strings.TrimSpace(b.String()); text != "" {
			return text, nil
		}
	}
	finish := ""
	if len(decoded.Candidates) > 0 {
		finish = decoded.Candidates[0].FinishReason
	}
	return "", services.Wrap(services.ErrInvalidResponse, stageName, "request",
		fmt.Sprintf("empty content (finish_reason=%q, response_snippet=%s)", finish, summarizePayloadSnippet(string(body))), nil)
}
