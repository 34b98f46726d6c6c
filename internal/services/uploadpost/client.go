// Package uploadpost publishes a video to several platforms in one request
// through the upload-post.com aggregator.
package uploadpost

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dailyshorts/internal/services"
)

const (
	defaultEndpoint = "https://api.upload-post.com/api/upload"
	defaultTimeout  = 300 * time.Second
	stageName       = "publishing"
)

// Config describes aggregator credentials.
type Config struct {
	APIKey   string
	User     string
	Endpoint string
	Timeout  time.Duration
}

// Ack is the aggregator's acknowledgement of a submission.
type Ack struct {
	Success   bool
	RequestID string
	Message   string
	Raw       json.RawMessage
}

// Client posts multipart uploads to the aggregator.
type Client struct {
	cfg        Config
	httpClient *http.Client
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

// New constructs an aggregator client.
func New(cfg Config, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.User = strings.TrimSpace(cfg.User)
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	client := &Client{cfg: cfg, httpClient: &http.Client{}}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Configured reports whether both the API key and user are set.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.APIKey != "" && c.cfg.User != ""
}

// Upload submits the artifact once for every listed platform.
func (c *Client) Upload(ctx context.Context, artifactPath, title string, platforms []string) (Ack, error) {
	if !c.Configured() {
		return Ack{}, services.Wrap(services.ErrNotConfigured, stageName, "aggregator", "api key and user are required", nil)
	}
	if len(platforms) == 0 {
		return Ack{}, services.Wrap(services.ErrPublishFailed, stageName, "aggregator", "at least one platform is required", nil)
	}
	file, err := os.Open(artifactPath)
	if err != nil {
		return Ack{}, services.Wrap(services.ErrPublishFailed, stageName, "aggregator", "open artifact", err)
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	body, contentType := streamForm(file, title, c.cfg.User, platforms)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, body)
	if err != nil {
		return Ack{}, services.Wrap(services.ErrPublishFailed, stageName, "aggregator", "build request", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Apikey "+c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Ack{}, services.Wrap(services.ErrPublishFailed, stageName, "aggregator", "request", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Ack{}, services.Wrap(services.ErrPublishFailed, stageName, "aggregator", "read response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Ack{}, services.Wrap(services.ErrPublishFailed, stageName, "aggregator",
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))), nil)
	}
	return parseAck(raw)
}

// streamForm writes the multipart body through a pipe so the artifact is never
// held in memory.
func streamForm(file *os.File, title, user string, platforms []string) (io.Reader, string) {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		err := writeForm(writer, file, title, user, platforms)
		if err == nil {
			err = writer.Close()
		}
		_ = pw.CloseWithError(err)
	}()
	return pr, writer.FormDataContentType()
}

func writeForm(writer *multipart.Writer, file *os.File, title, user string, platforms []string) error {
	if err := writer.WriteField("title", title); err != nil {
		return err
	}
	for _, platform := range platforms {
		if err := writer.WriteField("platform[]", platform); err != nil {
			return err
		}
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="video"; filename="%s"`, filepath.Base(file.Name())))
	header.Set("Content-Type", "video/mp4")
	part, err := writer.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return err
	}
	return writer.WriteField("user", user)
}

func parseAck(raw []byte) (Ack, error) {
	ack := Ack{Success: true, Raw: json.RawMessage(raw)}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return ack, nil
	}
	var payload struct {
		Success   *bool  `json:"success"`
		RequestID string `json:"request_id"`
		Message   string `json:"message"`
		Error     string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		// A 2xx without JSON is still an acceptance.
		ack.Raw = nil
		ack.Message = strings.TrimSpace(string(raw))
		return ack, nil
	}
	ack.RequestID = payload.RequestID
	ack.Message = payload.Message
	if payload.Success != nil && !*payload.Success {
		detail := payload.Error
		if detail == "" {
			detail = payload.Message
		}
		return Ack{}, services.Wrap(services.ErrPublishFailed, stageName, "aggregator", "rejected: "+detail, nil)
	}
	return ack, nil
}
