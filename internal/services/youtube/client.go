// Package youtube uploads videos to YouTube with an OAuth2 token stored on disk.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"

	"dailyshorts/internal/logging"
	"dailyshorts/internal/services"
)

const (
	defaultCategoryID    = "24"
	defaultPrivacyStatus = "public"
	defaultRedirectURI   = "urn:ietf:wg:oauth:2.0:oob"
	defaultTimeout       = 10 * time.Minute
	stageName            = "publishing"
)

// Config describes the OAuth client and upload defaults.
type Config struct {
	ClientID      string
	ClientSecret  string
	RedirectURI   string
	TokenPath     string
	CategoryID    string
	PrivacyStatus string
	Timeout       time.Duration
}

// Client uploads videos through the YouTube Data API.
type Client struct {
	cfg        Config
	oauth      *oauth2.Config
	httpClient *http.Client
	endpoint   string
	logger     *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient sets the transport used for token exchange and API calls.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger sets the logger used for token persistence warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "youtube")
	}
}

// WithEndpoint overrides the API base URL.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = strings.TrimSpace(endpoint)
	}
}

// WithTokenURL overrides the OAuth token endpoint.
func WithTokenURL(tokenURL string) Option {
	return func(c *Client) {
		c.oauth.Endpoint.TokenURL = tokenURL
	}
}

// New constructs a YouTube client.
func New(cfg Config, opts ...Option) *Client {
	cfg.ClientID = strings.TrimSpace(cfg.ClientID)
	cfg.ClientSecret = strings.TrimSpace(cfg.ClientSecret)
	if strings.TrimSpace(cfg.RedirectURI) == "" {
		cfg.RedirectURI = defaultRedirectURI
	}
	if strings.TrimSpace(cfg.CategoryID) == "" {
		cfg.CategoryID = defaultCategoryID
	}
	if strings.TrimSpace(cfg.PrivacyStatus) == "" {
		cfg.PrivacyStatus = defaultPrivacyStatus
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	client := &Client{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint:     google.Endpoint,
			Scopes:       []string{ytapi.YoutubeUploadScope, ytapi.YoutubeScope},
		},
		httpClient: http.DefaultClient,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Configured reports whether OAuth client credentials are present.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.ClientID != "" && c.cfg.ClientSecret != ""
}

// TokenPath returns the on-disk token location.
func (c *Client) TokenPath() string {
	return c.cfg.TokenPath
}

// HasToken reports whether a token file exists.
func (c *Client) HasToken() bool {
	return c.cfg.TokenPath != "" && tokenExists(c.cfg.TokenPath)
}

// AuthURL returns the consent URL the operator opens to authorize uploads.
func (c *Client) AuthURL(state string) (string, error) {
	if !c.Configured() {
		return "", services.Wrap(services.ErrNotConfigured, stageName, "youtube auth", "client id and secret are required", nil)
	}
	return c.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent")), nil
}

// Exchange trades an authorization code for a token and saves it.
func (c *Client) Exchange(ctx context.Context, code string) error {
	if !c.Configured() {
		return services.Wrap(services.ErrNotConfigured, stageName, "youtube auth", "client id and secret are required", nil)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return services.Wrap(services.ErrInvalidResponse, stageName, "youtube auth", "empty authorization code", nil)
	}
	token, err := c.oauth.Exchange(c.oauthContext(ctx), code)
	if err != nil {
		return services.Wrap(services.ErrInvalidResponse, stageName, "youtube auth", "exchange code", err)
	}
	if err := saveToken(c.cfg.TokenPath, token); err != nil {
		return services.Wrap(services.ErrTransient, stageName, "youtube auth", "save token", err)
	}
	return nil
}

// Upload publishes the artifact and returns the new video id.
func (c *Client) Upload(ctx context.Context, artifactPath, title, description string, tags []string) (string, error) {
	if !c.Configured() {
		return "", services.Wrap(services.ErrNotConfigured, "", "youtube", "client id and secret are required", nil)
	}
	token, err := loadToken(c.cfg.TokenPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", services.Wrap(services.ErrNotConfigured, "", "youtube", "no token at "+c.cfg.TokenPath+"; run `dailyshorts auth youtube`", nil)
		}
		return "", services.Wrap(services.ErrNotConfigured, "", "youtube", "load token", err)
	}
	file, err := os.Open(artifactPath)
	if err != nil {
		return "", services.Wrap(services.ErrPublishFailed, "", "youtube", "open artifact", err)
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	source := &persistingSource{
		base:   c.oauth.TokenSource(c.oauthContext(ctx), token),
		path:   c.cfg.TokenPath,
		last:   token.AccessToken,
		logger: c.logger,
	}
	opts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(c.oauthContext(ctx), oauth2.ReuseTokenSource(token, source)))}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}
	svc, err := ytapi.NewService(ctx, opts...)
	if err != nil {
		return "", services.Wrap(services.ErrPublishFailed, "", "youtube", "create service", err)
	}

	video := &ytapi.Video{
		Snippet: &ytapi.VideoSnippet{
			Title:       title,
			Description: description,
			Tags:        tags,
			CategoryId:  c.cfg.CategoryID,
		},
		Status: &ytapi.VideoStatus{
			PrivacyStatus:           c.cfg.PrivacyStatus,
			SelfDeclaredMadeForKids: false,
			ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
		},
	}
	uploaded, err := svc.Videos.Insert([]string{"snippet", "status"}, video).Media(file).Context(ctx).Do()
	if err != nil {
		return "", services.Wrap(services.ErrPublishFailed, "", "youtube", "insert video", describe(err))
	}
	if uploaded == nil || uploaded.Id == "" {
		return "", services.Wrap(services.ErrPublishFailed, "", "youtube", "response missing video id", services.ErrInvalidResponse)
	}
	return uploaded.Id, nil
}

func (c *Client) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

func describe(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("youtube api %d %s: %w", apiErr.Code, apiErr.Message, err)
	}
	return err
}
