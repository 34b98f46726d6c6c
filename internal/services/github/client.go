// Package github writes archived artifacts into a repository through the
// contents API.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	gh "github.com/google/go-github/v75/github"

	"dailyshorts/internal/services"
)

const (
	defaultTimeout = 2 * time.Minute
	stageName      = "archive"
)

// Config describes the archival repository.
type Config struct {
	Token      string
	Owner      string
	Repo       string
	Branch     string
	APIBaseURL string
	Timeout    time.Duration
}

// Location identifies a file written to the repository.
type Location struct {
	Owner     string
	Repo      string
	Branch    string
	Path      string
	CommitSHA string
	HTMLURL   string
}

func (l Location) String() string {
	return fmt.Sprintf("%s/%s@%s:%s", l.Owner, l.Repo, l.Branch, l.Path)
}

// Client wraps the repository contents API.
type Client struct {
	cfg    Config
	api    *gh.Client
	mu     sync.Mutex
	branch string
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient replaces the transport used by the API client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.api = gh.NewClient(client).WithAuthToken(c.cfg.Token)
		}
	}
}

// New constructs an archival client.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.Token = strings.TrimSpace(cfg.Token)
	cfg.Owner = strings.TrimSpace(cfg.Owner)
	cfg.Repo = strings.TrimSpace(cfg.Repo)
	cfg.Branch = strings.TrimSpace(cfg.Branch)
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Token == "" || cfg.Owner == "" || cfg.Repo == "" {
		return nil, services.Wrap(services.ErrNotConfigured, stageName, "init", "token and owner/repo are required", nil)
	}
	client := &Client{cfg: cfg, api: gh.NewClient(nil).WithAuthToken(cfg.Token), branch: cfg.Branch}
	for _, opt := range opts {
		opt(client)
	}
	if base := strings.TrimSpace(cfg.APIBaseURL); base != "" {
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		parsed, err := url.Parse(base)
		if err != nil {
			return nil, services.Wrap(services.ErrNotConfigured, stageName, "init", "invalid api base url", err)
		}
		client.api.BaseURL = parsed
	}
	return client, nil
}

// Branch returns the target branch, resolving the repository default on first use.
func (c *Client) Branch(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.branch != "" {
		return c.branch, nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	repo, _, err := c.api.Repositories.Get(ctx, c.cfg.Owner, c.cfg.Repo)
	if err != nil {
		return "", services.Wrap(services.ErrArchivalFailed, stageName, "repository", c.cfg.Owner+"/"+c.cfg.Repo, classify(err))
	}
	c.branch = repo.GetDefaultBranch()
	if c.branch == "" {
		c.branch = "main"
	}
	return c.branch, nil
}

// GetExisting returns the blob SHA at path, or an error wrapping
// services.ErrNotFound when nothing is there yet.
func (c *Client) GetExisting(ctx context.Context, path string) (string, error) {
	branch, err := c.Branch(ctx)
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	file, dir, _, err := c.api.Repositories.GetContents(ctx, c.cfg.Owner, c.cfg.Repo, path, &gh.RepositoryContentGetOptions{Ref: branch})
	if err != nil {
		err = classify(err)
		if errors.Is(err, services.ErrNotFound) {
			return "", err
		}
		return "", services.Wrap(services.ErrArchivalFailed, stageName, "lookup", path, err)
	}
	if dir != nil || file == nil {
		return "", services.Wrap(services.ErrArchivalFailed, stageName, "lookup", path+" is a directory", nil)
	}
	return file.GetSHA(), nil
}

// PutFile writes data at path in a single commit. An empty revision creates
// the file; otherwise the existing blob is replaced.
func (c *Client) PutFile(ctx context.Context, path string, data []byte, message, revision string) (Location, error) {
	branch, err := c.Branch(ctx)
	if err != nil {
		return Location{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	opts := &gh.RepositoryContentFileOptions{
		Message: gh.Ptr(message),
		Content: data,
		Branch:  gh.Ptr(branch),
	}
	var resp *gh.RepositoryContentResponse
	if revision == "" {
		resp, _, err = c.api.Repositories.CreateFile(ctx, c.cfg.Owner, c.cfg.Repo, path, opts)
	} else {
		opts.SHA = gh.Ptr(revision)
		resp, _, err = c.api.Repositories.UpdateFile(ctx, c.cfg.Owner, c.cfg.Repo, path, opts)
	}
	if err != nil {
		return Location{}, services.Wrap(services.ErrArchivalFailed, stageName, "write", path, classify(err))
	}
	loc := Location{Owner: c.cfg.Owner, Repo: c.cfg.Repo, Branch: branch, Path: path}
	if resp != nil {
		loc.CommitSHA = resp.Commit.GetSHA()
		if resp.Content != nil {
			loc.HTMLURL = resp.Content.GetHTMLURL()
		}
	}
	return loc, nil
}

func classify(err error) error {
	var apiErr *gh.ErrorResponse
	if errors.As(err, &apiErr) && apiErr.Response != nil {
		switch apiErr.Response.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %w", services.ErrNotFound, err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %w", services.ErrNotConfigured, err)
		}
	}
	return err
}
