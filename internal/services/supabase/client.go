// Package supabase uploads rendered artifacts to a Supabase storage bucket.
package supabase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	storage_go "github.com/supabase-community/storage-go"
	supabasesdk "github.com/supabase-community/supabase-go"

	"dailyshorts/internal/services"
)

const (
	defaultPrefix      = "shorts"
	contentTypeMP4     = "video/mp4"
	defaultCacheMaxAge = "3600"
	defaultTimeout     = 10 * time.Minute
	stageName          = "storage"
)

// Config describes the bucket destination.
type Config struct {
	URL           string
	Key           string
	Bucket        string
	Prefix        string
	Public        bool
	PublicBaseURL string
	Timeout       time.Duration
}

type uploader interface {
	UploadFile(bucketID, relativePath string, data io.Reader, opts ...storage_go.FileOptions) (storage_go.FileUploadResponse, error)
	GetPublicUrl(bucketID, filePath string, opts ...storage_go.UrlOptions) storage_go.SignedUrlResponse
}

// Client wraps the Supabase storage API.
type Client struct {
	cfg     Config
	storage uploader
}

// New constructs a storage client. It returns services.ErrNotConfigured when
// the URL, key, or bucket is missing.
func New(cfg Config) (*Client, error) {
	cfg.URL = strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	cfg.Key = strings.TrimSpace(cfg.Key)
	cfg.Bucket = strings.TrimSpace(cfg.Bucket)
	cfg.Prefix = strings.Trim(strings.TrimSpace(cfg.Prefix), "/")
	cfg.PublicBaseURL = strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/")
	if cfg.Prefix == "" {
		cfg.Prefix = defaultPrefix
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.URL == "" || cfg.Key == "" || cfg.Bucket == "" {
		return nil, services.Wrap(services.ErrNotConfigured, stageName, "init", "url, key, and bucket are required", nil)
	}
	sdk, err := supabasesdk.NewClient(cfg.URL, cfg.Key, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrNotConfigured, stageName, "init", "supabase client", err)
	}
	return &Client{cfg: cfg, storage: sdk.Storage}, nil
}

// KeyFor returns the object key an artifact is stored under.
func (c *Client) KeyFor(artifactPath string) string {
	return path.Join(c.cfg.Prefix, filepath.Base(artifactPath))
}

// Put uploads the artifact under key (KeyFor(artifactPath) when empty) and
// returns its public URL, or "" when the bucket is not public.
func (c *Client) Put(ctx context.Context, artifactPath, key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		key = c.KeyFor(artifactPath)
	}
	file, err := os.Open(artifactPath)
	if err != nil {
		return "", services.Wrap(services.ErrStorageFailed, stageName, "open", artifactPath, err)
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	contentType := contentTypeMP4
	cacheControl := defaultCacheMaxAge
	upsert := true
	opts := storage_go.FileOptions{ContentType: &contentType, CacheControl: &cacheControl, Upsert: &upsert}

	// The storage SDK has no context support, so the upload runs in the
	// background and is abandoned when ctx ends.
	done := make(chan error, 1)
	go func() {
		_, err := c.storage.UploadFile(c.cfg.Bucket, key, file, opts)
		done <- err
	}()

	select {
	case <-ctx.Done():
		return "", services.Wrap(services.ErrStorageFailed, stageName, "upload", key, ctx.Err())
	case err := <-done:
		if err != nil {
			return "", services.Wrap(services.ErrStorageFailed, stageName, "upload", key, describe(err))
		}
	}
	return c.publicURL(key), nil
}

func (c *Client) publicURL(key string) string {
	if c.cfg.PublicBaseURL != "" {
		return c.cfg.PublicBaseURL + "/" + key
	}
	if !c.cfg.Public {
		return ""
	}
	return c.storage.GetPublicUrl(c.cfg.Bucket, key).SignedURL
}

func describe(err error) error {
	var storageErr *storage_go.StorageError
	if !errors.As(err, &storageErr) {
		return err
	}
	if storageErr.Message == "" {
		return errors.New("storage service rejected the upload")
	}
	return fmt.Errorf("storage service: %w", err)
}
