package youtube

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"dailyshorts/internal/logging"
)

// tokenFile accepts both the oauth2.Token layout and the expiry_date
// (milliseconds) layout written by Google's node client.
type tokenFile struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
	ExpiryDate   int64     `json:"expiry_date,omitempty"`
	Scope        string    `json:"scope,omitempty"`
}

func loadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var stored tokenFile
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("decode token file %s: %w", path, err)
	}
	if strings.TrimSpace(stored.AccessToken) == "" && strings.TrimSpace(stored.RefreshToken) == "" {
		return nil, fmt.Errorf("token file %s holds no credentials", path)
	}
	token := &oauth2.Token{
		AccessToken:  stored.AccessToken,
		TokenType:    stored.TokenType,
		RefreshToken: stored.RefreshToken,
		Expiry:       stored.Expiry,
	}
	if token.Expiry.IsZero() && stored.ExpiryDate > 0 {
		token.Expiry = time.UnixMilli(stored.ExpiryDate)
	}
	return token, nil
}

func saveToken(path string, token *oauth2.Token) error {
	if token == nil {
		return errors.New("nil token")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	data, err := json.MarshalIndent(tokenFile{
		AccessToken:  token.AccessToken,
		TokenType:    token.TokenType,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace token: %w", err)
	}
	return nil
}

func tokenExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// persistingSource writes refreshed tokens back to disk. A failed write is
// logged and the refreshed token is still returned.
type persistingSource struct {
	base   oauth2.TokenSource
	path   string
	last   string
	logger *slog.Logger
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	if token.AccessToken != s.last {
		s.last = token.AccessToken
		if err := saveToken(s.path, token); err != nil {
			logging.WarnWithContext(s.logger, "failed to persist refreshed youtube token", "token_save_failed",
				logging.String("path", s.path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "next run refreshes the token again"),
				logging.String(logging.FieldErrorHint, "check permissions on youtube.token_path"),
			)
		}
	}
	return token, nil
}
