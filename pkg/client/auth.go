package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkg/browser"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/BgWv3/procore-doc-downloader/internal/logging"
)

// ErrNoCode is returned when the user enters no authorization code.
var ErrNoCode = errors.New("no authorization code entered")

// OAuthConfig describes the registered OAuth application.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	RedirectURL  string
}

// OAuth2 returns the equivalent golang.org/x/oauth2 configuration.
// Client credentials travel in the form body.
func (o OAuthConfig) OAuth2() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     o.ClientID,
		ClientSecret: o.ClientSecret,
		RedirectURL:  o.RedirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:   o.AuthURL,
			TokenURL:  o.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// AuthCodeURL returns the URL the user visits to grant access.
func (o OAuthConfig) AuthCodeURL() string {
	return o.OAuth2().AuthCodeURL("")
}

// Exchange trades an authorization code for a token.
func (o OAuthConfig) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := o.OAuth2().Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("exchange authorization code: response has no access token")
	}
	return tok, nil
}

// Authorize runs the interactive authorization code flow: it shows the
// authorization URL, tries to open it in a browser, asks readCode for the
// pasted code and exchanges it.
func (o OAuthConfig) Authorize(ctx context.Context, out io.Writer, open func(string) error, readCode func(label string) (string, error)) (*oauth2.Token, error) {
	authURL := o.AuthCodeURL()

	fmt.Fprintln(out, "Opening browser for login...")
	fmt.Fprintf(out, "If the browser doesn't open, visit this URL:\n%s\n\n", authURL)

	if open != nil {
		if err := open(authURL); err != nil {
			logging.Debug("could not open browser", zap.Error(err))
		}
	}

	code, err := readCode("Enter the authorization code: ")
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read authorization code: %w", err)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrNoCode
	}

	return o.Exchange(ctx, code)
}

// OpenBrowser opens url in the user's browser.
func OpenBrowser(url string) error {
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
	return browser.OpenURL(url)
}

// TokenFile is the persisted token.
type TokenFile struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
	Server       string    `json:"server"`
}

// NewTokenFile converts an OAuth token for persistence.
func NewTokenFile(tok *oauth2.Token, server string) *TokenFile {
	return &TokenFile{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		ExpiresAt:    tok.Expiry,
		Server:       server,
	}
}

// Token returns the stored token as an OAuth token.
func (t *TokenFile) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Expiry:       t.ExpiresAt,
	}
}

// IsExpired reports whether the access token expires within margin.
// A token without an expiry never expires.
func (t *TokenFile) IsExpired(margin time.Duration) bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().Add(margin).After(t.ExpiresAt)
}

// Usable reports whether the token can authorize requests, either directly
// or after a refresh.
func (t *TokenFile) Usable() bool {
	if t.AccessToken == "" {
		return false
	}
	return !t.IsExpired(time.Minute) || t.RefreshToken != ""
}

// TokenFilePath returns the default path for the token file.
func TokenFilePath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "docmirror", "token.json")
}

// SaveToken writes the token file with owner-only permissions.
func SaveToken(path string, tf *TokenFile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}

	data, err := json.MarshalIndent(tf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

// LoadToken reads the token file.
func LoadToken(path string) (*TokenFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var tf TokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parse token file: %w", err)
	}
	return &tf, nil
}

// DeleteToken removes the token file. A missing file is not an error.
func DeleteToken(path string) error {
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// persistingTokenSource refreshes through base and writes new tokens back to disk.
type persistingTokenSource struct {
	base   oauth2.TokenSource
	path   string
	server string

	mu   sync.Mutex
	last string
}

// PersistingTokenSource returns a token source that starts from tf, refreshes
// it when it expires and saves every refreshed token to path.
func (o OAuthConfig) PersistingTokenSource(ctx context.Context, tf *TokenFile, path string) oauth2.TokenSource {
	return &persistingTokenSource{
		base:   o.OAuth2().TokenSource(ctx, tf.Token()),
		path:   path,
		server: tf.Server,
		last:   tf.AccessToken,
	}
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		if err := SaveToken(s.path, NewTokenFile(tok, s.server)); err != nil {
			logging.Warn("failed to save refreshed token", zap.Error(err))
		} else {
			logging.Debug("saved refreshed token", zap.String("path", s.path))
		}
		s.last = tok.AccessToken
	}
	return tok, nil
}
