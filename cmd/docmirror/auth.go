package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BgWv3/procore-doc-downloader/internal/logging"
	"github.com/BgWv3/procore-doc-downloader/pkg/client"
	"github.com/BgWv3/procore-doc-downloader/pkg/retry"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate and save the access token",
	RunE: func(cmd *cobra.Command, _ []string) error {
		con.Banner("AUTHENTICATION")
		_, err := login(cmd.Context())
		return err
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the saved access token",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := tokenPath()
		if err := client.DeleteToken(path); err != nil {
			return fmt.Errorf("remove token: %w", err)
		}
		con.Success("Logged out (removed %s)", path)
		return nil
	},
}

func tokenPath() string {
	if cfg.TokenFile != "" {
		return cfg.TokenFile
	}
	return client.TokenFilePath()
}

func oauthConfig() client.OAuthConfig {
	return client.OAuthConfig{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		AuthURL:      cfg.AuthURL,
		TokenURL:     cfg.TokenURL,
		RedirectURL:  cfg.RedirectURI,
	}
}

// ensureCredentials asks for the OAuth application credentials missing from
// the environment.
func ensureCredentials() error {
	if cfg.ClientID == "" {
		id, err := prompter.Line("Enter your Client ID: ")
		if err != nil {
			return fmt.Errorf("read client ID: %w", err)
		}
		cfg.ClientID = id
	} else {
		con.Success("Client ID loaded from environment")
	}

	if cfg.ClientSecret == "" {
		secret, err := prompter.Secret("Enter your Client Secret: ")
		if err != nil {
			return fmt.Errorf("read client secret: %w", err)
		}
		cfg.ClientSecret = secret
	} else {
		con.Success("Client Secret loaded from environment")
	}

	if err := cfg.ValidateCredentials(); err != nil {
		con.Failure("Client ID and Secret are required")
		return err
	}
	return nil
}

// login runs the authorization code flow and saves the resulting token.
func login(ctx context.Context) (*client.TokenFile, error) {
	if err := ensureCredentials(); err != nil {
		return nil, err
	}

	tok, err := oauthConfig().Authorize(ctx, con.Writer(), client.OpenBrowser, prompter.Line)
	if err != nil {
		con.Failure("Error obtaining access token: %v", err)
		return nil, err
	}
	con.Success("Access token obtained successfully")

	tf := client.NewTokenFile(tok, cfg.APIBaseURL)
	path := tokenPath()
	if err := client.SaveToken(path, tf); err != nil {
		logging.Warn("failed to save token", zap.String("path", path), zap.Error(err))
		con.Warning("Could not save token: %v", err)
	} else {
		logging.Info("saved token", zap.String("path", path))
	}
	return tf, nil
}

// newAPIClient returns a client authorized by the saved token, running the
// login flow first when there is no usable token for the configured API.
func newAPIClient(ctx context.Context) (*client.Client, error) {
	path := tokenPath()
	tf, err := client.LoadToken(path)
	switch {
	case err == nil && tf.Usable() && tf.Server == cfg.APIBaseURL:
		con.Success("Using saved token from %s", path)
		if tf.IsExpired(time.Minute) {
			// A refresh needs the application credentials.
			if err := ensureCredentials(); err != nil {
				return nil, err
			}
		}
	default:
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.Warn("ignoring unreadable token file", zap.String("path", path), zap.Error(err))
		}
		if tf, err = login(ctx); err != nil {
			return nil, err
		}
	}

	return client.New(client.Config{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.HTTPTimeout,
		RetryConfig: retry.Config{
			MaxAttempts: cfg.RateLimitMaxAttempts,
			DefaultWait: cfg.RateLimitDefaultWait,
			OnWait:      con.RateLimitWait,
		},
		TokenSource: oauthConfig().PersistingTokenSource(ctx, tf, path),
	}), nil
}
