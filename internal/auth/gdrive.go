// Package auth builds an authorized Drive client from either a service
// account key or a stored OAuth token.
package auth

import (
	"context"
	"drivemirror/internal/config"
	"drivemirror/internal/logger"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// drive.file only reaches files this app created.
var scopes = []string{drive.DriveScope}

func loadOAuthConfig(path string) (*oauth2.Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("oauth client credentials not found at %s: %w", path, err)
	}

	cfg, err := google.ConfigFromJSON(b, scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}

	return cfg, nil
}

// Authorize runs the interactive OAuth flow: it prints the consent URL to
// out, reads the code from in and stores the resulting token.
func Authorize(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) error {
	oauthCfg, err := loadOAuthConfig(cfg.CredentialsFile)
	if err != nil {
		return err
	}

	authURL := oauthCfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	_, _ = fmt.Fprintln(out, "Visit the URL for the auth dialog:")
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, authURL)
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprint(out, "Enter the code here: ")

	var code string
	if _, err := fmt.Fscan(in, &code); err != nil {
		return fmt.Errorf("failed to read code: %w", err)
	}

	token, err := oauthCfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange token: %w", err)
	}

	store := NewTokenStore(cfg)
	if err := store.Save(token); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "Token saved to %s\n", store.Location())
	return nil
}

type serviceAccountKey struct {
	Type        string `json:"type"`
	ClientEmail string `json:"client_email"`
}

func serviceAccountOption(ctx context.Context, path string) (option.ClientOption, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account key: %w", err)
	}

	var key serviceAccountKey
	if err := json.Unmarshal(b, &key); err != nil {
		return nil, fmt.Errorf("failed to parse service account key: %w", err)
	}
	if key.Type != "service_account" {
		return nil, fmt.Errorf("invalid service account key type: %q", key.Type)
	}

	creds, err := google.CredentialsFromJSON(ctx, b, scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account key: %w", err)
	}

	logger.Log.Info("using service account",
		zap.String("email", key.ClientEmail))
	return option.WithCredentials(creds), nil
}

func tokenOption(ctx context.Context, cfg *config.Config) (option.ClientOption, error) {
	oauthCfg, err := loadOAuthConfig(cfg.CredentialsFile)
	if err != nil {
		return nil, err
	}

	store := NewTokenStore(cfg)
	token, err := store.Load()
	if err != nil {
		return nil, err
	}

	tokenSource := oauthCfg.TokenSource(ctx, token)

	newToken, err := tokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	if newToken.AccessToken != token.AccessToken {
		if err := store.Save(newToken); err != nil {
			logger.Log.Warn("failed to persist refreshed token", zap.Error(err))
		}
	}

	return option.WithTokenSource(tokenSource), nil
}

// NewDriveService prefers the service account key when one is configured.
func NewDriveService(ctx context.Context, cfg *config.Config) (*drive.Service, error) {
	var (
		opt option.ClientOption
		err error
	)
	if cfg.ServiceAccountFile != "" {
		opt, err = serviceAccountOption(ctx, cfg.ServiceAccountFile)
	} else {
		opt, err = tokenOption(ctx, cfg)
	}
	if err != nil {
		return nil, err
	}

	svc, err := drive.NewService(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to create gdrive service: %w", err)
	}

	return svc, nil
}
