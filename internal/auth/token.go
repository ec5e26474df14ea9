package auth

import (
	"bytes"
	"drivemirror/internal/config"
	"drivemirror/internal/util"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/zalando/go-keyring"
	"golang.org/x/oauth2"
)

const (
	keyringService = "drivemirror"
	keyringUser    = "gdrive-token"
)

// ErrNoToken means no OAuth token has been stored yet.
var ErrNoToken = errors.New("gdrive auth needed. Please run 'drivemirror auth gdrive' first")

type TokenStore interface {
	Load() (*oauth2.Token, error)
	Save(token *oauth2.Token) error
	Location() string
}

func NewTokenStore(cfg *config.Config) TokenStore {
	if cfg.TokenStore == config.TokenStoreKeyring {
		return &KeyringTokenStore{service: keyringService, user: keyringUser}
	}
	return &FileTokenStore{fs: afero.NewOsFs(), path: cfg.TokenFile}
}

type FileTokenStore struct {
	fs   afero.Fs
	path string
}

func NewFileTokenStore(fs afero.Fs, path string) *FileTokenStore {
	return &FileTokenStore{fs: fs, path: path}
}

func (s *FileTokenStore) Load() (*oauth2.Token, error) {
	b, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token: %w", err)
	}

	return decodeToken(b)
}

func (s *FileTokenStore) Save(token *oauth2.Token) error {
	b, err := json.Marshal(token)
	if err != nil {
		return err
	}

	if err := util.AtomicWrite(s.fs, s.path, bytes.NewReader(b)); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	return s.fs.Chmod(s.path, 0600)
}

func (s *FileTokenStore) Location() string {
	return s.path
}

type KeyringTokenStore struct {
	service string
	user    string
}

func (s *KeyringTokenStore) Load() (*oauth2.Token, error) {
	secret, err := keyring.Get(s.service, s.user)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token from keyring: %w", err)
	}

	return decodeToken([]byte(secret))
}

func (s *KeyringTokenStore) Save(token *oauth2.Token) error {
	b, err := json.Marshal(token)
	if err != nil {
		return err
	}

	if err := keyring.Set(s.service, s.user, string(b)); err != nil {
		return fmt.Errorf("failed to save token to keyring: %w", err)
	}

	return nil
}

func (s *KeyringTokenStore) Location() string {
	return "system keyring (" + s.service + ")"
}

func decodeToken(b []byte) (*oauth2.Token, error) {
	var token oauth2.Token
	if err := json.Unmarshal(b, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	return &token, nil
}
