package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

type Config struct {
	DaemonPort         int           `mapstructure:"daemon_port"`
	DataDir            string        `mapstructure:"data_dir"`
	RootFolderID       string        `mapstructure:"root_folder_id"`
	PollInterval       time.Duration `mapstructure:"poll_interval"`
	StoreBackend       string        `mapstructure:"store_backend"`
	TasksFile          string        `mapstructure:"tasks_file"`
	ChangesFile        string        `mapstructure:"changes_file"`
	DBPath             string        `mapstructure:"db_path"`
	CredentialsFile    string        `mapstructure:"credentials_file"`
	TokenFile          string        `mapstructure:"token_file"`
	ServiceAccountFile string        `mapstructure:"service_account_file"`
	TokenStore         string        `mapstructure:"token_store"`
	RetryAttempts      int           `mapstructure:"retry_attempts"`
	RetryDelay         time.Duration `mapstructure:"retry_delay"`
	MinObjectIDLength  int           `mapstructure:"min_object_id_length"`
	MessageBuffer      int           `mapstructure:"message_buffer"`
	IgnoreList         []string      `mapstructure:"ignore_list"`
}

const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"

	TokenStoreFile    = "file"
	TokenStoreKeyring = "keyring"
)

var Default = Config{
	DaemonPort:        9011,
	DataDir:           "~/.drivemirror",
	RootFolderID:      "root",
	PollInterval:      10 * time.Second,
	StoreBackend:      BackendJSON,
	TasksFile:         "monitor_tasks.json",
	ChangesFile:       "changes_log.json",
	DBPath:            "drivemirror.db",
	CredentialsFile:   "gdrive_credentials.json",
	TokenFile:         "gdrive_token.json",
	TokenStore:        TokenStoreFile,
	RetryAttempts:     3,
	RetryDelay:        2 * time.Second,
	MinObjectIDLength: 5,
	MessageBuffer:     500,
}

var v *viper.Viper

// Dir returns the directory holding config.yaml, credentials and tokens.
func Dir() (string, error) {
	dir, err := homedir.Expand("~/.drivemirror")
	if err != nil {
		return "", fmt.Errorf("failed to get home dir: %w", err)
	}

	return dir, nil
}

func Load() (*Config, error) {
	configDir, err := Dir()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config dir: %w", err)
	}

	return LoadFrom(configDir)
}

// LoadFrom reads config.yaml from configDir, falling back to defaults when
// the file does not exist.
func LoadFrom(configDir string) (*Config, error) {
	v = viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	v.SetDefault("daemon_port", Default.DaemonPort)
	v.SetDefault("data_dir", Default.DataDir)
	v.SetDefault("root_folder_id", Default.RootFolderID)
	v.SetDefault("poll_interval", Default.PollInterval)
	v.SetDefault("store_backend", Default.StoreBackend)
	v.SetDefault("tasks_file", Default.TasksFile)
	v.SetDefault("changes_file", Default.ChangesFile)
	v.SetDefault("db_path", Default.DBPath)
	v.SetDefault("credentials_file", Default.CredentialsFile)
	v.SetDefault("token_file", Default.TokenFile)
	v.SetDefault("service_account_file", Default.ServiceAccountFile)
	v.SetDefault("token_store", Default.TokenStore)
	v.SetDefault("retry_attempts", Default.RetryAttempts)
	v.SetDefault("retry_delay", Default.RetryDelay)
	v.SetDefault("min_object_id_length", Default.MinObjectIDLength)
	v.SetDefault("message_buffer", Default.MessageBuffer)
	v.SetDefault("ignore_list", []string{})

	v.SetEnvPrefix("DRIVEMIRROR")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := errors.AsType[viper.ConfigFileNotFoundError](err); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return unmarshal()
}

func unmarshal() (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Watch reloads the config file whenever it changes on disk and hands the
// new values to onChange. Invalid edits are reported through onError and
// otherwise ignored.
func Watch(onChange func(*Config), onError func(error)) {
	if v == nil {
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		cfg, err := unmarshal()
		if err != nil {
			onError(err)
			return
		}

		onChange(cfg)
	})
	v.WatchConfig()
}

func (c *Config) normalize() error {
	dataDir, err := homedir.Expand(c.DataDir)
	if err != nil {
		return fmt.Errorf("invalid data_dir: %w", err)
	}
	c.DataDir = dataDir

	c.TasksFile = c.inDataDir(c.TasksFile)
	c.ChangesFile = c.inDataDir(c.ChangesFile)
	c.DBPath = c.inDataDir(c.DBPath)
	c.CredentialsFile = c.inDataDir(c.CredentialsFile)
	c.TokenFile = c.inDataDir(c.TokenFile)

	if c.ServiceAccountFile != "" {
		saFile, err := homedir.Expand(c.ServiceAccountFile)
		if err != nil {
			return fmt.Errorf("invalid service_account_file: %w", err)
		}
		c.ServiceAccountFile = saFile
	}

	c.StoreBackend = strings.ToLower(c.StoreBackend)
	switch c.StoreBackend {
	case BackendJSON, BackendSQLite:
	default:
		return fmt.Errorf("unsupported store_backend: %q", c.StoreBackend)
	}

	c.TokenStore = strings.ToLower(c.TokenStore)
	switch c.TokenStore {
	case TokenStoreFile, TokenStoreKeyring:
	default:
		return fmt.Errorf("unsupported token_store: %q", c.TokenStore)
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}

	if c.RetryAttempts < 1 {
		c.RetryAttempts = 1
	}

	if c.MessageBuffer < 1 {
		c.MessageBuffer = Default.MessageBuffer
	}

	return nil
}

func (c *Config) inDataDir(p string) string {
	if p == "" || filepath.IsAbs(p) || strings.HasPrefix(p, "~") {
		if expanded, err := homedir.Expand(p); err == nil {
			return expanded
		}
		return p
	}

	return filepath.Join(c.DataDir, p)
}
