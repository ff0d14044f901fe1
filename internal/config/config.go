// Package config defines the application configuration, loaded with
// viper from a YAML file and FLOWDECK_* environment variables.
package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Paths     PathsConfig     `mapstructure:"paths"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Atlassian AtlassianConfig `mapstructure:"atlassian"`
	Chat      ChatConfig      `mapstructure:"chat"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// PathsConfig locates the data areas inside the storage root.
type PathsConfig struct {
	// Root is the local storage root when the local backend is used.
	Root string `mapstructure:"root"`
	// TemplatesDir holds the flow template groups.
	TemplatesDir string `mapstructure:"templates_dir"`
	// SessionsDir holds saved session snapshots.
	SessionsDir string `mapstructure:"sessions_dir"`
}

// StorageConfig selects the storage backend.
type StorageConfig struct {
	// Backend is "local" or "redis".
	Backend string      `mapstructure:"backend"`
	Redis   RedisConfig `mapstructure:"redis"`
}

// RedisConfig configures the redis storage backend.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// Prefix namespaces every key, so several deployments can share an
	// instance.
	Prefix string `mapstructure:"prefix"`
}

// AtlassianConfig holds the Jira and Confluence connection settings.
type AtlassianConfig struct {
	JiraURL         string   `mapstructure:"jira_url"`
	JiraAPIEndpoint string   `mapstructure:"jira_api_endpoint"`
	Email           string   `mapstructure:"email"`
	APIToken        string   `mapstructure:"api_token"`
	// Projects are the issue-key prefixes recognized in chat prompts.
	Projects []string `mapstructure:"projects"`
}

// ChatConfig configures the chat completion endpoint.
type ChatConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	ModelID string `mapstructure:"model_id"`
}

// ServerConfig configures the web surface.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Paths: PathsConfig{
			Root:         "data",
			TemplatesDir: "templates",
			SessionsDir:  "sessions",
		},
		Storage: StorageConfig{
			Backend: "local",
			Redis: RedisConfig{
				Address: "localhost:6379",
				Prefix:  "flowdeck",
			},
		},
		Atlassian: AtlassianConfig{
			JiraAPIEndpoint: "/rest/api/3",
		},
		Chat: ChatConfig{
			BaseURL: "https://api.openai.com",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// SetDefaults registers default values with viper.
func SetDefaults() {
	defaults := DefaultConfig()

	viper.SetDefault("paths.root", defaults.Paths.Root)
	viper.SetDefault("paths.templates_dir", defaults.Paths.TemplatesDir)
	viper.SetDefault("paths.sessions_dir", defaults.Paths.SessionsDir)

	viper.SetDefault("storage.backend", defaults.Storage.Backend)
	viper.SetDefault("storage.redis.address", defaults.Storage.Redis.Address)
	viper.SetDefault("storage.redis.password", defaults.Storage.Redis.Password)
	viper.SetDefault("storage.redis.db", defaults.Storage.Redis.DB)
	viper.SetDefault("storage.redis.prefix", defaults.Storage.Redis.Prefix)

	viper.SetDefault("atlassian.jira_url", defaults.Atlassian.JiraURL)
	viper.SetDefault("atlassian.jira_api_endpoint", defaults.Atlassian.JiraAPIEndpoint)
	viper.SetDefault("atlassian.email", defaults.Atlassian.Email)
	viper.SetDefault("atlassian.api_token", defaults.Atlassian.APIToken)
	viper.SetDefault("atlassian.projects", defaults.Atlassian.Projects)

	viper.SetDefault("chat.base_url", defaults.Chat.BaseURL)
	viper.SetDefault("chat.api_key", defaults.Chat.APIKey)
	viper.SetDefault("chat.model_id", defaults.Chat.ModelID)

	viper.SetDefault("server.addr", defaults.Server.Addr)

	viper.SetDefault("logging.level", defaults.Logging.Level)
}

// Load unmarshals and validates the configuration viper currently holds.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &cfg, nil
}

// ConfigDir returns the user configuration directory.
func ConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "flowdeck")
	}
	return "."
}
