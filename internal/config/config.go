// Package config manages application configuration from files and environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	APIKeys  struct {
		Anthropic string `mapstructure:"anthropic"`
		OpenAI    string `mapstructure:"openai"`
	} `mapstructure:"api_keys"`
	Ollama struct {
		Host string `mapstructure:"host"`
	} `mapstructure:"ollama"`
	Export struct {
		MaxColumnWidth int    `mapstructure:"max_column_width"`
		Locale         string `mapstructure:"locale"`
		StrictMarkup   bool   `mapstructure:"strict_markup"`
	} `mapstructure:"export"`
	Cache struct {
		Backend string `mapstructure:"backend"`
		Dir     string `mapstructure:"dir"`
	} `mapstructure:"cache"`
	Enrich struct {
		Delay time.Duration `mapstructure:"delay"`
	} `mapstructure:"enrich"`
	Output struct {
		Color bool `mapstructure:"color"`
	} `mapstructure:"output"`
}

const defaultProvider = "openai"

func setDefaults() {
	viper.SetDefault("provider", defaultProvider)
	// Empty model means the provider's default.
	viper.SetDefault("model", "")
	viper.SetDefault("ollama.host", "http://localhost:11434")
	viper.SetDefault("export.max_column_width", 0)
	viper.SetDefault("export.locale", "en")
	viper.SetDefault("export.strict_markup", false)
	viper.SetDefault("cache.backend", "")
	viper.SetDefault("cache.dir", "")
	viper.SetDefault("enrich.delay", "0s")
	viper.SetDefault("output.color", true)
}

// Load reads the configuration from ~/.tabkit/config.yaml and environment
// variables (TABKIT_PROVIDER, TABKIT_EXPORT_LOCALE, ...).
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir())

	setDefaults()

	viper.SetEnvPrefix("TABKIT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file (non-fatal if missing)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("invalid config file %s: %w", ConfigPath(), err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("could not decode config: %w", err)
	}

	return &cfg, nil
}

// APIKey returns the key for provider, preferring the provider's usual
// environment variable over the config file.
func (c *Config) APIKey(provider string) string {
	switch strings.ToLower(provider) {
	case "anthropic":
		if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
			return key
		}
		return c.APIKeys.Anthropic
	case "openai":
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			return key
		}
		return c.APIKeys.OpenAI
	default:
		return ""
	}
}

// CachePath places a relative cache file name under cache.dir when set.
func (c *Config) CachePath(name string) string {
	if name == "" || filepath.IsAbs(name) || c.Cache.Dir == "" {
		return name
	}
	return filepath.Join(expandHome(c.Cache.Dir), name)
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tabkit"
	}
	return filepath.Join(home, ".tabkit")
}
