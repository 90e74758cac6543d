// Package config loads humanizer settings from humanizer.yaml, HUMANIZER_*
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/valpere/humanizer/internal/pipeline"
)

const (
	EnvPrefix  = "HUMANIZER"
	ConfigName = "humanizer"

	DefaultChunkTimeout = 60 * time.Second
	DefaultDBPath       = "./data/humanizer.db"
	DefaultOllamaURL    = "http://localhost:11434"
	DefaultOllamaModel  = "llama3.2"
)

type Ollama struct {
	URL   string `mapstructure:"url"`
	Model string `mapstructure:"model"`
}

type OpenRouter struct {
	APIKey string `mapstructure:"api_key"`
	URL    string `mapstructure:"url"`
	Model  string `mapstructure:"model"`
}

type Google struct {
	Credentials string `mapstructure:"credentials"`
	SourceLang  string `mapstructure:"source_lang"`
}

type Config struct {
	Pipeline      pipeline.Config `mapstructure:"pipeline"`
	ChunkTimeout  time.Duration   `mapstructure:"chunk_timeout"`
	MaxJobs       int             `mapstructure:"max_jobs"`
	DBPath        string          `mapstructure:"db"`
	Debug         bool            `mapstructure:"debug"`
	CheckLanguage bool            `mapstructure:"check_language"`

	Ollama     Ollama     `mapstructure:"ollama"`
	OpenRouter OpenRouter `mapstructure:"openrouter"`
	Google     Google     `mapstructure:"google"`
}

// SetDefaults registers every key so that environment variables bind even
// when no config file exists.
func SetDefaults(v *viper.Viper) {
	d := pipeline.DefaultConfig()
	v.SetDefault("pipeline.max_chunk_chars", d.MaxChunkChars)
	v.SetDefault("pipeline.max_retries", d.MaxRetries)
	v.SetDefault("pipeline.retry_delay", d.RetryDelay)
	v.SetDefault("pipeline.concurrency", d.Concurrency)
	v.SetDefault("chunk_timeout", DefaultChunkTimeout)
	v.SetDefault("max_jobs", 1)
	v.SetDefault("db", DefaultDBPath)
	v.SetDefault("debug", false)
	v.SetDefault("check_language", true)
	v.SetDefault("ollama.url", DefaultOllamaURL)
	v.SetDefault("ollama.model", DefaultOllamaModel)
	v.SetDefault("openrouter.api_key", "")
	v.SetDefault("openrouter.url", "")
	v.SetDefault("openrouter.model", "")
	v.SetDefault("google.credentials", "")
	v.SetDefault("google.source_lang", "en")
}

// Load reads configuration into v and decodes it. An explicit path must
// exist; otherwise humanizer.yaml is looked up in the working directory and
// in $HOME/.config/humanizer, and its absence is not an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", ConfigName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Pipeline.MaxChunkChars < 0 {
		return fmt.Errorf("pipeline.max_chunk_chars must not be negative, got %d", c.Pipeline.MaxChunkChars)
	}
	if c.Pipeline.MaxRetries < 0 {
		return fmt.Errorf("pipeline.max_retries must not be negative, got %d", c.Pipeline.MaxRetries)
	}
	if c.Pipeline.Concurrency < 1 {
		return fmt.Errorf("pipeline.concurrency must be at least 1, got %d", c.Pipeline.Concurrency)
	}
	if c.ChunkTimeout < 0 {
		return fmt.Errorf("chunk_timeout must not be negative, got %s", c.ChunkTimeout)
	}
	return nil
}
