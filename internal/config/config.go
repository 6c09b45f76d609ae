// Package config loads studyshelf settings from an optional YAML file and
// the environment. Flags are applied by the caller last.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const EnvPrefix = "STUDYSHELF_"

// Config holds every tunable of the app.
type Config struct {
	DataDir    string        `yaml:"data_dir"`
	Ephemeral  bool          `yaml:"ephemeral"`
	Port       string        `yaml:"port"`
	QuotaBytes int64         `yaml:"quota_bytes"`
	Debounce   time.Duration `yaml:"debounce"`
	MinSaving  time.Duration `yaml:"min_saving"`
	PreviewTTL time.Duration `yaml:"preview_ttl"`
	LogLevel   string        `yaml:"log_level"`
	Tutor      Tutor         `yaml:"tutor"`
}

// Tutor configures the AI tutor. API keys only come from the environment.
type Tutor struct {
	Provider      string        `yaml:"provider"` // gemini, openai, ollama or none
	Model         string        `yaml:"model"`
	Timeout       time.Duration `yaml:"timeout"`
	RatePerMinute int           `yaml:"rate_per_minute"`
	Burst         int           `yaml:"burst"`
	OllamaURL     string        `yaml:"ollama_url"`

	GeminiAPIKey string `yaml:"-"`
	OpenAIAPIKey string `yaml:"-"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		DataDir:    defaultDataDir(),
		Port:       "8888",
		QuotaBytes: 50 * 1024 * 1024,
		Debounce:   500 * time.Millisecond,
		MinSaving:  800 * time.Millisecond,
		PreviewTTL: 10 * time.Minute,
		LogLevel:   "info",
		Tutor: Tutor{
			Provider:      "gemini",
			Model:         "gemini-2.5-flash",
			Timeout:       30 * time.Second,
			RatePerMinute: 20,
			Burst:         5,
		},
	}
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".studyshelf"
	}
	return filepath.Join(dir, "studyshelf")
}

// Load reads path (when non-empty) over the defaults, then applies the
// environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(dst *string, names ...string) {
		for _, name := range names {
			if v := strings.TrimSpace(getenv(name)); v != "" {
				*dst = v
				return
			}
		}
	}
	dur := func(dst *time.Duration, name string) error {
		v := strings.TrimSpace(getenv(name))
		if v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		*dst = d
		return nil
	}

	str(&c.DataDir, EnvPrefix+"DATA_DIR")
	str(&c.Port, EnvPrefix+"PORT")
	str(&c.LogLevel, EnvPrefix+"LOG_LEVEL")
	str(&c.Tutor.Provider, "TUTOR_PROVIDER")
	str(&c.Tutor.Model, "TUTOR_MODEL")
	str(&c.Tutor.OllamaURL, "OLLAMA_URL")
	str(&c.Tutor.GeminiAPIKey, "GEMINI_API_KEY", "API_KEY")
	str(&c.Tutor.OpenAIAPIKey, "OPENAI_API_KEY")

	if v := strings.TrimSpace(getenv(EnvPrefix + "QUOTA_BYTES")); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %sQUOTA_BYTES: %w", EnvPrefix, err)
		}
		c.QuotaBytes = n
	}
	if v := strings.TrimSpace(getenv(EnvPrefix + "EPHEMERAL")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sEPHEMERAL: %w", EnvPrefix, err)
		}
		c.Ephemeral = b
	}
	if err := dur(&c.Debounce, EnvPrefix+"DEBOUNCE"); err != nil {
		return err
	}
	return dur(&c.Tutor.Timeout, EnvPrefix+"TUTOR_TIMEOUT")
}

// Validate rejects settings the app cannot run with.
func (c Config) Validate() error {
	var errs []error
	if !c.Ephemeral && c.DataDir == "" {
		errs = append(errs, errors.New("data_dir is required unless ephemeral"))
	}
	if c.QuotaBytes < 0 {
		errs = append(errs, errors.New("quota_bytes must not be negative"))
	}
	if c.Debounce < 0 {
		errs = append(errs, errors.New("debounce must not be negative"))
	}
	switch strings.ToLower(c.Tutor.Provider) {
	case "gemini", "openai", "ollama", "none", "":
	default:
		errs = append(errs, fmt.Errorf("unknown tutor provider %q", c.Tutor.Provider))
	}
	return errors.Join(errs...)
}
