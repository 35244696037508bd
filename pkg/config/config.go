package config

import (
	"fmt"
	"os"
	"time"

	"github.com/galen-ai/galen/pkg/models"
	"gopkg.in/yaml.v3"
)

// Config holds all galen configuration.
type Config struct {
	DBPath     string                `yaml:"db_path"`
	Providers  []ProviderConfig      `yaml:"providers"`
	Router     RouterConfig          `yaml:"router"`
	Cache      CacheConfig           `yaml:"cache"`
	Generation GenerationConfig      `yaml:"generation"`
	Budget     BudgetConfig          `yaml:"budget"`
	Audit      models.AuditConfig    `yaml:"audit"`
	Refdata    RefdataConfig         `yaml:"refdata"`
	Pricing    []models.ModelPricing `yaml:"pricing"`
	Output     OutputConfig          `yaml:"output"`
}

// ProviderConfig defines an OpenAI-compatible upstream provider.
type ProviderConfig struct {
	Name   string `yaml:"name"`
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// RouterConfig defines model routing and fallback chains.
type RouterConfig struct {
	Routes []RouteConfig `yaml:"routes"`
}

// RouteConfig maps a requested model alias to an ordered list of targets.
type RouteConfig struct {
	Model   string        `yaml:"model"`
	Targets []RouteTarget `yaml:"targets"`
}

// RouteTarget identifies a specific provider and model in a fallback chain.
type RouteTarget struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

// CacheConfig controls the artifact cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
}

// GenerationConfig controls the generation call and its retry policy.
// MaxShapeRetries bounds how many times a shape-invalid response is
// re-prompted before the error is surfaced; it is an explicit setting,
// never inferred.
type GenerationConfig struct {
	Model           string        `yaml:"model"`
	MaxAttempts     int           `yaml:"max_attempts"`
	MaxShapeRetries int           `yaml:"max_shape_retries"`
	Timeout         time.Duration `yaml:"timeout"`
}

// BudgetConfig controls budget enforcement.
type BudgetConfig struct {
	Enabled  bool                  `yaml:"enabled"`
	Policies []models.BudgetPolicy `yaml:"policies"`
}

// RefdataConfig holds endpoints and credentials for the public
// reference APIs.
type RefdataConfig struct {
	RxNormURL  string    `yaml:"rxnorm_url"`
	RxClassURL string    `yaml:"rxclass_url"`
	ICD        ICDConfig `yaml:"icd"`
}

// ICDConfig configures the WHO ICD-11 client (OAuth2 client credentials).
type ICDConfig struct {
	URL          string `yaml:"url"`
	TokenURL     string `yaml:"token_url"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Language     string `yaml:"language"`
}

// OutputConfig controls where artifacts are written.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		DBPath: "galen.db",
		Cache: CacheConfig{
			Enabled: true,
			TTL:     0, // artifacts are immutable; regeneration is explicit
		},
		Generation: GenerationConfig{
			Model:           "gpt-4o-mini",
			MaxAttempts:     3,
			MaxShapeRetries: 2,
			Timeout:         2 * time.Minute,
		},
		Refdata: RefdataConfig{
			RxNormURL:  "https://rxnav.nlm.nih.gov/REST",
			RxClassURL: "https://rxnav.nlm.nih.gov/REST/rxclass",
			ICD: ICDConfig{
				URL:      "https://id.who.int/icd",
				TokenURL: "https://icdaccessmanagement.who.int/connect/token",
				Language: "en",
			},
		},
		Output: OutputConfig{Dir: "."},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// LoadOrDefault behaves like Load but falls back to defaults (plus
// environment overrides) when the file does not exist, so the CLI works
// with nothing but GALEN_API_KEY set.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		cfg.applyEnv()
		return cfg, nil
	}
	return Load(path)
}

// applyEnv fills provider and model settings from the environment when
// the config file left them empty.
func (c *Config) applyEnv() {
	if len(c.Providers) == 0 {
		if key := os.Getenv("GALEN_API_KEY"); key != "" {
			url := os.Getenv("GALEN_BASE_URL")
			if url == "" {
				url = "https://api.openai.com"
			}
			c.Providers = []ProviderConfig{{Name: "default", URL: url, APIKey: key}}
		}
	}
	if model := os.Getenv("GALEN_MODEL"); model != "" {
		c.Generation.Model = model
	}
	if c.Refdata.ICD.ClientID == "" {
		c.Refdata.ICD.ClientID = os.Getenv("ICD_CLIENT_ID")
	}
	if c.Refdata.ICD.ClientSecret == "" {
		c.Refdata.ICD.ClientSecret = os.Getenv("ICD_CLIENT_SECRET")
	}
}
