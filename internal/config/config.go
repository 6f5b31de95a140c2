// Package config handles configuration loading and management for boomai.
// It supports XDG config paths, project-level overrides, .env files and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Provider kinds accepted in the providers list.
const (
	KindAnthropic = "anthropic"
	KindOpenAI    = "openai"
	KindGemini    = "gemini"
	KindFake      = "fake"
)

// Config holds all configuration for boomai.
type Config struct {
	Server          ServerConfig       `mapstructure:"server"`
	Providers       []ProviderConfig   `mapstructure:"providers"`
	DefaultProvider string             `mapstructure:"default_provider"`
	Limits          LimitsConfig       `mapstructure:"limits"`
	Consensus       ConsensusConfig    `mapstructure:"consensus"`
	Orchestrator    OrchestratorConfig `mapstructure:"orchestrator"`
	Decompose       DecomposeConfig    `mapstructure:"decompose"`
	State           StateConfig        `mapstructure:"state"`
	Signals         SignalsConfig      `mapstructure:"signals"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ProviderConfig describes one model backend.
type ProviderConfig struct {
	ID      string `mapstructure:"id"`
	Kind    string `mapstructure:"kind"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	// Timeout bounds one backend call.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxConcurrent is the per-endpoint permit count.
	MaxConcurrent int `mapstructure:"max_concurrent"`
	// Bedrock routes Anthropic calls through AWS Bedrock.
	Bedrock    bool   `mapstructure:"bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
	// Replies scripts the fake provider.
	Replies []string `mapstructure:"replies"`
}

// LimitsConfig holds cross-provider limits.
type LimitsConfig struct {
	// GlobalConcurrent caps in-flight calls across all providers. 0 = none.
	GlobalConcurrent int `mapstructure:"global_concurrent"`
}

// ConsensusConfig holds race and red-flag settings.
type ConsensusConfig struct {
	N                 int `mapstructure:"n"`
	K                 int `mapstructure:"k"`
	MaxCandidateChars int `mapstructure:"max_candidate_chars"`
	RedFlagMaxChars   int `mapstructure:"red_flag_max_chars"`
}

// OrchestratorConfig holds run settings.
type OrchestratorConfig struct {
	MaxSteps           int  `mapstructure:"max_steps"`
	Verify             bool `mapstructure:"verify"`
	ClassifierFallback bool `mapstructure:"classifier_fallback"`
}

// DecomposeConfig holds decomposer settings.
type DecomposeConfig struct {
	// TemplatesFile is an optional YAML file of extra template plans.
	TemplatesFile string `mapstructure:"templates_file"`
	CacheSize     int    `mapstructure:"cache_size"`
}

// StateConfig holds run journal settings.
type StateConfig struct {
	Path string `mapstructure:"path"`
}

// SignalsConfig holds the cancel-file directory.
type SignalsConfig struct {
	Dir string `mapstructure:"dir"`
}

// Load loads configuration from XDG paths, project overrides, .env and
// environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (BOOMAI_*, BOOMAI_PORT)
// 2. .env in the current directory (never overrides the real environment)
// 3. Project config (.boomai.yaml in current directory or parent)
// 4. User config (~/.config/boomai/config.yaml)
// 5. Built-in defaults
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := newViper()

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	return unmarshal(v)
}

// LoadFromPath loads configuration from a specific path (for testing).
// Environment overrides still apply.
func LoadFromPath(path string) (*Config, error) {
	v := newViper()

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	return unmarshal(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BOOMAI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("server.port", "BOOMAI_PORT", "BOOMAI_SERVER_PORT")
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	for i := range cfg.Providers {
		p := &cfg.Providers[i]
		p.APIKey = expandEnv(p.APIKey)
		p.BaseURL = expandEnv(p.BaseURL)
		p.Kind = strings.ToLower(strings.TrimSpace(p.Kind))
		if p.ID == "" {
			p.ID = p.Kind
		}
		if p.Timeout <= 0 {
			p.Timeout = 60 * time.Second
		}
		if p.MaxConcurrent <= 0 {
			p.MaxConcurrent = 8
		}
	}
	cfg.State.Path = expandEnv(cfg.State.Path)
	cfg.Signals.Dir = expandEnv(cfg.Signals.Dir)
	cfg.Decompose.TemplatesFile = expandEnv(cfg.Decompose.TemplatesFile)

	return cfg, nil
}

// loadDotEnv reads path into the environment if it exists. Variables that
// are already set win.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Save writes the configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return SaveToPath(cfg, filepath.Join(userConfigDir, "config.yaml"))
}

// SaveToPath writes the configuration to path.
func SaveToPath(cfg *Config, path string) error {
	v := viper.New()
	v.SetConfigFile(path)

	v.Set("server.host", cfg.Server.Host)
	v.Set("server.port", cfg.Server.Port)
	v.Set("default_provider", cfg.DefaultProvider)
	v.Set("limits.global_concurrent", cfg.Limits.GlobalConcurrent)
	v.Set("consensus.n", cfg.Consensus.N)
	v.Set("consensus.k", cfg.Consensus.K)
	v.Set("consensus.max_candidate_chars", cfg.Consensus.MaxCandidateChars)
	v.Set("consensus.red_flag_max_chars", cfg.Consensus.RedFlagMaxChars)
	v.Set("orchestrator.max_steps", cfg.Orchestrator.MaxSteps)
	v.Set("orchestrator.verify", cfg.Orchestrator.Verify)
	v.Set("orchestrator.classifier_fallback", cfg.Orchestrator.ClassifierFallback)
	v.Set("decompose.templates_file", cfg.Decompose.TemplatesFile)
	v.Set("decompose.cache_size", cfg.Decompose.CacheSize)
	v.Set("state.path", cfg.State.Path)
	v.Set("signals.dir", cfg.Signals.Dir)

	providers := make([]map[string]any, 0, len(cfg.Providers))
	for _, p := range cfg.Providers {
		m := map[string]any{
			"id":             p.ID,
			"kind":           p.Kind,
			"model":          p.Model,
			"timeout":        p.Timeout.String(),
			"max_concurrent": p.MaxConcurrent,
		}
		if p.BaseURL != "" {
			m["base_url"] = p.BaseURL
		}
		if p.APIKey != "" {
			m["api_key"] = p.APIKey
		}
		if p.Bedrock {
			m["bedrock"] = true
			m["aws_region"] = p.AWSRegion
			m["aws_profile"] = p.AWSProfile
		}
		if len(p.Replies) > 0 {
			m["replies"] = p.Replies
		}
		providers = append(providers, m)
	}
	v.Set("providers", providers)

	return v.WriteConfig()
}

// Validate reports every problem with the configuration.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Consensus.N < 1 {
		errs = append(errs, fmt.Errorf("consensus.n must be at least 1, got %d", c.Consensus.N))
	}
	if c.Consensus.K < 1 {
		errs = append(errs, fmt.Errorf("consensus.k must be at least 1, got %d", c.Consensus.K))
	}
	if c.Limits.GlobalConcurrent < 0 {
		errs = append(errs, errors.New("limits.global_concurrent cannot be negative"))
	}

	seen := make(map[string]bool, len(c.Providers))
	for i, p := range c.Providers {
		switch p.Kind {
		case KindAnthropic, KindOpenAI, KindGemini, KindFake:
		default:
			errs = append(errs, fmt.Errorf("providers[%d]: unknown kind %q", i, p.Kind))
		}
		if p.Kind == KindOpenAI && p.BaseURL == "" {
			errs = append(errs, fmt.Errorf("providers[%d]: openai provider needs base_url", i))
		}
		if seen[p.ID] {
			errs = append(errs, fmt.Errorf("providers[%d]: duplicate id %q", i, p.ID))
		}
		seen[p.ID] = true
	}
	if c.DefaultProvider != "" && !seen[c.DefaultProvider] {
		errs = append(errs, fmt.Errorf("default_provider %q is not configured", c.DefaultProvider))
	}

	return errors.Join(errs...)
}

// Provider returns the provider config with the given id.
func (c *Config) Provider(id string) (ProviderConfig, bool) {
	for _, p := range c.Providers {
		if p.ID == id {
			return p, true
		}
	}
	return ProviderConfig{}, false
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 3030)

	v.SetDefault("default_provider", "")
	v.SetDefault("limits.global_concurrent", 0)

	v.SetDefault("consensus.n", 5)
	v.SetDefault("consensus.k", 2)
	v.SetDefault("consensus.max_candidate_chars", 1000)
	v.SetDefault("consensus.red_flag_max_chars", 2800)

	v.SetDefault("orchestrator.max_steps", 8)
	v.SetDefault("orchestrator.verify", false)
	v.SetDefault("orchestrator.classifier_fallback", false)

	v.SetDefault("decompose.templates_file", "")
	v.SetDefault("decompose.cache_size", 128)

	v.SetDefault("state.path", filepath.Join(getDataDir(), "boomai.db"))
	v.SetDefault("signals.dir", filepath.Join(getStateDir(), "signals"))
}

// getUserConfigDir returns the XDG config directory for boomai.
func getUserConfigDir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

func getDataDir() string {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

func getStateDir() string {
	return xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

// xdgDir returns $env/boomai, falling back to ~/<fallback>/boomai.
func xdgDir(env, fallback string) string {
	if dir := os.Getenv(env); dir != "" {
		return filepath.Join(dir, "boomai")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", fallback, "boomai")
	}
	return filepath.Join(home, fallback, "boomai")
}

// findProjectConfig searches for .boomai.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".boomai.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values and no providers.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 3030,
		},
		Consensus: ConsensusConfig{
			N:                 5,
			K:                 2,
			MaxCandidateChars: 1000,
			RedFlagMaxChars:   2800,
		},
		Orchestrator: OrchestratorConfig{
			MaxSteps: 8,
		},
		Decompose: DecomposeConfig{
			CacheSize: 128,
		},
		State: StateConfig{
			Path: filepath.Join(getDataDir(), "boomai.db"),
		},
		Signals: SignalsConfig{
			Dir: filepath.Join(getStateDir(), "signals"),
		},
	}
}
