// Package config loads and persists the navigator configuration. Settings
// live in ~/.navigator/config.yaml and every key can be overridden through
// NAVIGATOR_* environment variables (NAVIGATOR_LLM_ENDPOINT, ...).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/kmarchand/navigator/internal/grounding"
)

// Config holds all navigator settings.
type Config struct {
	Dispatch DispatchConfig `mapstructure:"dispatch" yaml:"dispatch"`
	LLM      LLMConfig      `mapstructure:"llm" yaml:"llm"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

// DispatchConfig tunes tier-chain behavior.
type DispatchConfig struct {
	// SuppressionTurns is the repeat-stop suppression window, in turns.
	SuppressionTurns int `mapstructure:"suppression_turns" yaml:"suppression_turns"`
	// LatchTTLTurns bounds how many turns a pending focus latch waits for a
	// surface registration before expiring.
	LatchTTLTurns int `mapstructure:"latch_ttl_turns" yaml:"latch_ttl_turns"`
	// GroundingPolicy orders an open widget list against a paused snapshot:
	// "widget_first" or "snapshot_first".
	GroundingPolicy string `mapstructure:"grounding_policy" yaml:"grounding_policy"`
	// PreviewEnabled turns on preview shortcuts ("preview settings").
	PreviewEnabled bool `mapstructure:"preview_enabled" yaml:"preview_enabled"`
	// RetrievalEnabled gates the terminal retrieval fallback.
	RetrievalEnabled bool `mapstructure:"retrieval_enabled" yaml:"retrieval_enabled"`
}

// LLMConfig configures the constrained classifier backend.
type LLMConfig struct {
	// Enabled turns the classifier escape hatch on. When off, every tier
	// falls back to its deterministic confirm/clarify path.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Endpoint is an OpenAI-compatible chat-completions base URL.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	// APIKey authenticates against the endpoint, if it needs one.
	APIKey string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	// Model names the classifier model.
	Model string `mapstructure:"model" yaml:"model"`
	// Timeout bounds a single classification call.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// MinConfidence is the floor below which a select verdict becomes an
	// abstain.
	MinConfidence float64 `mapstructure:"min_confidence" yaml:"min_confidence"`
}

// ServerConfig configures the WebSocket gateway.
type ServerConfig struct {
	// Addr is the listen address for `navigator serve`.
	Addr string `mapstructure:"addr" yaml:"addr"`
	// TelemetryReplay is how many recent telemetry events a new event-stream
	// client receives on connect.
	TelemetryReplay int `mapstructure:"telemetry_replay" yaml:"telemetry_replay"`
}

// StoreConfig configures the decision audit log.
type StoreConfig struct {
	// Enabled turns per-turn decision auditing on.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Path is the SQLite database file.
	Path string `mapstructure:"path" yaml:"path"`
	// RetainDays is how long audit records are kept before Prune removes
	// them. Zero keeps everything.
	RetainDays int `mapstructure:"retain_days" yaml:"retain_days"`
}

// LoggingConfig configures zerolog output.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `mapstructure:"level" yaml:"level"`
	// File is an optional log file path; empty logs to stderr only.
	File string `mapstructure:"file" yaml:"file"`
	// Pretty switches stderr output to the human console writer.
	Pretty bool `mapstructure:"pretty" yaml:"pretty"`
}

// Default returns the configuration written on first run.
func Default() *Config {
	return &Config{
		Dispatch: DispatchConfig{
			SuppressionTurns: 2,
			LatchTTLTurns:    3,
			GroundingPolicy:  string(grounding.PolicyWidgetFirst),
			PreviewEnabled:   true,
			RetrievalEnabled: true,
		},
		LLM: LLMConfig{
			Enabled:       true,
			Endpoint:      "http://localhost:11434/v1",
			Model:         "llama3.2",
			Timeout:       800 * time.Millisecond,
			MinConfidence: 0.55,
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:8731",
			TelemetryReplay: 50,
		},
		Store: StoreConfig{
			Enabled:    true,
			Path:       "~/.navigator/decisions.db",
			RetainDays: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

// Load reads ~/.navigator/config.yaml, creating it with defaults first if it
// does not exist.
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home directory: %w", err)
	}
	return LoadFromPath(filepath.Join(homeDir, ".navigator", "config.yaml"))
}

// LoadFromPath reads a config file, creating it with defaults when missing,
// and applies NAVIGATOR_* environment overrides.
func LoadFromPath(path string) (*Config, error) {
	path = expandPath(path)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeConfigFile(path, Default()); err != nil {
			return nil, fmt.Errorf("write default config: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("NAVIGATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Store.Path = expandPath(cfg.Store.Path)
	cfg.Logging.File = expandPath(cfg.Logging.File)

	return &cfg, nil
}

// Save writes the configuration back to its default location.
func (c *Config) Save() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("get home directory: %w", err)
	}
	return c.SaveToPath(filepath.Join(homeDir, ".navigator", "config.yaml"))
}

// SaveToPath writes the configuration as YAML to the given path.
func (c *Config) SaveToPath(path string) error {
	path = expandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return writeConfigFile(path, c)
}

// Policy converts the configured grounding policy string, defaulting to
// widget-first on anything unrecognized.
func (c *Config) Policy() grounding.Policy {
	if c.Dispatch.GroundingPolicy == string(grounding.PolicySnapshotFirst) {
		return grounding.PolicySnapshotFirst
	}
	return grounding.PolicyWidgetFirst
}

// Validate checks cross-field consistency before the config is used.
func (c *Config) Validate() error {
	if c.Dispatch.SuppressionTurns < 0 {
		return fmt.Errorf("dispatch.suppression_turns must not be negative")
	}
	if c.Dispatch.LatchTTLTurns < 1 {
		return fmt.Errorf("dispatch.latch_ttl_turns must be at least 1")
	}
	switch c.Dispatch.GroundingPolicy {
	case string(grounding.PolicyWidgetFirst), string(grounding.PolicySnapshotFirst), "":
	default:
		return fmt.Errorf("dispatch.grounding_policy: unknown policy %q", c.Dispatch.GroundingPolicy)
	}
	if c.LLM.Enabled {
		if c.LLM.Endpoint == "" {
			return fmt.Errorf("llm.endpoint is required when llm.enabled is true")
		}
		if c.LLM.Timeout <= 0 {
			return fmt.Errorf("llm.timeout must be positive")
		}
		if c.LLM.MinConfidence < 0 || c.LLM.MinConfidence > 1 {
			return fmt.Errorf("llm.min_confidence must be within [0, 1]")
		}
	}
	if c.Store.Enabled && c.Store.Path == "" {
		return fmt.Errorf("store.path is required when store.enabled is true")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error", "":
	default:
		return fmt.Errorf("logging.level: unknown level %q", c.Logging.Level)
	}
	return nil
}

func writeConfigFile(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	header := "# Navigator configuration\n# Environment overrides: NAVIGATOR_<SECTION>_<KEY> (e.g. NAVIGATOR_LLM_ENDPOINT)\n\n"
	return os.WriteFile(path, append([]byte(header), data...), 0o644)
}

// expandPath resolves a leading tilde against the home directory.
func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
