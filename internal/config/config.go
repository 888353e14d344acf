package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"packedit/internal/errors"
	"packedit/pkg/types"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

// TypeRule maps entry paths matching Pattern to a packed file type
type TypeRule struct {
	Pattern string `yaml:"pattern"` // Glob over the slash separated entry path
	Type    string `yaml:"type"`    // unknown, text, table or image
}

// Config represents the application configuration structure.
type Config struct {
	Paths struct {
		MyModsBasePath string            `yaml:"my_mods_base_path"` // Folder holding MyMod projects
		Games          map[string]string `yaml:"games"`             // Game key to install folder
	} `yaml:"paths"`
	DefaultGame string `yaml:"default_game"` // Game selected on startup
	Bus         struct {
		QueueSize       int `yaml:"queue_size"`       // Bound of the backend request channel
		WatchdogSeconds int `yaml:"watchdog_seconds"` // Warn when a response takes longer (0 = off)
	} `yaml:"bus"`
	Views struct {
		SinglePreview bool `yaml:"single_preview"` // Opening a preview replaces the previous one
	} `yaml:"views"`
	Types []TypeRule `yaml:"types"` // Checked in order, first match wins
	Log   struct {
		Debug bool   `yaml:"debug"`
		JSON  bool   `yaml:"json"`
		File  string `yaml:"file"`
	} `yaml:"log"`
	Watch struct {
		Enabled bool `yaml:"enabled"` // Re-import files changed in the source folder
	} `yaml:"watch"`
}

// Games lists the game keys accepted by default_game
var Games = []string{
	"three_kingdoms",
	"warhammer_2",
	"warhammer",
	"thrones_of_britannia",
	"attila",
	"rome_2",
	"shogun_2",
	"napoleon",
	"empire",
	"arena",
}

// DefaultPath returns ~/.config/packedit/config.yaml
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "packedit", "config.yaml"), nil
}

// LoadConfig loads configuration from the default location
func LoadConfig() (*Config, error) {
	configPath, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadConfigFile(configPath)
}

// LoadConfigFile loads configuration from a specific file path.
// If the file doesn't exist, returns default configuration.
func LoadConfigFile(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Unmarshal into a temporary config to preserve defaults for unset fields
	var tempCfg Config
	if err := yaml.Unmarshal(data, &tempCfg); err != nil {
		return nil, errors.NewConfigError("error parsing config file", path, errors.InvalidConfig, err)
	}

	if tempCfg.Paths.MyModsBasePath != "" {
		cfg.Paths.MyModsBasePath = tempCfg.Paths.MyModsBasePath
	}
	for game, dir := range tempCfg.Paths.Games {
		cfg.Paths.Games[game] = dir
	}
	if tempCfg.DefaultGame != "" {
		cfg.DefaultGame = tempCfg.DefaultGame
	}
	if tempCfg.Bus.QueueSize != 0 {
		cfg.Bus.QueueSize = tempCfg.Bus.QueueSize
	}
	if tempCfg.Bus.WatchdogSeconds != 0 {
		cfg.Bus.WatchdogSeconds = tempCfg.Bus.WatchdogSeconds
	}
	if len(tempCfg.Types) > 0 {
		cfg.Types = tempCfg.Types
	}
	cfg.Log = tempCfg.Log
	cfg.Watch = tempCfg.Watch

	// single_preview defaults to true, so only an explicit false may turn it off
	var raw struct {
		Views struct {
			SinglePreview *bool `yaml:"single_preview"`
		} `yaml:"views"`
	}
	if err := yaml.Unmarshal(data, &raw); err == nil && raw.Views.SinglePreview != nil {
		cfg.Views.SinglePreview = *raw.Views.SinglePreview
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// DefaultTypeRules classify the usual PackFile contents
func DefaultTypeRules() []TypeRule {
	return []TypeRule{
		{Pattern: "db/**", Type: "table"},
		{Pattern: "**.tsv", Type: "table"},
		{Pattern: "**.{txt,lua,xml,json,yaml,yml,csv,md,html,css,js,inl,battle_script,variantmeshdefinition,wsmodel}", Type: "text"},
		{Pattern: "**.{png,jpg,jpeg,gif,bmp,tif,tiff,webp}", Type: "image"},
	}
}

// defaultConfig returns the default configuration with safe defaults.
func defaultConfig() *Config {
	cfg := &Config{}
	cfg.Paths.Games = map[string]string{}
	cfg.DefaultGame = "warhammer_2"
	cfg.Bus.QueueSize = 64
	cfg.Bus.WatchdogSeconds = 5
	cfg.Views.SinglePreview = true
	cfg.Types = DefaultTypeRules()
	return cfg
}

// SaveConfig saves the configuration to the specified file.
// It creates parent directories if they don't exist.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errors.NewConfigError("nil config", "", errors.InvalidConfig, nil)
	}

	if c.Bus.QueueSize < 1 {
		return errors.NewConfigError("queue size must be >= 1", "bus.queue_size", errors.InvalidConfig, nil)
	}
	if c.Bus.WatchdogSeconds < 0 {
		return errors.NewConfigError("watchdog must be >= 0 seconds", "bus.watchdog_seconds", errors.InvalidConfig, nil)
	}

	if c.DefaultGame != "" && !isKnownGame(c.DefaultGame) {
		return errors.NewConfigError(fmt.Sprintf("unknown game %q", c.DefaultGame), "default_game", errors.InvalidConfig, nil)
	}
	for game := range c.Paths.Games {
		if !isKnownGame(game) {
			return errors.NewConfigError(fmt.Sprintf("unknown game %q", game), "paths.games", errors.InvalidConfig, nil)
		}
	}

	for i, rule := range c.Types {
		param := fmt.Sprintf("types[%d]", i)
		if rule.Pattern == "" {
			return errors.NewConfigError("pattern is required", param, errors.InvalidConfig, nil)
		}
		if _, err := glob.Compile(rule.Pattern, '/'); err != nil {
			return errors.NewConfigError("invalid pattern", param, errors.InvalidConfig, err)
		}
		if _, err := types.ParsePackedFileType(rule.Type); err != nil {
			return errors.NewConfigError("invalid type", param, errors.InvalidConfig, err)
		}
	}

	return nil
}

// Watchdog returns the liveness watchdog as a duration, 0 when disabled
func (c *Config) Watchdog() time.Duration {
	return time.Duration(c.Bus.WatchdogSeconds) * time.Second
}

// GamePaths returns the configured game folders sorted by game key
func (c *Config) GamePaths() []string {
	keys := make([]string, 0, len(c.Paths.Games))
	for k := range c.Paths.Games {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, fmt.Sprintf("%s=%s", k, c.Paths.Games[k]))
	}
	return out
}

func isKnownGame(key string) bool {
	for _, g := range Games {
		if g == key {
			return true
		}
	}
	return false
}

// NewTestConfig creates a configuration instance for testing purposes.
func NewTestConfig() *Config {
	cfg := defaultConfig()
	cfg.Bus.QueueSize = 8
	cfg.Bus.WatchdogSeconds = 0
	return cfg
}

// New creates a new configuration instance with default values.
func New() *Config {
	return defaultConfig()
}
