package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigError reports a missing or unusable configuration value.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Msg)
}

type Config struct {
	App       AppConfig                 `json:"app" yaml:"app"`
	Gateways  map[string]GatewayConfig  `json:"gateways" yaml:"gateways"`
	Providers map[string]ProviderConfig `json:"providers" yaml:"providers"`
	Archive   ArchiveConfig             `json:"archive" yaml:"archive"`
	Policy    PolicyConfig              `json:"policy" yaml:"policy"`
}

type AppConfig struct {
	Name       string `json:"name" yaml:"name"`
	PromptsDir string `json:"prompts_dir" yaml:"prompts_dir"`
}

type GatewayConfig struct {
	Token   string `json:"token" yaml:"token"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}

type ProviderConfig struct {
	APIKey  string `json:"api_key" yaml:"api_key"`
	Model   string `json:"model" yaml:"model"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}

type ArchiveConfig struct {
	Path string `json:"path" yaml:"path"`
}

type PolicyConfig struct {
	DenyPatterns      []string `json:"deny_patterns" yaml:"deny_patterns"`
	MaxObjectiveChars int      `json:"max_objective_chars" yaml:"max_objective_chars"`
}

// Known provider defaults. Keys and base URLs fall back to the environment
// so a config file never has to hold secrets.
var providerDefaults = map[string]struct {
	keyEnv  string
	baseURL string
	model   string
}{
	"qwen":     {keyEnv: "DASHSCOPE_API_KEY", baseURL: "https://dashscope.aliyuncs.com/compatible-mode/v1", model: "qwen-plus"},
	"deepseek": {keyEnv: "DS_API_KEY", baseURL: "https://api.deepseek.com/v1", model: "deepseek-chat"},
	"openai":   {keyEnv: "OPENAI_API_KEY"},
}

// LoadConfig reads a JSON or YAML config file, chosen by extension.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Field: path, Msg: err.Error()}
	}

	var cfg Config
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, &ConfigError{Field: path, Msg: err.Error()}
	}

	return &cfg, nil
}

// expand resolves ${VAR} references against the environment. Values without
// a dollar sign pass through untouched so regex patterns stay intact.
func expand(s string) string {
	if strings.Contains(s, "$") {
		return os.ExpandEnv(s)
	}
	return s
}

// ResolveProvider picks a provider by name, or the first enabled one when
// name is empty, and fills in the known environment and base URL defaults.
func (c *Config) ResolveProvider(name string) (string, ProviderConfig, error) {
	var p ProviderConfig
	if name == "" {
		name, p = c.defaultProvider()
		if name == "" {
			return "", ProviderConfig{}, &ConfigError{Field: "providers", Msg: "no enabled provider"}
		}
	} else {
		var ok bool
		p, ok = c.Providers[name]
		if !ok {
			return "", ProviderConfig{}, &ConfigError{Field: "providers." + name, Msg: "unknown provider"}
		}
		if !p.Enabled {
			return "", ProviderConfig{}, &ConfigError{Field: "providers." + name, Msg: "provider is disabled"}
		}
	}

	p.APIKey = expand(p.APIKey)
	p.BaseURL = expand(p.BaseURL)

	def, known := providerDefaults[name]
	if known {
		if p.APIKey == "" {
			p.APIKey = os.Getenv(def.keyEnv)
		}
		if p.BaseURL == "" {
			p.BaseURL = def.baseURL
		}
		if p.Model == "" {
			p.Model = def.model
		}
	}

	if p.APIKey == "" {
		msg := "missing API key"
		if known {
			msg = fmt.Sprintf("missing API key (set %s)", def.keyEnv)
		}
		return "", ProviderConfig{}, &ConfigError{Field: "providers." + name + ".api_key", Msg: msg}
	}
	if p.Model == "" {
		return "", ProviderConfig{}, &ConfigError{Field: "providers." + name + ".model", Msg: "missing model name"}
	}

	return name, p, nil
}

// defaultProvider returns the first enabled provider, preferring the known
// ones so map iteration order does not decide.
func (c *Config) defaultProvider() (string, ProviderConfig) {
	for _, name := range []string{"qwen", "deepseek", "openai"} {
		if p, ok := c.Providers[name]; ok && p.Enabled {
			return name, p
		}
	}
	for name, p := range c.Providers {
		if p.Enabled {
			return name, p
		}
	}
	return "", ProviderConfig{}
}

// GetTelegramConfig returns telegram config if enabled
func (c *Config) GetTelegramConfig() (GatewayConfig, bool) {
	tg, ok := c.Gateways["telegram"]
	if ok && tg.Enabled {
		tg.Token = expand(tg.Token)
		return tg, true
	}
	return GatewayConfig{}, false
}

// ArchivePath returns the sqlite path for the run archive, with a default
// next to the binary.
func (c *Config) ArchivePath() string {
	if c.Archive.Path != "" {
		return c.Archive.Path
	}
	return "kadam.db"
}
