// internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/ini.v1"
)

// FileName is the optional per-repository config file inside .pit.
const FileName = "config.toml"

// IniFileName is read when FileName is absent.
const IniFileName = "config.ini"

type Config struct {
	LogLevel      string `json:"log_level" toml:"log_level" ini:"log_level"` // debug, info, warn, error
	DefaultBranch string `json:"default_branch" toml:"default_branch" ini:"default_branch"`

	Store struct {
		CacheSize int `json:"cache_size" toml:"cache_size" ini:"cache_size"`
	} `json:"store" toml:"store" ini:"store"`

	Diff struct {
		ContextLines int `json:"context_lines" toml:"context_lines" ini:"context_lines"`
	} `json:"diff" toml:"diff" ini:"diff"`

	Database struct {
		InMemory bool `json:"in_memory" toml:"in_memory" ini:"in_memory"`
	} `json:"database" toml:"database" ini:"database"`
}

// Default returns the settings used when no config file exists.
func Default() *Config {
	cfg := &Config{
		LogLevel:      "warn",
		DefaultBranch: "main",
	}
	cfg.Store.CacheSize = 512
	cfg.Diff.ContextLines = 3
	return cfg
}

// Load reads a JSON or TOML file, chosen by extension, over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), config); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case ".ini":
		file, err := ini.Load(data)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		if err := file.MapTo(config); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", path)
	}

	config.applyEnv()
	return config, config.Validate()
}

// LoadRepo reads metaDir/config.toml or metaDir/config.ini, falling back
// to the defaults when neither exists.
func LoadRepo(metaDir string) (*Config, error) {
	for _, name := range []string{FileName, IniFileName} {
		path := filepath.Join(metaDir, name)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	config := Default()
	config.applyEnv()
	return config, nil
}

func (c *Config) applyEnv() {
	if level := os.Getenv("PIT_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
}

// Validate rejects settings the repository cannot run with.
func (c *Config) Validate() error {
	if c.DefaultBranch == "" {
		return fmt.Errorf("default_branch cannot be empty")
	}
	if c.Store.CacheSize < 0 {
		return fmt.Errorf("store.cache_size must not be negative")
	}
	if c.Diff.ContextLines < 0 {
		return fmt.Errorf("diff.context_lines must not be negative")
	}
	return nil
}
