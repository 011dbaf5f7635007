package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

type LLMConfig struct {
	Provider       string `toml:"provider"`
	Model          string `toml:"model"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	ThinkingBudget int    `toml:"thinking_budget"`
}

type PipelineConfig struct {
	// DayLimit is the default trailing day window when the request does not
	// specify one.
	DayLimit    int `toml:"day_limit"`
	Concurrency int `toml:"concurrency"`
}

type ClusterConfig struct {
	BaseURL         string `toml:"base_url"`
	WaitTimeoutMins int    `toml:"wait_timeout_minutes"`
}

type StoreConfig struct {
	Path string `toml:"path"`
}

type PromptConfig struct {
	Dir string `toml:"dir"`
}

type Config struct {
	LLM      LLMConfig      `toml:"llm"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Cluster  ClusterConfig  `toml:"cluster"`
	Store    StoreConfig    `toml:"store"`
	Prompts  PromptConfig   `toml:"prompts"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a config with sane defaults, used when no config file is
// present and everything comes from the environment.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.LLM.Provider == "" {
		c.LLM.Provider = "gemini"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gemini-2.5-pro"
	}
	if c.Pipeline.DayLimit == 0 {
		c.Pipeline.DayLimit = 7
	}
	if c.Pipeline.Concurrency == 0 {
		c.Pipeline.Concurrency = 5
	}
	if c.Cluster.WaitTimeoutMins == 0 {
		c.Cluster.WaitTimeoutMins = 50
	}
	if c.Store.Path == "" {
		c.Store.Path = "ember.db"
	}
	if c.Prompts.Dir == "" {
		c.Prompts.Dir = "prompts"
	}
}
