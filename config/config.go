// Package config holds the application settings: the global config file,
// per-session and per-call overrides, and their resolution into the values
// used for one upstream call.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/deepchat/server/fileutil"
)

const (
	ProviderDeepSeek    = "DeepSeek Official"
	ProviderSiliconFlow = "SiliconFlow (硅基流动)"
	ProviderVolcengine  = "Volcengine (火山引擎/豆包)"

	DefaultBaseURL      = "https://api.deepseek.com"
	DefaultModel        = "deepseek-chat"
	DefaultMaxTokens    = 4096
	DefaultTemperature  = 1.0
	DefaultSystemPrompt = "你是一个乐于助人的 AI 助手。"
	DefaultContextLimit = 20
)

// Config is the process-wide configuration persisted in config.json.
type Config struct {
	APIKeyDeepSeek    string  `json:"api_key_deepseek"`
	APIKeySiliconFlow string  `json:"api_key_siliconflow"`
	APIKeyVolcengine  string  `json:"api_key_volcengine"`
	Provider          string  `json:"provider"`
	BaseURL           string  `json:"base_url"`
	Model             string  `json:"model"`
	MaxTokens         int     `json:"max_tokens"`
	Temperature       float64 `json:"temperature"`
	SystemPrompt      string  `json:"system_prompt"`
	ContextLimit      int     `json:"context_limit"`
	Theme             string  `json:"theme"`
}

// Default returns a Config with the built-in provider defaults.
func Default() Config {
	return Config{
		Provider:     ProviderDeepSeek,
		BaseURL:      DefaultBaseURL,
		Model:        DefaultModel,
		MaxTokens:    DefaultMaxTokens,
		Temperature:  DefaultTemperature,
		SystemPrompt: DefaultSystemPrompt,
		ContextLimit: DefaultContextLimit,
		Theme:        "dark",
	}
}

// APIKey returns the key configured for the selected provider.
func (c Config) APIKey() string {
	switch c.Provider {
	case ProviderSiliconFlow:
		return c.APIKeySiliconFlow
	case ProviderVolcengine:
		return c.APIKeyVolcengine
	default:
		return c.APIKeyDeepSeek
	}
}

// Load reads a config file over the defaults. Fields absent from the file
// keep their default values. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to path atomically.
func Save(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return fileutil.WriteAtomic(path, data)
}
