package config

import (
	"encoding/json"
	"fmt"
)

// Overrides is a partial configuration layer. Nil fields are unset; an
// explicit zero (temperature 0, context_limit 0) is a value.
type Overrides struct {
	APIKey       *string  `json:"api_key,omitempty"`
	BaseURL      *string  `json:"base_url,omitempty"`
	Model        *string  `json:"model,omitempty"`
	MaxTokens    *int     `json:"max_tokens,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
	SystemPrompt *string  `json:"system_prompt,omitempty"`
	ContextLimit *int     `json:"context_limit,omitempty"`
}

// ParseOverrides decodes a loosely typed override mapping such as a
// session's config or the config object of a chat request. Unknown keys
// are ignored.
func ParseOverrides(m map[string]any) (Overrides, error) {
	var o Overrides
	if len(m) == 0 {
		return o, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return o, err
	}
	if err := json.Unmarshal(data, &o); err != nil {
		return o, fmt.Errorf("invalid config override: %w", err)
	}
	return o, nil
}

// Effective is the fully resolved configuration for one upstream call.
type Effective struct {
	APIKey       string
	BaseURL      string
	Model        string
	MaxTokens    int
	Temperature  float64
	SystemPrompt string
	ContextLimit int
}

// Resolve merges global with each override layer in order; later layers win.
// Empty strings never replace a value, so a client that sends "" for a field
// falls back to the lower layer.
func Resolve(global Config, layers ...Overrides) Effective {
	eff := Effective{
		APIKey:       global.APIKey(),
		BaseURL:      global.BaseURL,
		Model:        global.Model,
		MaxTokens:    global.MaxTokens,
		Temperature:  global.Temperature,
		SystemPrompt: global.SystemPrompt,
		ContextLimit: global.ContextLimit,
	}
	if eff.BaseURL == "" {
		eff.BaseURL = DefaultBaseURL
	}
	if eff.Model == "" {
		eff.Model = DefaultModel
	}
	if eff.MaxTokens <= 0 {
		eff.MaxTokens = DefaultMaxTokens
	}

	for _, l := range layers {
		mergeString(&eff.APIKey, l.APIKey)
		mergeString(&eff.BaseURL, l.BaseURL)
		mergeString(&eff.Model, l.Model)
		mergeString(&eff.SystemPrompt, l.SystemPrompt)
		if l.MaxTokens != nil && *l.MaxTokens > 0 {
			eff.MaxTokens = *l.MaxTokens
		}
		if l.Temperature != nil {
			eff.Temperature = *l.Temperature
		}
		if l.ContextLimit != nil {
			eff.ContextLimit = *l.ContextLimit
		}
	}
	return eff
}

func mergeString(dst *string, src *string) {
	if src != nil && *src != "" {
		*dst = *src
	}
}
