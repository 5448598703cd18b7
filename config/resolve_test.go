package config

import "testing"

func ptr[T any](v T) *T { return &v }

func TestResolve_Defaults(t *testing.T) {
	eff := Resolve(Default())

	if eff.BaseURL != DefaultBaseURL || eff.Model != DefaultModel {
		t.Errorf("unexpected endpoint defaults: %+v", eff)
	}
	if eff.MaxTokens != DefaultMaxTokens || eff.ContextLimit != DefaultContextLimit {
		t.Errorf("unexpected numeric defaults: %+v", eff)
	}
	if eff.SystemPrompt != DefaultSystemPrompt {
		t.Errorf("got system prompt %q", eff.SystemPrompt)
	}
}

func TestResolve_LaterLayersWin(t *testing.T) {
	global := Default()
	global.APIKeyDeepSeek = "global-key"
	global.Model = "global-model"

	sessionLayer := Overrides{Model: ptr("session-model"), ContextLimit: ptr(5)}
	callLayer := Overrides{Model: ptr("call-model"), APIKey: ptr("call-key")}

	eff := Resolve(global, sessionLayer, callLayer)
	if eff.Model != "call-model" {
		t.Errorf("got model %q, want call-model", eff.Model)
	}
	if eff.APIKey != "call-key" {
		t.Errorf("got api key %q, want call-key", eff.APIKey)
	}
	if eff.ContextLimit != 5 {
		t.Errorf("got context limit %d, want 5", eff.ContextLimit)
	}
}

func TestResolve_ExplicitZeroes(t *testing.T) {
	eff := Resolve(Default(), Overrides{Temperature: ptr(0.0), ContextLimit: ptr(0), MaxTokens: ptr(0)})

	if eff.Temperature != 0 {
		t.Errorf("got temperature %v, want 0", eff.Temperature)
	}
	if eff.ContextLimit != 0 {
		t.Errorf("got context limit %d, want 0", eff.ContextLimit)
	}
	if eff.MaxTokens != DefaultMaxTokens {
		t.Errorf("non-positive max_tokens should not override, got %d", eff.MaxTokens)
	}
}

func TestResolve_EmptyStringsFallThrough(t *testing.T) {
	eff := Resolve(Default(), Overrides{BaseURL: ptr(""), Model: ptr("")})

	if eff.BaseURL != DefaultBaseURL || eff.Model != DefaultModel {
		t.Errorf("empty strings should not override: %+v", eff)
	}
}

func TestParseOverrides(t *testing.T) {
	o, err := ParseOverrides(map[string]any{
		"api_key":       "sk-1",
		"max_tokens":    float64(1024),
		"temperature":   0.3,
		"context_limit": nil,
		"unknown":       true,
	})
	if err != nil {
		t.Fatalf("ParseOverrides failed: %v", err)
	}
	if o.APIKey == nil || *o.APIKey != "sk-1" {
		t.Errorf("api_key not parsed: %+v", o.APIKey)
	}
	if o.MaxTokens == nil || *o.MaxTokens != 1024 {
		t.Errorf("max_tokens not parsed: %+v", o.MaxTokens)
	}
	if o.ContextLimit != nil {
		t.Errorf("null context_limit should stay unset, got %d", *o.ContextLimit)
	}
}

func TestParseOverrides_InvalidType(t *testing.T) {
	if _, err := ParseOverrides(map[string]any{"max_tokens": "lots"}); err == nil {
		t.Error("expected error for non-numeric max_tokens")
	}
}
