package api

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/deepchat/server/config"
)

func newConfigMux(t *testing.T) (*http.ServeMux, *config.Store) {
	t.Helper()
	store := config.NewStore(filepath.Join(t.TempDir(), "config.json"))
	mux := http.NewServeMux()
	NewConfigHandler(store).Register(mux)
	return mux, store
}

func TestConfigHandler_Get(t *testing.T) {
	mux, _ := newConfigMux(t)

	rec := serve(mux, http.MethodGet, "/api/config", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var cfg config.Config
	if err := json.NewDecoder(rec.Body).Decode(&cfg); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if cfg != config.Default() {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestConfigHandler_Save(t *testing.T) {
	mux, store := newConfigMux(t)

	expectSuccess(t, serve(mux, http.MethodPost, "/api/config",
		`{"provider":"DeepSeek Official","api_key_deepseek":"sk-test","model":"deepseek-reasoner"}`))

	got := store.Get()
	if got.APIKeyDeepSeek != "sk-test" || got.Model != "deepseek-reasoner" {
		t.Errorf("config not saved: %+v", got)
	}
	if got.MaxTokens != config.DefaultMaxTokens {
		t.Errorf("missing fields should take defaults, got max_tokens %d", got.MaxTokens)
	}

	onDisk, err := config.Load(store.Path())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if onDisk != got {
		t.Errorf("on-disk config %+v differs from memory %+v", onDisk, got)
	}
}

func TestConfigHandler_Save_InvalidBody(t *testing.T) {
	mux, store := newConfigMux(t)

	rec := serve(mux, http.MethodPost, "/api/config", `{"max_tokens":"many"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
	if store.Get() != config.Default() {
		t.Error("config should be unchanged")
	}
}

func TestRoot(t *testing.T) {
	mux := http.NewServeMux()
	RegisterRoot(mux, "1.2.3")

	rec := serve(mux, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["version"] != "1.2.3" || resp["message"] == "" {
		t.Errorf("unexpected banner: %v", resp)
	}

	rec = serve(mux, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("health: got %d %q", rec.Code, rec.Body.String())
	}

	rec = serve(mux, http.MethodGet, "/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown path, got %d", rec.Code)
	}
}
