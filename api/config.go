package api

import (
	"log/slog"
	"net/http"

	"github.com/deepchat/server/config"
)

// ConfigHandler serves the global application config.
type ConfigHandler struct {
	store *config.Store
}

func NewConfigHandler(store *config.Store) *ConfigHandler {
	return &ConfigHandler{store: store}
}

// HandleGet handles GET /api/config
func (h *ConfigHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Get())
}

// HandleSave handles POST /api/config. Fields missing from the body take
// their default values.
func (h *ConfigHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	cfg := config.Default()
	if err := decodeBody(w, r, &cfg); err != nil {
		writeDetail(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	if err := h.store.Set(cfg); err != nil {
		slog.Error("failed to save config", "path", h.store.Path(), "error", err)
		writeDetail(w, http.StatusInternalServerError, "failed to save config")
		return
	}

	slog.Info("config saved", "provider", cfg.Provider, "model", cfg.Model)
	writeSuccess(w)
}

func (h *ConfigHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/config", h.HandleGet)
	mux.HandleFunc("POST /api/config", h.HandleSave)
}
