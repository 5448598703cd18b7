package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/deepchat/server/session"
)

// SessionHandler handles session-related REST endpoints.
type SessionHandler struct {
	store session.Store
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(store session.Store) *SessionHandler {
	return &SessionHandler{store: store}
}

// HandleList handles GET /api/sessions
func (h *SessionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	sessions := h.store.List()
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"total":    len(sessions),
	})
}

// HandleCreate handles POST /api/sessions
func (h *SessionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	sess, err := h.store.Create(r.Context())
	if err != nil {
		slog.Error("failed to create session", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// HandleGet handles GET /api/sessions/{id}
func (h *SessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.store.Get(r.PathValue("id"))
	if !ok {
		writeDetail(w, http.StatusNotFound, msgSessionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// HandleDelete handles DELETE /api/sessions/{id}
func (h *SessionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if err := h.store.Delete(r.Context(), sessionID); err != nil {
		h.storeError(w, "delete session", sessionID, err)
		return
	}
	writeSuccess(w)
}

// HandleGetMessages handles GET /api/sessions/{id}/messages
func (h *SessionHandler) HandleGetMessages(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.store.Get(r.PathValue("id"))
	if !ok {
		writeDetail(w, http.StatusNotFound, msgSessionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": sess.Messages})
}

// HandleSetMessages handles PUT /api/sessions/{id}/messages. The body is the
// complete replacement list.
func (h *SessionHandler) HandleSetMessages(w http.ResponseWriter, r *http.Request) {
	var messages []session.Message
	if err := decodeBody(w, r, &messages); err != nil {
		writeDetail(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if messages == nil {
		messages = []session.Message{}
	}

	sessionID := r.PathValue("id")
	if err := h.store.SetMessages(r.Context(), sessionID, messages); err != nil {
		h.storeError(w, "set messages", sessionID, err)
		return
	}
	writeSuccess(w)
}

// HandleAppendMessage handles POST /api/sessions/{id}/messages. The message
// is stamped with the current time.
func (h *SessionHandler) HandleAppendMessage(w http.ResponseWriter, r *http.Request) {
	var msg session.Message
	if err := decodeBody(w, r, &msg); err != nil || msg.Role == "" {
		writeDetail(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	msg.Timestamp = session.Now().String()

	sessionID := r.PathValue("id")
	if err := h.store.AppendMessage(r.Context(), sessionID, msg); err != nil {
		h.storeError(w, "append message", sessionID, err)
		return
	}
	writeSuccess(w)
}

// HandleUpdateConfig handles PUT /api/sessions/{id}/config
func (h *SessionHandler) HandleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var cfg map[string]any
	if err := decodeBody(w, r, &cfg); err != nil {
		writeDetail(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	sessionID := r.PathValue("id")
	if err := h.store.UpdateConfig(r.Context(), sessionID, cfg); err != nil {
		h.storeError(w, "update session config", sessionID, err)
		return
	}
	writeSuccess(w)
}

// HandleUpdateTitle handles PUT /api/sessions/{id}/title?title=
func (h *SessionHandler) HandleUpdateTitle(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	if title == "" {
		writeDetail(w, http.StatusBadRequest, "title required")
		return
	}

	sessionID := r.PathValue("id")
	if err := h.store.UpdateTitle(r.Context(), sessionID, title); err != nil {
		h.storeError(w, "update title", sessionID, err)
		return
	}
	writeSuccess(w)
}

func (h *SessionHandler) storeError(w http.ResponseWriter, op, sessionID string, err error) {
	if errors.Is(err, session.ErrSessionNotFound) {
		writeDetail(w, http.StatusNotFound, msgSessionNotFound)
		return
	}
	slog.Error("failed to "+op, "sessionId", sessionID, "error", err)
	writeDetail(w, http.StatusInternalServerError, "Internal server error")
}

// Register registers session handlers to the given mux.
func (h *SessionHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/sessions", h.HandleList)
	mux.HandleFunc("POST /api/sessions", h.HandleCreate)
	mux.HandleFunc("GET /api/sessions/{id}", h.HandleGet)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.HandleDelete)
	mux.HandleFunc("GET /api/sessions/{id}/messages", h.HandleGetMessages)
	mux.HandleFunc("PUT /api/sessions/{id}/messages", h.HandleSetMessages)
	mux.HandleFunc("POST /api/sessions/{id}/messages", h.HandleAppendMessage)
	mux.HandleFunc("PUT /api/sessions/{id}/config", h.HandleUpdateConfig)
	mux.HandleFunc("PUT /api/sessions/{id}/title", h.HandleUpdateTitle)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(v)
}
