package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/lexavo/conseil/internal/client"
	"github.com/lexavo/conseil/internal/controller"
)

// Chat handles the local UI's state and action routes.
type Chat struct {
	ctrl    *controller.Controller
	monitor *client.Monitor
	log     zerolog.Logger
}

// NewChat creates the chat bridge handler.
func NewChat(ctrl *controller.Controller, monitor *client.Monitor, log zerolog.Logger) *Chat {
	return &Chat{
		ctrl:    ctrl,
		monitor: monitor,
		log:     log.With().Str("component", "handler").Logger(),
	}
}

// RegisterRoutes mounts the bridge routes.
func (h *Chat) RegisterRoutes(r chi.Router) {
	r.Get("/state", h.handleState)
	r.Post("/send", h.handleSend)
	r.Post("/conversations", h.handleNewConversation)
	r.Post("/conversations/{id}/open", h.handleOpenConversation)
	r.Delete("/conversations/{id}", h.handleDeleteConversation)
	r.Post("/error/clear", h.handleClearError)
	r.Get("/health", h.handleHealth)
}

func (h *Chat) handleState(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.ctrl.Snapshot())
}

func (h *Chat) handleSend(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Failures land in the snapshot's error field; the page is state-driven
	// like the terminal UI, so the response is always the new state.
	if err := h.ctrl.SendMessage(r.Context(), payload.Message); err != nil {
		h.log.Debug().Err(err).Msg("send rejected")
	}
	respondJSON(w, http.StatusOK, h.ctrl.Snapshot())
}

func (h *Chat) handleNewConversation(w http.ResponseWriter, r *http.Request) {
	h.ctrl.StartNewConversation()
	respondJSON(w, http.StatusCreated, h.ctrl.Snapshot())
}

func (h *Chat) handleOpenConversation(w http.ResponseWriter, r *http.Request) {
	h.ctrl.LoadConversation(chi.URLParam(r, "id"))
	respondJSON(w, http.StatusOK, h.ctrl.Snapshot())
}

func (h *Chat) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	h.ctrl.DeleteConversation(chi.URLParam(r, "id"))
	respondJSON(w, http.StatusOK, h.ctrl.Snapshot())
}

func (h *Chat) handleClearError(w http.ResponseWriter, r *http.Request) {
	h.ctrl.ClearError()
	respondJSON(w, http.StatusOK, h.ctrl.Snapshot())
}

func (h *Chat) handleHealth(w http.ResponseWriter, r *http.Request) {
	var lastCheck string
	if t := h.monitor.LastCheck(); !t.IsZero() {
		lastCheck = t.Format(time.RFC3339)
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"healthy":   h.monitor.Healthy(),
		"lastCheck": lastCheck,
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
