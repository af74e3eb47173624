// Package handler exposes the controller to a local browser page in serve
// mode. It is a thin bridge: every route reads or mutates controller state
// and responds with the resulting snapshot.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/lexavo/conseil/internal/client"
	"github.com/lexavo/conseil/internal/controller"
	"github.com/lexavo/conseil/internal/middleware"
)

// NewRouter wires the local UI routes to the controller and health monitor.
func NewRouter(ctrl *controller.Controller, monitor *client.Monitor, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS)

	chatHandler := NewChat(ctrl, monitor, log)

	r.Get("/", handleIndex)
	r.Route("/api", chatHandler.RegisterRoutes)

	return r
}
