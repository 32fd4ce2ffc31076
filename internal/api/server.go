// SPDX-License-Identifier: MIT

// Package api is the node's own HTTP surface: health, metrics and the
// internal registration endpoint the discovery service calls back on.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/fleetnode/internal/log"
	"github.com/ManuGH/fleetnode/internal/registration"
)

// maxSecretLen bounds the accepted registration secret.
const maxSecretLen = 4096

// Server exposes the node HTTP surface.
type Server struct {
	secrets *registration.SecretStore
	machine *registration.Machine
	http    *http.Server
}

// New wires the server for the given listen address.
func New(addr string, secrets *registration.SecretStore, machine *registration.Machine) *Server {
	s := &Server{secrets: secrets, machine: machine}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Router builds the chi router with the canonical middleware stack.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(Recoverer)
	r.Use(RequestID)

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/internal/v1", func(r chi.Router) {
		// Registrations come from a single discovery service; anything
		// chattier is abuse.
		r.Use(httprate.Limit(30, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		r.Post("/registrations", s.handleRegistration)
	})

	return r
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	logger := log.WithComponent("api")
	logger.Info().Str("addr", s.http.Addr).Msg("http surface listening")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	status := s.machine.Status()
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":           "ok",
		"registration":     string(status.State),
		"last_healthcheck": status.LastHealthcheck,
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
