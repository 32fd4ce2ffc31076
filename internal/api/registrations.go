// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ManuGH/fleetnode/internal/log"
)

// registrationRequest is the payload the discovery service posts back after a
// successful handshake.
type registrationRequest struct {
	ID                   string   `json:"id"`
	Secret               string   `json:"secret"`
	OrganizationID       *string  `json:"organization_id,omitempty"`
	LighthousesInDomains []string `json:"lighthouses_in_domains,omitempty"`
	Domains              []string `json:"domains,omitempty"`
}

// handleRegistration validates and persists the node secret. The secret is
// never logged; only its length is.
func (s *Server) handleRegistration(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "registrations")

	var req registrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if strings.TrimSpace(req.ID) == "" || strings.TrimSpace(req.Secret) == "" {
		writeError(w, http.StatusUnprocessableEntity, "id and secret must be non-empty")
		return
	}
	if len(req.Secret) > maxSecretLen {
		writeError(w, http.StatusForbidden, "secret exceeds maximum length")
		return
	}

	logger.Info().
		Str("registration_id", req.ID).
		Int("secret_len", len(req.Secret)).
		Msg("registration received")

	s.secrets.Put(req.ID, req.Secret)

	// Read back what was persisted; a mismatch means the store is broken
	// and the caller must not assume the handshake held.
	stored, ok := s.secrets.Get()
	if !ok || stored != req.Secret {
		writeError(w, http.StatusConflict, "secret persistence readback failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}
