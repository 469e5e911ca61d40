// Package controlplane implements both sides of the authenticated HTTP
// channel used to command the live host environment: the agent-side service
// (list and restart resources) and the orchestrator-side client.
package controlplane

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"git.home.luguber.info/inful/hotbuild/internal/logfields"
)

// ListResponse is the body of GET /resources.
type ListResponse struct {
	Success   bool     `json:"success"`
	Resources []string `json:"resources"`
	Count     int      `json:"count"`
}

// RestartResponse is the body of POST /restart?resource=<name>.
type RestartResponse struct {
	Success  bool   `json:"success"`
	Resource string `json:"resource"`
	Message  string `json:"message"`
}

// RestartAllResponse is the body of POST /restart without a resource query.
type RestartAllResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Results map[string]bool `json:"results"`
}

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

const (
	msgUnauthorized  = "Unauthorized: Invalid API key"
	msgNotFound      = "Endpoint not found"
	msgResourceMiss  = "Resource not found"
	msgMethodError   = "Method not allowed"
	msgLivenessReply = "hotbuild agent running"
)

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to encode response", logfields.Error(err))
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, msg string) {
	writeJSON(w, logger, status, ErrorResponse{Success: false, Error: msg})
}
