package controllers

import (
	"net/http"
	"time"

	httperrors "github.com/dropDatabas3/identity-gateway/internal/http/errors"
)

type healthResponse struct {
	Success   bool   `json:"success"`
	Service   string `json:"service"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Health responde GET /health. Sin auth: lo usan los probes.
func Health(w http.ResponseWriter, _ *http.Request) {
	httperrors.WriteJSON(w, http.StatusOK, healthResponse{
		Success:   true,
		Service:   "identity-gateway",
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
