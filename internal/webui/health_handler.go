package webui

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// HealthResponse represents the JSON response from the health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Detail  string `json:"detail,omitempty"`
	Clients int    `json:"clients"`
}

// healthHandler reports ok while the controller loop answers.
func (webUI *WebUI) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := context.WithTimeout(r.Context(), time.Second)
	defer cancel()

	resp := HealthResponse{Status: "ok", Clients: webUI.Hub.ClientCount()}
	if !webUI.Loop.Running() {
		resp.Status = "unavailable"
		resp.Detail = "controller loop is not running"
	} else if err := webUI.Loop.Call(ctx, func() {}); err != nil {
		resp.Status = "unavailable"
		resp.Detail = "controller loop is not responding"
	}

	if resp.Status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}
