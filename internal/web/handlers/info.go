package handlers

import (
	"net/http"
	"time"

	"github.com/kozaktomas/doppelganger/internal/catalog"
)

const apiName = "Monkey Doppelgänger API"

// InfoHandler serves the root and health endpoints.
type InfoHandler struct {
	catalog *catalog.Catalog
	version string
}

// NewInfoHandler creates a new info handler.
func NewInfoHandler(c *catalog.Catalog, version string) *InfoHandler {
	return &InfoHandler{catalog: c, version: version}
}

// InfoResponse describes the running service.
type InfoResponse struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	Status        string `json:"status"`
	Warning       string `json:"warning"`
	MonkeysLoaded int    `json:"monkeys_loaded"`
}

// HealthResponse is the health check body.
type HealthResponse struct {
	Status        string  `json:"status"`
	MonkeysLoaded int     `json:"monkeys_loaded"`
	Timestamp     float64 `json:"timestamp"`
}

// Root returns service information.
func (h *InfoHandler) Root(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, InfoResponse{
		Name:          apiName,
		Version:       h.version,
		Status:        "operational",
		Warning:       "System stability not guaranteed",
		MonkeysLoaded: h.catalog.Len(),
	})
}

// Health handles the health check endpoint.
func (h *InfoHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		MonkeysLoaded: h.catalog.Len(),
		Timestamp:     float64(time.Now().UnixMilli()) / 1000,
	})
}
