package handlers

import (
	"net/http"

	"github.com/kozaktomas/doppelganger/internal/config"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config *config.Config
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{
		config: cfg,
	}
}

// ConfigResponse represents the configuration response
type ConfigResponse struct {
	ExpressionProvider string         `json:"expression_provider"`
	Providers          []ProviderInfo `json:"providers"`
	CatalogSource      string         `json:"catalog_source"`
	MutationsEnabled   bool           `json:"mutations_enabled"`
}

// ProviderInfo represents information about an expression provider
type ProviderInfo struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// Get returns the active configuration without secrets.
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	providers := []ProviderInfo{
		{
			Name:      config.ProviderDetector,
			Available: h.config.Detector.URL != "",
		},
		{
			Name:      config.ProviderOpenAI,
			Available: h.config.OpenAI.Token != "",
		},
		{
			Name:      config.ProviderGemini,
			Available: h.config.Gemini.APIKey != "",
		},
	}

	respondJSON(w, http.StatusOK, ConfigResponse{
		ExpressionProvider: h.config.Expression.Provider,
		Providers:          providers,
		CatalogSource:      h.config.Catalog.Source,
		MutationsEnabled:   h.config.Matching.MutationsEnabled,
	})
}
