package handlers

import (
	"net/http"

	"github.com/kozaktomas/doppelganger/internal/catalog"
	"github.com/kozaktomas/doppelganger/internal/entropy"
)

// StatsHandler handles statistics endpoints
type StatsHandler struct {
	catalog *catalog.Catalog
	index   *catalog.PoseIndex
	engine  *entropy.Engine
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(c *catalog.Catalog, index *catalog.PoseIndex, engine *entropy.Engine) *StatsHandler {
	return &StatsHandler{catalog: c, index: index, engine: engine}
}

// StatsResponse represents the statistics response
type StatsResponse struct {
	MonkeysLoaded   int `json:"monkeys_loaded"`
	MonkeysWithPose int `json:"monkeys_with_pose"`
	SyntheticPoses  int `json:"synthetic_poses"`
	IndexedPoses    int `json:"indexed_poses"`
	ActiveSessions  int `json:"active_sessions"`
}

// Get returns catalog and session counters.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	synthetic := 0
	for _, e := range h.catalog.Entries() {
		if e.Synthetic {
			synthetic++
		}
	}

	indexed := 0
	if h.index != nil {
		indexed = h.index.Len()
	}

	respondJSON(w, http.StatusOK, StatsResponse{
		MonkeysLoaded:   h.catalog.Len(),
		MonkeysWithPose: h.catalog.WithPose(),
		SyntheticPoses:  synthetic,
		IndexedPoses:    indexed,
		ActiveSessions:  h.engine.Store().Len(),
	})
}
