package handlers

import (
	"errors"
	"net/http"

	"github.com/kozaktomas/doppelganger/internal/catalog"
	"github.com/kozaktomas/doppelganger/internal/constants"
	"github.com/kozaktomas/doppelganger/internal/pose"
)

// MonkeysHandler serves the reference catalog.
type MonkeysHandler struct {
	catalog *catalog.Catalog
	index   *catalog.PoseIndex
}

// NewMonkeysHandler creates a new monkeys handler. index may be nil, which
// disables similarity search.
func NewMonkeysHandler(c *catalog.Catalog, index *catalog.PoseIndex) *MonkeysHandler {
	return &MonkeysHandler{catalog: c, index: index}
}

// MonkeysResponse lists the catalog.
type MonkeysResponse struct {
	Count   int               `json:"count"`
	Monkeys []catalog.Summary `json:"monkeys"`
}

// SimilarRequest asks for the entries nearest to a pose.
type SimilarRequest struct {
	Keypoints pose.Keypoints `json:"keypoints"`
	Limit     int            `json:"limit"`
}

// SimilarResponse holds nearest entries, closest first.
type SimilarResponse struct {
	Count   int                `json:"count"`
	Results []catalog.Neighbor `json:"results"`
}

// List returns every catalog entry in catalog order.
func (h *MonkeysHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, MonkeysResponse{
		Count:   h.catalog.Len(),
		Monkeys: h.catalog.Summaries(),
	})
}

// Similar returns the catalog entries whose upper-body pose is closest to
// the posted keypoints.
func (h *MonkeysHandler) Similar(w http.ResponseWriter, r *http.Request) {
	var req SimilarRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = constants.DefaultSimilarLimit
	}
	limit = min(limit, constants.MaxSimilarLimit)

	if h.index == nil || h.index.Len() == 0 {
		respondJSON(w, http.StatusOK, SimilarResponse{Results: []catalog.Neighbor{}})
		return
	}

	neighbors, err := h.index.Similar(req.Keypoints, limit)
	if errors.Is(err, catalog.ErrIndexEmpty) {
		respondJSON(w, http.StatusOK, SimilarResponse{Results: []catalog.Neighbor{}})
		return
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, SimilarResponse{Count: len(neighbors), Results: neighbors})
}
