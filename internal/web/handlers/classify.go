package handlers

import (
	"net/http"

	"github.com/kozaktomas/doppelganger/internal/pose"
)

// ClassifyRequest carries raw keypoints.
type ClassifyRequest struct {
	Keypoints pose.Keypoints `json:"keypoints"`
}

// Classify reports the pose category of posted keypoints together with the
// wrist positions the decision was based on.
func Classify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	respondJSON(w, http.StatusOK, pose.Classify(req.Keypoints))
}
