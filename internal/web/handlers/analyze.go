package handlers

import (
	"io"
	"net/http"

	"github.com/kozaktomas/doppelganger/internal/analyzer"
	"github.com/kozaktomas/doppelganger/internal/constants"
	"github.com/kozaktomas/doppelganger/internal/web/middleware"
	"go.uber.org/zap"
)

// AnalyzeHandler runs uploaded photos through the analyzer.
type AnalyzeHandler struct {
	analyzer *analyzer.Analyzer
	logger   *zap.Logger
}

// NewAnalyzeHandler creates a new analyze handler.
func NewAnalyzeHandler(a *analyzer.Analyzer, logger *zap.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{analyzer: a, logger: logger}
}

// Analyze handles POST /analyze with a multipart "image" field. Anything
// wrong with the image itself is answered with a productive failure rather
// than an error status.
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		respondError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	sessionID := middleware.GetSessionID(r.Context())

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.Warn("failed to read upload",
			zap.String("filename", sanitizeForLog(header.Filename)),
			zap.Error(err))
		data = nil
	}

	resp := h.analyzer.Analyze(r.Context(), sessionID, data)
	h.logger.Debug("analysis complete",
		zap.String("session_id", resp.Session.SessionID),
		zap.String("monkey_id", resp.MonkeyID),
		zap.Bool("success", resp.Success))

	respondJSON(w, http.StatusOK, resp)
}
