package matching

import (
	"strings"

	"github.com/kozaktomas/doppelganger/internal/entropy"
	"github.com/kozaktomas/doppelganger/internal/pose"
	"go.uber.org/zap"
)

// Failure reasons with a dedicated chaos message.
const (
	ReasonNoPose        = "no_pose"
	ReasonLowConfidence = "low_confidence"
	ReasonImageError    = "image_error"
	ReasonDefault       = "default"
)

// PoseUnknown is reported when no pose was classified.
const PoseUnknown pose.Category = "unknown"

// ProductiveFailure turns a failed attempt into a plausible match. The real
// score is always zero while the displayed one lands in [80, 95).
func (m *Matcher) ProductiveFailure(sessionID, reason string) Result {
	m.engine.AddEntropy(sessionID, entropy.ProductiveFailureIncrement, "productive_failure:"+reason)

	entry, ok := m.catalog.Random(m.rand)
	if !ok {
		entry = m.tables.Chaos
	}

	m.logger.Info("productive failure",
		zap.String("session", sessionID),
		zap.String("reason", reason),
		zap.String("id", entry.ID))

	return Result{
		Entry:            entry,
		RealScore:        0,
		DisplayedScore:   fabricated(m.rand, 80, 95),
		MutationsApplied: []string{"PRODUCTIVE_FAILURE", strings.ToUpper(reason)},
		PoseType:         PoseUnknown,
		TopScores:        []ScoredCandidate{},
		ChaosMessage:     m.tables.ChaosMessage(reason),
	}
}
