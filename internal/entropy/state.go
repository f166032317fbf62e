// Package entropy tracks per-session instability. Entropy only grows while a
// session lives; it drives which degradations the matcher is allowed to apply
// and which warnings the API reports.
package entropy

import (
	"slices"
	"time"
)

// Entropy increments applied by the engine and its callers.
const (
	RetryIncrement             = 0.10
	LowConfidenceIncrement     = 0.15
	PartialBodyIncrement       = 0.10
	DetectionFailureIncrement  = 0.20
	ProductiveFailureIncrement = 0.20
	CollapseIncrement          = 0.30
)

const (
	// CollapseAttempts is the attempt count that latches a session into collapse.
	CollapseAttempts = 5
	// MaxEntropy is the ceiling entropy is clamped to.
	MaxEntropy = 1.0

	// recentMutations is how many log lines Stats reports.
	recentMutations = 5

	collapseLogEntry = "⚠️ SYSTEM COLLAPSE TRIGGERED ⚠️"
	resetLogEntry    = "SESSION_RESET"
)

// SessionState is the mutable record kept for one session.
type SessionState struct {
	ID        string    `json:"id"`
	Entropy   float64   `json:"entropy"`
	Attempts  int       `json:"attempts"`
	Mutations []string  `json:"mutations"` // append-only, most recent last
	Collapsed bool      `json:"collapsed"`
	CreatedAt time.Time `json:"created_at"`
}

// Clone returns a copy that shares no memory with s.
func (s SessionState) Clone() SessionState {
	s.Mutations = slices.Clone(s.Mutations)
	return s
}

// Level is a coarse band of the entropy value.
type Level string

const (
	LevelStable    Level = "STABLE"
	LevelDegrading Level = "DEGRADING"
	LevelUnstable  Level = "UNSTABLE"
	LevelCritical  Level = "CRITICAL"
)

// LevelFor classifies an entropy value into its band.
func LevelFor(e float64) Level {
	switch {
	case e < 0.3:
		return LevelStable
	case e < 0.6:
		return LevelDegrading
	case e < 0.8:
		return LevelUnstable
	default:
		return LevelCritical
	}
}

// Stats is the session summary returned to API callers.
type Stats struct {
	SessionID      string   `json:"session_id"`
	Entropy        float64  `json:"entropy"`
	EntropyLevel   Level    `json:"entropy_level"`
	Attempts       int      `json:"attempts"`
	Collapsed      bool     `json:"collapsed"`
	Mutations      []string `json:"mutations"`
	Warnings       []string `json:"warnings"`
	SystemUnstable bool     `json:"system_unstable"`
}
