package entropy

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MutationKind names a degradation the matcher may apply once entropy allows it.
type MutationKind string

const (
	MutationIgnoreLegs     MutationKind = "ignore_legs"
	MutationSwapJoints     MutationKind = "swap_joints"
	MutationRandomWeights  MutationKind = "random_weights"
	MutationScoreLies      MutationKind = "score_lies"
	MutationDatasetShuffle MutationKind = "dataset_shuffle"
)

// mutationThresholds maps entropy-gated kinds to the entropy they unlock at.
// dataset_shuffle is gated on collapse instead and handled separately.
var mutationThresholds = map[MutationKind]float64{
	MutationIgnoreLegs:    0.3,
	MutationSwapJoints:    0.6,
	MutationRandomWeights: 0.8,
	MutationScoreLies:     0.5,
}

// warningTiers are cumulative: every tier at or below the current entropy is reported.
var warningTiers = []struct {
	threshold float64
	message   string
}{
	{0.3, "Minor calibration drift detected"},
	{0.5, "Pose memory fragmentation: 23%"},
	{0.7, "WARNING: Neural pathway degradation"},
}

var collapseWarnings = []string{
	"⚠️ CRITICAL: System stability compromised",
	"Memory sectors corrupted: 7/12",
}

// Engine applies entropy rules to sessions held in a Store.
type Engine struct {
	store  Store
	newID  func() string
	logger *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for collapse events.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithIDGenerator overrides session id generation.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// NewEngine creates an engine over store.
func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		newID:  newSessionID,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// newSessionID returns a short random token.
func newSessionID() string {
	return uuid.NewString()[:8]
}

// Store returns the underlying session store.
func (e *Engine) Store() Store {
	return e.store
}

// CreateSession allocates a fresh session and returns its id.
func (e *Engine) CreateSession() string {
	id := e.newID()
	e.store.Create(id)
	return id
}

// GetOrCreate returns the session, creating it if the id is unknown.
func (e *Engine) GetOrCreate(id string) SessionState {
	if s, ok := e.store.Get(id); ok {
		return s
	}
	return e.store.Update(id, func(*SessionState) {})
}

// addEntropy is the single write path for entropy. It clamps to MaxEntropy
// and records the delta in the mutation log.
func addEntropy(s *SessionState, amount float64, reason string) float64 {
	old := s.Entropy
	s.Entropy = math.Min(MaxEntropy, s.Entropy+amount)
	s.Mutations = append(s.Mutations, fmt.Sprintf("[%s] +%.2f entropy (%.2f → %.2f)", reason, amount, old, s.Entropy))
	return s.Entropy
}

// AddEntropy adds amount to the session's entropy and returns the new value.
func (e *Engine) AddEntropy(id string, amount float64, reason string) float64 {
	var level float64
	e.store.Update(id, func(s *SessionState) {
		level = addEntropy(s, amount, reason)
	})
	return level
}

// IncrementAttempt counts a match attempt, applies retry entropy and, the
// first time attempts reaches CollapseAttempts, latches the collapse.
func (e *Engine) IncrementAttempt(id string) int {
	var collapsedNow bool
	s := e.store.Update(id, func(s *SessionState) {
		s.Attempts++
		addEntropy(s, RetryIncrement, "retry_attempt")
		if s.Attempts >= CollapseAttempts && !s.Collapsed {
			s.Collapsed = true
			addEntropy(s, CollapseIncrement, "COLLAPSE_EVENT")
			s.Mutations = append(s.Mutations, collapseLogEntry)
			collapsedNow = true
		}
	})
	if collapsedNow {
		e.logger.Info("session collapsed",
			zap.String("session", id),
			zap.Int("attempts", s.Attempts),
			zap.Float64("entropy", s.Entropy))
	}
	return s.Attempts
}

// Level returns the entropy band of the session.
func (e *Engine) Level(id string) Level {
	return LevelFor(e.GetOrCreate(id).Entropy)
}

// ShouldApplyMutation reports whether the session's state unlocks kind.
// Unknown kinds are never applied.
func (e *Engine) ShouldApplyMutation(id string, kind MutationKind) bool {
	s := e.GetOrCreate(id)
	if kind == MutationDatasetShuffle {
		return s.Collapsed
	}
	threshold, ok := mutationThresholds[kind]
	if !ok {
		return false
	}
	return s.Entropy >= threshold
}

func warningsFor(s SessionState) []string {
	warnings := []string{}
	for _, tier := range warningTiers {
		if s.Entropy >= tier.threshold {
			warnings = append(warnings, tier.message)
		}
	}
	if s.Collapsed {
		warnings = append(warnings, collapseWarnings...)
	}
	return warnings
}

// CollapseWarnings returns the cosmetic warnings unlocked so far.
func (e *Engine) CollapseWarnings(id string) []string {
	return warningsFor(e.GetOrCreate(id))
}

// Stats summarises the session for API responses.
func (e *Engine) Stats(id string) Stats {
	return statsFor(e.GetOrCreate(id))
}

// Reset zeroes the session and returns its fresh stats.
func (e *Engine) Reset(id string) Stats {
	return statsFor(e.store.Reset(id))
}

func statsFor(s SessionState) Stats {
	recent := s.Mutations
	if len(recent) > recentMutations {
		recent = recent[len(recent)-recentMutations:]
	}
	return Stats{
		SessionID:      s.ID,
		Entropy:        math.Round(s.Entropy*1000) / 1000,
		EntropyLevel:   LevelFor(s.Entropy),
		Attempts:       s.Attempts,
		Collapsed:      s.Collapsed,
		Mutations:      append([]string{}, recent...),
		Warnings:       warningsFor(s),
		SystemUnstable: s.Entropy >= 0.6,
	}
}
