// Package matching picks the catalog entry that best mirrors a user's pose.
package matching

import (
	"cmp"
	"context"
	"math/rand/v2"
	"slices"

	"github.com/kozaktomas/doppelganger/internal/catalog"
	"github.com/kozaktomas/doppelganger/internal/entropy"
	"github.com/kozaktomas/doppelganger/internal/pose"
	"go.uber.org/zap"
)

const (
	lowConfidenceThreshold = 0.6
	distanceScale          = 30.0
	expressionBonus        = 10.0
	topScoreCount          = 3

	// DefaultExpression is assumed when the request carries none.
	DefaultExpression = "neutral"
)

// Request is one match attempt.
type Request struct {
	SessionID   string
	Keypoints   pose.Keypoints
	Confidence  float64
	PartialBody bool
	Expression  string
}

// ScoredCandidate is an entry id with its (rounded) score.
type ScoredCandidate struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Result is the outcome of a match or a productive failure.
type Result struct {
	Entry            catalog.Entry
	RealScore        float64
	DisplayedScore   float64
	MutationsApplied []string
	PoseType         pose.Category
	Diagnostics      *pose.Diagnostics
	TopScores        []ScoredCandidate
	ChaosMessage     string
}

// Matcher scores catalog entries against user poses.
type Matcher struct {
	catalog   *catalog.Catalog
	engine    *entropy.Engine
	tables    PatternTables
	mutations MutationSet
	rand      Rand
	logger    *zap.Logger
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithMutations installs degradation strategies. Without this option no
// mutation is ever applied.
func WithMutations(ms MutationSet) Option {
	return func(m *Matcher) { m.mutations = ms }
}

// WithRand sets the random source used for fabricated scores and mutations.
func WithRand(r *rand.Rand) Option {
	return func(m *Matcher) { m.rand = &lockedRand{r: r} }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Matcher) { m.logger = l }
}

// NewMatcher creates a matcher over a loaded catalog.
func NewMatcher(c *catalog.Catalog, engine *entropy.Engine, tables PatternTables, opts ...Option) *Matcher {
	m := &Matcher{
		catalog: c,
		engine:  engine,
		tables:  tables,
		rand:    &lockedRand{r: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Catalog returns the catalog the matcher scores against.
func (m *Matcher) Catalog() *catalog.Catalog {
	return m.catalog
}

// Engine returns the entropy engine.
func (m *Matcher) Engine() *entropy.Engine {
	return m.engine
}

// FindBestMatch classifies the request's pose and returns the highest scoring
// candidate. Low confidence and partial bodies cost entropy up front. It
// never fails: an empty catalog yields a placeholder with a fabricated score.
func (m *Matcher) FindBestMatch(_ context.Context, req Request) Result {
	if req.Confidence < lowConfidenceThreshold {
		m.engine.AddEntropy(req.SessionID, entropy.LowConfidenceIncrement, "low_confidence")
	}
	if req.PartialBody {
		m.engine.AddEntropy(req.SessionID, entropy.PartialBodyIncrement, "partial_body")
	}

	expression := req.Expression
	if expression == "" {
		expression = DefaultExpression
	}

	cls := pose.Classify(req.Keypoints)
	m.logger.Debug("pose classified",
		zap.String("session", req.SessionID),
		zap.String("pose", string(cls.Category)),
		zap.String("expression", expression),
		zap.Any("diagnostics", cls.Diagnostics))

	subject := &Subject{PoseType: cls.Category}
	tags := m.mutate(StageClassify, req.SessionID, subject, []string{})

	subject.Candidates = m.catalog.Filter(m.tables.PosePatterns(subject.PoseType))
	if len(subject.Candidates) == 0 {
		subject.Candidates = m.catalog.Entries()
	}
	tags = m.mutate(StageCandidates, req.SessionID, subject, tags)

	bonus := m.tables.Expressions[expression]
	var best *catalog.Entry
	var bestScore float64
	scores := make([]ScoredCandidate, 0, len(subject.Candidates))
	for i := range subject.Candidates {
		e := &subject.Candidates[i]
		score := m.score(req.Keypoints, *e)
		if catalog.MatchesAny(e.ID, bonus) {
			score = min(100, score+expressionBonus)
		}
		scores = append(scores, ScoredCandidate{ID: e.ID, Score: round1(score)})

		// Strictly greater: the first candidate reaching a score keeps it.
		if best == nil || score > bestScore {
			best = e
			bestScore = score
		}
	}

	res := Result{
		PoseType:    subject.PoseType,
		Diagnostics: cls.Diagnostics,
		TopScores:   topScores(scores),
	}

	if best == nil {
		entry, ok := m.catalog.Random(m.rand)
		if !ok {
			entry = m.tables.Unmatched
		}
		score := fabricated(m.rand, 75, 90)
		res.Entry = entry
		res.RealScore = score
		res.DisplayedScore = score
	} else {
		subject.RealScore = bestScore
		subject.DisplayedScore = bestScore
		tags = m.mutate(StageDisplay, req.SessionID, subject, tags)
		res.Entry = *best
		res.RealScore = round1(bestScore)
		res.DisplayedScore = round1(subject.DisplayedScore)
	}
	res.MutationsApplied = tags

	m.logger.Debug("match selected",
		zap.String("session", req.SessionID),
		zap.String("id", res.Entry.ID),
		zap.Float64("score", res.RealScore),
		zap.Any("top", res.TopScores))

	return res
}

// score rates a single candidate. Poseless entries get a random score in
// [70, 85) so they stay matchable.
func (m *Matcher) score(user pose.Keypoints, e catalog.Entry) float64 {
	if len(e.Pose) == 0 {
		return uniform(m.rand, 70, 85)
	}
	d := pose.UpperBodyDistance(user, e.Pose)
	return max(0, 100-d*distanceScale)
}

// mutate applies every strategy of the given stage that the session's
// entropy currently unlocks, appending their tags.
func (m *Matcher) mutate(stage Stage, sessionID string, s *Subject, tags []string) []string {
	for _, mut := range m.mutations {
		if mut.Stage() != stage || !m.engine.ShouldApplyMutation(sessionID, mut.Kind()) {
			continue
		}
		tag := mut.Apply(s, m.rand)
		tags = append(tags, tag)
		m.logger.Info("mutation applied",
			zap.String("session", sessionID),
			zap.String("kind", string(mut.Kind())),
			zap.String("tag", tag))
	}
	return tags
}

func topScores(all []ScoredCandidate) []ScoredCandidate {
	sorted := slices.Clone(all)
	slices.SortStableFunc(sorted, func(a, b ScoredCandidate) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(sorted) > topScoreCount {
		sorted = sorted[:topScoreCount]
	}
	return sorted
}

// MatchQuality labels a displayed score.
func MatchQuality(score float64) string {
	switch {
	case score >= 95:
		return "LEGENDARY"
	case score >= 90:
		return "EPIC"
	case score >= 85:
		return "REMARKABLE"
	case score >= 80:
		return "STRONG"
	default:
		return "CURIOUS"
	}
}
