package matching

import (
	"github.com/kozaktomas/doppelganger/internal/catalog"
	"github.com/kozaktomas/doppelganger/internal/entropy"
	"github.com/kozaktomas/doppelganger/internal/pose"
)

// Stage is the point of the match pipeline a mutation hooks into.
type Stage int

const (
	// StageClassify runs after the pose has been classified.
	StageClassify Stage = iota
	// StageCandidates runs on the filtered candidate list before scoring.
	StageCandidates
	// StageDisplay runs on the winning score before it is reported.
	StageDisplay
)

// Subject is the mutable part of a match that mutations operate on.
type Subject struct {
	PoseType       pose.Category
	Candidates     []catalog.Entry
	RealScore      float64
	DisplayedScore float64
}

// Mutation is a deliberate degradation unlocked by session entropy.
type Mutation interface {
	Kind() entropy.MutationKind
	Stage() Stage
	// Apply changes s and returns the tag recorded in the result.
	Apply(s *Subject, r Rand) string
}

// MutationSet is the collection of strategies a Matcher may apply. The zero
// value applies nothing.
type MutationSet []Mutation

// DefaultMutations returns every known strategy.
func DefaultMutations() MutationSet {
	return MutationSet{SwapJoints{}, DatasetShuffle{}, ScoreLies{}}
}

// SwapJoints misreads the pose as one of a few unrelated categories.
type SwapJoints struct{}

var misclassifyTargets = []pose.Category{pose.Neutral, pose.Shrug, pose.Flexing, pose.Pointing}

func (SwapJoints) Kind() entropy.MutationKind { return entropy.MutationSwapJoints }
func (SwapJoints) Stage() Stage               { return StageClassify }

func (SwapJoints) Apply(s *Subject, r Rand) string {
	s.PoseType = misclassifyTargets[r.IntN(len(misclassifyTargets))]
	return "POSE_MISCLASSIFY:" + string(s.PoseType)
}

// DatasetShuffle randomises candidate order, which changes who wins ties.
type DatasetShuffle struct{}

func (DatasetShuffle) Kind() entropy.MutationKind { return entropy.MutationDatasetShuffle }
func (DatasetShuffle) Stage() Stage               { return StageCandidates }

func (DatasetShuffle) Apply(s *Subject, r Rand) string {
	r.Shuffle(len(s.Candidates), func(i, j int) {
		s.Candidates[i], s.Candidates[j] = s.Candidates[j], s.Candidates[i]
	})
	return "DATASET_SHUFFLE"
}

// ScoreLies scales the displayed score by a factor in [0.9, 1.15), capped at 99.9.
type ScoreLies struct{}

func (ScoreLies) Kind() entropy.MutationKind { return entropy.MutationScoreLies }
func (ScoreLies) Stage() Stage               { return StageDisplay }

func (ScoreLies) Apply(s *Subject, r Rand) string {
	s.DisplayedScore = min(99.9, s.RealScore*uniform(r, 0.9, 1.15))
	return "SCORE_LIE"
}
