// Package detector talks to the services that turn photos into body
// landmarks and facial expressions.
package detector

import (
	"context"
	"math"

	"github.com/kozaktomas/doppelganger/internal/pose"
)

// Expression labels.
const (
	ExpressionSmiling   = "smiling"
	ExpressionSurprised = "surprised"
	ExpressionNeutral   = "neutral"
	ExpressionUnknown   = "unknown"
)

const (
	// partialBodyVisibility is the mean lower-body visibility below which a
	// detection counts as a partial body.
	partialBodyVisibility = 0.3
	// defaultVisibility is assumed for landmarks reported without one.
	defaultVisibility = 0.5

	smilingAspect   = 1.1
	surprisedAspect = 0.85
)

// PoseDetector extracts body landmarks from an image.
type PoseDetector interface {
	DetectPose(ctx context.Context, image []byte) (*PoseResult, error)
}

// ExpressionClassifier labels the facial expression in an image.
type ExpressionClassifier interface {
	ClassifyExpression(ctx context.Context, image []byte) (*ExpressionResult, error)
}

// PoseDebug describes a pose detection for API consumers.
type PoseDebug struct {
	TotalLandmarks      int     `json:"total_landmarks,omitempty"`
	AvgConfidence       float64 `json:"avg_confidence,omitempty"`
	UpperBodyConfidence float64 `json:"upper_body_confidence,omitempty"`
	LowerBodyConfidence float64 `json:"lower_body_confidence,omitempty"`
	Partial             bool    `json:"partial"`
	Error               string  `json:"error,omitempty"`
}

// PoseResult is a detection outcome. Keypoints is nil when no body was found.
type PoseResult struct {
	Keypoints  pose.Keypoints
	Confidence float64
	Debug      PoseDebug
}

// BBox is a face bounding box.
type BBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// FaceDebug describes an expression classification for API consumers.
type FaceDebug struct {
	FaceDetected bool    `json:"face_detected,omitempty"`
	Confidence   float64 `json:"confidence,omitempty"`
	BBox         *BBox   `json:"bbox,omitempty"`
	Provider     string  `json:"provider,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// ExpressionResult is an expression label with its confidence.
type ExpressionResult struct {
	Expression string
	Confidence float64
	Debug      FaceDebug
}

// ExpressionFromFace derives an expression from the face box shape: wide
// faces read as smiling, tall ones as surprised.
func ExpressionFromFace(b BBox) string {
	if b.Height <= 0 {
		return ExpressionNeutral
	}
	aspect := b.Width / b.Height
	switch {
	case aspect > smilingAspect:
		return ExpressionSmiling
	case aspect < surprisedAspect:
		return ExpressionSurprised
	default:
		return ExpressionNeutral
	}
}

// NoFace is the result reported when no face was found.
func NoFace(reason string) *ExpressionResult {
	return &ExpressionResult{
		Expression: ExpressionUnknown,
		Confidence: 0,
		Debug:      FaceDebug{Error: reason},
	}
}

// NoExpression is a classifier that never finds a face.
type NoExpression struct{}

func (NoExpression) ClassifyExpression(context.Context, []byte) (*ExpressionResult, error) {
	return NoFace("expression detection disabled"), nil
}

// upperVisibilityLandmarks are the nose and arm joints.
var upperVisibilityLandmarks = append([]int{pose.Nose}, pose.UpperBodyLandmarks...)

// Landmark is one detected body point with its visibility.
type Landmark struct {
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	Visibility *float64 `json:"visibility,omitempty"`
}

// PoseFromLandmarks builds a result from raw landmarks. Confidence is the
// mean visibility, and the body is partial when the hips, knees and ankles
// are mostly invisible.
func PoseFromLandmarks(landmarks []Landmark) *PoseResult {
	if len(landmarks) == 0 {
		return &PoseResult{Debug: PoseDebug{Error: "No pose detected"}}
	}

	kp := make(pose.Keypoints, len(landmarks))
	vis := make([]float64, len(landmarks))
	for i, lm := range landmarks {
		kp[i] = pose.Point{X: lm.X, Y: lm.Y}
		vis[i] = defaultVisibility
		if lm.Visibility != nil {
			vis[i] = *lm.Visibility
		}
	}

	avg := mean(vis, nil)
	upper := mean(vis, upperVisibilityLandmarks)
	lower := mean(vis, pose.LowerBodyLandmarks)

	return &PoseResult{
		Keypoints:  kp,
		Confidence: avg,
		Debug: PoseDebug{
			TotalLandmarks:      len(kp),
			AvgConfidence:       round3(avg),
			UpperBodyConfidence: round3(upper),
			LowerBodyConfidence: round3(lower),
			Partial:             lower < partialBodyVisibility,
		},
	}
}

// mean averages vis over idx, or over everything when idx is nil. Indices
// out of range are skipped; no usable index yields 0.
func mean(vis []float64, idx []int) float64 {
	var sum float64
	n := 0
	if idx == nil {
		for _, v := range vis {
			sum += v
		}
		n = len(vis)
	} else {
		for _, i := range idx {
			if i < len(vis) {
				sum += vis[i]
				n++
			}
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
