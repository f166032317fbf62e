// Package analyzer runs one photo through detection, matching and the
// session bookkeeping that surrounds them.
package analyzer

import (
	"context"
	"errors"
	"sync"

	"github.com/kozaktomas/doppelganger/internal/constants"
	"github.com/kozaktomas/doppelganger/internal/detector"
	"github.com/kozaktomas/doppelganger/internal/entropy"
	"github.com/kozaktomas/doppelganger/internal/matching"
	"go.uber.org/zap"
)

var errEmptyImage = errors.New("empty image")

// Response is the result of analyzing one photo. It is always populated:
// failures anywhere in the pipeline become productive failures.
type Response struct {
	Success          bool                `json:"success"`
	MonkeyImage      string              `json:"monkey_image"`
	MonkeyID         string              `json:"monkey_id"`
	Species          string              `json:"species"`
	Confidence       float64             `json:"confidence"`
	RealConfidence   float64             `json:"real_confidence"`
	MatchQuality     string              `json:"match_quality"`
	MutationsApplied []string            `json:"mutations_applied"`
	ChaosMessage     string              `json:"chaos_message,omitempty"`
	PoseType         string              `json:"pose_type"`
	FaceExpression   string              `json:"face_expression"`
	Session          entropy.Stats       `json:"session"`
	Attempt          int                 `json:"attempt"`
	PoseDebug        *detector.PoseDebug `json:"pose_debug,omitempty"`
	FaceDebug        *detector.FaceDebug `json:"face_debug,omitempty"`
}

// Analyzer wires the detectors to the matcher.
type Analyzer struct {
	matcher      *matching.Matcher
	poses        detector.PoseDetector
	expressions  detector.ExpressionClassifier
	maxImageSize int
	logger       *zap.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// WithMaxImageSize sets the longest side uploads are scaled down to before
// detection. Zero disables scaling.
func WithMaxImageSize(n int) Option {
	return func(a *Analyzer) { a.maxImageSize = n }
}

// New creates an analyzer. A nil expression classifier disables expression
// detection.
func New(m *matching.Matcher, poses detector.PoseDetector, expressions detector.ExpressionClassifier, opts ...Option) *Analyzer {
	if expressions == nil {
		expressions = detector.NoExpression{}
	}
	a := &Analyzer{
		matcher:      m,
		poses:        poses,
		expressions:  expressions,
		maxImageSize: constants.DefaultMaxImageSize,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Engine returns the entropy engine sessions are tracked in.
func (a *Analyzer) Engine() *entropy.Engine {
	return a.matcher.Engine()
}

// Analyze matches the person in image against the catalog. An empty
// sessionID starts a new session.
func (a *Analyzer) Analyze(ctx context.Context, sessionID string, image []byte) Response {
	engine := a.matcher.Engine()
	if sessionID == "" {
		sessionID = engine.CreateSession()
	}
	attempt := engine.IncrementAttempt(sessionID)

	log := a.logger.With(zap.String("session_id", sessionID), zap.Int("attempt", attempt))

	prepared, err := a.prepare(image)
	if err != nil {
		log.Warn("unusable image", zap.Error(err))
		resp := a.respond(sessionID, attempt, a.matcher.ProductiveFailure(sessionID, matching.ReasonImageError), false)
		resp.FaceExpression = detector.ExpressionUnknown
		return resp
	}

	poseRes, exprRes := a.detect(ctx, prepared, log)

	faceDebug := exprRes.Debug
	poseDebug := poseRes.Debug

	if poseRes.Keypoints == nil {
		engine.AddEntropy(sessionID, entropy.DetectionFailureIncrement, "detection_failure")
		resp := a.respond(sessionID, attempt, a.matcher.ProductiveFailure(sessionID, matching.ReasonNoPose), false)
		resp.FaceExpression = exprRes.Expression
		resp.PoseDebug = &poseDebug
		resp.FaceDebug = &faceDebug
		return resp
	}

	result, ok := a.match(ctx, matching.Request{
		SessionID:   sessionID,
		Keypoints:   poseRes.Keypoints,
		Confidence:  poseRes.Confidence,
		PartialBody: poseDebug.Partial,
		Expression:  exprRes.Expression,
	}, log)
	if !ok {
		result = a.matcher.ProductiveFailure(sessionID, matching.ReasonDefault)
	}

	resp := a.respond(sessionID, attempt, result, ok)
	resp.FaceExpression = exprRes.Expression
	resp.PoseDebug = &poseDebug
	resp.FaceDebug = &faceDebug
	return resp
}

func (a *Analyzer) prepare(image []byte) ([]byte, error) {
	if len(image) == 0 {
		return nil, errEmptyImage
	}
	return detector.PrepareImage(image, a.maxImageSize)
}

// detect runs pose and expression detection concurrently. Detector errors
// are folded into the debug output: a failed pose detection reads as no
// pose, a failed expression detection as an unknown expression.
func (a *Analyzer) detect(ctx context.Context, image []byte, log *zap.Logger) (*detector.PoseResult, *detector.ExpressionResult) {
	var (
		wg       sync.WaitGroup
		poseRes  *detector.PoseResult
		exprRes  *detector.ExpressionResult
		poseErr  error
		exprErr  error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		poseRes, poseErr = a.poses.DetectPose(ctx, image)
	}()
	go func() {
		defer wg.Done()
		exprRes, exprErr = a.expressions.ClassifyExpression(ctx, image)
	}()
	wg.Wait()

	if poseErr != nil {
		log.Warn("pose detection failed", zap.Error(poseErr))
		poseRes = &detector.PoseResult{Debug: detector.PoseDebug{Error: poseErr.Error()}}
	} else if poseRes == nil {
		poseRes = &detector.PoseResult{Debug: detector.PoseDebug{Error: "No pose detected"}}
	}

	if exprErr != nil {
		log.Warn("expression detection failed", zap.Error(exprErr))
		exprRes = detector.NoFace(exprErr.Error())
	} else if exprRes == nil {
		exprRes = detector.NoFace("No face detected")
	}

	return poseRes, exprRes
}

// match runs the matcher, reporting false if it panicked.
func (a *Analyzer) match(ctx context.Context, req matching.Request, log *zap.Logger) (res matching.Result, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("matcher panicked", zap.Any("panic", r), zap.Stack("stack"))
			ok = false
		}
	}()
	return a.matcher.FindBestMatch(ctx, req), true
}

func (a *Analyzer) respond(sessionID string, attempt int, r matching.Result, success bool) Response {
	return Response{
		Success:          success,
		MonkeyImage:      r.Entry.Image,
		MonkeyID:         r.Entry.ID,
		Species:          r.Entry.Species,
		Confidence:       r.DisplayedScore,
		RealConfidence:   r.RealScore,
		MatchQuality:     matching.MatchQuality(r.DisplayedScore),
		MutationsApplied: r.MutationsApplied,
		ChaosMessage:     r.ChaosMessage,
		PoseType:         string(r.PoseType),
		Session:          a.matcher.Engine().Stats(sessionID),
		Attempt:          attempt,
	}
}
