package analyzer

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math/rand/v2"
	"testing"

	"github.com/kozaktomas/doppelganger/internal/catalog"
	"github.com/kozaktomas/doppelganger/internal/detector"
	"github.com/kozaktomas/doppelganger/internal/entropy"
	"github.com/kozaktomas/doppelganger/internal/matching"
	"github.com/kozaktomas/doppelganger/internal/pose"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakePoses struct {
	result *detector.PoseResult
	err    error
	calls  int
	got    []byte
}

func (f *fakePoses) DetectPose(_ context.Context, img []byte) (*detector.PoseResult, error) {
	f.calls++
	f.got = img
	return f.result, f.err
}

type fakeExpressions struct {
	result *detector.ExpressionResult
	err    error
}

func (f *fakeExpressions) ClassifyExpression(context.Context, []byte) (*detector.ExpressionResult, error) {
	return f.result, f.err
}

type panickingMutation struct{}

func (panickingMutation) Kind() entropy.MutationKind { return entropy.MutationSwapJoints }
func (panickingMutation) Stage() matching.Stage      { return matching.StageClassify }
func (panickingMutation) Apply(*matching.Subject, matching.Rand) string {
	panic("joint table corrupted")
}

func testImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := range 8 {
		for y := range 8 {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func armsUp() pose.Keypoints {
	kp := pose.BasePose()
	kp[pose.LeftWrist] = pose.Point{X: 0.5, Y: 0.12}
	kp[pose.RightWrist] = pose.Point{X: 0.5, Y: 0.12}
	return kp
}

func templated(id string) catalog.Entry {
	return catalog.Entry{ID: id, Image: "/monkeys/" + id + ".jpg", Species: "Species " + id, Pose: pose.Synthesize(id, nil), HasPose: true, Confidence: 0.9}
}

func detected(kp pose.Keypoints) *detector.PoseResult {
	return &detector.PoseResult{
		Keypoints:  kp,
		Confidence: 0.9,
		Debug:      detector.PoseDebug{TotalLandmarks: len(kp), AvgConfidence: 0.9},
	}
}

func neutralFace() *fakeExpressions {
	return &fakeExpressions{result: &detector.ExpressionResult{
		Expression: detector.ExpressionNeutral,
		Confidence: 0.8,
		Debug:      detector.FaceDebug{FaceDetected: true, Confidence: 0.8, Provider: "detector"},
	}}
}

func newTestAnalyzer(poses *fakePoses, faces *fakeExpressions, opts ...matching.Option) *Analyzer {
	cat := catalog.New([]catalog.Entry{
		{ID: "monkey1", Image: "/monkeys/monkey1.jpg", Species: "Macaque"},
		templated("monkey_arms_up"),
		templated("monkey_thinker"),
	})
	engine := entropy.NewEngine(entropy.NewMemoryStore())
	opts = append([]matching.Option{matching.WithRand(rand.New(rand.NewPCG(3, 3)))}, opts...)
	m := matching.NewMatcher(cat, engine, matching.DefaultTables(), opts...)
	return New(m, poses, faces)
}

func TestAnalyze_Match(t *testing.T) {
	defer goleak.VerifyNone(t)

	poses := &fakePoses{result: detected(armsUp())}
	a := newTestAnalyzer(poses, neutralFace())

	resp := a.Analyze(context.Background(), "", testImage(t))

	assert.True(t, resp.Success)
	assert.Equal(t, "monkey_arms_up", resp.MonkeyID)
	assert.Equal(t, "/monkeys/monkey_arms_up.jpg", resp.MonkeyImage)
	assert.Equal(t, "Species monkey_arms_up", resp.Species)
	assert.Equal(t, string(pose.ArmsUp), resp.PoseType)
	assert.InDelta(t, 95.6, resp.Confidence, 0.05)
	assert.Equal(t, resp.Confidence, resp.RealConfidence)
	assert.Equal(t, "LEGENDARY", resp.MatchQuality)
	assert.Empty(t, resp.MutationsApplied)
	assert.Empty(t, resp.ChaosMessage)
	assert.Equal(t, detector.ExpressionNeutral, resp.FaceExpression)

	assert.Equal(t, 1, resp.Attempt)
	assert.NotEmpty(t, resp.Session.SessionID)
	assert.InDelta(t, entropy.RetryIncrement, resp.Session.Entropy, 1e-9)
	require.NotNil(t, resp.PoseDebug)
	assert.Equal(t, pose.LandmarkCount, resp.PoseDebug.TotalLandmarks)
	require.NotNil(t, resp.FaceDebug)
	assert.True(t, resp.FaceDebug.FaceDetected)

	// Detectors see the re-encoded JPEG, not the PNG upload.
	require.Equal(t, 1, poses.calls)
	require.GreaterOrEqual(t, len(poses.got), 3)
	assert.Equal(t, []byte{0xFF, 0xD8, 0xFF}, poses.got[:3])
}

func TestAnalyze_ReusesSession(t *testing.T) {
	a := newTestAnalyzer(&fakePoses{result: detected(armsUp())}, neutralFace())
	id := a.Engine().CreateSession()

	first := a.Analyze(context.Background(), id, testImage(t))
	second := a.Analyze(context.Background(), id, testImage(t))

	assert.Equal(t, id, first.Session.SessionID)
	assert.Equal(t, 1, first.Attempt)
	assert.Equal(t, 2, second.Attempt)
	assert.InDelta(t, 2*entropy.RetryIncrement, second.Session.Entropy, 1e-9)
}

func TestAnalyze_ImageError(t *testing.T) {
	tests := []struct {
		name  string
		image []byte
	}{
		{"empty", nil},
		{"not an image", []byte("definitely not a photo of a person")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			poses := &fakePoses{result: detected(armsUp())}
			a := newTestAnalyzer(poses, neutralFace())

			resp := a.Analyze(context.Background(), "", tt.image)

			assert.False(t, resp.Success)
			assert.Equal(t, []string{"PRODUCTIVE_FAILURE", "IMAGE_ERROR"}, resp.MutationsApplied)
			assert.Equal(t, "Temporal anomaly in image processing", resp.ChaosMessage)
			assert.Equal(t, string(matching.PoseUnknown), resp.PoseType)
			assert.Equal(t, detector.ExpressionUnknown, resp.FaceExpression)
			assert.Zero(t, resp.RealConfidence)
			assert.GreaterOrEqual(t, resp.Confidence, 80.0)
			assert.Less(t, resp.Confidence, 95.0)
			assert.InDelta(t, entropy.RetryIncrement+entropy.ProductiveFailureIncrement, resp.Session.Entropy, 1e-9)
			assert.Zero(t, poses.calls)
		})
	}
}

func TestAnalyze_NoPose(t *testing.T) {
	poses := &fakePoses{result: &detector.PoseResult{Debug: detector.PoseDebug{Error: "No pose detected"}}}
	a := newTestAnalyzer(poses, neutralFace())

	resp := a.Analyze(context.Background(), "", testImage(t))

	assert.False(t, resp.Success)
	assert.Equal(t, []string{"PRODUCTIVE_FAILURE", "NO_POSE"}, resp.MutationsApplied)
	assert.Equal(t, "Specimen exceeds evolutionary recognition limits", resp.ChaosMessage)
	assert.Equal(t, detector.ExpressionNeutral, resp.FaceExpression)
	require.NotNil(t, resp.PoseDebug)
	assert.Equal(t, "No pose detected", resp.PoseDebug.Error)

	want := entropy.RetryIncrement + entropy.DetectionFailureIncrement + entropy.ProductiveFailureIncrement
	assert.InDelta(t, want, resp.Session.Entropy, 1e-9)
	assert.Equal(t, entropy.LevelDegrading, resp.Session.EntropyLevel)
}

func TestAnalyze_PoseDetectorError(t *testing.T) {
	poses := &fakePoses{err: errors.New("connection refused")}
	a := newTestAnalyzer(poses, neutralFace())

	resp := a.Analyze(context.Background(), "", testImage(t))

	assert.False(t, resp.Success)
	assert.Equal(t, []string{"PRODUCTIVE_FAILURE", "NO_POSE"}, resp.MutationsApplied)
	require.NotNil(t, resp.PoseDebug)
	assert.Equal(t, "connection refused", resp.PoseDebug.Error)
}

func TestAnalyze_ExpressionErrorIsUnknown(t *testing.T) {
	faces := &fakeExpressions{err: errors.New("model overloaded")}
	a := newTestAnalyzer(&fakePoses{result: detected(armsUp())}, faces)

	resp := a.Analyze(context.Background(), "", testImage(t))

	assert.True(t, resp.Success)
	assert.Equal(t, "monkey_arms_up", resp.MonkeyID)
	assert.Equal(t, detector.ExpressionUnknown, resp.FaceExpression)
	require.NotNil(t, resp.FaceDebug)
	assert.Equal(t, "model overloaded", resp.FaceDebug.Error)
	assert.False(t, resp.FaceDebug.FaceDetected)
}

func TestAnalyze_NilExpressionClassifier(t *testing.T) {
	cat := catalog.New([]catalog.Entry{templated("monkey_arms_up")})
	m := matching.NewMatcher(cat, entropy.NewEngine(entropy.NewMemoryStore()), matching.DefaultTables())
	a := New(m, &fakePoses{result: detected(armsUp())}, nil)

	resp := a.Analyze(context.Background(), "", testImage(t))

	assert.True(t, resp.Success)
	assert.Equal(t, detector.ExpressionUnknown, resp.FaceExpression)
}

func TestAnalyze_MatcherPanicBecomesProductiveFailure(t *testing.T) {
	a := newTestAnalyzer(&fakePoses{result: detected(armsUp())}, neutralFace(),
		matching.WithMutations(matching.MutationSet{panickingMutation{}}))
	id := a.Engine().CreateSession()
	a.Engine().AddEntropy(id, 0.6, "test")

	resp := a.Analyze(context.Background(), id, testImage(t))

	assert.False(t, resp.Success)
	assert.Equal(t, []string{"PRODUCTIVE_FAILURE", "DEFAULT"}, resp.MutationsApplied)
	assert.Equal(t, "The void gazes back... and finds kinship", resp.ChaosMessage)
	assert.Equal(t, string(matching.PoseUnknown), resp.PoseType)
}
