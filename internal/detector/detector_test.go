package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/doppelganger/internal/config"
	"github.com/kozaktomas/doppelganger/internal/pose"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func vis(v float64) *float64 { return &v }

func fullBody(lower float64) []Landmark {
	lms := make([]Landmark, pose.LandmarkCount)
	for i := range lms {
		lms[i] = Landmark{X: 0.5, Y: float64(i) / 40, Visibility: vis(0.9)}
	}
	for _, i := range pose.LowerBodyLandmarks {
		lms[i].Visibility = vis(lower)
	}
	return lms
}

func TestExpressionFromFace(t *testing.T) {
	tests := []struct {
		name string
		bbox BBox
		want string
	}{
		{"wide", BBox{Width: 120, Height: 100}, ExpressionSmiling},
		{"tall", BBox{Width: 80, Height: 100}, ExpressionSurprised},
		{"square", BBox{Width: 100, Height: 100}, ExpressionNeutral},
		{"upper edge", BBox{Width: 110, Height: 100}, ExpressionNeutral},
		{"lower edge", BBox{Width: 85, Height: 100}, ExpressionNeutral},
		{"degenerate", BBox{Width: 100}, ExpressionNeutral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpressionFromFace(tt.bbox))
		})
	}
}

func TestPoseFromLandmarks(t *testing.T) {
	res := PoseFromLandmarks(fullBody(0.9))

	require.Len(t, res.Keypoints, pose.LandmarkCount)
	assert.InDelta(t, 0.9, res.Confidence, 1e-9)
	assert.False(t, res.Debug.Partial)
	assert.Equal(t, pose.LandmarkCount, res.Debug.TotalLandmarks)
	assert.InDelta(t, 0.9, res.Debug.UpperBodyConfidence, 1e-9)
}

func TestPoseFromLandmarks_PartialBody(t *testing.T) {
	res := PoseFromLandmarks(fullBody(0.1))

	assert.True(t, res.Debug.Partial)
	assert.InDelta(t, 0.1, res.Debug.LowerBodyConfidence, 1e-9)
	assert.Less(t, res.Confidence, 0.9)
}

func TestPoseFromLandmarks_MissingVisibility(t *testing.T) {
	lms := fullBody(0.9)
	for i := range lms {
		lms[i].Visibility = nil
	}
	res := PoseFromLandmarks(lms)

	assert.InDelta(t, 0.5, res.Confidence, 1e-9)
	assert.False(t, res.Debug.Partial)
}

func TestPoseFromLandmarks_Empty(t *testing.T) {
	res := PoseFromLandmarks(nil)

	assert.Nil(t, res.Keypoints)
	assert.Zero(t, res.Confidence)
	assert.Equal(t, "No pose detected", res.Debug.Error)
}

func TestClient_DetectPose(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/detect/pose", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))
		data, _ := io.ReadAll(file)
		assert.NotEmpty(t, data)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(poseResponse{Landmarks: fullBody(0.2)})
	}))
	defer server.Close()

	client := NewClient(server.URL + "/")
	res, err := client.DetectPose(context.Background(), testPNG(t, 4, 4))

	require.NoError(t, err)
	assert.Len(t, res.Keypoints, pose.LandmarkCount)
	assert.True(t, res.Debug.Partial)
}

func TestClient_DetectPose_NoBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"landmarks": [], "error": "Pose model not found"}`))
	}))
	defer server.Close()

	res, err := NewClient(server.URL).DetectPose(context.Background(), []byte("not an image"))

	require.NoError(t, err)
	assert.Nil(t, res.Keypoints)
	assert.Equal(t, "Pose model not found", res.Debug.Error)
}

func TestClient_DetectPose_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewClient(server.URL).DetectPose(context.Background(), []byte("x"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestClient_ClassifyExpression(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/detect/face", r.URL.Path)
		_, _ = w.Write([]byte(`{"faces": [{"bbox": {"x": 10, "y": 20, "width": 130, "height": 100}, "score": 0.93}]}`))
	}))
	defer server.Close()

	res, err := NewClient(server.URL).ClassifyExpression(context.Background(), []byte("image"))

	require.NoError(t, err)
	assert.Equal(t, ExpressionSmiling, res.Expression)
	assert.InDelta(t, 0.93, res.Confidence, 1e-9)
	assert.True(t, res.Debug.FaceDetected)
	require.NotNil(t, res.Debug.BBox)
	assert.Equal(t, 130.0, res.Debug.BBox.Width)
}

func TestClient_ClassifyExpression_NoFace(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"faces": []}`))
	}))
	defer server.Close()

	res, err := NewClient(server.URL).ClassifyExpression(context.Background(), []byte("image"))

	require.NoError(t, err)
	assert.Equal(t, ExpressionUnknown, res.Expression)
	assert.Zero(t, res.Confidence)
	assert.Equal(t, "No face detected", res.Debug.Error)
}

func TestClient_ClassifyExpression_DefaultScore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"faces": [{"bbox": {"width": 70, "height": 100}}]}`))
	}))
	defer server.Close()

	res, err := NewClient(server.URL).ClassifyExpression(context.Background(), []byte("image"))

	require.NoError(t, err)
	assert.Equal(t, ExpressionSurprised, res.Expression)
	assert.InDelta(t, defaultFaceScore, res.Confidence, 1e-9)
}

func TestPrepareImage_Downscales(t *testing.T) {
	out, err := PrepareImage(testPNG(t, 200, 100), 50)
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 50, img.Bounds().Dx())
	assert.Equal(t, 25, img.Bounds().Dy())
}

func TestPrepareImage_KeepsSmallImages(t *testing.T) {
	out, err := PrepareImage(testPNG(t, 30, 40), 50)
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Width)
	assert.Equal(t, 40, cfg.Height)
}

func TestPrepareImage_Invalid(t *testing.T) {
	_, err := PrepareImage([]byte("definitely not an image"), 50)
	assert.Error(t, err)
}

func TestDetectMIMEType(t *testing.T) {
	assert.Equal(t, "image/png", detectMIMEType(testPNG(t, 2, 2)))
	assert.Equal(t, "image/jpeg", detectMIMEType([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0}))
	assert.Equal(t, "image/webp", detectMIMEType([]byte("RIFF\x00\x00\x00\x00WEBPVP8 ")))
	assert.Equal(t, "application/octet-stream", detectMIMEType([]byte("tiny")))
}

func TestParseExpressionReply(t *testing.T) {
	res, err := parseExpressionReply(`{"expression": " Smiling ", "confidence": 1.4}`, "gemini")
	require.NoError(t, err)
	assert.Equal(t, ExpressionSmiling, res.Expression)
	assert.Equal(t, 1.0, res.Confidence)
	assert.Equal(t, "gemini", res.Debug.Provider)

	res, err = parseExpressionReply(`{"expression": "unknown", "confidence": 0.7}`, "openai")
	require.NoError(t, err)
	assert.Equal(t, ExpressionUnknown, res.Expression)
	assert.Zero(t, res.Confidence)

	_, err = parseExpressionReply(`not json`, "openai")
	assert.Error(t, err)
}

func TestOpenAIClassifier(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "data:image/jpeg;base64,")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4.1-mini",
			"choices": [{
				"index": 0,
				"finish_reason": "stop",
				"message": {"role": "assistant", "content": "{\"expression\": \"surprised\", \"confidence\": 0.8}"}
			}]
		}`))
	}))
	defer server.Close()

	classifier, err := NewOpenAIClassifier("sk-test", "", option.WithBaseURL(server.URL+"/"), option.WithMaxRetries(0))
	require.NoError(t, err)

	res, err := classifier.ClassifyExpression(context.Background(), testPNG(t, 8, 8))
	require.NoError(t, err)
	assert.Equal(t, ExpressionSurprised, res.Expression)
	assert.InDelta(t, 0.8, res.Confidence, 1e-9)
	assert.Equal(t, "openai", res.Debug.Provider)
}

func TestNewExpressionClassifier(t *testing.T) {
	client := NewClient("")
	cfg := &config.Config{}

	cfg.Expression.Provider = config.ProviderDetector
	c, err := NewExpressionClassifier(context.Background(), cfg, client)
	require.NoError(t, err)
	assert.Same(t, client, c)

	cfg.Expression.Provider = config.ProviderNone
	c, err = NewExpressionClassifier(context.Background(), cfg, client)
	require.NoError(t, err)
	res, err := c.ClassifyExpression(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, ExpressionUnknown, res.Expression)

	cfg.Expression.Provider = config.ProviderGemini
	_, err = NewExpressionClassifier(context.Background(), cfg, client)
	assert.Error(t, err)

	cfg.Expression.Provider = config.ProviderOpenAI
	cfg.OpenAI.Token = "sk-test"
	c, err = NewExpressionClassifier(context.Background(), cfg, client)
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClassifier{}, c)

	cfg.Expression.Provider = "ouija"
	_, err = NewExpressionClassifier(context.Background(), cfg, client)
	assert.Error(t, err)
}
