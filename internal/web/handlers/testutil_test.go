package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/doppelganger/internal/catalog"
	"github.com/kozaktomas/doppelganger/internal/config"
	"github.com/kozaktomas/doppelganger/internal/detector"
	"github.com/kozaktomas/doppelganger/internal/entropy"
	"github.com/kozaktomas/doppelganger/internal/pose"
)

// testConfig creates a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Detector:   config.DetectorConfig{URL: "http://localhost:8000"},
		Expression: config.ExpressionConfig{Provider: config.ProviderDetector},
		Catalog:    config.CatalogConfig{Source: config.SourceFile},
	}
}

// testCatalog returns a small catalog with one poseless and two posed entries
func testCatalog() *catalog.Catalog {
	return catalog.New([]catalog.Entry{
		{ID: "monkey1", Image: "/monkeys/monkey1.jpg", Species: "Macaque"},
		templated("monkey_arms_up", false),
		templated("monkey_waving", true),
	})
}

func templated(id string, synthetic bool) catalog.Entry {
	return catalog.Entry{
		ID:         id,
		Image:      "/monkeys/" + id + ".jpg",
		Species:    "Species " + id,
		Pose:       pose.Synthesize(id, nil),
		HasPose:    true,
		Confidence: 0.9,
		Synthetic:  synthetic,
	}
}

// armsUp is the base pose with both wrists raised above the head
func armsUp() pose.Keypoints {
	kp := pose.BasePose()
	kp[pose.LeftWrist] = pose.Point{X: 0.5, Y: 0.12}
	kp[pose.RightWrist] = pose.Point{X: 0.5, Y: 0.12}
	return kp
}

func newTestEngine() *entropy.Engine {
	return entropy.NewEngine(entropy.NewMemoryStore())
}

type stubPoses struct {
	result *detector.PoseResult
}

func (s stubPoses) DetectPose(context.Context, []byte) (*detector.PoseResult, error) {
	return s.result, nil
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// jsonRequest creates a request with a JSON body
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// pngImage encodes a small solid image
func pngImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := range 4 {
		for y := range 4 {
			img.Set(x, y, color.RGBA{R: 200, G: 120, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return buf.Bytes()
}

// multipartRequest creates a multipart upload with the given field name
func multipartRequest(t *testing.T, path, field string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(field, "photo.png")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
