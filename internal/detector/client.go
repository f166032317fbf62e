package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

const (
	defaultDetectorURL = "http://localhost:8000"
	defaultTimeout     = 30 * time.Second
)

// Client calls the landmark detection service. It implements both
// PoseDetector and ExpressionClassifier.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a detector client.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultDetectorURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

// poseResponse is the body of POST /detect/pose.
type poseResponse struct {
	Landmarks []Landmark `json:"landmarks"`
	Error     string     `json:"error,omitempty"`
}

// face is one entry of POST /detect/face.
type face struct {
	BBox  BBox     `json:"bbox"`
	Score *float64 `json:"score,omitempty"`
}

type faceResponse struct {
	Faces []face `json:"faces"`
	Error string `json:"error,omitempty"`
}

// defaultFaceScore is assumed when the service omits a detection score.
const defaultFaceScore = 0.8

// postMultipartImage posts imageData as the "file" form field and returns the
// response body.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", detectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// DetectPose returns the body landmarks found in the image. A response
// without landmarks is not an error: the result simply has nil Keypoints.
func (c *Client) DetectPose(ctx context.Context, imageData []byte) (*PoseResult, error) {
	body, err := c.postMultipartImage(ctx, "/detect/pose", imageData)
	if err != nil {
		return nil, err
	}

	var poseResp poseResponse
	if err := json.Unmarshal(body, &poseResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	result := PoseFromLandmarks(poseResp.Landmarks)
	if result.Keypoints == nil && poseResp.Error != "" {
		result.Debug.Error = poseResp.Error
	}
	return result, nil
}

// ClassifyExpression detects the primary face and derives its expression
// from the bounding box shape.
func (c *Client) ClassifyExpression(ctx context.Context, imageData []byte) (*ExpressionResult, error) {
	body, err := c.postMultipartImage(ctx, "/detect/face", imageData)
	if err != nil {
		return nil, err
	}

	var faceResp faceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(faceResp.Faces) == 0 {
		return NoFace("No face detected"), nil
	}

	primary := faceResp.Faces[0]
	score := defaultFaceScore
	if primary.Score != nil {
		score = *primary.Score
	}
	bbox := primary.BBox

	return &ExpressionResult{
		Expression: ExpressionFromFace(bbox),
		Confidence: score,
		Debug: FaceDebug{
			FaceDetected: true,
			Confidence:   round3(score),
			BBox:         &bbox,
			Provider:     "detector",
		},
	}, nil
}
