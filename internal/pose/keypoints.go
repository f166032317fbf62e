// Package pose classifies 2D body keypoints into coarse pose categories.
//
// Keypoints follow the 33-landmark BlazePose order with coordinates
// normalised to 0-1 and y growing downwards, so "above" means a smaller y.
package pose

import (
	"encoding/json"
	"fmt"
	"math"
)

// Landmark indices used by classification and matching.
const (
	Nose          = 0
	LeftShoulder  = 11
	RightShoulder = 12
	LeftElbow     = 13
	RightElbow    = 14
	LeftWrist     = 15
	RightWrist    = 16
	LeftHip       = 23
	RightHip      = 24
	LeftKnee      = 25
	RightKnee     = 26
	LeftAnkle     = 27
	RightAnkle    = 28
)

const (
	// LandmarkCount is the number of landmarks a full detection carries.
	LandmarkCount = 33
	// MinLandmarks is the fewest landmarks that still cover both wrists.
	MinLandmarks = 17
)

// UpperBodyLandmarks are the joints compared when scoring two poses.
var UpperBodyLandmarks = []int{LeftShoulder, RightShoulder, LeftElbow, RightElbow, LeftWrist, RightWrist}

// LowerBodyLandmarks are used to decide whether a detection is partial.
var LowerBodyLandmarks = []int{LeftHip, RightHip, LeftKnee, RightKnee, LeftAnkle, RightAnkle}

// Point is a normalised image coordinate.
type Point struct {
	X float64
	Y float64
}

// MarshalJSON encodes the point as an [x, y] pair.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.X, p.Y})
}

// UnmarshalJSON decodes an [x, y] pair. Extra elements such as z or
// visibility are ignored.
func (p *Point) UnmarshalJSON(data []byte) error {
	var raw []float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding point: %w", err)
	}
	if len(raw) < 2 {
		return fmt.Errorf("point needs 2 coordinates, got %d", len(raw))
	}
	p.X, p.Y = raw[0], raw[1]
	return nil
}

// Distance returns the Euclidean distance between two points.
func (p Point) Distance(o Point) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

// Keypoints is an ordered landmark list.
type Keypoints []Point

// Usable reports whether there are enough landmarks to classify.
func (k Keypoints) Usable() bool {
	return len(k) >= MinLandmarks
}

// UpperBodyVector flattens the upper-body landmarks into
// [x11, y11, x12, y12, ...]. Returns nil when the keypoints are not usable.
func (k Keypoints) UpperBodyVector() []float32 {
	if !k.Usable() {
		return nil
	}
	vec := make([]float32, 0, len(UpperBodyLandmarks)*2)
	for _, idx := range UpperBodyLandmarks {
		vec = append(vec, float32(k[idx].X), float32(k[idx].Y))
	}
	return vec
}

// Flatten returns [x0, y0, x1, y1, ...] for storage.
func (k Keypoints) Flatten() []float32 {
	out := make([]float32, 0, len(k)*2)
	for _, p := range k {
		out = append(out, float32(p.X), float32(p.Y))
	}
	return out
}

// FromFlat is the inverse of Flatten.
func FromFlat(flat []float32) Keypoints {
	if len(flat) == 0 {
		return nil
	}
	kp := make(Keypoints, 0, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		kp = append(kp, Point{X: float64(flat[i]), Y: float64(flat[i+1])})
	}
	return kp
}

// maxDistance is returned when two poses cannot be compared.
const maxDistance = 999.0

// UpperBodyDistance is the mean Euclidean distance between the shoulders,
// elbows and wrists of two poses.
func UpperBodyDistance(a, b Keypoints) float64 {
	if !a.Usable() || !b.Usable() {
		return maxDistance
	}
	var total float64
	for _, idx := range UpperBodyLandmarks {
		total += a[idx].Distance(b[idx])
	}
	return total / float64(len(UpperBodyLandmarks))
}
