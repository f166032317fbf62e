package pose

import "math"

// Category is a coarse arm/body configuration.
type Category string

const (
	ArmsUp      Category = "arms_up"
	Praying     Category = "praying"
	ArmsCrossed Category = "arms_crossed"
	Shrug       Category = "shrug"
	Selfie      Category = "selfie"
	Waving      Category = "waving"
	Peace       Category = "peace"
	Flexing     Category = "flexing"
	Thinking    Category = "thinking"
	HandsHips   Category = "hands_hips"
	Pointing    Category = "pointing"
	Neutral     Category = "neutral"
)

// Categories lists every category in decision order.
var Categories = []Category{
	ArmsUp, Praying, ArmsCrossed, Shrug, Selfie, Waving,
	Peace, Flexing, Thinking, HandsHips, Pointing, Neutral,
}

// Diagnostics are the wrist positions relative to the shoulders, rounded to
// three decimals. Negative Y means above the shoulder line; X is the offset
// from the shoulder centre.
type Diagnostics struct {
	LeftWristY  float64 `json:"left_wrist_y"`
	RightWristY float64 `json:"right_wrist_y"`
	LeftWristX  float64 `json:"left_wrist_x"`
	RightWristX float64 `json:"right_wrist_x"`
}

// Classification is the outcome of Classify.
type Classification struct {
	Category    Category     `json:"pose_type"`
	Diagnostics *Diagnostics `json:"debug,omitempty"` // nil when keypoints were unusable
}

// relative holds unrounded positions relative to the shoulders.
type relative struct {
	leftWristY, rightWristY       float64
	leftWristX, rightWristX       float64
	leftElbowY, rightElbowY       float64
	leftWristAbsY, rightWristAbsY float64
	noseY                         float64
}

func measure(kp Keypoints) relative {
	shoulderY := (kp[LeftShoulder].Y + kp[RightShoulder].Y) / 2
	shoulderX := (kp[LeftShoulder].X + kp[RightShoulder].X) / 2
	return relative{
		leftWristY:     kp[LeftWrist].Y - shoulderY,
		rightWristY:    kp[RightWrist].Y - shoulderY,
		leftWristX:     kp[LeftWrist].X - shoulderX,
		rightWristX:    kp[RightWrist].X - shoulderX,
		leftElbowY:     kp[LeftElbow].Y - shoulderY,
		rightElbowY:    kp[RightElbow].Y - shoulderY,
		leftWristAbsY:  kp[LeftWrist].Y,
		rightWristAbsY: kp[RightWrist].Y,
		noseY:          kp[Nose].Y,
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// Classify maps keypoints to a category. Rules are checked from most to
// least specific and the first match wins. Fewer than MinLandmarks points
// yield Neutral with nil diagnostics.
func Classify(kp Keypoints) Classification {
	if !kp.Usable() {
		return Classification{Category: Neutral}
	}

	r := measure(kp)
	diag := &Diagnostics{
		LeftWristY:  round3(r.leftWristY),
		RightWristY: round3(r.rightWristY),
		LeftWristX:  round3(r.leftWristX),
		RightWristX: round3(r.rightWristX),
	}
	return Classification{Category: decide(r), Diagnostics: diag}
}

func decide(r relative) Category {
	// Both wrists well above the shoulders.
	if r.leftWristY < -0.15 && r.rightWristY < -0.15 {
		return ArmsUp
	}

	// Hands together near the chest.
	if math.Abs(r.leftWristX-r.rightWristX) < 0.15 && math.Abs(r.leftWristY) < 0.15 {
		if r.leftWristY < 0 {
			return Praying
		}
		return ArmsCrossed
	}

	if r.leftWristY < 0 && r.rightWristY < 0 && math.Abs(r.leftWristX) > 0.15 {
		return Shrug
	}

	// Only the left arm raised.
	if r.leftWristY < -0.1 && r.rightWristY > 0 {
		if r.leftWristX > 0.2 {
			return Selfie
		}
		return Waving
	}

	// Only the right arm raised.
	if r.rightWristY < -0.1 && r.leftWristY > 0 {
		if r.rightWristX < -0.2 {
			return Selfie
		}
		return Peace
	}

	if r.leftElbowY < 0 && r.rightElbowY < 0 {
		return Flexing
	}

	leftNearFace := r.leftWristY < 0 && math.Abs(r.leftWristX) < 0.1
	rightNearFace := r.rightWristY < 0 && math.Abs(r.rightWristX) < 0.1
	if leftNearFace || rightNearFace {
		if r.leftWristAbsY < r.noseY+0.1 || r.rightWristAbsY < r.noseY+0.1 {
			return Thinking
		}
	}

	if r.leftWristY > 0.2 && r.rightWristY > 0.2 &&
		math.Abs(r.leftWristX) > 0.1 && math.Abs(r.rightWristX) > 0.1 {
		return HandsHips
	}

	if math.Abs(r.leftWristX) > 0.25 || math.Abs(r.rightWristX) > 0.25 {
		return Pointing
	}

	return Neutral
}
