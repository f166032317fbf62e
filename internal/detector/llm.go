package detector

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
)

//go:embed prompts/expression.txt
var expressionPrompt string

// llmImageSize is the longest side of images sent to hosted models.
const llmImageSize = 512

type expressionReply struct {
	Expression string  `json:"expression"`
	Confidence float64 `json:"confidence"`
}

// parseExpressionReply turns a model's JSON answer into a result. Labels
// outside the known set are reported as unknown.
func parseExpressionReply(content, provider string) (*ExpressionResult, error) {
	var reply expressionReply
	if err := json.Unmarshal([]byte(content), &reply); err != nil {
		return nil, fmt.Errorf("failed to parse expression JSON: %w (response: %s)", err, content)
	}

	label := strings.ToLower(strings.TrimSpace(reply.Expression))
	switch label {
	case ExpressionSmiling, ExpressionSurprised, ExpressionNeutral:
	default:
		res := NoFace("No face detected")
		res.Debug.Provider = provider
		return res, nil
	}

	confidence := min(1, max(0, reply.Confidence))
	return &ExpressionResult{
		Expression: label,
		Confidence: confidence,
		Debug: FaceDebug{
			FaceDetected: true,
			Confidence:   round3(confidence),
			Provider:     provider,
		},
	}, nil
}
