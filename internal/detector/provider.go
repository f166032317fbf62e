package detector

import (
	"context"
	"fmt"

	"github.com/kozaktomas/doppelganger/internal/config"
)

// NewExpressionClassifier picks the expression backend named in cfg. The
// detector provider reuses client.
func NewExpressionClassifier(ctx context.Context, cfg *config.Config, client *Client) (ExpressionClassifier, error) {
	switch cfg.Expression.Provider {
	case config.ProviderDetector, "":
		return client, nil
	case config.ProviderGemini:
		return NewGeminiClassifier(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	case config.ProviderOpenAI:
		return NewOpenAIClassifier(cfg.OpenAI.Token, cfg.OpenAI.Model)
	case config.ProviderNone:
		return NoExpression{}, nil
	default:
		return nil, fmt.Errorf("unknown expression provider: %s (use detector, gemini, openai or none)", cfg.Expression.Provider)
	}
}
