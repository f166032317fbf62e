package detector

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiClassifier asks a Gemini model for the facial expression.
type GeminiClassifier struct {
	client *genai.Client
	model  string
}

func NewGeminiClassifier(ctx context.Context, apiKey, model string) (*GeminiClassifier, error) {
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is required for the gemini expression provider")
	}
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClassifier{client: client, model: model}, nil
}

func (g *GeminiClassifier) ClassifyExpression(ctx context.Context, imageData []byte) (*ExpressionResult, error) {
	resized, err := PrepareImage(imageData, llmImageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to resize image: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: expressionPrompt},
				{InlineData: &genai.Blob{Data: resized, MIMEType: "image/jpeg"}},
			},
		},
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini API error: %w", err)
	}

	content := result.Text()
	if content == "" {
		return nil, errors.New("no response from Gemini")
	}

	return parseExpressionReply(content, "gemini")
}
