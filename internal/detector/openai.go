package detector

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const defaultOpenAIModel = string(openai.ChatModelGPT4_1Mini)

// OpenAIClassifier asks an OpenAI chat model for the facial expression.
type OpenAIClassifier struct {
	client *openai.Client
	model  string
}

func NewOpenAIClassifier(apiKey, model string, opts ...option.RequestOption) (*OpenAIClassifier, error) {
	if apiKey == "" {
		return nil, errors.New("OPENAI_TOKEN is required for the openai expression provider")
	}
	if model == "" {
		model = defaultOpenAIModel
	}

	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &OpenAIClassifier{client: &client, model: model}, nil
}

func (o *OpenAIClassifier) ClassifyExpression(ctx context.Context, imageData []byte) (*ExpressionResult, error) {
	resized, err := PrepareImage(imageData, llmImageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to resize image: %w", err)
	}
	imageURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(resized)

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{
						OfString: openai.String(expressionPrompt),
					},
				},
			},
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfArrayOfContentParts: []openai.ChatCompletionContentPartUnionParam{
							openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
								URL:    imageURL,
								Detail: "low",
							}),
						},
					},
				},
			},
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
		MaxTokens: openai.Int(50),
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New("no response from OpenAI")
	}

	return parseExpressionReply(resp.Choices[0].Message.Content, "openai")
}
