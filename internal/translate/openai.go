package translate

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultOpenAIModel = "gpt-5-mini"

// openai chat completions backend
type openaiCompleter struct {
	client openai.Client
	model  string
}

func NewOpenAITranslator(
	apiKey string,
	baseURL string,
	opts Options,
	extra ...option.RequestOption,
) (*BatchTranslator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	reqOpts = append(reqOpts, extra...)

	model := opts.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	return newBatchTranslator(&openaiCompleter{
		client: openai.NewClient(reqOpts...),
		model:  model,
	}, opts), nil
}

func (c *openaiCompleter) name() string { return "OpenAI" }

func (c *openaiCompleter) complete(ctx context.Context, prompt string) (string, error) {
	completion, err := c.client.Chat.Completions.New(
		ctx,
		openai.ChatCompletionNewParams{
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(prompt),
			},
			Model: c.model,
		},
	)
	if err != nil {
		return "", err
	}
	if completion == nil || len(completion.Choices) == 0 {
		return "", fmt.Errorf("empty response from OpenAI")
	}
	return completion.Choices[0].Message.Content, nil
}
