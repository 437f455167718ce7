package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
	"github.com/pkoukk/tiktoken-go"

	"courseforge/internal/domain"
	"courseforge/internal/domain/model"
	"courseforge/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.CourseGenerator = (*OpenAIAdapter)(nil)

// OpenAIAdapter generates outlines through the Chat Completions API.
// Prompts are token-counted locally with tiktoken before the call, so an
// oversized topic request fails fast without spending quota.
type OpenAIAdapter struct {
	client      openai.Client
	model       string
	maxOut      int
	promptLimit int
}

func NewOpenAIAdapter(apiKey, model string, maxOut, promptLimit int) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIAdapter{
		client:      openai.NewClient(option.WithAPIKey(apiKey)),
		model:       model,
		maxOut:      maxOut,
		promptLimit: promptLimit,
	}, nil
}

func (o *OpenAIAdapter) Provider() string { return "openai" }

func (o *OpenAIAdapter) GenerateCourse(ctx context.Context, req adapter.GenerationRequest) (*model.CourseOutline, adapter.Usage, error) {
	prompt := buildUserPrompt(req)
	if o.promptLimit > 0 {
		n, err := o.countTokens(outlineSystemPrompt + prompt)
		if err == nil && n > o.promptLimit {
			return nil, adapter.Usage{}, fmt.Errorf("prompt is %d tokens, limit %d: %w", n, o.promptLimit, domain.ErrInvalidArgument)
		}
	}

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(outlineSystemPrompt),
			openai.UserMessage(prompt),
		},
		MaxTokens: openai.Int(int64(o.maxOut)),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return nil, adapter.Usage{}, err
	}

	u := adapter.Usage{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, u, domain.ErrEmptyOutline
	}

	outline, err := parseOutline(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, u, err
	}
	return outline, u, nil
}

func (o *OpenAIAdapter) countTokens(text string) (int, error) {
	enc, err := tiktoken.EncodingForModel(o.model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return 0, err
		}
	}
	return len(enc.Encode(text, nil, nil)), nil
}
