package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"unitune/internal/core"
	"unitune/pkg/platforms"
)

const defaultAnthropicModel = "claude-3-haiku-20240307"

type AnthropicClient struct {
	config *core.LLMConfig
	logger *zap.Logger
	client *anthropic.Client
}

func NewAnthropicClient(config *core.LLMConfig, logger *zap.Logger) (*AnthropicClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}

	var opts []option.RequestOption
	opts = append(opts, option.WithAPIKey(config.APIKey))

	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	client := anthropic.NewClient(opts...)

	return &AnthropicClient{
		config: config,
		logger: logger,
		client: &client,
	}, nil
}

func (a *AnthropicClient) PickBestMatch(ctx context.Context, artist, title string, candidates []platforms.Track) (*core.MatchJudgment, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no candidates provided")
	}

	systemPrompt := buildMatchPrompt(artist, title, candidates)

	model := a.config.Model
	if model == "" {
		model = defaultAnthropicModel
	}

	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokensMatch,
		System: []anthropic.TextBlockParam{{
			Type: "text",
			Text: systemPrompt,
		}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("Which candidate matches?")),
		},
		Temperature: anthropic.Float(defaultTemperature),
	})

	if err != nil {
		return nil, fmt.Errorf("Anthropic API call failed: %w", err)
	}

	if len(message.Content) == 0 {
		return nil, fmt.Errorf("no response from Anthropic")
	}

	content := message.Content[0].Text

	var response matchResponse
	if err := json.Unmarshal([]byte(content), &response); err != nil {
		a.logger.Error("Failed to parse Anthropic response", zap.Error(err), zap.String("content", content))
		return nil, fmt.Errorf("failed to parse Anthropic response: %w", err)
	}

	if response.Index < 0 || response.Index >= len(candidates) {
		return nil, fmt.Errorf("Anthropic picked out-of-range index %d", response.Index)
	}

	a.logger.Debug("Anthropic verdict",
		zap.Int("index", response.Index),
		zap.Float64("confidence", response.Confidence))

	return &core.MatchJudgment{
		Index:      response.Index,
		Confidence: response.Confidence,
		Reasoning:  response.Reasoning,
	}, nil
}
