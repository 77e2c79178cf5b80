// Package llm provides optional LLM-backed disambiguation of search
// candidates when fuzzy scoring cannot separate the leaders.
package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"unitune/internal/core"
	"unitune/pkg/platforms"
)

type Provider struct {
	config *core.LLMConfig
	logger *zap.Logger
	client MatchClient
}

type MatchClient interface {
	PickBestMatch(ctx context.Context, artist, title string, candidates []platforms.Track) (*core.MatchJudgment, error)
}

func NewProvider(config *core.LLMConfig, logger *zap.Logger) (*Provider, error) {
	var client MatchClient
	var err error

	switch config.Provider {
	case "openai":
		client, err = NewOpenAIClient(config, logger)
	case "anthropic":
		client, err = NewAnthropicClient(config, logger)
	case "ollama":
		client, err = NewOllamaClient(config, logger)
	case "none", "":
		return &Provider{
			config: config,
			logger: logger,
			client: &NoOpClient{},
		}, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", config.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", config.Provider, err)
	}

	return &Provider{
		config: config,
		logger: logger,
		client: client,
	}, nil
}

// PickBestMatch forwards to the backend and enforces the configured
// confidence threshold. Below-threshold verdicts are dropped so the
// caller keeps its own ordering.
func (p *Provider) PickBestMatch(ctx context.Context, artist, title string, candidates []platforms.Track) (*core.MatchJudgment, error) {
	if len(candidates) > p.config.MaxCandidates && p.config.MaxCandidates > 0 {
		candidates = candidates[:p.config.MaxCandidates]
	}

	judgment, err := p.client.PickBestMatch(ctx, artist, title, candidates)
	if err != nil {
		return nil, err
	}

	if judgment == nil {
		return nil, fmt.Errorf("no verdict from %s", p.config.Provider)
	}

	if judgment.Confidence < p.config.Threshold {
		p.logger.Debug("Dropping low confidence verdict",
			zap.Int("index", judgment.Index),
			zap.Float64("confidence", judgment.Confidence),
			zap.Float64("threshold", p.config.Threshold))
		return nil, fmt.Errorf("verdict confidence %.2f below threshold", judgment.Confidence)
	}

	return judgment, nil
}

type NoOpClient struct{}

func (n *NoOpClient) PickBestMatch(_ context.Context, _, _ string, _ []platforms.Track) (*core.MatchJudgment, error) {
	return nil, fmt.Errorf("LLM provider not configured")
}

// matchResponse is the JSON document every backend is prompted to
// return.
type matchResponse struct {
	Index      int     `json:"index"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// buildMatchPrompt renders the wanted track and the numbered candidate
// list into the shared system prompt.
func buildMatchPrompt(artist, title string, candidates []platforms.Track) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Wanted track: %q by %q\n\nCandidates:\n", title, artist)
	for i, candidate := range candidates {
		fmt.Fprintf(&b, "%d. %q by %q\n", i, candidate.Title, candidate.Artist)
	}

	b.WriteString(`
Pick the candidate that is the same recording as the wanted track.

Respond with a JSON object in this exact format:
{
  "index": 0,
  "confidence": 0.85,
  "reasoning": "Brief explanation"
}

Rules:
1. index refers to the numbered candidate list, starting at 0
2. confidence should be between 0.0 and 1.0
3. Prefer the original studio recording over live versions, covers, remixes, and karaoke renditions
4. Be conservative - if no candidate is the same recording, use confidence 0.0
5. Respond with valid JSON only`)

	return b.String()
}
