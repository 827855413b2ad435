package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/seice/seice/internal/llm/prompts"
	"github.com/seice/seice/internal/model"

	openai "github.com/sashabaranov/go-openai"
)

// MaxEssayScore is the top of the essay score scale.
const MaxEssayScore = 10.0

// Suggestion holds the model's proposed score for one essay answer.
type Suggestion struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api     *openai.Client
	model   string
	variant prompts.PromptVariant
}

// New creates a new LLM client. The review templates must be loaded with
// prompts.Load before the first call.
func New(baseURL, apiKey, modelName string, variant prompts.PromptVariant) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:     openai.NewClientWithConfig(config),
		model:   modelName,
		variant: variant,
	}
}

// SuggestEssayScore asks the model to score an essay answer on the
// 0..MaxEssayScore scale.
func (c *Client) SuggestEssayScore(ctx context.Context, question model.Question, answer string) (*Suggestion, error) {
	systemPrompt, err := prompts.BuildReviewPrompt(c.variant, question, answer, MaxEssayScore)
	if err != nil {
		return nil, fmt.Errorf("build review prompt: %w", err)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Score the answer."},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "raw", raw)
	return parseSuggestion(raw)
}

// parseSuggestion decodes the model's JSON reply and clamps the score to
// the essay scale.
func parseSuggestion(raw string) (*Suggestion, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var s Suggestion
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &s); err != nil {
		return nil, fmt.Errorf("parse LLM response: %w (raw: %s)", err, raw)
	}
	switch {
	case math.IsNaN(s.Score) || s.Score < 0:
		s.Score = 0
	case s.Score > MaxEssayScore:
		s.Score = MaxEssayScore
	}
	s.Feedback = strings.TrimSpace(s.Feedback)
	return &s, nil
}
