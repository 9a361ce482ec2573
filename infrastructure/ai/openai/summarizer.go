package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"chatarchive/application/ports"

	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	summaryPrompt = `You label archived chat transcripts. Reply with a JSON object:
{"title": "<at most 8 words>", "tags": ["<1 to 5 short lowercase topic tags>"]}`

	// maxSummaryInputRunes bounds the transcript sent for labelling.
	maxSummaryInputRunes = 12000
	maxSummaryTags       = 5
)

// Summarizer implements ports.Summarizer with a JSON-mode chat completion
type Summarizer struct {
	client *guardedClient
	model  string
}

// NewSummarizer creates a summarizer using model
func NewSummarizer(api API, model string, breaker BreakerConfig, logger *zap.Logger) *Summarizer {
	if model == "" {
		model = "gpt-4o-mini"
	}
	breaker.Name += "-summaries"
	return &Summarizer{client: newGuardedClient(api, breaker, logger), model: model}
}

// Summarize proposes a title and tags for a transcript
func (s *Summarizer) Summarize(ctx context.Context, text string) (ports.Summary, error) {
	if utf8.RuneCountInString(text) > maxSummaryInputRunes {
		text = string([]rune(text)[:maxSummaryInputRunes])
	}

	out, err := s.client.execute("summarizer", func() (interface{}, error) {
		resp, err := s.client.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
			Model: s.model,
			Messages: []goopenai.ChatCompletionMessage{
				{Role: goopenai.ChatMessageRoleSystem, Content: summaryPrompt},
				{Role: goopenai.ChatMessageRoleUser, Content: text},
			},
			ResponseFormat: &goopenai.ChatCompletionResponseFormat{Type: goopenai.ChatCompletionResponseFormatTypeJSONObject},
			Temperature:    0.2,
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("chat completion returned no choices")
		}
		return parseSummary(resp.Choices[0].Message.Content)
	})
	if err != nil {
		return ports.Summary{}, err
	}
	return out.(ports.Summary), nil
}

func parseSummary(content string) (ports.Summary, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var summary ports.Summary
	if err := json.Unmarshal([]byte(content), &summary); err != nil {
		return ports.Summary{}, fmt.Errorf("summary was not valid JSON: %w", err)
	}
	summary.Title = strings.TrimSpace(summary.Title)
	if len(summary.Tags) > maxSummaryTags {
		summary.Tags = summary.Tags[:maxSummaryTags]
	}
	return summary, nil
}
