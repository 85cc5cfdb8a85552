package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"pdfrag/internal/domain"
)

// Synthesizer answers an assembled prompt with a chat completion.
type Synthesizer struct {
	client      *openai.Client
	model       string
	temperature float32
	logger      *zap.Logger
}

func NewSynthesizer(cfg Config) *Synthesizer {
	model := cfg.ChatModel
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}
	return &Synthesizer{
		client:      newClient(cfg),
		model:       model,
		temperature: cfg.Temperature,
		logger:      loggerOrNop(cfg.Logger),
	}
}

// Synthesize sends prompt as the user message. A non-empty input is sent as
// a second user message.
func (s *Synthesizer) Synthesize(ctx context.Context, prompt, input string) (string, error) {
	msgs := []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: prompt}}
	if input != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: input})
	}

	start := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Messages:    msgs,
		Temperature: s.temperature,
	})
	if err != nil {
		return "", parseAPIError("chat completion", err)
	}
	s.logger.Debug("chat completion done",
		zap.String("model", resp.Model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("took", time.Since(start)),
	)

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned: %w", domain.ErrInvalidResponse)
	}
	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("empty message content (finish reason %q): %w", resp.Choices[0].FinishReason, domain.ErrInvalidResponse)
	}
	return text, nil
}
