package quotes

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// ErrNotConfigured is returned when no API key was provided at startup.
var ErrNotConfigured = errors.New("quote generation is not configured")

var randomPrompts = []string{
	"Write one short motivational quote about life, at most two sentences, no quotation marks, just the quote itself.",
	"Write one short inspirational quote about success, at most two sentences, no quotation marks, just the quote itself.",
	"Write one short wise quote about happiness, at most two sentences, no quotation marks, just the quote itself.",
	"Write one short quote about dreams and hope, at most two sentences, no quotation marks, just the quote itself.",
	"Write one short encouraging quote about effort and hard work, at most two sentences, no quotation marks, just the quote itself.",
}

// Quoter generates motivational quotes.
type Quoter interface {
	RandomQuote(ctx context.Context) (string, error)
	CustomQuote(ctx context.Context, topic string) (string, error)
}

// chatClient is the slice of the OpenAI client the generator uses, split out
// so tests can substitute a stub.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Generator produces quotes through Groq's OpenAI-compatible chat API.
type Generator struct {
	client chatClient
	model  string
	log    *zap.Logger
}

// NewGenerator returns a Groq-backed generator, or one that fails with
// ErrNotConfigured when apiKey is empty.
func NewGenerator(apiKey, model string, log *zap.Logger) *Generator {
	g := &Generator{model: model, log: log}
	if apiKey != "" {
		config := openai.DefaultConfig(apiKey)
		config.BaseURL = groqBaseURL
		g.client = openai.NewClientWithConfig(config)
	}
	return g
}

func (g *Generator) RandomQuote(ctx context.Context) (string, error) {
	prompt := randomPrompts[rand.Intn(len(randomPrompts))]
	return g.complete(ctx, prompt)
}

func (g *Generator) CustomQuote(ctx context.Context, topic string) (string, error) {
	prompt := fmt.Sprintf(
		"Write one short inspirational quote about %s, at most two sentences, no quotation marks, just the quote itself.",
		topic,
	)
	return g.complete(ctx, prompt)
}

func (g *Generator) complete(ctx context.Context, prompt string) (string, error) {
	if g.client == nil {
		return "", ErrNotConfigured
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.8,
		MaxTokens:   150,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}

	quote := strings.TrimSpace(resp.Choices[0].Message.Content)
	quote = strings.Trim(quote, `"'`)
	if quote == "" {
		return "", fmt.Errorf("model returned an empty quote")
	}

	return quote, nil
}
