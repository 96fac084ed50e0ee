package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const (
	chatTemperature = 0.3
	chatMaxTokens   = 1024
)

var errNoChoices = errors.New("no choices in response")

// ChatAdapter sends the transcript to an OpenAI-compatible chat completions endpoint
type ChatAdapter struct {
	client *openai.Client
	config Config
}

func NewChatAdapter(cfg Config) *ChatAdapter {
	cc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		cc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return &ChatAdapter{client: openai.NewClientWithConfig(cc), config: cfg}
}

func (a *ChatAdapter) request(text string) openai.ChatCompletionRequest {
	system := BuildSystemPrompt(PostProcessingOptions{
		Mode:              a.config.Mode,
		RemoveStutters:    a.config.RemoveStutters,
		AddPunctuation:    a.config.AddPunctuation,
		FixGrammar:        a.config.FixGrammar,
		RemoveFillerWords: a.config.RemoveFillerWords,
	}, a.config.Keywords)

	return openai.ChatCompletionRequest{
		Model: a.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: BuildUserPrompt(text, a.config.CustomPrompt)},
		},
		Temperature: chatTemperature,
		MaxTokens:   chatMaxTokens,
	}
}

func (a *ChatAdapter) Process(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", nil
	}

	start := time.Now()
	resp, err := a.client.CreateChatCompletion(ctx, a.request(text))
	if err != nil {
		log.Printf("llm: %s failed after %v: %v", a.config.Provider, time.Since(start), err)
		return "", fmt.Errorf("%s: %w", a.config.Provider, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: %w", a.config.Provider, errNoChoices)
	}

	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	log.Printf("llm: %s rewrote %d chars into %d in %v", a.config.Provider, len(text), len(out), time.Since(start).Round(time.Millisecond))
	return out, nil
}
