package llm

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

// Adapter cleans up a finished transcript
type Adapter interface {
	Process(ctx context.Context, text string) (string, error)
}

// Config holds post-processing settings
type Config struct {
	Provider          string // "openai", "groq", "deepseek" or "custom"
	BaseURL           string // overrides the provider default
	APIKey            string
	Model             string
	Mode              Mode
	RemoveStutters    bool
	AddPunctuation    bool
	FixGrammar        bool
	RemoveFillerWords bool
	CustomPrompt      string
	Keywords          []string
}

type preset struct {
	baseURL string
	model   string
}

var presets = map[string]preset{
	"openai":   {"https://api.openai.com/v1", "gpt-4o-mini"},
	"groq":     {"https://api.groq.com/openai/v1", "llama-3.3-70b-versatile"},
	"deepseek": {"https://api.deepseek.com/v1", "deepseek-chat"},
}

// Providers lists the built-in provider presets
func Providers() []string { return []string{"openai", "groq", "deepseek", "custom"} }

// NewAdapter creates a chat-completions adapter for any OpenAI-compatible endpoint
func NewAdapter(cfg Config) (Adapter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s API key required", cfg.Provider)
	}
	if !cfg.Mode.Valid() {
		return nil, fmt.Errorf("unsupported post-processing mode: %s", cfg.Mode)
	}

	p, known := presets[cfg.Provider]
	switch {
	case cfg.Provider == "custom":
		if cfg.BaseURL == "" || cfg.Model == "" {
			return nil, fmt.Errorf("custom LLM provider needs base_url and model")
		}
	case !known:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = p.baseURL
	}
	if cfg.Model == "" {
		cfg.Model = p.model
	}
	return NewChatAdapter(cfg), nil
}

// Timeout scales with the transcript: 3s plus 5ms per byte, at most 10s
func Timeout(textLen int) time.Duration {
	extra := time.Duration(textLen) * 5 * time.Millisecond
	if extra > 7*time.Second {
		extra = 7 * time.Second
	}
	return 3*time.Second + extra
}

// PostProcess runs text through a, falling back to the original on any failure.
// A nil adapter or blank text returns text untouched.
func PostProcess(ctx context.Context, a Adapter, text string) string {
	if a == nil || strings.TrimSpace(text) == "" {
		return text
	}

	ctx, cancel := context.WithTimeout(ctx, Timeout(len(text)))
	defer cancel()

	out, err := a.Process(ctx, text)
	if err != nil {
		log.Printf("llm: post-processing failed, using original text: %v", err)
		return text
	}
	if strings.TrimSpace(out) == "" {
		log.Printf("llm: empty response, using original text")
		return text
	}
	return out
}
