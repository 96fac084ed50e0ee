package transcriber

import (
	"context"
	"fmt"

	"github.com/leonardotrapani/speakstream/internal/models/whisper"
	"github.com/leonardotrapani/speakstream/internal/recording"
)

// Result is one recognition update. IsFinal is false for interim guesses.
type Result struct {
	Text    string
	IsFinal bool
}

// Provider is a speech recognition backend.
//
// Transcribe drains audio until the channel closes or ctx is cancelled and sends results
// to out. It never closes out; the caller does once Transcribe returns. An audio stream
// that closes without a single frame produces no result and no error.
type Provider interface {
	ID() string
	DisplayName() string
	Status() Status
	Validate() error
	Transcribe(ctx context.Context, audio <-chan recording.AudioFrame, out chan<- Result) error
}

const (
	ProviderDoubao       = "doubao"
	ProviderWhisperAPI   = "whisper-api"
	ProviderWhisperLocal = "whisper-local"
)

// IDs lists every provider id in display order
func IDs() []string {
	return []string{ProviderDoubao, ProviderWhisperAPI, ProviderWhisperLocal}
}

// IsStreaming reports whether a provider emits interim results while audio is flowing
func IsStreaming(id string) bool { return id == ProviderDoubao }

type Config struct {
	Provider     string
	Language     string // shared default; per-provider settings override it
	Doubao       DoubaoConfig
	WhisperAPI   WhisperAPIConfig
	WhisperLocal WhisperLocalConfig
}

type DoubaoConfig struct {
	AppID       string
	AccessToken string
	SecretKey   string
	Endpoint    string
	ResourceID  string
	ModelName   string
}

type WhisperAPIConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Language string
}

type WhisperLocalConfig struct {
	Model    string
	Language string
	Threads  int
	// Models resolves model paths and reports in-flight downloads
	Models *whisper.Manager
}

// New builds the provider selected by cfg.Provider
func New(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case ProviderDoubao:
		return NewDoubao(cfg.Doubao), nil
	case ProviderWhisperAPI:
		c := cfg.WhisperAPI
		if c.Language == "" {
			c.Language = cfg.Language
		}
		return NewWhisperAPI(c), nil
	case ProviderWhisperLocal:
		c := cfg.WhisperLocal
		if c.Language == "" {
			c.Language = cfg.Language
		}
		return NewWhisperLocal(c), nil
	default:
		return nil, configErr("unsupported provider %q", cfg.Provider)
	}
}

// collectAudio appends every frame until the channel closes. A cancelled ctx returns
// ErrCancelled with whatever was gathered so far.
func collectAudio(ctx context.Context, audio <-chan recording.AudioFrame) ([]byte, int, error) {
	var buf []byte
	var frames int
	for {
		select {
		case <-ctx.Done():
			return buf, frames, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
		case frame, ok := <-audio:
			if !ok {
				return buf, frames, nil
			}
			frames++
			buf = append(buf, frame.Data...)
		}
	}
}
