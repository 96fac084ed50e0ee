package transcriber

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/leonardotrapani/speakstream/internal/recording"
)

const (
	DefaultWhisperAPIBase  = "https://api.openai.com/v1"
	DefaultWhisperAPIModel = openai.Whisper1
)

// WhisperAPI uploads the whole recording to an OpenAI-compatible transcription
// endpoint once the audio stream ends.
type WhisperAPI struct {
	cfg    WhisperAPIConfig
	client *openai.Client
}

func NewWhisperAPI(cfg WhisperAPIConfig) *WhisperAPI {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultWhisperAPIBase
	}
	if cfg.Model == "" {
		cfg.Model = DefaultWhisperAPIModel
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &WhisperAPI{cfg: cfg, client: openai.NewClientWithConfig(clientCfg)}
}

func (w *WhisperAPI) ID() string          { return ProviderWhisperAPI }
func (w *WhisperAPI) DisplayName() string { return "Whisper API" }

func (w *WhisperAPI) Status() Status {
	if w.cfg.APIKey == "" {
		return NeedsConfiguration("whisper api key is not set")
	}
	return Ready()
}

func (w *WhisperAPI) Validate() error {
	if w.cfg.APIKey == "" {
		return configErr("whisper api key is not set")
	}
	return nil
}

func (w *WhisperAPI) Transcribe(ctx context.Context, audio <-chan recording.AudioFrame, out chan<- Result) error {
	if err := w.Validate(); err != nil {
		return err
	}

	pcm, frames, err := collectAudio(ctx, audio)
	if err != nil {
		return err
	}
	if len(pcm) == 0 {
		log.Printf("whisper-api: no audio in %d frames, skipping upload", frames)
		return nil
	}

	req := openai.AudioRequest{
		Model:    w.cfg.Model,
		Reader:   bytes.NewReader(convertToWAV(pcm)),
		FilePath: "audio.wav",
		Language: w.cfg.Language,
	}

	start := time.Now()
	resp, err := w.client.CreateTranscription(ctx, req)
	duration := time.Since(start)
	if err != nil {
		log.Printf("whisper-api: request failed after %v: %v", duration, err)
		return classifyAPIError(ctx, err)
	}

	text := strings.TrimSpace(resp.Text)
	log.Printf("whisper-api: transcribed %d bytes in %v: %q", len(pcm), duration, text)
	if text == "" {
		return nil
	}

	select {
	case out <- Result{Text: text, IsFinal: true}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	}
}

// classifyAPIError maps a go-openai failure onto the error taxonomy: anything the
// server answered is a transcription error, anything that never got an answer is a
// connection error.
func classifyAPIError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: whisper api status %d: %s", ErrTranscription, apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("%w: whisper api status %d: %v", ErrTranscription, reqErr.HTTPStatusCode, reqErr.Err)
	}
	return connectionErr("whisper api request", err)
}
