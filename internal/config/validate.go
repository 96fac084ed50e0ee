package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/leonardotrapani/speakstream/internal/language"
	"github.com/leonardotrapani/speakstream/internal/llm"
	"github.com/leonardotrapani/speakstream/internal/models/whisper"
	"github.com/leonardotrapani/speakstream/internal/recording"
	"github.com/leonardotrapani/speakstream/internal/transcriber"
)

var (
	validBackends      = []string{"wtype", "ydotool", "clipboard"}
	validNotifierTypes = []string{"desktop", "log", "none"}
)

// Validate checks the structure of the file. Missing provider credentials are not an
// error here; the provider reports them when a session starts.
func (c *Config) Validate() error {
	if c.Recording.SampleRate != recording.SampleRate {
		return fmt.Errorf("invalid recording.sample_rate: %d (only %d is supported)", c.Recording.SampleRate, recording.SampleRate)
	}
	if c.Recording.Channels != recording.Channels {
		return fmt.Errorf("invalid recording.channels: %d (only mono is supported)", c.Recording.Channels)
	}
	if c.Recording.BufferSize <= 0 {
		return fmt.Errorf("invalid recording.buffer_size: %d", c.Recording.BufferSize)
	}
	if c.Recording.ChannelBufferSize <= 0 {
		return fmt.Errorf("invalid recording.channel_buffer_size: %d", c.Recording.ChannelBufferSize)
	}
	if c.Recording.Format != recording.Format {
		return fmt.Errorf("invalid recording.format: %q (only %q is supported)", c.Recording.Format, recording.Format)
	}
	if c.Recording.Timeout < 0 {
		return fmt.Errorf("invalid recording.timeout: %v", c.Recording.Timeout)
	}

	if err := c.validateTranscription(); err != nil {
		return err
	}

	if len(c.Injection.Backends) == 0 {
		return fmt.Errorf("invalid injection.backends: empty (must have at least one backend)")
	}
	for _, backend := range c.Injection.Backends {
		if !slices.Contains(validBackends, backend) {
			return fmt.Errorf("invalid injection.backends: unknown backend %q (must be %s)", backend, strings.Join(validBackends, ", "))
		}
	}
	if c.Injection.Timeout <= 0 {
		return fmt.Errorf("invalid injection.timeout: %v", c.Injection.Timeout)
	}
	if c.Injection.Live && !slices.ContainsFunc(c.Injection.Backends, func(b string) bool { return b != "clipboard" }) {
		return fmt.Errorf("injection.live needs wtype or ydotool in injection.backends")
	}

	if c.Notifications.Enabled && !slices.Contains(validNotifierTypes, c.Notifications.Type) {
		return fmt.Errorf("invalid notifications.type: %s (must be desktop, log, or none)", c.Notifications.Type)
	}

	if c.LLM.Enabled {
		if !slices.Contains(llm.Providers(), c.LLM.Provider) {
			return fmt.Errorf("invalid llm.provider: %q (must be %s)", c.LLM.Provider, strings.Join(llm.Providers(), ", "))
		}
		if c.LLM.Provider == "custom" && (c.LLM.BaseURL == "" || c.LLM.Model == "") {
			return fmt.Errorf("llm.base_url and llm.model required when llm.provider = \"custom\"")
		}
		if !llm.Mode(c.LLM.Mode).Valid() {
			return fmt.Errorf("invalid llm.mode: %s (must be general, code, or meeting)", c.LLM.Mode)
		}
	}
	return nil
}

func (c *Config) validateTranscription() error {
	t := c.Transcription
	if !slices.Contains(transcriber.IDs(), t.Provider) {
		return fmt.Errorf("unsupported transcription.provider: %q (must be %s)", t.Provider, strings.Join(transcriber.IDs(), ", "))
	}
	if t.StopGrace < 0 {
		return fmt.Errorf("invalid transcription.stop_grace: %v", t.StopGrace)
	}
	if t.UpdateInterval < 0 {
		return fmt.Errorf("invalid transcription.update_interval: %v", t.UpdateInterval)
	}

	languages := map[string]string{
		"transcription.language":               t.Language,
		"transcription.whisper_api.language":   t.WhisperAPI.Language,
		"transcription.whisper_local.language": t.WhisperLocal.Language,
	}
	for key, code := range languages {
		if !language.Valid(code) {
			return fmt.Errorf("invalid %s: %s (use empty string for auto-detect or ISO-639-1 codes like 'en', 'zh', 'fr')", key, code)
		}
	}

	if t.WhisperLocal.Model != "" {
		info, ok := whisper.Lookup(t.WhisperLocal.Model)
		if !ok {
			var ids []string
			for _, m := range whisper.ListModels() {
				ids = append(ids, m.ID)
			}
			return fmt.Errorf("invalid transcription.whisper_local.model: %s (must be one of %s)", t.WhisperLocal.Model, strings.Join(ids, ", "))
		}
		lang := language.Normalize(firstNonEmpty(t.WhisperLocal.Language, t.Language))
		if !info.Multilingual && lang != language.Auto && lang != "en" {
			return fmt.Errorf("transcription.whisper_local.model %s only supports English, not %s", info.ID, lang)
		}
	}
	if t.WhisperLocal.Threads < 0 {
		return fmt.Errorf("invalid transcription.whisper_local.threads: %d", t.WhisperLocal.Threads)
	}
	return nil
}
