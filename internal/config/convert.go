package config

import (
	"os"

	"github.com/leonardotrapani/speakstream/internal/history"
	"github.com/leonardotrapani/speakstream/internal/injection"
	"github.com/leonardotrapani/speakstream/internal/language"
	"github.com/leonardotrapani/speakstream/internal/llm"
	"github.com/leonardotrapani/speakstream/internal/models/whisper"
	"github.com/leonardotrapani/speakstream/internal/pipeline"
	"github.com/leonardotrapani/speakstream/internal/recording"
	"github.com/leonardotrapani/speakstream/internal/transcriber"
)

// llmKeyEnv maps LLM presets to the environment variable holding their key
var llmKeyEnv = map[string]string{
	"openai":   "OPENAI_API_KEY",
	"groq":     "GROQ_API_KEY",
	"deepseek": "DEEPSEEK_API_KEY",
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (c *Config) ToRecordingConfig() recording.Config {
	rc := recording.DefaultConfig()
	rc.SampleRate = c.Recording.SampleRate
	rc.Channels = c.Recording.Channels
	rc.Format = c.Recording.Format
	rc.BufferSize = c.Recording.BufferSize
	rc.Device = c.Recording.Device
	rc.ChannelBufferSize = c.Recording.ChannelBufferSize
	if c.Recording.MaxPendingFrames > 0 {
		rc.MaxPendingFrames = c.Recording.MaxPendingFrames
	}
	return rc
}

// ModelsDir returns where local whisper models live
func (c *Config) ModelsDir() (string, error) {
	if c.Transcription.WhisperLocal.ModelsDir != "" {
		return c.Transcription.WhisperLocal.ModelsDir, nil
	}
	return whisper.DefaultModelsDir()
}

// ToTranscriberConfig resolves secrets from the environment when the file leaves them
// empty. models may be nil when whisper-local is not in use.
func (c *Config) ToTranscriberConfig(models *whisper.Manager) transcriber.Config {
	t := c.Transcription
	return transcriber.Config{
		Provider: t.Provider,
		Language: language.Normalize(t.Language),
		Doubao: transcriber.DoubaoConfig{
			AppID:       firstNonEmpty(t.Doubao.AppID, os.Getenv("DOUBAO_APP_ID")),
			AccessToken: firstNonEmpty(t.Doubao.AccessToken, os.Getenv("DOUBAO_ACCESS_TOKEN")),
			SecretKey:   t.Doubao.SecretKey,
			Endpoint:    t.Doubao.Endpoint,
			ResourceID:  t.Doubao.ResourceID,
			ModelName:   t.Doubao.ModelName,
		},
		WhisperAPI: transcriber.WhisperAPIConfig{
			APIKey:   firstNonEmpty(t.WhisperAPI.APIKey, os.Getenv("OPENAI_API_KEY")),
			BaseURL:  t.WhisperAPI.BaseURL,
			Model:    t.WhisperAPI.Model,
			Language: language.Normalize(t.WhisperAPI.Language),
		},
		WhisperLocal: transcriber.WhisperLocalConfig{
			Model:    t.WhisperLocal.Model,
			Language: language.Normalize(t.WhisperLocal.Language),
			Threads:  t.WhisperLocal.Threads,
			Models:   models,
		},
	}
}

func (c *Config) ToInjectionConfig() injection.Config {
	return injection.Config{
		Backends: c.Injection.Backends,
		Timeout:  c.Injection.Timeout,
	}
}

// IsLLMEnabled reports whether batch transcripts go through post-processing
func (c *Config) IsLLMEnabled() bool {
	return c.LLM.Enabled && c.LLM.Provider != ""
}

func (c *Config) ToLLMConfig() llm.Config {
	cfg := llm.Config{
		Provider:          c.LLM.Provider,
		BaseURL:           c.LLM.BaseURL,
		APIKey:            c.LLM.APIKey,
		Model:             c.LLM.Model,
		Mode:              llm.Mode(c.LLM.Mode),
		RemoveStutters:    c.LLM.PostProcessing.RemoveStutters,
		AddPunctuation:    c.LLM.PostProcessing.AddPunctuation,
		FixGrammar:        c.LLM.PostProcessing.FixGrammar,
		RemoveFillerWords: c.LLM.PostProcessing.RemoveFillerWords,
		Keywords:          c.Keywords,
	}
	if cfg.APIKey == "" {
		if env, ok := llmKeyEnv[c.LLM.Provider]; ok {
			cfg.APIKey = os.Getenv(env)
		}
	}
	if c.LLM.CustomPrompt.Enabled && c.LLM.CustomPrompt.Prompt != "" {
		cfg.CustomPrompt = c.LLM.CustomPrompt.Prompt
	}
	return cfg
}

func (c *Config) ToPipelineConfig() pipeline.Config {
	return pipeline.Config{
		LiveInjection:  c.Injection.Live,
		StopGrace:      c.Transcription.StopGrace,
		UpdateInterval: c.Transcription.UpdateInterval,
		MaxDuration:    c.Recording.Timeout,
	}
}

// NotifierType folds notifications.enabled into the type
func (c *Config) NotifierType() string {
	if !c.Notifications.Enabled {
		return "none"
	}
	return c.Notifications.Type
}

func (c *Config) HistoryPath() (string, error) {
	if c.History.Path != "" {
		return c.History.Path, nil
	}
	return history.DefaultPath()
}
