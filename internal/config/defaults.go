package config

import (
	"time"

	"github.com/leonardotrapani/speakstream/internal/injection"
	"github.com/leonardotrapani/speakstream/internal/llm"
	"github.com/leonardotrapani/speakstream/internal/models/whisper"
	"github.com/leonardotrapani/speakstream/internal/pipeline"
	"github.com/leonardotrapani/speakstream/internal/recording"
	"github.com/leonardotrapani/speakstream/internal/transcriber"
)

// DefaultConfig returns the configuration written by "speakstream configure" on first run
func DefaultConfig() *Config {
	rec := recording.DefaultConfig()
	inj := injection.DefaultConfig()

	return &Config{
		Recording: RecordingConfig{
			SampleRate:        rec.SampleRate,
			Channels:          rec.Channels,
			Format:            rec.Format,
			BufferSize:        rec.BufferSize,
			Device:            rec.Device,
			ChannelBufferSize: rec.ChannelBufferSize,
			MaxPendingFrames:  rec.MaxPendingFrames,
			Timeout:           5 * time.Minute,
		},
		Transcription: TranscriptionConfig{
			Provider:       transcriber.ProviderDoubao,
			UpdateInterval: pipeline.DefaultUpdateInterval,
			Doubao: DoubaoConfig{
				Endpoint:   transcriber.DefaultDoubaoEndpoint,
				ResourceID: transcriber.DefaultDoubaoResourceID,
			},
			WhisperAPI: WhisperAPIConfig{
				BaseURL: transcriber.DefaultWhisperAPIBase,
				Model:   transcriber.DefaultWhisperAPIModel,
			},
			WhisperLocal: WhisperLocalConfig{
				Model: whisper.DefaultModel,
			},
		},
		Injection: InjectionConfig{
			Backends: inj.Backends,
			Timeout:  inj.Timeout,
		},
		Notifications: NotificationsConfig{
			Enabled: true,
			Type:    "desktop",
		},
		LLM: LLMConfig{
			Provider: "openai",
			Mode:     string(llm.ModeGeneral),
			PostProcessing: LLMPostProcessingConfig{
				RemoveStutters:    true,
				AddPunctuation:    true,
				FixGrammar:        true,
				RemoveFillerWords: true,
			},
		},
		History: HistoryConfig{
			Enabled: true,
		},
	}
}
