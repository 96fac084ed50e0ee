package daemon

import (
	"fmt"
	"log"

	"github.com/leonardotrapani/speakstream/internal/config"
	"github.com/leonardotrapani/speakstream/internal/history"
	"github.com/leonardotrapani/speakstream/internal/injection"
	"github.com/leonardotrapani/speakstream/internal/llm"
	"github.com/leonardotrapani/speakstream/internal/models/whisper"
	"github.com/leonardotrapani/speakstream/internal/notify"
	"github.com/leonardotrapani/speakstream/internal/pipeline"
	"github.com/leonardotrapani/speakstream/internal/recording"
	"github.com/leonardotrapani/speakstream/internal/transcriber"
)

// BuildOptions is the production wiring: pw-record audio, the configured provider,
// wtype/ydotool/clipboard injection and the optional LLM and history stages
func BuildOptions(cfg *config.Config) (pipeline.Options, error) {
	if err := cfg.Validate(); err != nil {
		return pipeline.Options{}, fmt.Errorf("invalid configuration: %w", err)
	}

	notifier, err := notify.New(cfg.NotifierType())
	if err != nil {
		return pipeline.Options{}, err
	}

	modelsDir, err := cfg.ModelsDir()
	if err != nil {
		return pipeline.Options{}, fmt.Errorf("resolve models dir: %w", err)
	}
	provider, err := transcriber.New(cfg.ToTranscriberConfig(whisper.NewManager(modelsDir)))
	if err != nil {
		return pipeline.Options{}, err
	}

	injector, err := injection.New(cfg.ToInjectionConfig())
	if err != nil {
		return pipeline.Options{}, err
	}

	opts := pipeline.Options{
		Config: cfg.ToPipelineConfig(),
		NewRecorder: func() pipeline.Recorder {
			return recording.NewRecorder(cfg.ToRecordingConfig())
		},
		Provider: provider,
		Injector: injector,
		Notifier: notifier,
	}

	if cfg.IsLLMEnabled() {
		adapter, err := llm.NewAdapter(cfg.ToLLMConfig())
		if err != nil {
			// transcripts still flow, unprocessed
			log.Printf("daemon: post-processing disabled: %v", err)
		} else {
			opts.PostProcess = adapter
		}
	}

	if cfg.History.Enabled {
		path, err := cfg.HistoryPath()
		if err != nil {
			return pipeline.Options{}, fmt.Errorf("resolve history path: %w", err)
		}
		store, err := history.Open(path)
		if err != nil {
			log.Printf("daemon: history disabled: %v", err)
		} else {
			opts.History = store
		}
	}

	log.Printf("daemon: provider %s (%s), injection %v, live=%t",
		provider.ID(), provider.Status(), injector.Names(), opts.Config.LiveInjection)
	return opts, nil
}
