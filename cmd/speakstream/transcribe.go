package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/leonardotrapani/speakstream/internal/llm"
	"github.com/leonardotrapani/speakstream/internal/pipeline"
	"github.com/leonardotrapani/speakstream/internal/recording"
	"github.com/leonardotrapani/speakstream/internal/transcriber"
)

// 100 ms of 16 kHz mono 16-bit audio, the same cadence the recorder produces
const fileFrameBytes = 3200

func transcribeCmd() *cobra.Command {
	var (
		providerID string
		language   string
		realtime   bool
		postProc   bool
	)

	cmd := &cobra.Command{
		Use:   "transcribe <file.wav>",
		Short: "Transcribe a 16 kHz mono WAV file with the configured provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if providerID != "" {
				cfg.Transcription.Provider = providerID
			}
			if language != "" {
				cfg.Transcription.Language = language
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			models, err := modelManager(cfg)
			if err != nil {
				return err
			}
			p, err := transcriber.New(cfg.ToTranscriberConfig(models))
			if err != nil {
				return err
			}
			if err := p.Validate(); err != nil {
				return err
			}

			pcm, err := transcriber.ReadWAVFile(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			text, err := transcribeFile(ctx, p, pcm, realtime, func(interim string) {
				log.Printf("transcribe: %s", interim)
			})
			if err != nil {
				return err
			}

			if postProc && cfg.IsLLMEnabled() {
				adapter, err := llm.NewAdapter(cfg.ToLLMConfig())
				if err != nil {
					log.Printf("transcribe: post-processing skipped: %v", err)
				} else {
					text = llm.PostProcess(ctx, adapter, text)
				}
			}
			fmt.Println(text)
			return nil
		},
	}

	cmd.Flags().StringVar(&providerID, "provider", "", "override the configured provider")
	cmd.Flags().StringVar(&language, "language", "", "override the configured language")
	cmd.Flags().BoolVar(&realtime, "realtime", false, "feed audio at recording speed instead of as fast as possible")
	cmd.Flags().BoolVar(&postProc, "llm", false, "run LLM post-processing when it is enabled in the config")
	return cmd
}

// transcribeFile feeds pcm to p in recorder-sized frames and assembles the transcript
// the same way a live session does
func transcribeFile(ctx context.Context, p transcriber.Provider, pcm []byte, realtime bool, onUpdate func(string)) (string, error) {
	frames := make(chan recording.AudioFrame)
	results := make(chan transcriber.Result, 32)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		defer close(frames)
		var tick *time.Ticker
		if realtime {
			tick = time.NewTicker(100 * time.Millisecond)
			defer tick.Stop()
		}
		for off := 0; off < len(pcm); off += fileFrameBytes {
			end := min(off+fileFrameBytes, len(pcm))
			if tick != nil {
				select {
				case <-tick.C:
				case <-ctx.Done():
					return
				}
			}
			select {
			case frames <- recording.AudioFrame{Data: pcm[off:end], Timestamp: time.Now()}:
			case <-ctx.Done():
				return
			}
		}
	}()

	errc := make(chan error, 1)
	go func() {
		defer close(results)
		errc <- p.Transcribe(ctx, frames, results)
	}()

	disp := pipeline.NewDispatcher(pipeline.DefaultUpdateInterval, onUpdate)
	text := disp.Run(results)
	if err := <-errc; err != nil && !errors.Is(err, transcriber.ErrCancelled) {
		return text, err
	}
	return text, nil
}
