package transcriber

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"
	"strings"
	"time"

	"github.com/leonardotrapani/speakstream/internal/models/whisper"
	"github.com/leonardotrapani/speakstream/internal/recording"
)

// inferenceEngine runs greedy single-best decoding of 16 kHz mono PCM against a ggml
// model and returns the decoded segments in order.
type inferenceEngine interface {
	Name() string
	Check() error
	Transcribe(ctx context.Context, req inferenceRequest) ([]string, error)
}

type inferenceRequest struct {
	ModelPath string
	Language  string
	Threads   int
	PCM       []byte
}

type inferenceResult struct {
	segments []string
	err      error
}

// WhisperLocal transcribes the whole recording offline with whisper.cpp once the audio
// stream ends. Inference runs off the calling goroutine on a worker pinned to its OS thread.
type WhisperLocal struct {
	cfg    WhisperLocalConfig
	engine inferenceEngine
}

func NewWhisperLocal(cfg WhisperLocalConfig) *WhisperLocal {
	if cfg.Model == "" {
		cfg.Model = whisper.DefaultModel
	}
	if cfg.Models == nil {
		dir, err := whisper.DefaultModelsDir()
		if err != nil {
			log.Printf("whisper-local: resolve models dir: %v", err)
		}
		cfg.Models = whisper.NewManager(dir)
	}
	return &WhisperLocal{
		cfg:    cfg,
		engine: newDefaultEngine(),
	}
}

func (w *WhisperLocal) ID() string          { return ProviderWhisperLocal }
func (w *WhisperLocal) DisplayName() string { return "Whisper local" }

func (w *WhisperLocal) Status() Status {
	info, ok := whisper.Lookup(w.cfg.Model)
	if !ok {
		return NeedsConfiguration(fmt.Sprintf("unknown whisper model %q", w.cfg.Model))
	}
	if p, downloading := w.cfg.Models.Progress(info.ID); downloading {
		return Downloading(float64(p.Percent))
	}
	if w.cfg.Models.Installed(info.ID) {
		return Ready()
	}
	return NeedsModelDownload(info.ID, info.SizeBytes)
}

func (w *WhisperLocal) Validate() error {
	if _, err := w.modelPath(); err != nil {
		return err
	}
	if err := w.engine.Check(); err != nil {
		return configErr("%s engine unavailable: %v", w.engine.Name(), err)
	}
	return nil
}

func (w *WhisperLocal) modelPath() (string, error) {
	path, err := w.cfg.Models.Path(w.cfg.Model)
	if err != nil {
		return "", configErr("%v", err)
	}
	if !w.cfg.Models.Installed(w.cfg.Model) {
		return "", fmt.Errorf("%w: %s (expected at %s)", ErrModelNotFound, w.cfg.Model, path)
	}
	return path, nil
}

func (w *WhisperLocal) Transcribe(ctx context.Context, audio <-chan recording.AudioFrame, out chan<- Result) error {
	modelPath, err := w.modelPath()
	if err != nil {
		return err
	}

	pcm, frames, err := collectAudio(ctx, audio)
	if err != nil {
		return err
	}
	if len(pcm) == 0 {
		log.Printf("whisper-local: no audio in %d frames, skipping inference", frames)
		return nil
	}

	lang := w.cfg.Language
	if lang == "" {
		lang = "auto"
	}

	start := time.Now()
	segments, err := w.infer(ctx, inferenceRequest{
		ModelPath: modelPath,
		Language:  lang,
		Threads:   w.cfg.Threads,
		PCM:       pcm,
	})
	if err != nil {
		if errors.Is(err, ErrCancelled) {
			return err
		}
		return fmt.Errorf("%w: %s: %v", ErrTranscription, w.engine.Name(), err)
	}

	text := joinSegments(segments)
	log.Printf("whisper-local: %s transcribed %d bytes in %v: %q", w.engine.Name(), len(pcm), time.Since(start), text)
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

// infer runs the engine on its own goroutine, pinned to an OS thread for the duration
// of the job, and waits for it or for ctx
func (w *WhisperLocal) infer(ctx context.Context, req inferenceRequest) ([]string, error) {
	done := make(chan inferenceResult, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		segments, err := w.engine.Transcribe(ctx, req)
		done <- inferenceResult{segments: segments, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil && ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
		}
		return res.segments, res.err
	case <-ctx.Done():
		// the worker finishes on its own; its result is dropped
		return nil, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	}
}

// joinSegments concatenates segments as decoded; whisper carries its own spacing
func joinSegments(segments []string) string {
	return strings.TrimSpace(strings.Join(segments, ""))
}
