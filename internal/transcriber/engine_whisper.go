//go:build whisper

package transcriber

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// bindingsEngine runs whisper.cpp in-process through its cgo bindings. The loaded model
// is kept until a different model path is requested.
type bindingsEngine struct {
	mu        sync.Mutex
	modelPath string
	model     whisper.Model
}

func newDefaultEngine() inferenceEngine {
	return &bindingsEngine{}
}

func (e *bindingsEngine) Name() string { return "whisper.cpp" }

func (e *bindingsEngine) Check() error { return nil }

func (e *bindingsEngine) load(path string) (whisper.Model, error) {
	if e.model != nil && e.modelPath == path {
		return e.model, nil
	}
	if e.model != nil {
		e.model.Close()
		e.model = nil
	}
	model, err := whisper.New(path)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	e.model, e.modelPath = model, path
	return model, nil
}

func (e *bindingsEngine) Transcribe(ctx context.Context, req inferenceRequest) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	model, err := e.load(req.ModelPath)
	if err != nil {
		return nil, err
	}

	wctx, err := model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("create context: %w", err)
	}
	if err := wctx.SetLanguage(req.Language); err != nil {
		return nil, fmt.Errorf("set language %q: %w", req.Language, err)
	}
	if req.Threads > 0 {
		wctx.SetThreads(uint(req.Threads))
	}
	wctx.SetTranslate(false)

	// new contexts decode greedily with a single candidate
	if err := wctx.Process(pcmToFloat32(req.PCM), nil, nil, nil); err != nil {
		return nil, fmt.Errorf("process: %w", err)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var segments []string
	for {
		seg, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read segment: %w", err)
		}
		segments = append(segments, seg.Text)
	}
	return segments, nil
}
