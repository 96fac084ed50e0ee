package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/leonardotrapani/speakstream/internal/history"
	"github.com/leonardotrapani/speakstream/internal/llm"
	"github.com/leonardotrapani/speakstream/internal/notify"
	"github.com/leonardotrapani/speakstream/internal/recording"
	"github.com/leonardotrapani/speakstream/internal/transcriber"
)

var (
	ErrSessionActive = errors.New("a dictation session is already active")
	ErrSessionClosed = errors.New("session already ended")
	ErrNoProvider    = errors.New("no transcription provider configured")
)

type Status string

const (
	Idle      Status = "idle"
	Recording Status = "recording"
	Finishing Status = "finishing"
)

const (
	DefaultStopGrace = 2 * time.Second
	// batch providers only start recognising once the audio ends
	DefaultBatchStopGrace = 30 * time.Second
)

// Recorder is an audio source; recording.Recorder in production
type Recorder interface {
	Start(ctx context.Context) (<-chan recording.AudioFrame, <-chan error, error)
	Stop() error
}

// Injector delivers text to the focused window; injection.Injector in production
type Injector interface {
	Reset()
	Inject(ctx context.Context, text string) error
	Replace(ctx context.Context, text string) error
	Finish()
}

// HistoryStore records delivered transcripts; history.Store in production
type HistoryStore interface {
	Add(text string) (history.Entry, error)
}

type Config struct {
	// LiveInjection types interim text as it arrives and corrects it in place
	LiveInjection bool
	// StopGrace of zero picks DefaultStopGrace for streaming providers and
	// DefaultBatchStopGrace for the rest
	StopGrace      time.Duration
	UpdateInterval time.Duration
	// MaxDuration stops a forgotten session as if toggled off; zero means no limit
	MaxDuration time.Duration
}

// Options wire a pipeline. Only NewRecorder and Provider are required.
type Options struct {
	Config      Config
	NewRecorder func() Recorder
	Provider    transcriber.Provider
	Injector    Injector
	Notifier    notify.Notifier
	PostProcess llm.Adapter
	History     HistoryStore
}

// Pipeline runs at most one dictation session at a time: audio source, provider,
// dispatcher and the consumers of the final text.
type Pipeline struct {
	mu     sync.Mutex
	opts   Options
	active *Session
}

func New(opts Options) *Pipeline {
	p := &Pipeline{}
	p.SetOptions(opts)
	return p
}

// SetOptions replaces the wiring; a running session keeps the options it started with
func (p *Pipeline) SetOptions(opts Options) {
	if opts.Config.UpdateInterval <= 0 {
		opts.Config.UpdateInterval = DefaultUpdateInterval
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	p.mu.Lock()
	p.opts = opts
	p.mu.Unlock()
}

func (p *Pipeline) Status() Status {
	p.mu.Lock()
	s := p.active
	p.mu.Unlock()
	if s == nil {
		return Idle
	}
	return s.Status()
}

// Active returns the live session handle, or nil
func (p *Pipeline) Active() *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Start validates the provider, starts the audio source and returns the session handle.
// Configuration errors surface here, before any audio is captured or connection made.
func (p *Pipeline) Start(ctx context.Context) (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active != nil {
		return nil, ErrSessionActive
	}
	opts := p.opts
	if opts.Provider == nil {
		return nil, ErrNoProvider
	}
	if err := opts.Provider.Validate(); err != nil {
		log.Printf("pipeline: %s not ready: %v", opts.Provider.ID(), err)
		opts.Notifier.Error(err.Error())
		return nil, err
	}

	opts.Config.StopGrace = stopGrace(opts.Config.StopGrace, opts.Provider.ID())

	// only Cancel and an expired stop grace end the provider early
	sessCtx, cancel := context.WithCancel(ctx)

	rec := opts.NewRecorder()
	frames, recErrs, err := rec.Start(sessCtx)
	if err != nil {
		cancel()
		opts.Notifier.Error(fmt.Sprintf("recording failed: %v", err))
		return nil, fmt.Errorf("start recording: %w", err)
	}

	s := &Session{
		ID:       uuid.NewString(),
		Provider: opts.Provider.ID(),
		Started:  time.Now(),
		p:        p,
		opts:     opts,
		parent:   ctx,
		ctx:      sessCtx,
		cancel:   cancel,
		rec:      rec,
	}
	s.status.Store(string(Recording))
	s.disp = NewDispatcher(opts.Config.UpdateInterval, s.update)

	if opts.Config.LiveInjection && opts.Injector != nil {
		opts.Injector.Reset()
	}

	p.active = s
	log.Printf("pipeline: session %s started with %s", s.ID, s.Provider)
	opts.Notifier.RecordingStarted()

	go s.watchRecorder(recErrs)
	go s.run(frames)
	if opts.Config.MaxDuration > 0 {
		go s.enforceLimit(opts.Config.MaxDuration)
	}
	return s, nil
}

func stopGrace(configured time.Duration, providerID string) time.Duration {
	switch {
	case configured > 0:
		return configured
	case transcriber.IsStreaming(providerID):
		return DefaultStopGrace
	default:
		return DefaultBatchStopGrace
	}
}

// Session is the handle of one dictation. Exactly one of Stop or Cancel ends it.
type Session struct {
	ID       string
	Provider string
	Started  time.Time

	p      *Pipeline
	opts   Options
	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc
	rec    Recorder
	disp   *Dispatcher

	status atomic.Value // Status
	ended  atomic.Bool

	mu  sync.Mutex
	err error
}

func (s *Session) Status() Status { return Status(s.status.Load().(string)) }

// Transcript returns the running transcript
func (s *Session) Transcript() string { return s.disp.Transcript() }

// Done is closed once the provider and dispatcher have both finished
func (s *Session) Done() <-chan struct{} { return s.disp.Done() }

func (s *Session) run(frames <-chan recording.AudioFrame) {
	results := make(chan transcriber.Result, 32)
	go func() {
		defer close(results)
		err := s.opts.Provider.Transcribe(s.ctx, frames, results)
		if err == nil || errors.Is(err, transcriber.ErrCancelled) {
			return
		}
		log.Printf("pipeline: session %s: %v", s.ID, err)
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		if !s.ended.Load() {
			s.opts.Notifier.Error(err.Error())
		}
		// nothing is listening any more
		s.rec.Stop()
	}()

	s.disp.Run(results)
}

func (s *Session) watchRecorder(errs <-chan error) {
	for err := range errs {
		log.Printf("pipeline: session %s recording error: %v", s.ID, err)
		if !s.ended.Load() {
			s.opts.Notifier.Error(fmt.Sprintf("recording error: %v", err))
		}
	}
}

// enforceLimit stops the session the normal way once it has recorded for d,
// so batch providers still get to transcribe what was captured
func (s *Session) enforceLimit(d time.Duration) {
	limit := time.NewTimer(d)
	defer limit.Stop()
	select {
	case <-limit.C:
	case <-s.ctx.Done():
		return
	}

	log.Printf("pipeline: session %s reached the %v recording limit, stopping", s.ID, d)
	_, err := s.Stop(s.parent)
	switch {
	case errors.Is(err, ErrSessionClosed):
	case err != nil:
		s.opts.Notifier.Error(err.Error())
	}
}

// update receives throttled interim text from the dispatcher
func (s *Session) update(text string) {
	s.opts.Notifier.TranscriptUpdated(text)
	if s.opts.Config.LiveInjection && s.opts.Injector != nil {
		if err := s.opts.Injector.Replace(s.ctx, text); err != nil {
			log.Printf("pipeline: live injection: %v", err)
		}
	}
}

// Stop ends the audio stream, waits up to the grace period for the provider to finish,
// and delivers the running transcript either way. The returned error is the provider's
// failure, if any; the text is still delivered.
func (s *Session) Stop(ctx context.Context) (string, error) {
	if !s.ended.CompareAndSwap(false, true) {
		return "", ErrSessionClosed
	}
	defer s.release()
	s.status.Store(string(Finishing))

	if err := s.rec.Stop(); err != nil {
		log.Printf("pipeline: stop recorder: %v", err)
	}

	grace := time.NewTimer(s.opts.Config.StopGrace)
	defer grace.Stop()
	select {
	case <-s.disp.Done():
	case <-grace.C:
		log.Printf("pipeline: session %s: provider still busy after %v, using running transcript", s.ID, s.opts.Config.StopGrace)
	case <-ctx.Done():
	}

	text := s.disp.Seal()
	s.cancel()

	s.mu.Lock()
	err := s.err
	s.mu.Unlock()

	log.Printf("pipeline: session %s stopped after %v with %d results", s.ID, time.Since(s.Started).Round(time.Millisecond), s.disp.Results())
	return s.deliver(ctx, text), err
}

// Cancel aborts the session. Nothing is delivered.
func (s *Session) Cancel() {
	if !s.ended.CompareAndSwap(false, true) {
		return
	}
	defer s.release()

	s.cancel()
	s.rec.Stop()
	s.disp.Seal()
	if s.opts.Config.LiveInjection && s.opts.Injector != nil {
		s.opts.Injector.Finish()
	}
	log.Printf("pipeline: session %s cancelled", s.ID)
	s.opts.Notifier.Aborted()
}

func (s *Session) deliver(ctx context.Context, text string) string {
	if text == "" {
		log.Printf("pipeline: session %s produced no text", s.ID)
		return ""
	}

	out := text
	if s.opts.Config.LiveInjection {
		if s.opts.Injector != nil && text != s.disp.Forwarded() {
			if err := s.opts.Injector.Replace(ctx, text); err != nil {
				log.Printf("pipeline: final live injection: %v", err)
				s.opts.Notifier.Error(fmt.Sprintf("injection failed: %v", err))
			}
		}
		if s.opts.Injector != nil {
			s.opts.Injector.Finish()
		}
	} else {
		// the text is not on screen yet, so it can still be rewritten
		out = llm.PostProcess(ctx, s.opts.PostProcess, text)
		if s.opts.Injector != nil {
			if err := s.opts.Injector.Inject(ctx, out); err != nil {
				log.Printf("pipeline: injection: %v", err)
				s.opts.Notifier.Error(fmt.Sprintf("injection failed: %v", err))
			}
		}
	}

	s.opts.Notifier.TranscriptFinal(out)
	if s.opts.History != nil {
		if _, err := s.opts.History.Add(out); err != nil {
			log.Printf("pipeline: save history: %v", err)
		}
	}
	return out
}

func (s *Session) release() {
	s.status.Store(string(Idle))
	s.p.mu.Lock()
	if s.p.active == s {
		s.p.active = nil
	}
	s.p.mu.Unlock()
}
