package testutil

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leonardotrapani/speakstream/internal/models/whisper"
	"github.com/leonardotrapani/speakstream/internal/recording"
	"github.com/leonardotrapani/speakstream/internal/transcriber"
)

// CreateTempConfigFile writes configContent to config.toml in a fresh temp dir
func CreateTempConfigFile(t *testing.T, configContent string) string {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}
	return configPath
}

// MockAudioFrame creates a test audio frame; nil data gives 1024 bytes of ramp
func MockAudioFrame(data []byte) recording.AudioFrame {
	if data == nil {
		data = make([]byte, 1024)
		for i := range data {
			data[i] = byte(i % 256)
		}
	}
	return recording.AudioFrame{
		Data:      data,
		Timestamp: time.Now(),
	}
}

// TestContext returns a context with timeout for testing
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// WaitForCondition waits for a condition to be true or times out
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			t.Fatalf("Condition not met within %v", timeout)
		default:
			if condition() {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// CaptureOutput captures stdout for testing
func CaptureOutput(t *testing.T, fn func()) string {
	t.Helper()

	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stdout = w

	done := make(chan string)
	go func() {
		out, _ := io.ReadAll(r)
		done <- string(out)
	}()

	fn()

	w.Close()
	os.Stdout = old
	return <-done
}

// Events is a goroutine-safe call log shared by the mocks below
type Events struct {
	mu   sync.Mutex
	list []string
}

func (e *Events) Add(format string, args ...any) {
	e.mu.Lock()
	e.list = append(e.list, fmt.Sprintf(format, args...))
	e.mu.Unlock()
}

func (e *Events) All() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.list...)
}

func (e *Events) WithPrefix(prefix string) []string {
	var out []string
	for _, ev := range e.All() {
		if strings.HasPrefix(ev, prefix) {
			out = append(out, ev)
		}
	}
	return out
}

// MockRecorder hands out Frames pre-buffered; the frame channel stays open until Stop
type MockRecorder struct {
	Frames     int
	StartError error

	mu      sync.Mutex
	starts  int
	out     chan recording.AudioFrame
	errs    chan error
	stopped bool
}

func NewMockRecorder(frames int) *MockRecorder {
	return &MockRecorder{Frames: frames}
}

func (m *MockRecorder) Start(ctx context.Context) (<-chan recording.AudioFrame, <-chan error, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starts++
	if m.StartError != nil {
		return nil, nil, m.StartError
	}
	m.out = make(chan recording.AudioFrame, m.Frames)
	for range m.Frames {
		m.out <- MockAudioFrame(nil)
	}
	m.errs = make(chan error)
	m.stopped = false
	return m.out, m.errs, nil
}

func (m *MockRecorder) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.stopped && m.out != nil {
		m.stopped = true
		close(m.out)
		close(m.errs)
	}
	return nil
}

func (m *MockRecorder) Starts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts
}

// MockProvider emits PerFrame[n-1] as interim text for the nth frame and AtEnd once
// the audio stream closes
type MockProvider struct {
	ValidateError error
	PerFrame      []string
	AtEnd         []transcriber.Result
	// FailAfter frames, Transcribe returns FailError
	FailAfter int
	FailError error
	// HoldOpen keeps the provider busy after the audio closes until it is cancelled
	HoldOpen bool

	once      sync.Once
	cancelled chan struct{}
}

func (m *MockProvider) ID() string                 { return "mock" }
func (m *MockProvider) DisplayName() string        { return "Mock" }
func (m *MockProvider) Status() transcriber.Status { return transcriber.Ready() }
func (m *MockProvider) Validate() error            { return m.ValidateError }

// Cancelled is closed once Transcribe observes its context ending
func (m *MockProvider) Cancelled() <-chan struct{} {
	m.once.Do(func() { m.cancelled = make(chan struct{}) })
	return m.cancelled
}

func (m *MockProvider) sawCancel(ctx context.Context) error {
	m.Cancelled()
	select {
	case <-m.cancelled:
	default:
		close(m.cancelled)
	}
	return fmt.Errorf("%w: %v", transcriber.ErrCancelled, ctx.Err())
}

func (m *MockProvider) Transcribe(ctx context.Context, audio <-chan recording.AudioFrame, out chan<- transcriber.Result) error {
	n := 0
loop:
	for {
		select {
		case <-ctx.Done():
			return m.sawCancel(ctx)
		case _, ok := <-audio:
			if !ok {
				break loop
			}
			n++
			if n <= len(m.PerFrame) {
				out <- transcriber.Result{Text: m.PerFrame[n-1]}
			}
			if m.FailError != nil && n == m.FailAfter {
				return m.FailError
			}
		}
	}

	if m.HoldOpen {
		<-ctx.Done()
		return m.sawCancel(ctx)
	}
	for _, r := range m.AtEnd {
		out <- r
	}
	return nil
}

// MockInjector logs "reset", "inject:<text>", "replace:<text>" and "finish"
type MockInjector struct {
	Calls       Events
	InjectError error
}

func (m *MockInjector) Reset()  { m.Calls.Add("reset") }
func (m *MockInjector) Finish() { m.Calls.Add("finish") }

func (m *MockInjector) Inject(ctx context.Context, text string) error {
	m.Calls.Add("inject:%s", text)
	return m.InjectError
}

func (m *MockInjector) Replace(ctx context.Context, text string) error {
	m.Calls.Add("replace:%s", text)
	return m.InjectError
}

// MockNotifier logs every notification as "<event>[:<text>]"
type MockNotifier struct {
	Events Events
}

func (m *MockNotifier) RecordingStarted()             { m.Events.Add("started") }
func (m *MockNotifier) Aborted()                      { m.Events.Add("aborted") }
func (m *MockNotifier) TranscriptUpdated(text string) { m.Events.Add("update:%s", text) }
func (m *MockNotifier) TranscriptFinal(text string)   { m.Events.Add("final:%s", text) }
func (m *MockNotifier) Error(msg string)              { m.Events.Add("error:%s", msg) }

func (m *MockNotifier) DownloadProgress(p whisper.DownloadProgress) {
	m.Events.Add("progress:%s:%d", p.ModelID, p.Percent)
}

// MockLLMAdapter upper-cases its input unless ProcessError is set
type MockLLMAdapter struct {
	Calls        Events
	ProcessError error
}

func (m *MockLLMAdapter) Process(ctx context.Context, text string) (string, error) {
	m.Calls.Add("llm:%s", text)
	if m.ProcessError != nil {
		return "", m.ProcessError
	}
	return strings.ToUpper(text), nil
}
