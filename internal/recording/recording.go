package recording

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrAlreadyRecording   = errors.New("already recording")
	ErrCaptureUnavailable = errors.New("audio capture unavailable")
)

// The only capture format downstream consumers accept
const (
	SampleRate = 16000
	Channels   = 1
	Format     = "s16"
)

// AudioFrame is one chunk of little-endian 16-bit mono PCM at 16 kHz
type AudioFrame struct {
	Data      []byte
	Timestamp time.Time
}

type Config struct {
	SampleRate int
	Channels   int
	Format     string
	// BufferSize is the byte size of one frame; 3200 is 100 ms of 16 kHz mono s16
	BufferSize        int
	Device            string
	ChannelBufferSize int
	// MaxPendingFrames bounds the overflow queue used when the consumer falls behind
	MaxPendingFrames int
	// FlushTimeout bounds how long the frames queued at stop may wait for the consumer
	FlushTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		SampleRate:        SampleRate,
		Channels:          Channels,
		Format:            Format,
		BufferSize:        3200,
		ChannelBufferSize: 32,
		MaxPendingFrames:  600,
		FlushTimeout:      500 * time.Millisecond,
	}
}

func (c Config) Validate() error {
	switch {
	case c.SampleRate != SampleRate:
		return fmt.Errorf("unsupported sample rate: %d (must be %d)", c.SampleRate, SampleRate)
	case c.Channels != Channels:
		return fmt.Errorf("unsupported channels: %d (must be %d)", c.Channels, Channels)
	case c.Format != Format:
		return fmt.Errorf("unsupported format: %q (must be %q)", c.Format, Format)
	case c.BufferSize <= 0:
		return fmt.Errorf("invalid buffer size: %d", c.BufferSize)
	case c.ChannelBufferSize <= 0:
		return fmt.Errorf("invalid channel buffer size: %d", c.ChannelBufferSize)
	case c.MaxPendingFrames < 0:
		return fmt.Errorf("invalid max pending frames: %d", c.MaxPendingFrames)
	}
	if c.BufferSize%(2*c.Channels) != 0 {
		return fmt.Errorf("buffer size %d splits %d-channel samples", c.BufferSize, c.Channels)
	}
	return nil
}

// BytesPerSecond is the PCM byte rate for a config
func (c Config) BytesPerSecond() int {
	return c.SampleRate * c.Channels * 2
}

// FrameDuration is how much audio one full frame holds
func (c Config) FrameDuration() time.Duration {
	return time.Duration(c.BufferSize) * time.Second / time.Duration(c.BytesPerSecond())
}

// capture is a running audio process: its PCM stream and a wait for its exit
type capture struct {
	stream io.Reader
	wait   func() error
}

type launchFunc func(ctx context.Context, cfg Config) (*capture, error)

// Recorder captures microphone audio through pw-record. One capture runs at a time;
// a stopped Recorder can be started again.
type Recorder struct {
	cfg    Config
	launch launchFunc

	active atomic.Bool
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRecorder(cfg Config) *Recorder {
	return &Recorder{cfg: cfg, launch: pwRecord}
}

func (r *Recorder) IsRecording() bool { return r.active.Load() }

// Start launches the capture and returns its frame stream. The frame channel closes
// when capture ends, after frames queued under backpressure have been flushed; the
// error channel carries at most one mid-stream failure and then closes.
func (r *Recorder) Start(ctx context.Context) (<-chan AudioFrame, <-chan error, error) {
	if err := r.cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if !r.active.CompareAndSwap(false, true) {
		return nil, nil, ErrAlreadyRecording
	}

	capCtx, cancel := context.WithCancel(ctx)
	c, err := r.launch(capCtx, r.cfg)
	if err != nil {
		cancel()
		r.active.Store(false)
		return nil, nil, err
	}

	frames := make(chan AudioFrame, r.cfg.ChannelBufferSize)
	errs := make(chan error, 1)
	done := make(chan struct{})

	r.mu.Lock()
	r.cancel = cancel
	r.done = done
	r.mu.Unlock()

	go func() {
		defer close(done)
		defer r.active.Store(false)
		defer close(errs)
		defer cancel()

		err := pump(capCtx, c.stream, frames, r.cfg)
		if waitErr := c.wait(); err == nil && waitErr != nil && capCtx.Err() == nil {
			err = fmt.Errorf("capture exited: %w", waitErr)
		}
		if err != nil {
			log.Printf("recording: %v", err)
			errs <- err
		}
	}()

	log.Printf("recording: started (%d Hz, %d ch, %v frames)", r.cfg.SampleRate, r.cfg.Channels, r.cfg.FrameDuration())
	return frames, errs, nil
}

// Stop ends capture without waiting; the frame channel closes once pending frames are
// flushed. Stopping an idle Recorder is a no-op.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return nil
}

// Wait blocks until the last capture has fully ended
func (r *Recorder) Wait() {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done != nil {
		<-done
	}
}

func pwRecordArgs(cfg Config) []string {
	args := []string{
		"--format", cfg.Format,
		"--rate", strconv.Itoa(cfg.SampleRate),
		"--channels", strconv.Itoa(cfg.Channels),
	}
	if cfg.Device != "" {
		args = append(args, "--target", cfg.Device)
	}
	return append(args, "-")
}

func pwRecord(ctx context.Context, cfg Config) (*capture, error) {
	path, err := exec.LookPath("pw-record")
	if err != nil {
		return nil, fmt.Errorf("%w: pw-record not found (install pipewire)", ErrCaptureUnavailable)
	}

	cmd := exec.CommandContext(ctx, path, pwRecordArgs(cfg)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start pw-record: %v", ErrCaptureUnavailable, err)
	}

	go func() {
		sc := bufio.NewScanner(stderr)
		for sc.Scan() {
			log.Printf("recording: pw-record: %s", sc.Text())
		}
	}()
	return &capture{stream: stdout, wait: cmd.Wait}, nil
}

// pump reads src in BufferSize chunks and forwards them to out, closing out when done.
// A full channel never blocks the reader: frames wait in a bounded queue instead.
func pump(ctx context.Context, src io.Reader, out chan<- AudioFrame, cfg Config) error {
	q := newFrameQueue(out, cfg.MaxPendingFrames)
	defer func() {
		q.flush(cfg.FlushTimeout)
		close(out)
	}()

	buffer := make([]byte, cfg.BufferSize)
	for {
		n, readErr := src.Read(buffer)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buffer[:n])
			q.push(AudioFrame{Data: data, Timestamp: time.Now()})
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read audio: %w", readErr)
		}

		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

// frameQueue holds frames the consumer has not taken yet. Order is preserved; when the
// queue exceeds its bound the oldest frame is discarded.
type frameQueue struct {
	out         chan<- AudioFrame
	pending     []AudioFrame
	max         int
	dropped     int
	lastDropLog time.Time
}

func newFrameQueue(out chan<- AudioFrame, max int) *frameQueue {
	if max <= 0 {
		max = 1
	}
	return &frameQueue{out: out, max: max}
}

func (q *frameQueue) push(f AudioFrame) {
	q.pending = append(q.pending, f)
	q.drain()

	if len(q.pending) > q.max {
		q.pending = q.pending[1:]
		q.dropped++
		if time.Since(q.lastDropLog) > time.Second {
			log.Printf("recording: consumer behind, dropped %d frames (%d queued)", q.dropped, len(q.pending))
			q.lastDropLog = time.Now()
			q.dropped = 0
		}
	}
}

// drain moves as many queued frames into the channel as fit without blocking
func (q *frameQueue) drain() {
	for len(q.pending) > 0 {
		select {
		case q.out <- q.pending[0]:
			q.pending[0] = AudioFrame{}
			q.pending = q.pending[1:]
		default:
			return
		}
	}
}

// flush blocks until the queue is empty or timeout passes
func (q *frameQueue) flush(timeout time.Duration) {
	if len(q.pending) == 0 {
		return
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for len(q.pending) > 0 {
		select {
		case q.out <- q.pending[0]:
			q.pending = q.pending[1:]
		case <-timer.C:
			log.Printf("recording: flush timed out, discarding %d queued frames", len(q.pending))
			q.pending = nil
			return
		}
	}
}
