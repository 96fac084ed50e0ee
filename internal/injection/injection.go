package injection

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
	"unicode/utf8"
)

// Backend types text into the focused window
type Backend interface {
	Name() string
	Available() error
	Type(ctx context.Context, text string) error
}

// Deleter is a Backend that can also erase what it typed, which live mode needs
type Deleter interface {
	Backend
	Delete(ctx context.Context, runes int) error
}

type Config struct {
	Backends []string      // tried in order: "wtype", "ydotool", "clipboard"
	Timeout  time.Duration // per backend command
}

func DefaultConfig() Config {
	return Config{
		Backends: []string{"wtype", "ydotool", "clipboard"},
		Timeout:  5 * time.Second,
	}
}

// Injector delivers transcripts to the focused window. Inject types a finished text once.
// Replace rewrites the text typed so far during a live session, and Finish ends that session.
type Injector struct {
	mu       sync.Mutex
	backends []Backend
	timeout  time.Duration

	live  Deleter
	typed int // runes typed by Replace since the last Reset
}

func New(cfg Config) (*Injector, error) {
	var backends []Backend
	for _, name := range cfg.Backends {
		b, err := backendByName(name)
		if err != nil {
			return nil, err
		}
		backends = append(backends, b)
	}
	if len(backends) == 0 {
		return nil, fmt.Errorf("no injection backends configured")
	}
	return NewWithBackends(cfg.Timeout, backends...), nil
}

func NewWithBackends(timeout time.Duration, backends ...Backend) *Injector {
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}
	return &Injector{backends: backends, timeout: timeout}
}

func backendByName(name string) (Backend, error) {
	switch name {
	case "wtype":
		return NewWtype(), nil
	case "ydotool":
		return NewYdotool(), nil
	case "clipboard":
		return NewClipboard(), nil
	default:
		return nil, fmt.Errorf("unknown injection backend %q", name)
	}
}

// Names lists the backends in fallback order
func (i *Injector) Names() []string {
	names := make([]string, len(i.backends))
	for n, b := range i.backends {
		names[n] = b.Name()
	}
	return names
}

// Reset forgets what a previous live session typed
func (i *Injector) Reset() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.live = nil
	i.typed = 0
}

// Inject types text with the first backend that works
func (i *Injector) Inject(ctx context.Context, text string) error {
	if text == "" {
		return fmt.Errorf("cannot inject empty text")
	}
	i.mu.Lock()
	defer i.mu.Unlock()

	var errs []error
	for _, b := range i.backends {
		if err := b.Available(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
			continue
		}
		if err := i.run(ctx, func(ctx context.Context) error { return b.Type(ctx, text) }); err != nil {
			log.Printf("injection: %s failed: %v", b.Name(), err)
			errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
			continue
		}
		log.Printf("injection: %d chars via %s", utf8.RuneCountInString(text), b.Name())
		return nil
	}
	return fmt.Errorf("all injection backends failed: %w", errors.Join(errs...))
}

// Replace erases the runes typed since Reset and types text in their place
func (i *Injector) Replace(ctx context.Context, text string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.live == nil {
		d, err := i.pickDeleter()
		if err != nil {
			return err
		}
		i.live = d
	}

	if i.typed > 0 {
		n := i.typed
		if err := i.run(ctx, func(ctx context.Context) error { return i.live.Delete(ctx, n) }); err != nil {
			return fmt.Errorf("%s delete: %w", i.live.Name(), err)
		}
		i.typed = 0
	}
	if text != "" {
		if err := i.run(ctx, func(ctx context.Context) error { return i.live.Type(ctx, text) }); err != nil {
			return fmt.Errorf("%s type: %w", i.live.Name(), err)
		}
	}
	i.typed = utf8.RuneCountInString(text)
	return nil
}

// Finish ends a live session; the typed text stays
func (i *Injector) Finish() {
	i.Reset()
}

func (i *Injector) pickDeleter() (Deleter, error) {
	var errs []error
	for _, b := range i.backends {
		d, ok := b.(Deleter)
		if !ok {
			continue
		}
		if err := d.Available(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.Name(), err))
			continue
		}
		return d, nil
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("live injection needs wtype or ydotool")
	}
	return nil, fmt.Errorf("no live injection backend available: %w", errors.Join(errs...))
}

func (i *Injector) run(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()
	return fn(ctx)
}
