package pipeline

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/leonardotrapani/speakstream/internal/transcriber"
)

// DefaultUpdateInterval is the most often consumers hear about interim text
const DefaultUpdateInterval = 100 * time.Millisecond

// Dispatcher turns a provider's result stream into a throttled running transcript.
// Every result overwrites the transcript whether or not it is final. The first result
// is always forwarded, and whatever was coalesced away is forwarded when the stream ends.
type Dispatcher struct {
	onUpdate func(text string)
	throttle rate.Sometimes
	done     chan struct{}

	mu         sync.Mutex
	transcript string
	forwarded  string
	results    int
	sealed     bool
}

func NewDispatcher(interval time.Duration, onUpdate func(text string)) *Dispatcher {
	return &Dispatcher{
		onUpdate: onUpdate,
		throttle: rate.Sometimes{Interval: interval},
		done:     make(chan struct{}),
	}
}

// Run consumes results until the channel closes and returns the running transcript
func (d *Dispatcher) Run(results <-chan transcriber.Result) string {
	defer close(d.done)
	for r := range results {
		d.handle(r)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.sealed && d.transcript != "" && d.transcript != d.forwarded {
		d.forward(d.transcript)
	}
	return d.transcript
}

func (d *Dispatcher) handle(r transcriber.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.results++
	if d.sealed {
		return
	}
	d.transcript = r.Text
	d.throttle.Do(func() { d.forward(r.Text) })
}

// forward runs with mu held so Seal waits out an update in progress
func (d *Dispatcher) forward(text string) {
	d.forwarded = text
	if d.onUpdate != nil {
		d.onUpdate(text)
	}
}

// Transcript returns the latest text seen
func (d *Dispatcher) Transcript() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.transcript
}

// Forwarded returns the last text handed to the update callback
func (d *Dispatcher) Forwarded() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.forwarded
}

// Results returns how many results have arrived
func (d *Dispatcher) Results() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.results
}

// Seal freezes the transcript and stops forwarding. Later results are drained and dropped.
func (d *Dispatcher) Seal() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sealed = true
	return d.transcript
}

// Done is closed once Run returns
func (d *Dispatcher) Done() <-chan struct{} { return d.done }
