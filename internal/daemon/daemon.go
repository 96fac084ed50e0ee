package daemon

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/leonardotrapani/speakstream/internal/bus"
	"github.com/leonardotrapani/speakstream/internal/config"
	"github.com/leonardotrapani/speakstream/internal/notify"
	"github.com/leonardotrapani/speakstream/internal/pipeline"
)

// Builder turns a configuration into pipeline wiring
type Builder func(cfg *config.Config) (pipeline.Options, error)

type Daemon struct {
	mu       sync.Mutex
	notifier notify.Notifier

	cfg      *config.Manager
	build    Builder
	pipeline *pipeline.Pipeline

	ctx    context.Context
	cancel context.CancelFunc
}

// New wires the daemon from the current configuration. build may be nil for the
// production wiring.
func New(cfg *config.Manager, build Builder) (*Daemon, error) {
	if build == nil {
		build = BuildOptions
	}
	opts, err := build(cfg.GetConfig())
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Daemon{
		notifier: opts.Notifier,
		cfg:      cfg,
		build:    build,
		pipeline: pipeline.New(opts),
		ctx:      ctx,
		cancel:   cancel,
	}
	if d.notifier == nil {
		d.notifier = notify.Nop{}
	}
	cfg.OnChange(d.applyConfig)
	return d, nil
}

// applyConfig rewires the pipeline; a session already running finishes on the old wiring
func (d *Daemon) applyConfig(cfg *config.Config) {
	opts, err := d.build(cfg)
	if err != nil {
		log.Printf("daemon: new configuration not applied: %v", err)
		d.mu.Lock()
		n := d.notifier
		d.mu.Unlock()
		n.Error(fmt.Sprintf("config not applied: %v", err))
		return
	}
	d.mu.Lock()
	if opts.Notifier != nil {
		d.notifier = opts.Notifier
	}
	d.mu.Unlock()
	d.pipeline.SetOptions(opts)
	log.Printf("daemon: configuration applied, provider %s", opts.Provider.ID())
}

func (d *Daemon) Pipeline() *pipeline.Pipeline { return d.pipeline }

func (d *Daemon) Run() error {
	if err := bus.CheckExistingDaemon(); err != nil {
		return err
	}

	ln, err := bus.Listen()
	if err != nil {
		return err
	}
	defer ln.Close()

	if err := bus.CreatePidFile(); err != nil {
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer bus.RemovePidFile()

	if err := d.cfg.StartWatching(d.ctx); err != nil {
		log.Printf("daemon: config hot reload disabled: %v", err)
	}
	defer d.cfg.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			log.Printf("daemon: received %v, shutting down", sig)
			d.cancel()
		case <-d.ctx.Done():
		}
	}()

	go func() {
		<-d.ctx.Done()
		ln.Close()
	}()

	log.Printf("daemon: listening on socket")

	for {
		c, err := ln.Accept()
		if err != nil {
			if d.ctx.Err() != nil {
				d.shutdown()
				return nil
			}
			return fmt.Errorf("accept failed: %w", err)
		}
		go d.handle(c)
	}
}

func (d *Daemon) shutdown() {
	if s := d.pipeline.Active(); s != nil {
		log.Printf("daemon: cancelling session %s on shutdown", s.ID)
		s.Cancel()
	}
	log.Printf("daemon: stopped")
}

func (d *Daemon) handle(c net.Conn) {
	defer c.Close()

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		log.Printf("daemon: client read error: %v", err)
		fmt.Fprintf(c, "ERR read_error: %v\n", err)
		return
	}
	if len(line) < 2 {
		fmt.Fprint(c, "ERR empty\n")
		return
	}

	fmt.Fprint(c, d.dispatch(line[0]))
}

func (d *Daemon) dispatch(cmd byte) string {
	switch cmd {
	case bus.CmdToggle:
		return d.toggle()
	case bus.CmdCancel:
		if s := d.pipeline.Active(); s != nil {
			s.Cancel()
			return "OK cancelled\n"
		}
		return "OK idle\n"
	case bus.CmdStatus:
		return d.statusLine()
	case bus.CmdVersion:
		return fmt.Sprintf("STATUS proto=%s\n", bus.ProtoVer)
	case bus.CmdQuit:
		d.cancel()
		return "OK quitting\n"
	default:
		log.Printf("daemon: unknown command %q", cmd)
		return fmt.Sprintf("ERR unknown=%q\n", cmd)
	}
}

// toggle starts a session when idle and stops the running one otherwise
func (d *Daemon) toggle() string {
	s := d.pipeline.Active()
	if s == nil {
		if _, err := d.pipeline.Start(d.ctx); err != nil {
			return fmt.Sprintf("ERR %v\n", err)
		}
		return "OK started\n"
	}

	if s.Status() == pipeline.Finishing {
		return "OK finishing\n"
	}
	text, err := s.Stop(d.ctx)
	switch {
	case errors.Is(err, pipeline.ErrSessionClosed):
		return "OK finishing\n"
	case err != nil:
		return fmt.Sprintf("ERR %v (delivered %d chars)\n", err, len([]rune(text)))
	}
	return fmt.Sprintf("OK stopped chars=%d\n", len([]rune(text)))
}

func (d *Daemon) statusLine() string {
	cfg := d.cfg.GetConfig()
	provider := cfg.Transcription.Provider
	status := d.pipeline.Status()
	if s := d.pipeline.Active(); s != nil {
		provider = s.Provider
	}
	return fmt.Sprintf("STATUS status=%s provider=%s live=%t\n", status, provider, cfg.Injection.Live)
}
