package transcriber

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/leonardotrapani/speakstream/internal/protocol"
	"github.com/leonardotrapani/speakstream/internal/recording"
)

const (
	DefaultDoubaoEndpoint   = "wss://openspeech.bytedance.com/api/v3/sauc/bigmodel"
	DefaultDoubaoResourceID = "volc.bigasr.sauc.duration"

	defaultDrainTimeout = 2 * time.Second
	defaultFinalTimeout = 10 * time.Second
)

// SessionState tracks a streaming session through its lifecycle
type SessionState int32

const (
	StateIdle SessionState = iota
	StateConnecting
	StateStreaming
	StateFinishing
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateFinishing:
		return "finishing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

type SessionConfig struct {
	Endpoint    string
	AppID       string
	AccessToken string
	SecretKey   string
	ResourceID  string
	ModelName   string

	// DrainTimeout bounds how long the receiver keeps reading after a cancel
	DrainTimeout time.Duration
	// FinalTimeout bounds how long the receiver waits for the server after the finish frame
	FinalTimeout time.Duration

	Dialer *websocket.Dialer
}

// Session is one streaming recognition connection. It runs once.
type Session struct {
	cfg        SessionConfig
	state      atomic.Int32
	framesSent atomic.Int64
}

func NewSession(cfg SessionConfig) *Session {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultDoubaoEndpoint
	}
	if cfg.ResourceID == "" {
		cfg.ResourceID = DefaultDoubaoResourceID
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = defaultDrainTimeout
	}
	if cfg.FinalTimeout <= 0 {
		cfg.FinalTimeout = defaultFinalTimeout
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	return &Session{cfg: cfg}
}

func (s *Session) State() SessionState { return SessionState(s.state.Load()) }

func (s *Session) setState(st SessionState) {
	s.state.Store(int32(st))
}

// handshake returns the dial URL and the headers for the upgrade request.
// Host and X-Api-Resource-Id are signed and sent with exactly the signed values.
func (s *Session) handshake() (string, http.Header, error) {
	u, err := url.Parse(s.cfg.Endpoint)
	if err != nil {
		return "", nil, fmt.Errorf("parse endpoint: %w", err)
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	host := u.Hostname()

	signed := []protocol.Header{
		{Name: "Host", Value: host},
		{Name: "X-Api-Resource-Id", Value: s.cfg.ResourceID},
	}
	signer := protocol.Signer{AccessToken: s.cfg.AccessToken, SecretKey: s.cfg.SecretKey}

	h := http.Header{}
	for _, sh := range signed {
		h.Set(sh.Name, sh.Value)
	}
	h.Set("Authorization", signer.Authorization(http.MethodGet, path, signed))
	h.Set("X-Api-App-Key", s.cfg.AppID)
	h.Set("X-Api-Access-Key", s.cfg.AccessToken)
	h.Set("X-Api-Connect-Id", uuid.NewString())
	return u.String(), h, nil
}

// Run connects, streams audio until the channel closes or ctx is cancelled, and emits
// every non-empty decoded result. It returns once both the send and receive duties exit.
func (s *Session) Run(ctx context.Context, audio <-chan recording.AudioFrame, out chan<- Result) error {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateConnecting)) {
		return fmt.Errorf("session already used")
	}
	defer s.setState(StateClosed)

	wsURL, headers, err := s.handshake()
	if err != nil {
		return configErr("%v", err)
	}

	conn, resp, err := s.cfg.Dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			log.Printf("doubao-session: dial failed with status %d", resp.StatusCode)
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
		}
		return connectionErr("websocket dial", err)
	}
	defer conn.Close()
	log.Printf("doubao-session: connected to %s", wsURL)

	cfgFrame, err := protocol.EncodeConfig(protocol.NewSessionConfig(s.cfg.ModelName))
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, cfgFrame); err != nil {
		return connectionErr("send config", err)
	}
	s.setState(StateStreaming)

	// a cancelled session gets a bounded window to drain what the server still sends
	stopDrain := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now().Add(s.cfg.DrainTimeout))
	})
	defer stopDrain()

	recvDone := make(chan struct{})
	var g errgroup.Group
	g.Go(func() error {
		err := s.sendLoop(ctx, conn, audio, recvDone)
		if err != nil {
			// unblock the receiver; the connection is unusable
			conn.SetReadDeadline(time.Now())
		}
		return err
	})
	g.Go(func() error {
		defer close(recvDone)
		return s.receiveLoop(ctx, conn, out)
	})
	err = g.Wait()

	// best effort; the server may already be gone
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))

	log.Printf("doubao-session: closed")
	return err
}

// sendLoop owns every write after the config frame
func (s *Session) sendLoop(ctx context.Context, conn *websocket.Conn, audio <-chan recording.AudioFrame, recvDone <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			log.Printf("doubao-session: cancelled after %d frames, sending finish", s.framesSent.Load())
			return s.finish(ctx, conn)
		case <-recvDone:
			return nil
		case frame, ok := <-audio:
			if !ok {
				log.Printf("doubao-session: audio closed after %d frames, sending finish", s.framesSent.Load())
				return s.finish(ctx, conn)
			}
			if len(frame.Data) == 0 {
				continue
			}
			s.framesSent.Add(1)
			if err := conn.WriteMessage(websocket.BinaryMessage, protocol.EncodeAudio(frame.Data)); err != nil {
				select {
				case <-recvDone:
					// server already ended the session
					return nil
				default:
				}
				return s.transportErr(ctx, "write audio", err)
			}
		}
	}
}

func (s *Session) finish(ctx context.Context, conn *websocket.Conn) error {
	s.setState(StateFinishing)
	if err := conn.WriteMessage(websocket.BinaryMessage, protocol.EncodeFinish()); err != nil {
		return s.transportErr(ctx, "write finish", err)
	}
	if ctx.Err() == nil {
		conn.SetReadDeadline(time.Now().Add(s.cfg.FinalTimeout))
	}
	return nil
}

// receiveLoop owns every read. Malformed frames are skipped.
func (s *Session) receiveLoop(ctx context.Context, conn *websocket.Conn, out chan<- Result) error {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				return nil
			}
			return s.transportErr(ctx, "read", err)
		}
		if msgType != websocket.BinaryMessage {
			continue
		}

		resp, ok := protocol.Decode(data)
		if !ok {
			if serr, isErr := protocol.DecodeError(data); isErr {
				log.Printf("doubao-session: %v", serr)
				return fmt.Errorf("%w: %v", ErrTranscription, serr)
			}
			continue
		}
		if resp.Failed() {
			log.Printf("doubao-session: server code %d: %s", resp.Code, resp.Message)
			return fmt.Errorf("%w: server code %d: %s", ErrTranscription, resp.Code, resp.Message)
		}
		if !resp.Success() {
			continue
		}
		text := resp.Text()
		if text == "" || s.framesSent.Load() == 0 {
			// nothing was said yet, so nothing can have been recognized
			continue
		}

		select {
		case out <- Result{Text: text, IsFinal: !resp.Prefetch()}:
		case <-ctx.Done():
			return nil
		}
	}
}

// transportErr ends a duty. After a cancel the failure is expected and not reported.
func (s *Session) transportErr(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil || errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() && s.State() == StateFinishing {
		log.Printf("doubao-session: no close from server after finish")
		return nil
	}
	log.Printf("doubao-session: %s: %v", op, err)
	return connectionErr(op, err)
}
