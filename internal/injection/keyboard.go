package injection

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// commandRunner runs an external tool; replaced in tests
type commandRunner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil && len(out) > 0 {
		return fmt.Errorf("%w: %s", err, out)
	}
	return err
}

type lookPathFunc func(string) (string, error)

// Wtype drives the wtype virtual keyboard
type Wtype struct {
	run      commandRunner
	lookPath lookPathFunc
}

func NewWtype() *Wtype { return &Wtype{run: execRunner, lookPath: exec.LookPath} }

func (w *Wtype) Name() string { return "wtype" }

func (w *Wtype) Available() error {
	if _, err := w.lookPath("wtype"); err != nil {
		return fmt.Errorf("wtype not found: %w (install wtype package)", err)
	}
	return nil
}

func (w *Wtype) Type(ctx context.Context, text string) error {
	return w.run(ctx, "wtype", "--", text)
}

func (w *Wtype) Delete(ctx context.Context, runes int) error {
	if runes <= 0 {
		return nil
	}
	args := make([]string, 0, runes*2)
	for range runes {
		args = append(args, "-k", "BackSpace")
	}
	return w.run(ctx, "wtype", args...)
}

// backspace is the evdev key code ydotool expects
const ydotoolBackspace = "14"

// Ydotool drives ydotool through the ydotoold daemon
type Ydotool struct {
	run      commandRunner
	lookPath lookPathFunc
}

func NewYdotool() *Ydotool { return &Ydotool{run: execRunner, lookPath: exec.LookPath} }

func (y *Ydotool) Name() string { return "ydotool" }

func (y *Ydotool) Available() error {
	if _, err := y.lookPath("ydotool"); err != nil {
		return fmt.Errorf("ydotool not found: %w (install ydotool package)", err)
	}

	// only check the socket when the daemon is installed
	if _, err := y.lookPath("ydotoold"); err == nil {
		socketPath := ydotoolSocketPath()
		if socketPath == "" {
			return fmt.Errorf("ydotoold socket not found - ensure ydotoold is running")
		}
		// ydotoold v1.0.4+ listens on a datagram socket, older versions on a stream socket
		conn, err := net.Dial("unixgram", socketPath)
		if err != nil {
			conn, err = net.DialTimeout("unix", socketPath, 500*time.Millisecond)
		}
		if err != nil {
			return fmt.Errorf("ydotoold not responding at %s: %w", socketPath, err)
		}
		conn.Close()
	}
	return nil
}

func ydotoolSocketPath() string {
	if sock := os.Getenv("YDOTOOL_SOCKET"); sock != "" {
		if _, err := os.Stat(sock); err == nil {
			return sock
		}
	}

	paths := []string{
		fmt.Sprintf("/run/user/%d/.ydotool_socket", os.Getuid()),
		"/tmp/.ydotool_socket",
	}
	if xdg := os.Getenv("XDG_RUNTIME_DIR"); xdg != "" {
		paths = append([]string{filepath.Join(xdg, ".ydotool_socket")}, paths...)
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (y *Ydotool) Type(ctx context.Context, text string) error {
	return y.run(ctx, "ydotool", "type", "--", text)
}

func (y *Ydotool) Delete(ctx context.Context, runes int) error {
	if runes <= 0 {
		return nil
	}
	args := make([]string, 0, 1+runes*2)
	args = append(args, "key")
	for range runes {
		args = append(args, ydotoolBackspace+":1", ydotoolBackspace+":0")
	}
	return y.run(ctx, "ydotool", args...)
}
