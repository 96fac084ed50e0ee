//go:build !whisper

package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// cliEngine shells out to whisper-cli from whisper.cpp. Used when the binary is built
// without the cgo bindings.
type cliEngine struct {
	binary string
}

func newDefaultEngine() inferenceEngine {
	return &cliEngine{binary: "whisper-cli"}
}

func (e *cliEngine) Name() string { return "whisper-cli" }

func (e *cliEngine) Check() error {
	if _, err := exec.LookPath(e.binary); err != nil {
		return fmt.Errorf("%s not found: install whisper.cpp or build with -tags whisper", e.binary)
	}
	return nil
}

func (e *cliEngine) args(req inferenceRequest, wavPath string) []string {
	args := []string{
		"-m", req.ModelPath,
		"-l", req.Language,
		"-bs", "1", // greedy
		"-bo", "1",
		"-nt", // no timestamps
		"-np", // no progress
		"-f", wavPath,
	}
	if req.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(req.Threads))
	}
	return args
}

func (e *cliEngine) Transcribe(ctx context.Context, req inferenceRequest) ([]string, error) {
	path, err := exec.LookPath(e.binary)
	if err != nil {
		return nil, fmt.Errorf("%s not found", e.binary)
	}

	tmp, err := os.CreateTemp("", "speakstream-*.wav")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := writeWAVFile(tmp, req.PCM); err != nil {
		tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	cmd := exec.CommandContext(ctx, path, e.args(req, tmp.Name())...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("whisper-cli: failed after %v: %v\nstderr: %s", time.Since(start), err, stderr.String())
		return nil, fmt.Errorf("whisper-cli: %w", err)
	}

	// one segment per line; the segments keep their own leading spaces
	text := strings.ReplaceAll(strings.TrimRight(stdout.String(), "\n"), "\n", "")
	return []string{text}, nil
}
