package transcriber

import (
	"errors"
	"fmt"
)

// Error kinds returned by providers. Wrap with fmt.Errorf("%w: ...") and test with errors.Is.
var (
	// ErrConnection covers transport and handshake failures. Fatal to the session.
	ErrConnection = errors.New("connection error")
	// ErrConfiguration means credentials or a model are missing; nothing was started.
	ErrConfiguration = errors.New("configuration error")
	// ErrTranscription is a backend-side failure while a session was running.
	ErrTranscription = errors.New("transcription error")
	ErrModelNotFound = errors.New("model not found")
	ErrModelDownload = errors.New("model download error")
	// ErrCancelled is a user-initiated abort, not a failure.
	ErrCancelled = errors.New("cancelled")
)

func connectionErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrConnection, op, err)
}

func configErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
