package transcriber

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

type StatusKind int

const (
	StatusReady StatusKind = iota
	StatusNeedsConfiguration
	StatusNeedsModelDownload
	StatusDownloading
	StatusError
)

// Status is derived on every call, never cached. Only the fields belonging to Kind are set.
type Status struct {
	Kind      StatusKind
	Model     string  // NeedsModelDownload
	SizeBytes int64   // NeedsModelDownload
	Progress  float64 // Downloading, 0..100
	Message   string  // Error, NeedsConfiguration
}

func Ready() Status { return Status{Kind: StatusReady} }

func NeedsConfiguration(reason string) Status {
	return Status{Kind: StatusNeedsConfiguration, Message: reason}
}

func NeedsModelDownload(model string, size int64) Status {
	return Status{Kind: StatusNeedsModelDownload, Model: model, SizeBytes: size}
}

func Downloading(progress float64) Status {
	return Status{Kind: StatusDownloading, Progress: progress}
}

func Failed(msg string) Status { return Status{Kind: StatusError, Message: msg} }

func (s Status) IsReady() bool { return s.Kind == StatusReady }

func (s Status) String() string {
	switch s.Kind {
	case StatusReady:
		return "ready"
	case StatusNeedsConfiguration:
		if s.Message != "" {
			return "needs configuration: " + s.Message
		}
		return "needs configuration"
	case StatusNeedsModelDownload:
		return fmt.Sprintf("needs model download: %s (%s)", s.Model, humanize.Bytes(uint64(s.SizeBytes)))
	case StatusDownloading:
		return fmt.Sprintf("downloading model: %.0f%%", s.Progress)
	case StatusError:
		return "error: " + s.Message
	default:
		return "unknown"
	}
}
