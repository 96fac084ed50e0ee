package notify

import (
	"fmt"
	"log"
	"os/exec"

	"github.com/dustin/go-humanize"

	"github.com/leonardotrapani/speakstream/internal/models/whisper"
)

const appName = "speakstream"

// Notifier receives the user-facing events of a dictation session
type Notifier interface {
	RecordingStarted()
	Aborted()
	TranscriptUpdated(text string)
	TranscriptFinal(text string)
	DownloadProgress(p whisper.DownloadProgress)
	Error(msg string)
}

// New returns the notifier for a configured type: "desktop", "log" or "none"
func New(kind string) (Notifier, error) {
	switch kind {
	case "desktop", "":
		return Desktop{}, nil
	case "log":
		return Log{}, nil
	case "none":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown notification type %q", kind)
	}
}

// Desktop shows notifications through notify-send. Interim transcripts and download
// progress replace each other instead of stacking up.
type Desktop struct {
	// Run executes notify-send with the given arguments; nil runs the real binary
	Run func(args ...string) error
}

func (d Desktop) send(args ...string) {
	run := d.Run
	if run == nil {
		run = func(args ...string) error { return exec.Command("notify-send", args...).Run() }
	}
	if err := run(append([]string{"-a", appName}, args...)...); err != nil {
		log.Printf("notify: notify-send failed: %v", err)
	}
}

func (d Desktop) sendReplacing(title, body string) {
	d.send("-h", "string:x-canonical-private-synchronous:"+appName, title, body)
}

func (d Desktop) RecordingStarted() { d.sendReplacing("Recording started", "") }
func (d Desktop) Aborted()          { d.sendReplacing("Recording aborted", "") }

func (d Desktop) TranscriptUpdated(text string) { d.sendReplacing("Listening…", text) }
func (d Desktop) TranscriptFinal(text string)   { d.sendReplacing("Transcribed", text) }

func (d Desktop) DownloadProgress(p whisper.DownloadProgress) {
	d.send("-h", "string:x-canonical-private-synchronous:"+appName+"-download",
		"-h", fmt.Sprintf("int:value:%d", p.Percent),
		"Downloading "+p.ModelID, progressText(p))
}

func (d Desktop) Error(msg string) { d.send("-u", "critical", "speakstream error", msg) }

func progressText(p whisper.DownloadProgress) string {
	if p.TotalBytes <= 0 {
		return humanize.Bytes(uint64(p.DownloadedBytes))
	}
	return fmt.Sprintf("%d%% (%s / %s)", p.Percent,
		humanize.Bytes(uint64(p.DownloadedBytes)), humanize.Bytes(uint64(p.TotalBytes)))
}

// Log writes every event to the standard logger
type Log struct{}

func (Log) RecordingStarted()             { log.Printf("notify: recording started") }
func (Log) Aborted()                      { log.Printf("notify: recording aborted") }
func (Log) TranscriptUpdated(text string) { log.Printf("notify: transcript %q", text) }
func (Log) TranscriptFinal(text string)   { log.Printf("notify: final transcript %q", text) }
func (Log) Error(msg string)              { log.Printf("notify: error: %s", msg) }

func (Log) DownloadProgress(p whisper.DownloadProgress) {
	log.Printf("notify: downloading %s %s", p.ModelID, progressText(p))
}

// Nop is a Notifier that does absolutely nothing.
// Useful in unit tests or headless builds.
type Nop struct{}

func (Nop) RecordingStarted()                         {}
func (Nop) Aborted()                                  {}
func (Nop) TranscriptUpdated(string)                  {}
func (Nop) TranscriptFinal(string)                    {}
func (Nop) DownloadProgress(whisper.DownloadProgress) {}
func (Nop) Error(string)                              {}
