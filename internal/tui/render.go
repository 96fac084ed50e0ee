package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/leonardotrapani/speakstream/internal/deps"
	"github.com/leonardotrapani/speakstream/internal/history"
	"github.com/leonardotrapani/speakstream/internal/models/whisper"
	"github.com/leonardotrapani/speakstream/internal/transcriber"
)

// ProviderRow is one line of `speakstream provider list`
type ProviderRow struct {
	ID     string
	Name   string
	Active bool
	Status transcriber.Status
	Stream bool
}

func RenderProviders(rows []ProviderRow) string {
	var b strings.Builder
	b.WriteString(StyleHeader.Render("Providers") + "\n")
	for _, r := range rows {
		marker := "  "
		name := r.Name
		if r.Active {
			marker = StyleSelected.Render("● ")
			name = StyleSelected.Render(name)
		}
		kind := "batch"
		if r.Stream {
			kind = "streaming"
		}
		fmt.Fprintf(&b, "%s%-16s %s  %s\n",
			marker, r.ID, name+StyleMuted.Render(" ("+kind+")"), renderStatus(r.Status))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderStatus(s transcriber.Status) string {
	switch s.Kind {
	case transcriber.StatusReady:
		return StyleSuccess.Render(s.String())
	case transcriber.StatusError:
		return StyleError.Render(s.String())
	}
	return StyleWarning.Render(s.String())
}

func RenderModels(states []whisper.ModelState) string {
	var b strings.Builder
	b.WriteString(StyleHeader.Render("Whisper models") + "\n")
	for _, m := range states {
		marker := "  "
		if m.Selected {
			marker = StyleSelected.Render("● ")
		}
		state := StyleMuted.Render("not downloaded")
		if m.Downloaded {
			state = StyleSuccess.Render("downloaded")
		}
		lang := ""
		if !m.Multilingual {
			lang = StyleMuted.Render(" english only")
		}
		fmt.Fprintf(&b, "%s%-10s %8s  %s%s\n", marker, m.ID, humanize.Bytes(uint64(m.SizeBytes)), state, lang)
	}
	return strings.TrimRight(b.String(), "\n")
}

func RenderHistory(entries []history.Entry) string {
	if len(entries) == 0 {
		return StyleMuted.Render("No transcripts yet.")
	}
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s %s\n%s\n\n",
			StyleLabel.Render(shortID(e.ID)),
			StyleMuted.Render(humanize.Time(e.Timestamp)),
			e.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

func RenderDeps(statuses []deps.Status) string {
	var b strings.Builder
	b.WriteString(StyleHeader.Render("External tools") + "\n")
	for _, s := range statuses {
		var mark string
		switch {
		case s.Installed:
			mark = StyleSuccess.Render("✓")
		case s.Required:
			mark = StyleError.Render("✗")
		default:
			mark = StyleWarning.Render("-")
		}
		detail := s.Purpose
		if s.Installed && s.Version != "" {
			detail += StyleMuted.Render(" " + s.Version)
		}
		fmt.Fprintf(&b, "%s %-12s %s\n", mark, s.Name, detail)
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderDaemonStatus formats the key=value reply of the status command
func RenderDaemonStatus(reply string) string {
	fields := strings.Fields(strings.TrimPrefix(reply, "STATUS "))
	rows := make([]string, 0, len(fields))
	for _, f := range fields {
		k, v, ok := strings.Cut(f, "=")
		if !ok {
			continue
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
			StyleLabel.Width(10).Render(k), v))
	}
	return StyleBox.Render(strings.Join(rows, "\n"))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
