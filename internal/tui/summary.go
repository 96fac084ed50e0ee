package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/leonardotrapani/speakstream/internal/config"
	"github.com/leonardotrapani/speakstream/internal/language"
	"github.com/leonardotrapani/speakstream/internal/models/whisper"
	"github.com/leonardotrapani/speakstream/internal/transcriber"
)

var backendOrder = []string{"wtype", "ydotool", "clipboard"}

func providerLabel(id string) string {
	switch id {
	case transcriber.ProviderDoubao:
		return "Doubao (streaming, cloud)"
	case transcriber.ProviderWhisperAPI:
		return "Whisper API (OpenAI-compatible)"
	case transcriber.ProviderWhisperLocal:
		return "Whisper local (offline)"
	}
	return id
}

func modelLabel(m whisper.ModelInfo) string {
	if m.Multilingual {
		return m.DisplayName()
	}
	return m.DisplayName() + " - English only"
}

func menuLabels(cfg *config.Config) map[section]string {
	t := cfg.Transcription
	llmState := "off"
	if cfg.LLM.Enabled {
		llmState = cfg.LLM.Provider
	}
	notifications := "off"
	if cfg.Notifications.Enabled {
		notifications = cfg.Notifications.Type
	}
	injection := strings.Join(cfg.Injection.Backends, ", ")
	if cfg.Injection.Live {
		injection += ", live"
	}

	return map[section]string{
		sectionProvider:      "Provider        " + StyleMuted.Render(t.Provider),
		sectionCredentials:   "Credentials     " + StyleMuted.Render(credentialState(cfg)),
		sectionLanguage:      "Language        " + StyleMuted.Render(language.Label(t.Language)),
		sectionInjection:     "Injection       " + StyleMuted.Render(injection),
		sectionLLM:           "Post-processing " + StyleMuted.Render(llmState),
		sectionKeywords:      "Keywords        " + StyleMuted.Render(fmt.Sprintf("%d", len(cfg.Keywords))),
		sectionNotifications: "Notifications   " + StyleMuted.Render(notifications),
	}
}

func credentialState(cfg *config.Config) string {
	t := cfg.Transcription
	switch t.Provider {
	case transcriber.ProviderDoubao:
		if t.Doubao.AppID == "" {
			return "app id not set"
		}
		return "app " + t.Doubao.AppID
	case transcriber.ProviderWhisperAPI:
		if t.WhisperAPI.APIKey == "" {
			return "from environment"
		}
		return maskSecret(t.WhisperAPI.APIKey)
	}
	return "none needed"
}

// summaryLines returns label/value pairs shown before saving
func summaryLines(cfg *config.Config) [][2]string {
	t := cfg.Transcription
	lines := [][2]string{
		{"Provider", providerLabel(t.Provider)},
		{"Language", language.Label(t.Language)},
	}
	switch t.Provider {
	case transcriber.ProviderDoubao:
		lines = append(lines,
			[2]string{"App ID", orNotSet(t.Doubao.AppID)},
			[2]string{"Access token", maskSecret(t.Doubao.AccessToken)},
		)
	case transcriber.ProviderWhisperAPI:
		lines = append(lines,
			[2]string{"API key", maskSecret(t.WhisperAPI.APIKey)},
			[2]string{"Model", t.WhisperAPI.Model},
		)
	case transcriber.ProviderWhisperLocal:
		lines = append(lines, [2]string{"Model", t.WhisperLocal.Model})
	}

	mode := "after stopping"
	if cfg.Injection.Live {
		mode = "live"
	}
	lines = append(lines,
		[2]string{"Injection", strings.Join(cfg.Injection.Backends, " → ") + " (" + mode + ")"},
	)

	if cfg.LLM.Enabled {
		lines = append(lines, [2]string{"Post-processing", cfg.LLM.Provider + ", " + cfg.LLM.Mode})
	} else {
		lines = append(lines, [2]string{"Post-processing", "off"})
	}
	if len(cfg.Keywords) > 0 {
		lines = append(lines, [2]string{"Keywords", strings.Join(cfg.Keywords, ", ")})
	}
	if cfg.Notifications.Enabled {
		lines = append(lines, [2]string{"Notifications", cfg.Notifications.Type})
	} else {
		lines = append(lines, [2]string{"Notifications", "off"})
	}
	return lines
}

// maskSecret keeps the last four characters of long secrets
func maskSecret(s string) string {
	switch {
	case s == "":
		return "(not set)"
	case len(s) <= 8:
		return "****"
	}
	return "****" + s[len(s)-4:]
}

func orNotSet(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

// parseKeywords splits on commas and newlines, dropping blanks and duplicates
func parseKeywords(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool { return r == ',' || r == '\n' })
	var out []string
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" || slices.Contains(out, f) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func formatKeywords(keywords []string) string {
	return strings.Join(keywords, ", ")
}

// orderBackends puts the selected backends in fallback order
func orderBackends(selected []string) []string {
	var out []string
	for _, b := range backendOrder {
		if slices.Contains(selected, b) {
			out = append(out, b)
		}
	}
	return out
}

func contains(list []string, v string) bool { return slices.Contains(list, v) }
