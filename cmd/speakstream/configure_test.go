package main

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/leonardotrapani/speakstream/internal/config"
	"github.com/leonardotrapani/speakstream/internal/testutil"
	"github.com/leonardotrapani/speakstream/internal/transcriber"
)

func TestShowNextSteps(t *testing.T) {
	lipgloss.SetColorProfile(termenv.Ascii)

	cfg := config.DefaultConfig()
	cfg.Transcription.Provider = transcriber.ProviderWhisperLocal
	cfg.Transcription.WhisperLocal.Model = "small"
	cfg.Injection.Backends = []string{"ydotool", "clipboard"}

	out := testutil.CaptureOutput(t, func() { showNextSteps(cfg) })

	for _, want := range []string{
		"1. Download the model: speakstream model download small",
		"2. Ensure ydotoold is running",
		"speakstream toggle",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("next steps missing %q:\n%s", want, out)
		}
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	old := configPath
	t.Cleanup(func() { configPath = old })
	configPath = t.TempDir() + "/missing.toml"

	cfg, err := loadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Transcription.Provider != config.DefaultConfig().Transcription.Provider {
		t.Errorf("provider = %q, want the default", cfg.Transcription.Provider)
	}
}
