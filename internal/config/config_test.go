package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/leonardotrapani/speakstream/internal/llm"
	"github.com/leonardotrapani/speakstream/internal/testutil"
	"github.com/leonardotrapani/speakstream/internal/transcriber"
)

func TestDefaultConfig_Valid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"zero sample rate", func(c *Config) { c.Recording.SampleRate = 0 }, "recording.sample_rate"},
		{"zero channels", func(c *Config) { c.Recording.Channels = 0 }, "recording.channels"},
		{"zero buffer size", func(c *Config) { c.Recording.BufferSize = 0 }, "recording.buffer_size"},
		{"zero channel buffer", func(c *Config) { c.Recording.ChannelBufferSize = 0 }, "recording.channel_buffer_size"},
		{"empty format", func(c *Config) { c.Recording.Format = "" }, "recording.format"},
		{"48 kHz capture", func(c *Config) { c.Recording.SampleRate = 48000 }, "recording.sample_rate"},
		{"stereo capture", func(c *Config) { c.Recording.Channels = 2 }, "recording.channels"},
		{"float capture", func(c *Config) { c.Recording.Format = "f32" }, "recording.format"},
		{"negative timeout", func(c *Config) { c.Recording.Timeout = -time.Second }, "recording.timeout"},
		{"no timeout", func(c *Config) { c.Recording.Timeout = 0 }, ""},
		{"unknown provider", func(c *Config) { c.Transcription.Provider = "openai" }, "transcription.provider"},
		{"whisper api", func(c *Config) { c.Transcription.Provider = transcriber.ProviderWhisperAPI }, ""},
		{"whisper local", func(c *Config) { c.Transcription.Provider = transcriber.ProviderWhisperLocal }, ""},
		{"missing credentials are not a config error", func(c *Config) { c.Transcription.Doubao = DoubaoConfig{} }, ""},
		{"bad language", func(c *Config) { c.Transcription.Language = "klingon" }, "transcription.language"},
		{"auto language", func(c *Config) { c.Transcription.Language = "auto" }, ""},
		{"bad whisper api language", func(c *Config) { c.Transcription.WhisperAPI.Language = "xx" }, "whisper_api.language"},
		{"unknown whisper model", func(c *Config) { c.Transcription.WhisperLocal.Model = "huge" }, "whisper_local.model"},
		{"english-only model with other language", func(c *Config) {
			c.Transcription.WhisperLocal.Model = "base.en"
			c.Transcription.Language = "zh"
		}, "only supports English"},
		{"english-only model with english", func(c *Config) {
			c.Transcription.WhisperLocal.Model = "base.en"
			c.Transcription.WhisperLocal.Language = "en"
		}, ""},
		{"negative threads", func(c *Config) { c.Transcription.WhisperLocal.Threads = -1 }, "threads"},
		{"negative stop grace", func(c *Config) { c.Transcription.StopGrace = -time.Second }, "stop_grace"},
		{"no backends", func(c *Config) { c.Injection.Backends = nil }, "injection.backends"},
		{"unknown backend", func(c *Config) { c.Injection.Backends = []string{"xdotool"} }, "xdotool"},
		{"zero injection timeout", func(c *Config) { c.Injection.Timeout = 0 }, "injection.timeout"},
		{"live with clipboard only", func(c *Config) {
			c.Injection.Live = true
			c.Injection.Backends = []string{"clipboard"}
		}, "injection.live"},
		{"live with wtype", func(c *Config) { c.Injection.Live = true }, ""},
		{"bad notification type", func(c *Config) { c.Notifications.Type = "popup" }, "notifications.type"},
		{"disabled notifications ignore type", func(c *Config) {
			c.Notifications.Enabled = false
			c.Notifications.Type = ""
		}, ""},
		{"llm unknown provider", func(c *Config) {
			c.LLM.Enabled = true
			c.LLM.Provider = "anthropic"
		}, "llm.provider"},
		{"llm custom without base url", func(c *Config) {
			c.LLM.Enabled = true
			c.LLM.Provider = "custom"
			c.LLM.Model = "llama3"
		}, "llm.base_url"},
		{"llm bad mode", func(c *Config) {
			c.LLM.Enabled = true
			c.LLM.Mode = "poetry"
		}, "llm.mode"},
		{"llm disabled ignores provider", func(c *Config) { c.LLM.Provider = "anthropic" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.modify(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFile_KeepsDefaultsForMissingKeys(t *testing.T) {
	path := testutil.CreateTempConfigFile(t, `
keywords = ["speakstream", "Doubao"]

[recording]
  timeout = "30s"

[transcription]
  provider = "whisper-local"
  stop_grace = "500ms"

[transcription.whisper_local]
  model = "tiny.en"
  threads = 2

[injection]
  live = true

[llm.post_processing]
  remove_stutters = false
`)

	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if c.Recording.Timeout != 30*time.Second {
		t.Errorf("Recording.Timeout = %v", c.Recording.Timeout)
	}
	if c.Recording.SampleRate != 16000 {
		t.Errorf("Recording.SampleRate = %d, want default", c.Recording.SampleRate)
	}
	if c.Transcription.Provider != transcriber.ProviderWhisperLocal || c.Transcription.WhisperLocal.Model != "tiny.en" {
		t.Errorf("Transcription = %+v", c.Transcription)
	}
	if c.Transcription.StopGrace != 500*time.Millisecond {
		t.Errorf("StopGrace = %v", c.Transcription.StopGrace)
	}
	if c.Transcription.WhisperLocal.Threads != 2 {
		t.Errorf("explicit threads overridden: %d", c.Transcription.WhisperLocal.Threads)
	}
	if c.Transcription.Doubao.Endpoint != transcriber.DefaultDoubaoEndpoint {
		t.Errorf("Doubao.Endpoint = %q, want default", c.Transcription.Doubao.Endpoint)
	}
	if !c.Injection.Live || len(c.Injection.Backends) != 3 {
		t.Errorf("Injection = %+v", c.Injection)
	}
	pp := c.LLM.PostProcessing
	if pp.RemoveStutters || !pp.AddPunctuation || !pp.FixGrammar || !pp.RemoveFillerWords {
		t.Errorf("PostProcessing = %+v, only remove_stutters should be off", pp)
	}
	if len(c.Keywords) != 2 {
		t.Errorf("Keywords = %v", c.Keywords)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoadFile_ThreadsDefault(t *testing.T) {
	path := testutil.CreateTempConfigFile(t, "[transcription]\n  provider = \"whisper-local\"\n")
	c, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := max(runtime.NumCPU()-1, 1)
	if c.Transcription.WhisperLocal.Threads != want {
		t.Errorf("Threads = %d, want %d", c.Transcription.WhisperLocal.Threads, want)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("missing file error = %v, want ErrConfigNotFound", err)
	}

	path := testutil.CreateTempConfigFile(t, "[recording\nsample_rate = ")
	if _, err := LoadFile(path); err == nil || !strings.Contains(err.Error(), "failed to parse") {
		t.Errorf("invalid toml error = %v", err)
	}

	path = testutil.CreateTempConfigFile(t, "[recording]\n  timeout = \"forever\"\n")
	if _, err := LoadFile(path); err == nil {
		t.Error("expected error for unparseable duration")
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	c := DefaultConfig()
	c.Transcription.Doubao.AppID = "app-1"
	c.Transcription.Doubao.AccessToken = "token"
	c.Injection.Live = true
	c.Keywords = []string{"Kubernetes"}
	if err := Save(c, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config mode = %v, want 0600", info.Mode().Perm())
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if loaded.Transcription.Doubao.AppID != "app-1" || !loaded.Injection.Live {
		t.Errorf("round trip lost values: %+v", loaded)
	}
	if loaded.Recording.Timeout != c.Recording.Timeout || loaded.Injection.Timeout != c.Injection.Timeout {
		t.Errorf("durations changed: %v %v", loaded.Recording.Timeout, loaded.Injection.Timeout)
	}
	if len(loaded.Keywords) != 1 || loaded.Keywords[0] != "Kubernetes" {
		t.Errorf("Keywords = %v", loaded.Keywords)
	}
}

func TestPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	got, err := Path()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "speakstream", "config.toml"); got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
}

func TestToTranscriberConfig(t *testing.T) {
	t.Run("values from file win", func(t *testing.T) {
		t.Setenv("DOUBAO_ACCESS_TOKEN", "env-token")
		t.Setenv("OPENAI_API_KEY", "env-key")

		c := DefaultConfig()
		c.Transcription.Doubao.AppID = "app"
		c.Transcription.Doubao.AccessToken = "file-token"
		c.Transcription.WhisperAPI.APIKey = "file-key"
		c.Transcription.Language = "Auto"

		tc := c.ToTranscriberConfig(nil)
		if tc.Doubao.AccessToken != "file-token" || tc.WhisperAPI.APIKey != "file-key" {
			t.Errorf("credentials = %q / %q", tc.Doubao.AccessToken, tc.WhisperAPI.APIKey)
		}
		if tc.Language != "" {
			t.Errorf("Language = %q, want auto as empty", tc.Language)
		}
	})

	t.Run("environment fallback", func(t *testing.T) {
		t.Setenv("DOUBAO_APP_ID", "env-app")
		t.Setenv("DOUBAO_ACCESS_TOKEN", "env-token")
		t.Setenv("OPENAI_API_KEY", "env-key")

		tc := DefaultConfig().ToTranscriberConfig(nil)
		if tc.Doubao.AppID != "env-app" || tc.Doubao.AccessToken != "env-token" {
			t.Errorf("Doubao = %+v", tc.Doubao)
		}
		if tc.WhisperAPI.APIKey != "env-key" {
			t.Errorf("WhisperAPI.APIKey = %q", tc.WhisperAPI.APIKey)
		}
		if tc.Doubao.Endpoint != transcriber.DefaultDoubaoEndpoint {
			t.Errorf("Endpoint = %q", tc.Doubao.Endpoint)
		}
	})

	t.Run("builds a provider", func(t *testing.T) {
		t.Setenv("DOUBAO_APP_ID", "")
		t.Setenv("DOUBAO_ACCESS_TOKEN", "")

		p, err := transcriber.New(DefaultConfig().ToTranscriberConfig(nil))
		if err != nil {
			t.Fatal(err)
		}
		if p.ID() != transcriber.ProviderDoubao {
			t.Errorf("ID() = %q", p.ID())
		}
		if err := p.Validate(); !errors.Is(err, transcriber.ErrConfiguration) {
			t.Errorf("Validate() = %v, want ErrConfiguration without credentials", err)
		}
	})
}

func TestToLLMConfig(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "groq-env")

	c := DefaultConfig()
	c.LLM.Enabled = true
	c.LLM.Provider = "groq"
	c.LLM.Mode = "code"
	c.LLM.CustomPrompt = LLMCustomPromptConfig{Enabled: false, Prompt: "ignored"}
	c.Keywords = []string{"gRPC"}

	lc := c.ToLLMConfig()
	if lc.APIKey != "groq-env" {
		t.Errorf("APIKey = %q, want env fallback", lc.APIKey)
	}
	if lc.Mode != llm.ModeCode || lc.CustomPrompt != "" {
		t.Errorf("Mode = %q, CustomPrompt = %q", lc.Mode, lc.CustomPrompt)
	}
	if !lc.RemoveStutters || len(lc.Keywords) != 1 {
		t.Errorf("options = %+v", lc)
	}
	if !c.IsLLMEnabled() {
		t.Error("IsLLMEnabled() = false")
	}

	c.LLM.APIKey = "file-key"
	c.LLM.CustomPrompt.Enabled = true
	lc = c.ToLLMConfig()
	if lc.APIKey != "file-key" || lc.CustomPrompt != "ignored" {
		t.Errorf("APIKey = %q, CustomPrompt = %q", lc.APIKey, lc.CustomPrompt)
	}
	if _, err := llm.NewAdapter(lc); err != nil {
		t.Errorf("NewAdapter() error = %v", err)
	}
}

func TestConversions(t *testing.T) {
	c := DefaultConfig()
	c.Recording.Device = "alsa_input.usb"
	c.Recording.Timeout = time.Minute
	c.Injection.Live = true
	c.Injection.Backends = []string{"ydotool"}

	rc := c.ToRecordingConfig()
	if rc.Device != "alsa_input.usb" || rc.SampleRate != 16000 || rc.FlushTimeout <= 0 {
		t.Errorf("ToRecordingConfig() = %+v", rc)
	}

	pc := c.ToPipelineConfig()
	if !pc.LiveInjection || pc.MaxDuration != time.Minute || pc.StopGrace != 0 {
		t.Errorf("ToPipelineConfig() = %+v", pc)
	}

	ic := c.ToInjectionConfig()
	if len(ic.Backends) != 1 || ic.Backends[0] != "ydotool" || ic.Timeout != 5*time.Second {
		t.Errorf("ToInjectionConfig() = %+v", ic)
	}

	if c.NotifierType() != "desktop" {
		t.Errorf("NotifierType() = %q", c.NotifierType())
	}
	c.Notifications.Enabled = false
	if c.NotifierType() != "none" {
		t.Errorf("disabled NotifierType() = %q", c.NotifierType())
	}

	c.History.Path = "/tmp/h.toml"
	if p, _ := c.HistoryPath(); p != "/tmp/h.toml" {
		t.Errorf("HistoryPath() = %q", p)
	}
	c.Transcription.WhisperLocal.ModelsDir = "/models"
	if d, _ := c.ModelsDir(); d != "/models" {
		t.Errorf("ModelsDir() = %q", d)
	}
}

func TestManager_Reload(t *testing.T) {
	path := testutil.CreateTempConfigFile(t, "[injection]\n  live = false\n")

	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	if m.GetConfig().Injection.Live {
		t.Fatal("initial config should not be live")
	}

	changed := make(chan *Config, 4)
	m.OnChange(func(c *Config) { changed <- c })

	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := m.StartWatching(ctx); err != nil {
		t.Fatalf("StartWatching() error = %v", err)
	}
	defer m.Stop()

	if err := os.WriteFile(path, []byte("[injection]\n  live = true\n"), 0644); err != nil {
		t.Fatal(err)
	}
	// a write can surface as several events, the first seeing a truncated file
	deadline := time.After(3 * time.Second)
	for live := false; !live; {
		select {
		case c := <-changed:
			live = c.Injection.Live
		case <-deadline:
			t.Fatal("no reload after write")
		}
	}
	if !m.GetConfig().Injection.Live {
		t.Error("GetConfig() not updated")
	}
}

func TestManager_InvalidEditKeepsPrevious(t *testing.T) {
	path := testutil.CreateTempConfigFile(t, "[transcription]\n  provider = \"whisper-api\"\n")
	m, err := NewManager(path)
	if err != nil {
		t.Fatal(err)
	}
	calls := 0
	m.OnChange(func(*Config) { calls++ })

	os.WriteFile(path, []byte("[transcription]\n  provider = \"nope\"\n"), 0644)
	m.reload()
	os.WriteFile(path, []byte("not toml ["), 0644)
	m.reload()

	if got := m.GetConfig().Transcription.Provider; got != transcriber.ProviderWhisperAPI {
		t.Errorf("provider = %q, previous config should stay", got)
	}
	if calls != 0 {
		t.Errorf("listeners called %d times for invalid edits", calls)
	}

	os.WriteFile(path, []byte("[transcription]\n  provider = \"whisper-local\"\n"), 0644)
	m.reload()
	if calls != 1 || m.GetConfig().Transcription.Provider != transcriber.ProviderWhisperLocal {
		t.Errorf("valid edit not applied: calls=%d provider=%q", calls, m.GetConfig().Transcription.Provider)
	}
}

func TestManager_UnchangedFileSkipsListeners(t *testing.T) {
	path := testutil.CreateTempConfigFile(t, "keywords = [\"gRPC\"]\n")
	m, err := NewManager(path)
	if err != nil {
		t.Fatal(err)
	}
	calls := 0
	m.OnChange(func(*Config) { calls++ })

	// touch without changing the contents
	os.WriteFile(path, []byte("keywords = [\"gRPC\"]\n"), 0644)
	m.reload()
	if calls != 0 {
		t.Errorf("listeners called %d times for identical contents", calls)
	}
}

func TestNewManager_Missing(t *testing.T) {
	if _, err := NewManager(filepath.Join(t.TempDir(), "config.toml")); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("NewManager() error = %v", err)
	}
	m := NewStaticManager(DefaultConfig())
	if err := m.StartWatching(t.Context()); err != nil {
		t.Errorf("static StartWatching() = %v", err)
	}
	m.Stop()
}
