package config

import "time"

type Config struct {
	Recording     RecordingConfig     `toml:"recording"`
	Transcription TranscriptionConfig `toml:"transcription"`
	Injection     InjectionConfig     `toml:"injection"`
	Notifications NotificationsConfig `toml:"notifications"`
	LLM           LLMConfig           `toml:"llm"`
	History       HistoryConfig       `toml:"history"`
	// Keywords are names and jargon the post-processor should spell as given
	Keywords []string `toml:"keywords"`
}

type RecordingConfig struct {
	SampleRate        int    `toml:"sample_rate"`
	Channels          int    `toml:"channels"`
	Format            string `toml:"format"`
	BufferSize        int    `toml:"buffer_size"`
	Device            string `toml:"device"`
	ChannelBufferSize int    `toml:"channel_buffer_size"`
	MaxPendingFrames  int    `toml:"max_pending_frames"`
	// Timeout stops a session that was never stopped by hand
	Timeout time.Duration `toml:"timeout"`
}

type TranscriptionConfig struct {
	Provider string `toml:"provider"` // "doubao", "whisper-api", "whisper-local"
	Language string `toml:"language"` // empty for auto-detect
	// StopGrace bounds the wait for the provider's last results after recording stops;
	// zero picks a per-provider default
	StopGrace time.Duration `toml:"stop_grace"`
	// UpdateInterval throttles interim transcript updates
	UpdateInterval time.Duration `toml:"update_interval"`

	Doubao       DoubaoConfig       `toml:"doubao"`
	WhisperAPI   WhisperAPIConfig   `toml:"whisper_api"`
	WhisperLocal WhisperLocalConfig `toml:"whisper_local"`
}

type DoubaoConfig struct {
	AppID       string `toml:"app_id"`
	AccessToken string `toml:"access_token"` // or DOUBAO_ACCESS_TOKEN
	SecretKey   string `toml:"secret_key"`   // enables HMAC request signing
	Endpoint    string `toml:"endpoint"`
	ResourceID  string `toml:"resource_id"`
	ModelName   string `toml:"model_name"`
}

type WhisperAPIConfig struct {
	APIKey   string `toml:"api_key"` // or OPENAI_API_KEY
	BaseURL  string `toml:"base_url"`
	Model    string `toml:"model"`
	Language string `toml:"language"`
}

type WhisperLocalConfig struct {
	Model     string `toml:"model"`
	Language  string `toml:"language"`
	Threads   int    `toml:"threads"` // 0 = NumCPU-1
	ModelsDir string `toml:"models_dir"`
}

type InjectionConfig struct {
	Backends []string      `toml:"backends"`
	Timeout  time.Duration `toml:"timeout"`
	// Live types interim text while speaking and corrects it as results change
	Live bool `toml:"live"`
}

type NotificationsConfig struct {
	Enabled bool   `toml:"enabled"`
	Type    string `toml:"type"` // "desktop", "log", "none"
}

// LLMConfig configures post-processing of batch transcripts
type LLMConfig struct {
	Enabled        bool                    `toml:"enabled"`
	Provider       string                  `toml:"provider"`
	BaseURL        string                  `toml:"base_url"`
	APIKey         string                  `toml:"api_key"`
	Model          string                  `toml:"model"`
	Mode           string                  `toml:"mode"` // "general", "code", "meeting"
	PostProcessing LLMPostProcessingConfig `toml:"post_processing"`
	CustomPrompt   LLMCustomPromptConfig   `toml:"custom_prompt"`
}

type LLMPostProcessingConfig struct {
	RemoveStutters    bool `toml:"remove_stutters"`
	AddPunctuation    bool `toml:"add_punctuation"`
	FixGrammar        bool `toml:"fix_grammar"`
	RemoveFillerWords bool `toml:"remove_filler_words"`
}

type LLMCustomPromptConfig struct {
	Enabled bool   `toml:"enabled"`
	Prompt  string `toml:"prompt"`
}

type HistoryConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"` // empty for the default data dir
}
