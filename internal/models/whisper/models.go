package whisper

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
)

// ModelInfo holds metadata for a ggml whisper model
type ModelInfo struct {
	ID           string // model identifier (e.g., "base")
	Name         string // display name (e.g., "Base")
	Filename     string // file name (e.g., "ggml-base.bin")
	SizeBytes    int64  // expected size, used when the server does not report one
	Multilingual bool
}

// DisplayName returns the name with a human readable size, e.g. "Base (142 MB)"
func (m ModelInfo) DisplayName() string {
	return fmt.Sprintf("%s (%s)", m.Name, humanize.Bytes(uint64(m.SizeBytes)))
}

// ModelState is a catalogue entry plus what the filesystem says about it right now
type ModelState struct {
	ModelInfo
	Downloaded bool
	Selected   bool
}

// available models from huggingface.co/ggerganov/whisper.cpp
var models = []ModelInfo{
	{ID: "tiny", Name: "Tiny", Filename: "ggml-tiny.bin", SizeBytes: 75_000_000, Multilingual: true},
	{ID: "base", Name: "Base", Filename: "ggml-base.bin", SizeBytes: 142_000_000, Multilingual: true},
	{ID: "small", Name: "Small", Filename: "ggml-small.bin", SizeBytes: 466_000_000, Multilingual: true},
	{ID: "medium", Name: "Medium", Filename: "ggml-medium.bin", SizeBytes: 1_500_000_000, Multilingual: true},
	{ID: "large", Name: "Large", Filename: "ggml-large.bin", SizeBytes: 2_900_000_000, Multilingual: true},
	{ID: "large-v3", Name: "Large V3", Filename: "ggml-large-v3.bin", SizeBytes: 3_100_000_000, Multilingual: true},

	// english-only
	{ID: "tiny.en", Name: "Tiny English", Filename: "ggml-tiny.en.bin", SizeBytes: 75_000_000},
	{ID: "base.en", Name: "Base English", Filename: "ggml-base.en.bin", SizeBytes: 142_000_000},
	{ID: "small.en", Name: "Small English", Filename: "ggml-small.en.bin", SizeBytes: 466_000_000},
}

var modelByID = func() map[string]ModelInfo {
	m := make(map[string]ModelInfo, len(models))
	for _, model := range models {
		m[model.ID] = model
	}
	return m
}()

const (
	DefaultModel   = "base"
	DefaultBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"
)

// DefaultModelsDir returns $XDG_DATA_HOME/speakstream/models/whisper, falling back to
// ~/.local/share when XDG_DATA_HOME is unset. The directory is not created.
func DefaultModelsDir() (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "speakstream", "models", "whisper"), nil
}

// Lookup returns the catalogue entry for a model id
func Lookup(modelID string) (ModelInfo, bool) {
	info, ok := modelByID[modelID]
	return info, ok
}

// ListModels returns all known models in catalogue order
func ListModels() []ModelInfo {
	result := make([]ModelInfo, len(models))
	copy(result, models)
	return result
}
