package history

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
)

var ErrAmbiguousID = errors.New("id prefix matches several entries")

// MaxEntries bounds the history; the oldest entries fall off
const MaxEntries = 100

type Entry struct {
	ID        string    `toml:"id"`
	Text      string    `toml:"text"`
	Timestamp time.Time `toml:"timestamp"`
}

type file struct {
	Entries []Entry `toml:"entries"`
}

// Store keeps past transcripts, newest first, in a TOML file
type Store struct {
	path string

	mu      sync.Mutex
	entries []Entry
}

// DefaultPath returns ~/.local/share/speakstream/history.toml, honouring XDG_DATA_HOME
func DefaultPath() (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("get home directory: %w", err)
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "speakstream", "history.toml"), nil
}

// Open loads the store at path. A missing file is an empty history.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	var f file
	if _, err := toml.DecodeFile(path, &f); err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read history %s: %w", path, err)
	}
	s.entries = f.Entries
	return s, nil
}

// Add records a transcript and saves the file. Blank text is ignored.
func (s *Store) Add(text string) (Entry, error) {
	if strings.TrimSpace(text) == "" {
		return Entry{}, nil
	}
	e := Entry{ID: uuid.NewString(), Text: text, Timestamp: time.Now().Truncate(time.Second)}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append([]Entry{e}, s.entries...)
	if len(s.entries) > MaxEntries {
		s.entries = s.entries[:MaxEntries]
	}
	return e, s.save()
}

// Entries returns a copy, newest first
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...)
}

// Delete removes the entry whose id is id, or starts with it, and reports whether one
// was removed. A prefix matching several entries removes nothing.
func (s *Store) Delete(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	match := -1
	for i, e := range s.entries {
		if e.ID == id {
			match = i
			break
		}
		if id != "" && strings.HasPrefix(e.ID, id) {
			if match >= 0 {
				return false, fmt.Errorf("%w: %s", ErrAmbiguousID, id)
			}
			match = i
		}
	}
	if match < 0 {
		return false, nil
	}
	s.entries = append(s.entries[:match], s.entries[match+1:]...)
	return true, s.save()
}

func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return s.save()
}

// save writes through a temp file so a crash never leaves a truncated history
func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create history directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".history-*.toml")
	if err != nil {
		return fmt.Errorf("create temp history: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := toml.NewEncoder(tmp).Encode(file{Entries: s.entries}); err != nil {
		tmp.Close()
		return fmt.Errorf("encode history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp history: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	log.Printf("history: saved %d entries", len(s.entries))
	return nil
}
