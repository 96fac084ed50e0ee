package whisper

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"
)

var (
	ErrUnknownModel    = errors.New("unknown model")
	ErrNotInstalled    = errors.New("model not installed")
	ErrAlreadyFetching = errors.New("model download already in progress")
)

// Manager owns the on-disk model directory: it lists, downloads and removes models
// and tracks in-flight downloads so callers can query their progress.
type Manager struct {
	Dir     string
	BaseURL string
	Client  *http.Client

	mu     sync.Mutex
	active map[string]*activeDownload
}

type activeDownload struct {
	progress DownloadProgress
	cancel   *CancelToken
}

func NewManager(dir string) *Manager {
	return &Manager{
		Dir:     dir,
		BaseURL: DefaultBaseURL,
		Client:  http.DefaultClient,
		active:  make(map[string]*activeDownload),
	}
}

// Path returns where a model lives on disk, downloaded or not
func (m *Manager) Path(modelID string) (string, error) {
	info, ok := Lookup(modelID)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownModel, modelID)
	}
	return filepath.Join(m.Dir, info.Filename), nil
}

// URL returns the download location for a model
func (m *Manager) URL(modelID string) (string, error) {
	info, ok := Lookup(modelID)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownModel, modelID)
	}
	return m.BaseURL + "/" + info.Filename, nil
}

// Installed reports whether the model file exists with a non-zero size
func (m *Manager) Installed(modelID string) bool {
	path, err := m.Path(modelID)
	if err != nil {
		return false
	}
	fi, err := os.Stat(path)
	return err == nil && fi.Size() > 0
}

// List returns every catalogue model with its current on-disk state
func (m *Manager) List(selected string) []ModelState {
	states := make([]ModelState, 0, len(models))
	for _, info := range models {
		states = append(states, ModelState{
			ModelInfo:  info,
			Downloaded: m.Installed(info.ID),
			Selected:   info.ID == selected,
		})
	}
	return states
}

// Progress returns the last reported progress of an in-flight download
func (m *Manager) Progress(modelID string) (DownloadProgress, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.active[modelID]
	if !ok {
		return DownloadProgress{}, false
	}
	return d.progress, true
}

// Cancel flags an in-flight download to stop after its current chunk
func (m *Manager) Cancel(modelID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.active[modelID]
	if ok {
		d.cancel.Cancel()
	}
	return ok
}

// Download fetches a model into Dir, resuming a previous partial download when one
// exists. onProgress may be nil. Only one download per model runs at a time.
func (m *Manager) Download(ctx context.Context, modelID string, cancel *CancelToken, onProgress func(DownloadProgress)) error {
	dest, err := m.Path(modelID)
	if err != nil {
		return err
	}
	url, err := m.URL(modelID)
	if err != nil {
		return err
	}
	if cancel == nil {
		cancel = &CancelToken{}
	}

	m.mu.Lock()
	if m.active == nil {
		m.active = make(map[string]*activeDownload)
	}
	if _, busy := m.active[modelID]; busy {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyFetching, modelID)
	}
	m.active[modelID] = &activeDownload{progress: DownloadProgress{ModelID: modelID}, cancel: cancel}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.active, modelID)
		m.mu.Unlock()
	}()

	if err := os.MkdirAll(m.Dir, 0o755); err != nil {
		return fmt.Errorf("%w: create models directory: %v", ErrIO, err)
	}

	client := m.Client
	if client == nil {
		client = http.DefaultClient
	}

	log.Printf("whisper-download: fetching %s from %s", modelID, url)
	err = fetch(ctx, client, url, dest, cancel, func(done, total int64, percent int) {
		p := DownloadProgress{ModelID: modelID, DownloadedBytes: done, TotalBytes: total, Percent: percent}
		m.mu.Lock()
		if d, ok := m.active[modelID]; ok {
			d.progress = p
		}
		m.mu.Unlock()
		if onProgress != nil {
			onProgress(p)
		}
	})
	if err != nil {
		log.Printf("whisper-download: %s: %v", modelID, err)
		return err
	}

	log.Printf("whisper-download: %s saved to %s", modelID, dest)
	return nil
}

// Remove deletes a downloaded model and any partial download left behind
func (m *Manager) Remove(modelID string) error {
	path, err := m.Path(modelID)
	if err != nil {
		return err
	}

	partial := path + TempSuffix
	if _, err := os.Stat(partial); err == nil {
		if err := os.Remove(partial); err != nil {
			return fmt.Errorf("remove partial download: %w", err)
		}
	}

	if !m.Installed(modelID) {
		return fmt.Errorf("%w: %s", ErrNotInstalled, modelID)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove model: %w", err)
	}
	return nil
}
