package whisper

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func testContent(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i * 7)
	}
	return b
}

// rangeServer serves content with Range support and records the Range header of each request
func rangeServer(t *testing.T, content []byte) (*httptest.Server, *[]string) {
	t.Helper()
	var mu sync.Mutex
	var ranges []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		ranges = append(ranges, r.Header.Get("Range"))
		mu.Unlock()
		http.ServeContent(w, r, "model.bin", time.Time{}, bytes.NewReader(content))
	}))
	t.Cleanup(srv.Close)
	return srv, &ranges
}

func newTestManager(t *testing.T, baseURL string) *Manager {
	t.Helper()
	m := NewManager(t.TempDir())
	m.BaseURL = baseURL
	return m
}

func TestDefaultModelsDir(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	dir, err := DefaultModelsDir()
	if err != nil {
		t.Fatalf("DefaultModelsDir() error = %v", err)
	}
	if dir != filepath.Join("/data", "speakstream", "models", "whisper") {
		t.Errorf("DefaultModelsDir() = %s", dir)
	}

	t.Setenv("XDG_DATA_HOME", "")
	dir, err = DefaultModelsDir()
	if err != nil {
		t.Fatalf("DefaultModelsDir() error = %v", err)
	}
	if strings.Contains(dir, "~") {
		t.Errorf("DefaultModelsDir() contains ~, got %s", dir)
	}
	if !strings.HasSuffix(dir, filepath.Join(".local", "share", "speakstream", "models", "whisper")) {
		t.Errorf("DefaultModelsDir() = %s, want path ending with .local/share/speakstream/models/whisper", dir)
	}
}

func TestLookup(t *testing.T) {
	tests := []struct {
		modelID      string
		wantFile     string
		multilingual bool
		ok           bool
	}{
		{"base", "ggml-base.bin", true, true},
		{"base.en", "ggml-base.en.bin", false, true},
		{"large-v3", "ggml-large-v3.bin", true, true},
		{"unknown", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.modelID, func(t *testing.T) {
			info, ok := Lookup(tt.modelID)
			if ok != tt.ok {
				t.Fatalf("Lookup(%q) ok = %v, want %v", tt.modelID, ok, tt.ok)
			}
			if info.Filename != tt.wantFile {
				t.Errorf("Filename = %s, want %s", info.Filename, tt.wantFile)
			}
			if info.Multilingual != tt.multilingual {
				t.Errorf("Multilingual = %v, want %v", info.Multilingual, tt.multilingual)
			}
		})
	}
}

func TestModelInfo_Catalogue(t *testing.T) {
	seen := make(map[string]bool)
	for _, m := range ListModels() {
		if m.ID == "" || m.Name == "" || m.Filename == "" {
			t.Errorf("incomplete model entry %+v", m)
		}
		if m.SizeBytes <= 0 {
			t.Errorf("model %s has invalid SizeBytes: %d", m.ID, m.SizeBytes)
		}
		if seen[m.ID] {
			t.Errorf("duplicate model id %s", m.ID)
		}
		seen[m.ID] = true
	}
	if !seen[DefaultModel] {
		t.Errorf("default model %s missing from catalogue", DefaultModel)
	}
}

func TestModelInfo_DisplayName(t *testing.T) {
	info, _ := Lookup("base")
	if got := info.DisplayName(); got != "Base (142 MB)" {
		t.Errorf("DisplayName() = %q, want %q", got, "Base (142 MB)")
	}
}

func TestManager_ListAndInstalled(t *testing.T) {
	m := NewManager(t.TempDir())

	if err := os.WriteFile(filepath.Join(m.Dir, "ggml-tiny.bin"), []byte("weights"), 0o644); err != nil {
		t.Fatal(err)
	}
	// zero-size file does not count as downloaded
	if err := os.WriteFile(filepath.Join(m.Dir, "ggml-base.bin"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	states := m.List("base")
	if len(states) != len(ListModels()) {
		t.Fatalf("List() returned %d entries, want %d", len(states), len(ListModels()))
	}
	for _, s := range states {
		wantDownloaded := s.ID == "tiny"
		if s.Downloaded != wantDownloaded {
			t.Errorf("%s Downloaded = %v, want %v", s.ID, s.Downloaded, wantDownloaded)
		}
		if s.Selected != (s.ID == "base") {
			t.Errorf("%s Selected = %v", s.ID, s.Selected)
		}
	}
}

func TestManager_Remove(t *testing.T) {
	m := NewManager(t.TempDir())
	path := filepath.Join(m.Dir, "ggml-tiny.bin")

	if err := m.Remove("tiny"); !errors.Is(err, ErrNotInstalled) {
		t.Errorf("Remove(missing) error = %v, want ErrNotInstalled", err)
	}
	if err := m.Remove("nope"); !errors.Is(err, ErrUnknownModel) {
		t.Errorf("Remove(unknown) error = %v, want ErrUnknownModel", err)
	}

	os.WriteFile(path, []byte("weights"), 0o644)
	os.WriteFile(path+TempSuffix, []byte("partial"), 0o644)

	if err := m.Remove("tiny"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	for _, p := range []string{path, path + TempSuffix} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("%s still exists after Remove", p)
		}
	}
}

func TestManager_Download(t *testing.T) {
	content := testContent(300 * 1024)
	srv, ranges := rangeServer(t, content)
	m := newTestManager(t, srv.URL)

	var events []DownloadProgress
	err := m.Download(context.Background(), "tiny", nil, func(p DownloadProgress) {
		events = append(events, p)
	})
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}

	got, err := os.ReadFile(filepath.Join(m.Dir, "ggml-tiny.bin"))
	if err != nil {
		t.Fatalf("read model: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("downloaded %d bytes, want %d identical bytes", len(got), len(content))
	}
	if _, err := os.Stat(filepath.Join(m.Dir, "ggml-tiny.bin"+TempSuffix)); !os.IsNotExist(err) {
		t.Error("temp file should be renamed away")
	}
	if (*ranges)[0] != "" {
		t.Errorf("fresh download sent Range %q", (*ranges)[0])
	}

	checkProgress(t, events)
	if !m.Installed("tiny") {
		t.Error("Installed(tiny) = false after download")
	}
	if _, ok := m.Progress("tiny"); ok {
		t.Error("Progress() should report nothing once the download finished")
	}
}

func checkProgress(t *testing.T, events []DownloadProgress) {
	t.Helper()
	if len(events) == 0 {
		t.Fatal("no progress events")
	}
	seen := make(map[int]bool)
	last := -1
	for _, e := range events {
		if e.Percent < last {
			t.Errorf("percent went backwards: %d after %d", e.Percent, last)
		}
		if seen[e.Percent] {
			t.Errorf("percent %d reported twice", e.Percent)
		}
		seen[e.Percent] = true
		last = e.Percent
	}
	if final := events[len(events)-1]; final.Percent != 100 || final.DownloadedBytes != final.TotalBytes {
		t.Errorf("final event = %+v, want 100%% with all bytes", final)
	}
}

func TestManager_DownloadResumes(t *testing.T) {
	content := testContent(200 * 1024)
	const k = 50 * 1024
	srv, ranges := rangeServer(t, content)
	m := newTestManager(t, srv.URL)

	dest := filepath.Join(m.Dir, "ggml-tiny.bin")
	if err := os.WriteFile(dest+TempSuffix, content[:k], 0o644); err != nil {
		t.Fatal(err)
	}

	var events []DownloadProgress
	if err := m.Download(context.Background(), "tiny", nil, func(p DownloadProgress) {
		events = append(events, p)
	}); err != nil {
		t.Fatalf("Download() error = %v", err)
	}

	if (*ranges)[0] != "bytes=51200-" {
		t.Errorf("Range = %q, want bytes=51200-", (*ranges)[0])
	}

	got, _ := os.ReadFile(dest)
	if len(got) != len(content) || !bytes.Equal(got, content) {
		t.Errorf("assembled file has %d bytes, want %d identical bytes", len(got), len(content))
	}

	checkProgress(t, events)
	if events[0].TotalBytes != int64(len(content)) {
		t.Errorf("TotalBytes = %d, want total from Content-Range %d", events[0].TotalBytes, len(content))
	}
	if events[0].Percent < 25 {
		t.Errorf("first resumed percent = %d, want it to start from the existing offset", events[0].Percent)
	}
}

func TestManager_DownloadRestartsWhenRangeIgnored(t *testing.T) {
	content := testContent(100 * 1024)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.WriteHeader(http.StatusOK)
		w.Write(content)
	}))
	defer srv.Close()
	m := newTestManager(t, srv.URL)

	dest := filepath.Join(m.Dir, "ggml-tiny.bin")
	os.WriteFile(dest+TempSuffix, bytes.Repeat([]byte{0xEE}, 4096), 0o644)

	if err := m.Download(context.Background(), "tiny", nil, nil); err != nil {
		t.Fatalf("Download() error = %v", err)
	}

	got, _ := os.ReadFile(dest)
	if !bytes.Equal(got, content) {
		t.Errorf("got %d bytes, want the full body without the stale prefix", len(got))
	}
}

func TestManager_DownloadCompleteTempFile(t *testing.T) {
	content := testContent(64 * 1024)
	srv, ranges := rangeServer(t, content)
	m := newTestManager(t, srv.URL)

	dest := filepath.Join(m.Dir, "ggml-tiny.bin")
	if err := os.WriteFile(dest+TempSuffix, content, 0o644); err != nil {
		t.Fatal(err)
	}

	var events []DownloadProgress
	if err := m.Download(context.Background(), "tiny", nil, func(p DownloadProgress) {
		events = append(events, p)
	}); err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if (*ranges)[0] != "bytes=65536-" {
		t.Errorf("Range = %q, want bytes=65536-", (*ranges)[0])
	}
	if !m.Installed("tiny") {
		t.Error("a complete temp file should be installed")
	}
	if _, err := os.Stat(dest + TempSuffix); !os.IsNotExist(err) {
		t.Errorf("temp file still present: %v", err)
	}
	if len(events) != 1 || events[0].Percent != 100 {
		t.Errorf("progress = %+v, want a single 100%%", events)
	}
}

func TestManager_DownloadOversizedTempFile(t *testing.T) {
	content := testContent(16 * 1024)
	srv, _ := rangeServer(t, content)
	m := newTestManager(t, srv.URL)

	dest := filepath.Join(m.Dir, "ggml-tiny.bin")
	os.WriteFile(dest+TempSuffix, testContent(32*1024), 0o644)

	if err := m.Download(context.Background(), "tiny", nil, nil); !errors.Is(err, ErrStatus) {
		t.Fatalf("Download() error = %v, want ErrStatus", err)
	}
	if _, err := os.Stat(dest + TempSuffix); !os.IsNotExist(err) {
		t.Fatalf("mismatched temp file kept: %v", err)
	}
	if err := m.Download(context.Background(), "tiny", nil, nil); err != nil {
		t.Fatalf("Download() retry error = %v", err)
	}
	got, _ := os.ReadFile(dest)
	if !bytes.Equal(got, content) {
		t.Errorf("got %d bytes, want a fresh download of %d", len(got), len(content))
	}
}

func TestManager_DownloadCancel(t *testing.T) {
	content := testContent(2 * 1024 * 1024)
	srv, _ := rangeServer(t, content)
	m := newTestManager(t, srv.URL)

	token := &CancelToken{}
	err := m.Download(context.Background(), "tiny", token, func(p DownloadProgress) {
		if _, ok := m.Progress("tiny"); !ok {
			t.Error("Progress() should report an in-flight download")
		}
		token.Cancel()
	})

	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("Download() error = %v, want ErrCancelled", err)
	}
	if !errors.Is(err, ErrDownload) {
		t.Error("cancellation should wrap ErrDownload")
	}

	dest := filepath.Join(m.Dir, "ggml-tiny.bin")
	fi, statErr := os.Stat(dest + TempSuffix)
	if statErr != nil {
		t.Fatalf("partial file should be kept for resume: %v", statErr)
	}
	if fi.Size() == 0 || fi.Size() >= int64(len(content)) {
		t.Errorf("partial file has %d bytes", fi.Size())
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("final file must not exist after cancel")
	}

	// a later download picks up where the cancelled one stopped
	if err := m.Download(context.Background(), "tiny", nil, nil); err != nil {
		t.Fatalf("resumed Download() error = %v", err)
	}
	got, _ := os.ReadFile(dest)
	if !bytes.Equal(got, content) {
		t.Error("resumed download does not match source")
	}
}

func TestManager_DownloadErrors(t *testing.T) {
	notFound := httptest.NewServer(http.NotFoundHandler())
	defer notFound.Close()

	closed := httptest.NewServer(http.NotFoundHandler())
	closedURL := closed.URL
	closed.Close()

	tests := []struct {
		name    string
		baseURL string
		model   string
		want    error
	}{
		{"bad status", notFound.URL, "tiny", ErrStatus},
		{"unreachable", closedURL, "tiny", ErrRequest},
		{"unknown model", notFound.URL, "nope", ErrUnknownModel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(t, tt.baseURL)
			err := m.Download(context.Background(), tt.model, nil, nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("Download() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestManager_OneDownloadPerModel(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		w.Write([]byte("weights"))
	}))
	defer srv.Close()
	m := newTestManager(t, srv.URL)

	done := make(chan error, 1)
	go func() { done <- m.Download(context.Background(), "tiny", nil, nil) }()
	<-entered

	if err := m.Download(context.Background(), "tiny", nil, nil); !errors.Is(err, ErrAlreadyFetching) {
		t.Errorf("second Download() error = %v, want ErrAlreadyFetching", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Errorf("first Download() error = %v", err)
	}
}

func TestTotalFromContentRange(t *testing.T) {
	tests := []struct {
		header string
		want   int64
	}{
		{"bytes 100-199/200", 200},
		{"bytes 0-0/1", 1},
		{"bytes 0-99/*", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := totalFromContentRange(tt.header); got != tt.want {
			t.Errorf("totalFromContentRange(%q) = %d, want %d", tt.header, got, tt.want)
		}
	}
}
