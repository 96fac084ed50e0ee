package transcriber

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestDoubao_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     DoubaoConfig
		wantErr bool
	}{
		{"complete", DoubaoConfig{AppID: "a", AccessToken: "t"}, false},
		{"secret is optional", DoubaoConfig{AppID: "a", AccessToken: "t", SecretKey: "s"}, false},
		{"missing app id", DoubaoConfig{AccessToken: "t"}, true},
		{"missing token", DoubaoConfig{AppID: "a"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDoubao(tt.cfg)
			err := d.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrConfiguration) {
					t.Errorf("Validate() error = %v, want ErrConfiguration", err)
				}
				st := d.Status()
				if st.Kind != StatusNeedsConfiguration {
					t.Errorf("Status() = %v, want needs configuration", st)
				}
				if strings.Contains(st.Message, ErrConfiguration.Error()) {
					t.Errorf("status message %q should not repeat the error kind", st.Message)
				}
			} else if !d.Status().IsReady() {
				t.Errorf("Status() = %v, want ready", d.Status())
			}
		})
	}
}

func TestDoubao_MissingCredentialsNeverDial(t *testing.T) {
	var dials atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dials.Add(1)
	}))
	defer server.Close()

	d := NewDoubao(DoubaoConfig{Endpoint: "ws" + strings.TrimPrefix(server.URL, "http")})
	err := d.Transcribe(context.Background(), feed([]byte{1, 2}), make(chan Result, 1))
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("Transcribe() error = %v, want ErrConfiguration", err)
	}
	if dials.Load() != 0 {
		t.Errorf("server was contacted %d times", dials.Load())
	}
}

func TestDoubao_Transcribe(t *testing.T) {
	server := mockRecognizer(t, func(c *recognizerConn) {
		c.readUntilFinish()
		c.sendResult("你好", false)
		c.close()
		c.conn.ReadMessage()
	})
	defer server.Close()

	d := NewDoubao(DoubaoConfig{
		AppID:       testAppID,
		AccessToken: testToken,
		SecretKey:   testSecret,
		Endpoint:    "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v3/sauc/bigmodel",
	})
	if d.ID() != ProviderDoubao {
		t.Errorf("ID() = %q", d.ID())
	}

	out := make(chan Result, 4)
	if err := d.Transcribe(context.Background(), feed(make([]byte, 640)), out); err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	close(out)
	results := drain(out)
	if len(results) != 1 || results[0] != (Result{Text: "你好", IsFinal: true}) {
		t.Errorf("results = %+v", results)
	}
}
