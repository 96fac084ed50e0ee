package transcriber

import (
	"context"
	"strings"

	"github.com/leonardotrapani/speakstream/internal/recording"
)

// Doubao streams audio to the Volcengine bigmodel recognizer and reports interim and
// final results while the user is still speaking.
type Doubao struct {
	cfg DoubaoConfig
}

func NewDoubao(cfg DoubaoConfig) *Doubao {
	return &Doubao{cfg: cfg}
}

func (d *Doubao) ID() string          { return ProviderDoubao }
func (d *Doubao) DisplayName() string { return "Doubao streaming" }

func (d *Doubao) Status() Status {
	if err := d.Validate(); err != nil {
		return NeedsConfiguration(strings.TrimPrefix(err.Error(), ErrConfiguration.Error()+": "))
	}
	return Ready()
}

func (d *Doubao) Validate() error {
	if d.cfg.AppID == "" {
		return configErr("doubao app id is not set")
	}
	if d.cfg.AccessToken == "" {
		return configErr("doubao access token is not set")
	}
	return nil
}

func (d *Doubao) Transcribe(ctx context.Context, audio <-chan recording.AudioFrame, out chan<- Result) error {
	if err := d.Validate(); err != nil {
		return err
	}
	session := NewSession(SessionConfig{
		Endpoint:    d.cfg.Endpoint,
		AppID:       d.cfg.AppID,
		AccessToken: d.cfg.AccessToken,
		SecretKey:   d.cfg.SecretKey,
		ResourceID:  d.cfg.ResourceID,
		ModelName:   d.cfg.ModelName,
	})
	return session.Run(ctx, audio, out)
}
