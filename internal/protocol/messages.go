package protocol

import (
	"bytes"
	"encoding/json"

	"github.com/google/uuid"
)

// Default request parameters for a recognition session
const (
	DefaultModelName  = "bigmodel"
	DefaultResultType = "single"

	SampleRate    = 16000
	BitsPerSample = 16
	Channels      = 1
)

// SessionConfig is the JSON body of the full-client request
type SessionConfig struct {
	User    UserConfig    `json:"user"`
	Audio   AudioConfig   `json:"audio"`
	Request RequestConfig `json:"request"`
}

type UserConfig struct {
	UID string `json:"uid"`
}

type AudioConfig struct {
	Format  string `json:"format"`
	Codec   string `json:"codec"`
	Rate    int    `json:"rate"`
	Bits    int    `json:"bits"`
	Channel int    `json:"channel"`
}

type RequestConfig struct {
	ModelName      string `json:"model_name"`
	EnablePunc     bool   `json:"enable_punc"`
	EnableITN      bool   `json:"enable_itn"`
	ResultType     string `json:"result_type"`
	ShowUtterances bool   `json:"show_utterances"`
}

// NewSessionConfig returns the configuration for 16kHz mono 16-bit PCM with punctuation,
// inverse text normalization and single-utterance results.
func NewSessionConfig(model string) SessionConfig {
	if model == "" {
		model = DefaultModelName
	}
	return SessionConfig{
		User: UserConfig{UID: uuid.NewString()},
		Audio: AudioConfig{
			Format:  "pcm",
			Codec:   "pcm",
			Rate:    SampleRate,
			Bits:    BitsPerSample,
			Channel: Channels,
		},
		Request: RequestConfig{
			ModelName:  model,
			EnablePunc: true,
			EnableITN:  true,
			ResultType: DefaultResultType,
		},
	}
}

// codeSuccess is the status code of older response formats
const codeSuccess = 1000

// Response is a recognition response from the server
type Response struct {
	ReqID    string         `json:"reqid,omitempty"`
	Code     int            `json:"code,omitempty"`
	Message  string         `json:"message,omitempty"`
	Sequence *int           `json:"sequence,omitempty"`
	Result   *ResultPayload `json:"result,omitempty"`
}

// Success reports whether the response carries a usable result.
// Newer formats omit the code entirely; any result counts.
func (r *Response) Success() bool {
	return r.Result != nil || r.Code == codeSuccess
}

// Failed reports a response that carries an error code instead of a result.
// Code 1000 and the 2xxxxxxx range are the success codes of the two response formats.
func (r *Response) Failed() bool {
	if r.Result != nil || r.Code == 0 || r.Code == codeSuccess {
		return false
	}
	return r.Code < 20000000 || r.Code >= 30000000
}

// Text returns the recognized text. For array results only the first entry is used.
func (r *Response) Text() string {
	if r.Result == nil {
		return ""
	}
	if r.Result.Single != nil {
		return r.Result.Single.Text
	}
	if len(r.Result.Array) > 0 {
		return r.Result.Array[0].Text
	}
	return ""
}

// Prefetch reports whether this is a low-latency interim guess
func (r *Response) Prefetch() bool {
	return r.Result != nil && r.Result.Single != nil && r.Result.Single.Prefetch
}

// ResultPayload holds a result that the server sends either as one object or as an array
type ResultPayload struct {
	Single *SingleResult
	Array  []ArrayResult
}

type SingleResult struct {
	Text      string          `json:"text"`
	Prefetch  bool            `json:"prefetch"`
	Additions json.RawMessage `json:"additions,omitempty"`
}

type ArrayResult struct {
	Text       string      `json:"text"`
	Utterances []Utterance `json:"utterances,omitempty"`
}

type Utterance struct {
	Text      string `json:"text"`
	StartTime int64  `json:"start_time"`
	EndTime   int64  `json:"end_time"`
	Definite  bool   `json:"definite"`
}

// UnmarshalJSON picks the shape by looking at the first token
func (p *ResultPayload) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	if trimmed[0] == '[' {
		return json.Unmarshal(trimmed, &p.Array)
	}

	var single SingleResult
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return err
	}
	p.Single = &single
	return nil
}

// MarshalJSON writes back whichever shape was decoded
func (p ResultPayload) MarshalJSON() ([]byte, error) {
	if p.Single != nil {
		return json.Marshal(p.Single)
	}
	if p.Array != nil {
		return json.Marshal(p.Array)
	}
	return []byte("null"), nil
}
