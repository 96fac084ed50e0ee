package protocol

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"testing"
)

func TestEncode_RoundTrip(t *testing.T) {
	payloads := map[string][]byte{
		"empty":  {},
		"short":  []byte("hi"),
		"json":   []byte(`{"text":"hello world"}`),
		"binary": bytes.Repeat([]byte{0x00, 0xff, 0x7f, 0x80}, 1024),
	}

	for name, payload := range payloads {
		for _, compress := range []bool{false, true} {
			t.Run(name, func(t *testing.T) {
				msg, err := Encode(TypeFullClient, FlagNone, SerialJSON, payload, compress)
				if err != nil {
					t.Fatalf("Encode() error = %v", err)
				}

				f, ok := ParseFrame(msg)
				if !ok {
					t.Fatal("ParseFrame() returned false for a frame we just encoded")
				}

				declared := binary.BigEndian.Uint32(msg[4:8])
				if int(declared) != len(f.Payload) || int(declared) != len(msg)-8 {
					t.Errorf("declared length %d, transmitted payload %d bytes", declared, len(msg)-8)
				}

				wantCompression := CompressNone
				if compress {
					wantCompression = CompressGzip
				}
				if f.Compression != wantCompression {
					t.Errorf("Compression = %d, want %d", f.Compression, wantCompression)
				}

				if got := f.DecodedPayload(); !bytes.Equal(got, payload) {
					t.Errorf("round trip payload mismatch: got %d bytes, want %d", len(got), len(payload))
				}
			})
		}
	}
}

func TestEncode_Header(t *testing.T) {
	msg, err := Encode(TypeFullClient, FlagNone, SerialJSON, []byte("{}"), true)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	if msg[0] != 0x11 {
		t.Errorf("byte0 = %#x, want 0x11", msg[0])
	}
	if msg[1] != 0x10 {
		t.Errorf("byte1 = %#x, want 0x10", msg[1])
	}
	if msg[2] != 0x11 {
		t.Errorf("byte2 = %#x, want 0x11 (json, gzip)", msg[2])
	}
	if msg[3] != 0x00 {
		t.Errorf("reserved byte = %#x, want 0", msg[3])
	}
}

func TestEncodeAudio(t *testing.T) {
	for _, size := range []int{0, 1, 3200, 65536} {
		pcm := bytes.Repeat([]byte{0x12}, size)
		msg := EncodeAudio(pcm)

		f, ok := ParseFrame(msg)
		if !ok {
			t.Fatalf("ParseFrame(audio %d) failed", size)
		}
		if f.Type != TypeAudioOnly {
			t.Errorf("Type = %#x, want audio-only", f.Type)
		}
		if f.Flags != 0 {
			t.Errorf("Flags = %#x, want 0", f.Flags)
		}
		if f.Compression != CompressNone {
			t.Errorf("audio frames must not be compressed")
		}
		if got := binary.BigEndian.Uint32(msg[4:8]); int(got) != size {
			t.Errorf("payload_len = %d, want %d", got, size)
		}
		if !bytes.Equal(f.Payload, pcm) {
			t.Error("audio payload altered")
		}
	}
}

func TestEncodeFinish(t *testing.T) {
	msg := EncodeFinish()
	f, ok := ParseFrame(msg)
	if !ok {
		t.Fatal("ParseFrame(finish) failed")
	}
	if f.Type != TypeAudioOnly {
		t.Errorf("Type = %#x, want audio-only", f.Type)
	}
	if len(f.Payload) != 0 {
		t.Errorf("finish payload = %d bytes, want 0", len(f.Payload))
	}

	audio, _ := ParseFrame(EncodeAudio(nil))
	if f.Flags == audio.Flags {
		t.Error("finish frame flags must differ from a normal audio frame")
	}
	if f.Flags&FlagLast == 0 {
		t.Error("finish frame must carry the last-packet flag")
	}
}

func TestEncodeConfig(t *testing.T) {
	cfg := NewSessionConfig("")
	msg, err := EncodeConfig(cfg)
	if err != nil {
		t.Fatalf("EncodeConfig() error = %v", err)
	}

	f, ok := ParseFrame(msg)
	if !ok {
		t.Fatal("ParseFrame(config) failed")
	}
	if f.Type != TypeFullClient {
		t.Errorf("Type = %#x, want full-client", f.Type)
	}
	if f.Compression != CompressGzip {
		t.Error("config frame must always be gzipped")
	}

	var got SessionConfig
	if err := json.Unmarshal(f.DecodedPayload(), &got); err != nil {
		t.Fatalf("config payload is not JSON: %v", err)
	}
	if got.Audio.Rate != 16000 || got.Audio.Bits != 16 || got.Audio.Channel != 1 {
		t.Errorf("audio config = %+v, want 16kHz/16bit/mono", got.Audio)
	}
	if got.Request.ModelName != DefaultModelName {
		t.Errorf("model = %q, want %q", got.Request.ModelName, DefaultModelName)
	}
	if !got.Request.EnablePunc || !got.Request.EnableITN {
		t.Error("punctuation and ITN should be enabled")
	}
	if got.Request.ResultType != "single" {
		t.Errorf("result_type = %q, want single", got.Request.ResultType)
	}
	if got.User.UID == "" {
		t.Error("uid should be set")
	}
}

func TestParseFrame_Truncated(t *testing.T) {
	full := EncodeAudio([]byte{1, 2, 3, 4})

	tests := []struct {
		name string
		data []byte
	}{
		{"nil", nil},
		{"three bytes", full[:3]},
		{"header only", full[:4]},
		{"short length", full[:6]},
		{"short payload", full[:10]},
		{"zero header size", []byte{0x10, 0x20, 0x00, 0x00, 0, 0, 0, 0}},
		{"header larger than data", []byte{0x1f, 0x20, 0x00, 0x00, 0, 0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := ParseFrame(tt.data); ok {
				t.Errorf("ParseFrame(%v) = ok, want false", tt.data)
			}
		})
	}
}
