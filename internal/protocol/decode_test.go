package protocol

import (
	"encoding/binary"
	"encoding/json"
	"testing"
)

func mustServerResult(t *testing.T, resp Response, seq int32, compress bool) []byte {
	t.Helper()
	msg, err := EncodeServerResult(resp, seq, compress)
	if err != nil {
		t.Fatalf("EncodeServerResult() error = %v", err)
	}
	return msg
}

func TestDecode_FullServerResponse(t *testing.T) {
	resp := Response{Result: &ResultPayload{Single: &SingleResult{Text: "hello world", Prefetch: true}}}

	tests := []struct {
		name     string
		seq      int32
		compress bool
	}{
		{"sequence gzip", 1, true},
		{"sequence plain", 7, false},
		{"no sequence gzip", -1, true},
		{"no sequence plain", -1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Decode(mustServerResult(t, resp, tt.seq, tt.compress))
			if !ok {
				t.Fatal("Decode() = false, want a response")
			}
			if got.Text() != "hello world" {
				t.Errorf("Text() = %q, want %q", got.Text(), "hello world")
			}
			if !got.Prefetch() {
				t.Error("Prefetch() = false, want true")
			}
			if !got.Success() {
				t.Error("Success() = false, want true")
			}
		})
	}
}

func TestDecode_ServerResponseType(t *testing.T) {
	body := []byte(`{"code":1000,"result":{"text":"ok"}}`)
	msg, err := Encode(TypeServerResponse, FlagNone, SerialJSON, body, true)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	// 0xC frames carry the body right after the header
	msg = append(msg[:4], msg[8:]...)

	got, ok := Decode(msg)
	if !ok {
		t.Fatal("Decode() = false")
	}
	if got.Text() != "ok" {
		t.Errorf("Text() = %q, want ok", got.Text())
	}
}

func TestDecode_IgnoresOtherTypes(t *testing.T) {
	for _, typ := range []byte{TypeFullClient, TypeAudioOnly, TypeServerAck, TypeServerError} {
		msg, _ := Encode(typ, FlagNone, SerialJSON, []byte(`{"result":{"text":"x"}}`), false)
		if resp, ok := Decode(msg); ok {
			t.Errorf("Decode(type %#x) = %+v, want ignored", typ, resp)
		}
	}
}

func TestDecode_Malformed(t *testing.T) {
	good := mustServerResult(t, Response{Result: &ResultPayload{Single: &SingleResult{Text: "x"}}}, 1, false)

	notJSON := append([]byte{}, good[:12]...)
	notJSON = append(notJSON, []byte("not json")...)

	badUTF8 := append([]byte{}, good[:12]...)
	badUTF8 = append(badUTF8, 0xff, 0xfe, 0xfd)

	tests := []struct {
		name string
		data []byte
	}{
		{"nil", nil},
		{"one byte", []byte{0x11}},
		{"three bytes", good[:3]},
		{"header only", good[:4]},
		{"shorter than prefix", good[:9]},
		{"declared header exceeds data", []byte{0x1f, 0x90, 0x10, 0x00, 0x00}},
		{"not json", notJSON},
		{"invalid utf8", badUTF8},
		{"truncated body", good[:len(good)-3]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if resp, ok := Decode(tt.data); ok {
				t.Errorf("Decode() = %+v, want no result", resp)
			}
		})
	}
}

func TestDecode_CorruptGzipFallsBack(t *testing.T) {
	body := []byte(`{"result":{"text":"raw"}}`)
	msg := []byte{0x11, 0x90, 0x11, 0x00} // gzip flag set, body is plain JSON
	msg = binary.BigEndian.AppendUint32(msg, uint32(len(body)))
	msg = append(msg, body...)

	got, ok := Decode(msg)
	if !ok {
		t.Fatal("Decode() = false, want fallback to raw bytes")
	}
	if got.Text() != "raw" {
		t.Errorf("Text() = %q, want raw", got.Text())
	}
}

func TestDecompress_BorrowsWhenUncompressed(t *testing.T) {
	data := []byte("abc")
	out := decompress(data, CompressNone)
	if &out[0] != &data[0] {
		t.Error("uncompressed payload should not be copied")
	}
}

func TestResultPayload_Shapes(t *testing.T) {
	tests := []struct {
		name         string
		json         string
		wantText     string
		wantPrefetch bool
		wantSuccess  bool
	}{
		{"single", `{"result":{"text":"one","prefetch":false}}`, "one", false, true},
		{"single prefetch", `{"result":{"text":"guess","prefetch":true}}`, "guess", true, true},
		{"array", `{"result":[{"text":"first","utterances":[{"text":"first","start_time":0,"end_time":10,"definite":true}]},{"text":"second"}]}`, "first", false, true},
		{"empty array", `{"result":[]}`, "", false, true},
		{"null result", `{"code":1000,"result":null}`, "", false, true},
		{"error code", `{"code":45000001,"message":"bad"}`, "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp Response
			if err := json.Unmarshal([]byte(tt.json), &resp); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if got := resp.Text(); got != tt.wantText {
				t.Errorf("Text() = %q, want %q", got, tt.wantText)
			}
			if got := resp.Prefetch(); got != tt.wantPrefetch {
				t.Errorf("Prefetch() = %v, want %v", got, tt.wantPrefetch)
			}
			if got := resp.Success(); got != tt.wantSuccess {
				t.Errorf("Success() = %v, want %v", got, tt.wantSuccess)
			}
		})
	}
}

func TestResponse_Failed(t *testing.T) {
	tests := []struct {
		name string
		json string
		want bool
	}{
		{"result", `{"result":{"text":"ok"}}`, false},
		{"no code", `{}`, false},
		{"legacy success", `{"code":1000}`, false},
		{"legacy error", `{"code":1013,"message":"no speech"}`, true},
		{"bigmodel success", `{"code":20000000}`, false},
		{"bigmodel error", `{"code":45000001,"message":"invalid params"}`, true},
		{"server busy", `{"code":55000031,"message":"busy"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp Response
			if err := json.Unmarshal([]byte(tt.json), &resp); err != nil {
				t.Fatal(err)
			}
			if got := resp.Failed(); got != tt.want {
				t.Errorf("Failed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecodeError(t *testing.T) {
	frame := EncodeServerError(45000001, "invalid audio format")
	serr, ok := DecodeError(frame)
	if !ok {
		t.Fatal("DecodeError() rejected an error frame")
	}
	if serr.Code != 45000001 || serr.Message != "invalid audio format" {
		t.Errorf("DecodeError() = %+v", serr)
	}
	if _, ok := Decode(frame); ok {
		t.Error("Decode() should not treat an error frame as a result")
	}

	if _, ok := DecodeError(mustServerResult(t, Response{Code: 1000}, 1, false)); ok {
		t.Error("DecodeError() accepted a result frame")
	}
	if _, ok := DecodeError(frame[:9]); ok {
		t.Error("DecodeError() accepted a truncated frame")
	}

	// a message cut short of its declared size is kept as is
	short := frame[:len(frame)-7]
	if serr, ok := DecodeError(short); !ok || serr.Message != "invalid audio" {
		t.Errorf("DecodeError(truncated message) = %+v, %v", serr, ok)
	}
}
