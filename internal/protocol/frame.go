package protocol

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/gzip"
)

// Protocol constants for the binary frame format spoken by the streaming recognizer
const (
	Version       byte = 0x1
	HeaderWords   byte = 0x1 // header size in 4-byte words
	headerBytes        = 4
	lengthBytes        = 4
	minFrameBytes      = headerBytes + lengthBytes
)

// Message types (high nibble of header byte 1)
const (
	TypeFullClient     byte = 0x1
	TypeAudioOnly      byte = 0x2
	TypeFullServer     byte = 0x9
	TypeServerAck      byte = 0xB
	TypeServerResponse byte = 0xC
	TypeServerError    byte = 0xF
)

// Type-specific flags (low nibble of header byte 1)
const (
	FlagNone     byte = 0x0
	FlagSequence byte = 0x1
	FlagLast     byte = 0x2
)

// Serialization methods (high nibble of header byte 2)
const (
	SerialNone byte = 0x0
	SerialJSON byte = 0x1
)

// Compression methods (low nibble of header byte 2)
const (
	CompressNone byte = 0x0
	CompressGzip byte = 0x1
)

// Frame is one parsed unit of the wire protocol
type Frame struct {
	Version       byte
	HeaderSize    int // in bytes
	Type          byte
	Flags         byte
	Serialization byte
	Compression   byte
	Payload       []byte // as transmitted (still compressed if Compression is gzip)
}

// Encode builds a frame. When compress is set the payload is gzipped before its length
// is computed and the compression nibble says so; otherwise the payload is sent as-is.
func Encode(msgType, flags, serialization byte, payload []byte, compress bool) ([]byte, error) {
	compression := CompressNone
	body := payload
	if compress {
		gz, err := gzipBytes(payload)
		if err != nil {
			return nil, fmt.Errorf("gzip payload: %w", err)
		}
		body = gz
		compression = CompressGzip
	}

	msg := make([]byte, 0, minFrameBytes+len(body))
	msg = append(msg,
		(Version<<4)|HeaderWords,
		(msgType<<4)|(flags&0x0f),
		(serialization<<4)|compression,
		0x00,
	)
	msg = binary.BigEndian.AppendUint32(msg, uint32(len(body)))
	msg = append(msg, body...)
	return msg, nil
}

// EncodeConfig builds the full-client request that opens a session. Always gzipped.
func EncodeConfig(cfg SessionConfig) ([]byte, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal session config: %w", err)
	}
	return Encode(TypeFullClient, FlagNone, SerialJSON, data, true)
}

// EncodeAudio wraps raw PCM bytes in an audio-only frame without compression
func EncodeAudio(pcm []byte) []byte {
	msg := make([]byte, 0, minFrameBytes+len(pcm))
	msg = append(msg,
		(Version<<4)|HeaderWords,
		(TypeAudioOnly<<4)|FlagNone,
		(SerialNone<<4)|CompressNone,
		0x00,
	)
	msg = binary.BigEndian.AppendUint32(msg, uint32(len(pcm)))
	return append(msg, pcm...)
}

// EncodeFinish builds the zero-length audio frame that marks the end of the stream
func EncodeFinish() []byte {
	return []byte{
		(Version << 4) | HeaderWords,
		(TypeAudioOnly << 4) | FlagLast,
		(SerialNone << 4) | CompressNone,
		0x00,
		0x00, 0x00, 0x00, 0x00,
	}
}

// EncodeServerResult builds a full-server response frame the way the recognizer sends
// it: optional sequence number, payload size, then the (optionally gzipped) JSON body.
// A negative seq omits the sequence number.
func EncodeServerResult(resp Response, seq int32, compress bool) ([]byte, error) {
	body, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("marshal response: %w", err)
	}
	compression := CompressNone
	if compress {
		if body, err = gzipBytes(body); err != nil {
			return nil, fmt.Errorf("gzip payload: %w", err)
		}
		compression = CompressGzip
	}

	flags := FlagNone
	if seq >= 0 {
		flags = FlagSequence
	}
	msg := []byte{
		(Version << 4) | HeaderWords,
		(TypeFullServer << 4) | flags,
		(SerialJSON << 4) | compression,
		0x00,
	}
	if seq >= 0 {
		msg = binary.BigEndian.AppendUint32(msg, uint32(seq))
	}
	msg = binary.BigEndian.AppendUint32(msg, uint32(len(body)))
	return append(msg, body...), nil
}

// EncodeServerError builds an error frame as the recognizer sends it
func EncodeServerError(code uint32, message string) []byte {
	msg := []byte{
		(Version << 4) | HeaderWords,
		(TypeServerError << 4) | FlagNone,
		(SerialJSON << 4) | CompressNone,
		0x00,
	}
	msg = binary.BigEndian.AppendUint32(msg, code)
	msg = binary.BigEndian.AppendUint32(msg, uint32(len(message)))
	return append(msg, message...)
}

// ParseFrame reads the header and the length-prefixed payload of a client-style frame.
// It returns false for anything truncated or inconsistent instead of an error.
func ParseFrame(data []byte) (Frame, bool) {
	if len(data) < headerBytes {
		return Frame{}, false
	}

	f := Frame{
		Version:       data[0] >> 4,
		HeaderSize:    int(data[0]&0x0f) * 4,
		Type:          data[1] >> 4,
		Flags:         data[1] & 0x0f,
		Serialization: data[2] >> 4,
		Compression:   data[2] & 0x0f,
	}
	if f.HeaderSize < headerBytes || len(data) < f.HeaderSize+lengthBytes {
		return Frame{}, false
	}

	n := binary.BigEndian.Uint32(data[f.HeaderSize : f.HeaderSize+lengthBytes])
	rest := data[f.HeaderSize+lengthBytes:]
	if uint64(len(rest)) != uint64(n) {
		return Frame{}, false
	}
	f.Payload = rest
	return f, true
}

// DecodedPayload returns the frame payload with any compression removed
func (f Frame) DecodedPayload() []byte {
	return decompress(f.Payload, f.Compression)
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
