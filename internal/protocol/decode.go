package protocol

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"
)

// Decode parses a server frame into a recognition response.
// Frames that carry no recognition result, and frames that are truncated, corrupt or
// not valid JSON, all yield (nil, false): a session must survive occasional bad packets.
func Decode(data []byte) (*Response, bool) {
	if len(data) < headerBytes {
		return nil, false
	}

	headerSize := int(data[0]&0x0f) * 4
	msgType := data[1] >> 4
	flags := data[1] & 0x0f
	compression := data[2] & 0x0f

	if headerSize < headerBytes || len(data) <= headerSize {
		return nil, false
	}
	payload := data[headerSize:]

	var body []byte
	switch msgType {
	case TypeFullServer:
		// sequence number (when flagged) and payload size precede the body
		skip := 4
		if flags&FlagSequence != 0 {
			skip = 8
		}
		if len(payload) < skip {
			return nil, false
		}
		body = payload[skip:]
	case TypeServerResponse:
		body = payload
	default:
		return nil, false
	}

	text := decompress(body, compression)
	if !utf8.Valid(text) {
		return nil, false
	}

	var resp Response
	if err := json.Unmarshal(text, &resp); err != nil {
		return nil, false
	}
	return &resp, true
}

// ServerError is the body of an error frame
type ServerError struct {
	Code    uint32
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Code, e.Message)
}

// DecodeError parses an error frame: a BE error code, a BE message size, then the
// message. Any other frame yields (nil, false).
func DecodeError(data []byte) (*ServerError, bool) {
	if len(data) < headerBytes || data[1]>>4 != TypeServerError {
		return nil, false
	}
	headerSize := int(data[0]&0x0f) * 4
	if headerSize < headerBytes || len(data) < headerSize+8 {
		return nil, false
	}
	payload := data[headerSize:]
	code := binary.BigEndian.Uint32(payload)
	msg := payload[8:]
	if size := binary.BigEndian.Uint32(payload[4:]); uint64(size) < uint64(len(msg)) {
		msg = msg[:size]
	}
	return &ServerError{Code: code, Message: string(decompress(msg, data[2]&0x0f))}, true
}

// decompress returns data itself when uncompressed. Gzip payloads are inflated into a
// new buffer; if inflating fails the raw bytes are returned unchanged.
func decompress(data []byte, compression byte) []byte {
	if compression != CompressGzip {
		return data
	}

	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return data
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return data
	}
	return out
}
