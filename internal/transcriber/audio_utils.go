package transcriber

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/leonardotrapani/speakstream/internal/protocol"
)

// WAVHeaderSize is the size of the canonical PCM header written by convertToWAV
const WAVHeaderSize = 44

// convertToWAV wraps raw 16-bit PCM in a canonical 44-byte WAV header
func convertToWAV(rawAudio []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(WAVHeaderSize + len(rawAudio))

	const sampleRate = protocol.SampleRate
	const channels = protocol.Channels
	const bitsPerSample = protocol.BitsPerSample
	const byteRate = sampleRate * channels * bitsPerSample / 8
	const blockAlign = channels * bitsPerSample / 8

	dataSize := len(rawAudio)

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))            // fmt chunk size
	binary.Write(&buf, binary.LittleEndian, uint16(1))             // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))      // channels
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))    // sample rate
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))      // byte rate
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))    // block align
	binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample)) // bits per sample

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(rawAudio)

	return buf.Bytes()
}

// pcmToFloat32 converts little-endian 16-bit samples to [-1, 1). A trailing odd byte is ignored.
func pcmToFloat32(pcm []byte) []float32 {
	samples := make([]float32, len(pcm)/2)
	for i := range samples {
		s := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		samples[i] = float32(s) / 32768.0
	}
	return samples
}

// writeWAVFile encodes PCM into a WAV file with go-audio, for tools that want a path
func writeWAVFile(w io.WriteSeeker, pcm []byte) error {
	if len(pcm)%2 != 0 {
		return fmt.Errorf("pcm payload not aligned")
	}
	samples := make([]int, len(pcm)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	buffer := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: protocol.Channels, SampleRate: protocol.SampleRate},
		Data:           samples,
		SourceBitDepth: protocol.BitsPerSample,
	}

	enc := wav.NewEncoder(w, protocol.SampleRate, protocol.BitsPerSample, protocol.Channels, 1)
	if err := enc.Write(buffer); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}

// ReadWAVFile loads a WAV file and returns its samples as 16 kHz mono 16-bit PCM.
// Files in any other format are rejected rather than resampled.
func ReadWAVFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%s: not a valid WAV file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if int(dec.SampleRate) != protocol.SampleRate || int(dec.NumChans) != protocol.Channels || int(dec.BitDepth) != protocol.BitsPerSample {
		return nil, fmt.Errorf("%s: need %d Hz mono %d-bit PCM, got %d Hz %d channels %d-bit",
			path, protocol.SampleRate, protocol.BitsPerSample, dec.SampleRate, dec.NumChans, dec.BitDepth)
	}

	pcm := make([]byte, len(buf.Data)*2)
	for i, s := range buf.Data {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(s)))
	}
	return pcm, nil
}
