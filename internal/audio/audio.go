// Package audio provides decoding, slicing and export of audio recordings.
// All buffers are mono float32 in the range [-1, 1].
package audio

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Buffer holds decoded audio samples
type Buffer struct {
	Samples    []float32
	SampleRate int
}

// Decode reads an audio file into a mono Buffer. WAV and MP3 containers are
// supported, dispatched by file extension.
func Decode(path string) (*Buffer, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return DecodeWAV(path)
	case ".mp3":
		return DecodeMP3(path)
	default:
		return nil, fmt.Errorf("unsupported audio format: %s", filepath.Ext(path))
	}
}

// DurationSeconds returns the buffer duration in seconds
func (b *Buffer) DurationSeconds() float64 {
	if b.SampleRate == 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// Slice returns the samples covering [startMS, endMS). Offsets are converted
// to sample positions with truncating integer math and clamped to the buffer
// bounds; an inverted or out-of-range request yields an empty buffer.
func (b *Buffer) Slice(startMS, endMS int) *Buffer {
	startSample := startMS * b.SampleRate / 1000
	endSample := endMS * b.SampleRate / 1000

	if startSample < 0 {
		startSample = 0
	}
	if endSample > len(b.Samples) {
		endSample = len(b.Samples)
	}
	if startSample >= endSample {
		return &Buffer{Samples: nil, SampleRate: b.SampleRate}
	}

	return &Buffer{
		Samples:    b.Samples[startSample:endSample],
		SampleRate: b.SampleRate,
	}
}

// Resample converts the buffer to the target sample rate using linear
// interpolation. Returns the receiver unchanged when the rate already matches.
func (b *Buffer) Resample(targetRate int) *Buffer {
	if targetRate == b.SampleRate || len(b.Samples) == 0 {
		return b
	}

	ratio := float64(b.SampleRate) / float64(targetRate)
	outLen := int(float64(len(b.Samples)) / ratio)
	out := make([]float32, outLen)

	for i := 0; i < outLen; i++ {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := float32(pos - float64(idx))

		if idx+1 < len(b.Samples) {
			out[i] = b.Samples[idx]*(1-frac) + b.Samples[idx+1]*frac
		} else {
			out[i] = b.Samples[idx]
		}
	}

	return &Buffer{Samples: out, SampleRate: targetRate}
}
