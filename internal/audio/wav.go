package audio

import (
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// DecodeWAV reads a WAV file into a mono Buffer. Multi-channel input is
// downmixed by averaging channels.
func DecodeWAV(path string) (*Buffer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file: %s", path)
	}

	pcm, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read PCM data: %w", err)
	}

	channels := pcm.Format.NumChannels
	if channels < 1 {
		return nil, fmt.Errorf("WAV file reports %d channels", channels)
	}

	scale := float32(int(1) << (decoder.BitDepth - 1))
	frames := len(pcm.Data) / channels
	samples := make([]float32, frames)

	for i := 0; i < frames; i++ {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += float32(pcm.Data[i*channels+ch]) / scale
		}
		samples[i] = sum / float32(channels)
	}

	return &Buffer{Samples: samples, SampleRate: pcm.Format.SampleRate}, nil
}

// ExportWAV writes the buffer to path as an uncompressed mono PCM16 WAV file
func (b *Buffer) ExportWAV(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create WAV file: %w", err)
	}
	defer file.Close()

	encoder := wav.NewEncoder(file, b.SampleRate, 16, 1, 1)

	data := make([]int, len(b.Samples))
	for i, s := range b.Samples {
		// Clamp before widening to avoid int16 wraparound on hot samples
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		data[i] = int(s * 32767)
	}

	pcm := &goaudio.IntBuffer{
		Data:           data,
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: b.SampleRate},
		SourceBitDepth: 16,
	}

	if err := encoder.Write(pcm); err != nil {
		return fmt.Errorf("failed to write PCM data: %w", err)
	}

	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to finalize WAV file: %w", err)
	}

	return nil
}
