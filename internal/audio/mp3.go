package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	mp3 "github.com/hajimehoshi/go-mp3"
)

// DecodeMP3 reads an MP3 file into a mono Buffer. go-mp3 always decodes to
// 16-bit stereo interleaved PCM; the two channels are averaged.
func DecodeMP3(path string) (*Buffer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 file: %w", err)
	}
	defer file.Close()

	decoder, err := mp3.NewDecoder(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create MP3 decoder: %w", err)
	}

	pcm, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("failed to read PCM data: %w", err)
	}

	// 4 bytes per frame: left int16 + right int16
	frames := len(pcm) / 4
	samples := make([]float32, frames)
	for i := 0; i < frames; i++ {
		left := int16(binary.LittleEndian.Uint16(pcm[i*4:]))
		right := int16(binary.LittleEndian.Uint16(pcm[i*4+2:]))
		samples[i] = (float32(left) + float32(right)) / 2 / 32768.0
	}

	return &Buffer{Samples: samples, SampleRate: decoder.SampleRate()}, nil
}
