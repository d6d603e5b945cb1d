// Package pipeline orchestrates diarization, audio extraction and
// transcription into a lazy, order-preserving sequence of segment results.
package pipeline

import "fmt"

// SegmentResult is one fully-processed speaker turn, in the shape it crosses
// the wire: one JSON object per line of a streamed response.
type SegmentResult struct {
	SegmentNumber int     `json:"segment_number"`
	Speaker       string  `json:"speaker"`
	Start         float64 `json:"start"`
	End           float64 `json:"end"`
	Transcript    string  `json:"transcript"`
	FilePath      string  `json:"file_path"`
}

// Validate checks if the SegmentResult has valid values. A zero-length turn
// is valid; source frames of zero duration pass through the merge unchanged.
func (r *SegmentResult) Validate() error {
	if r.SegmentNumber < 1 {
		return fmt.Errorf("segment_number must be at least 1")
	}

	if r.Speaker == "" {
		return fmt.Errorf("speaker cannot be empty")
	}

	if r.Start < 0 {
		return fmt.Errorf("start cannot be negative")
	}

	if r.End < r.Start {
		return fmt.Errorf("end cannot precede start")
	}

	if r.FilePath == "" {
		return fmt.Errorf("file_path cannot be empty")
	}

	return nil
}
