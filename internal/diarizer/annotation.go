// Package diarizer provides speaker-diarization model loading and the
// frame-to-turn merge step of the segment pipeline.
package diarizer

import "context"

// Frame is a single entry of the frame-level speaker timeline produced by a
// diarization model. Frames are non-overlapping within a speaker but may
// overlap or gap across speakers.
type Frame struct {
	Start   float64
	End     float64
	Speaker string
}

// FrameAnnotation is the raw, time-ordered frame-level speaker timeline
type FrameAnnotation []Frame

// Turn is a maximal contiguous time range attributed to one speaker after
// merging adjacent same-speaker frames
type Turn struct {
	Start   float64
	End     float64
	Speaker string
}

// Model is a ready-to-use diarization model instance
type Model interface {
	// SampleRate returns the sample rate the model expects its input in
	SampleRate() int
	// Run executes diarization over the full recording and returns the
	// frame-level annotation in ascending start order
	Run(ctx context.Context, samples []float32) (FrameAnnotation, error)
}
