package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"speakerstream/internal/audio"
	"speakerstream/internal/diarizer"
	"speakerstream/internal/transcriber"
)

// ModelProvider supplies the diarization model, loading it on first use
type ModelProvider interface {
	Get(ctx context.Context) (diarizer.Model, error)
}

// DiarizationStream runs the per-file pipeline: diarize once, merge frames to
// turns, then extract and transcribe each turn on demand.
type DiarizationStream struct {
	provider  ModelProvider
	adapter   transcriber.Adapter
	outputDir string
	logger    *zap.Logger
}

// NewDiarizationStream creates a new pipeline instance writing per-turn clips
// into outputDir
func NewDiarizationStream(provider ModelProvider, adapter transcriber.Adapter, outputDir string, logger *zap.Logger) *DiarizationStream {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiarizationStream{
		provider:  provider,
		adapter:   adapter,
		outputDir: outputDir,
		logger:    logger,
	}
}

// Stream begins processing the recording at audioPath and returns a lazy
// iterator over its segment results. The heavy stages (model acquisition,
// diarization run, audio decode) execute inside the first Next call; each
// subsequent Next processes exactly one turn. Re-invoking Stream re-runs the
// whole pipeline from scratch.
func (p *DiarizationStream) Stream(ctx context.Context, audioPath string) *Iterator {
	return &Iterator{pipeline: p, ctx: ctx, audioPath: audioPath}
}

// Iterator is a pull-based sequence of SegmentResults. Usage follows
// bufio.Scanner: call Next until it returns false, then check Err. Stopping
// early performs no further diarization, extraction or transcription work;
// clip files for unconsumed turns are never written.
type Iterator struct {
	pipeline  *DiarizationStream
	ctx       context.Context
	audioPath string

	started bool
	done    bool
	buf     *audio.Buffer
	turns   []diarizer.Turn
	next    int
	current SegmentResult
	err     error
}

// Next advances to the next segment result. It returns false when the
// sequence is exhausted or a stage failed; the failure is reported by Err.
func (it *Iterator) Next() bool {
	if it.done || it.err != nil {
		return false
	}

	if !it.started {
		it.started = true
		if err := it.start(); err != nil {
			it.fail(err)
			return false
		}
	}

	if it.next >= len(it.turns) {
		it.done = true
		return false
	}

	if err := it.ctx.Err(); err != nil {
		it.fail(err)
		return false
	}

	turn := it.turns[it.next]
	number := it.next + 1

	result, err := it.processTurn(turn, number)
	if err != nil {
		it.fail(err)
		return false
	}

	it.current = result
	it.next++
	return true
}

// Result returns the segment produced by the last successful Next call
func (it *Iterator) Result() SegmentResult {
	return it.current
}

// Err returns the failure that terminated the sequence, if any. Results
// delivered before the failure remain valid.
func (it *Iterator) Err() error {
	return it.err
}

func (it *Iterator) fail(err error) {
	it.err = err
	it.done = true
}

// start performs the once-per-stream stages: model acquisition, the single
// diarization run over the full recording, frame merging, and loading the
// audio for slicing.
func (it *Iterator) start() error {
	p := it.pipeline

	model, err := p.provider.Get(it.ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire diarization model: %w", err)
	}

	buf, err := audio.Decode(it.audioPath)
	if err != nil {
		return fmt.Errorf("failed to load audio %s: %w", it.audioPath, err)
	}
	it.buf = buf

	annotation, err := model.Run(it.ctx, buf.Resample(model.SampleRate()).Samples)
	if err != nil {
		return fmt.Errorf("diarization run failed for %s: %w", it.audioPath, err)
	}

	it.turns = diarizer.Merge(annotation)

	if err := os.MkdirAll(p.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", p.outputDir, err)
	}

	p.logger.Info("diarization completed",
		zap.String("audio", it.audioPath),
		zap.Int("frames", len(annotation)),
		zap.Int("turns", len(it.turns)))
	return nil
}

// processTurn extracts and transcribes a single turn
func (it *Iterator) processTurn(turn diarizer.Turn, number int) (SegmentResult, error) {
	p := it.pipeline

	// Seconds to millisecond offsets by truncation, not rounding
	startMS := int(turn.Start * 1000)
	endMS := int(turn.End * 1000)

	clipPath := filepath.Join(p.outputDir, fmt.Sprintf("segment_%d.wav", number))
	if err := it.buf.Slice(startMS, endMS).ExportWAV(clipPath); err != nil {
		return SegmentResult{}, fmt.Errorf("failed to extract segment %d: %w", number, err)
	}

	transcript, err := p.adapter.Transcribe(it.ctx, clipPath)
	if err != nil {
		return SegmentResult{}, fmt.Errorf("failed to transcribe segment %d: %w", number, err)
	}

	p.logger.Debug("segment processed",
		zap.Int("segment_number", number),
		zap.String("speaker", turn.Speaker),
		zap.Float64("start", turn.Start),
		zap.Float64("end", turn.End))

	return SegmentResult{
		SegmentNumber: number,
		Speaker:       turn.Speaker,
		Start:         turn.Start,
		End:           turn.End,
		Transcript:    transcript,
		FilePath:      clipPath,
	}, nil
}
