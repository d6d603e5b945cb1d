package transcriber

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// LazyWhisper defers Whisper engine construction until the first clip is
// transcribed, so a service instance can come up before its speech-to-text
// model files are in place. Construction happens once; a construction failure
// is returned to every caller of that attempt, and the next call tries again.
type LazyWhisper struct {
	config WhisperEngineConfig
	logger *zap.Logger

	mu     sync.Mutex
	engine *WhisperEngine
}

// NewLazyWhisper creates the lazy wrapper without touching the model files
func NewLazyWhisper(config WhisperEngineConfig, logger *zap.Logger) *LazyWhisper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LazyWhisper{config: config, logger: logger}
}

// Transcribe initializes the engine on first use and delegates to it
func (l *LazyWhisper) Transcribe(ctx context.Context, clipPath string) (string, error) {
	engine, err := l.get()
	if err != nil {
		return "", err
	}
	return engine.Transcribe(ctx, clipPath)
}

func (l *LazyWhisper) get() (*WhisperEngine, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.engine != nil {
		return l.engine, nil
	}

	engine, err := NewWhisperEngine(l.config, l.logger)
	if err != nil {
		return nil, err
	}
	l.engine = engine
	return engine, nil
}

// Close releases the engine if it was ever constructed
func (l *LazyWhisper) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.engine != nil {
		l.engine.Close()
		l.engine = nil
	}
}
