package transcriber

import (
	"context"
	"fmt"
	"strings"
	"sync"

	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"
	"go.uber.org/zap"

	"speakerstream/internal/audio"
)

// whisperSampleRate is the sample rate Whisper models expect
const whisperSampleRate = 16000

// WhisperEngineConfig configures the sherpa-onnx Whisper recognizer
type WhisperEngineConfig struct {
	EncoderPath string
	DecoderPath string
	TokensPath  string
	Language    string
	NumThreads  int
	Provider    string
}

// WhisperEngine transcribes audio clips with an offline Whisper model running
// through sherpa-onnx
type WhisperEngine struct {
	config     WhisperEngineConfig
	recognizer *sherpa.OfflineRecognizer
	logger     *zap.Logger
	mu         sync.Mutex
}

// NewWhisperEngine loads the Whisper encoder/decoder pair
func NewWhisperEngine(config WhisperEngineConfig, logger *zap.Logger) (*WhisperEngine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.NumThreads <= 0 {
		config.NumThreads = 4
	}
	if config.Provider == "" {
		config.Provider = "cpu"
	}

	recognizerConfig := &sherpa.OfflineRecognizerConfig{
		FeatConfig: sherpa.FeatureConfig{
			SampleRate: whisperSampleRate,
			FeatureDim: 80,
		},
		ModelConfig: sherpa.OfflineModelConfig{
			Whisper: sherpa.OfflineWhisperModelConfig{
				Encoder:  config.EncoderPath,
				Decoder:  config.DecoderPath,
				Language: config.Language,
				Task:     "transcribe",
			},
			Tokens:     config.TokensPath,
			NumThreads: config.NumThreads,
			Provider:   config.Provider,
		},
		DecodingMethod: "greedy_search",
	}

	recognizer := sherpa.NewOfflineRecognizer(recognizerConfig)
	if recognizer == nil {
		return nil, fmt.Errorf("failed to create Whisper recognizer (encoder %s, provider %s)",
			config.EncoderPath, config.Provider)
	}

	logger.Info("Whisper recognizer initialized",
		zap.String("encoder", config.EncoderPath),
		zap.String("language", config.Language),
		zap.String("provider", config.Provider))

	return &WhisperEngine{config: config, recognizer: recognizer, logger: logger}, nil
}

// Transcribe decodes the clip at clipPath and returns its transcript
func (e *WhisperEngine) Transcribe(ctx context.Context, clipPath string) (string, error) {
	buf, err := audio.Decode(clipPath)
	if err != nil {
		return "", fmt.Errorf("failed to decode clip %s: %w", clipPath, err)
	}
	buf = buf.Resample(whisperSampleRate)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.recognizer == nil {
		return "", fmt.Errorf("whisper engine is closed")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	stream := sherpa.NewOfflineStream(e.recognizer)
	defer sherpa.DeleteOfflineStream(stream)

	stream.AcceptWaveform(whisperSampleRate, buf.Samples)
	e.recognizer.Decode(stream)

	text := strings.TrimSpace(stream.GetResult().Text)
	e.logger.Debug("clip transcribed",
		zap.String("clip", clipPath),
		zap.Int("chars", len(text)))
	return text, nil
}

// Close releases the underlying recognizer
func (e *WhisperEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.recognizer != nil {
		sherpa.DeleteOfflineRecognizer(e.recognizer)
		e.recognizer = nil
	}
}
