package diarizer

import (
	"context"
	"fmt"
	"sync"

	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"
	"go.uber.org/zap"
)

// componentClass marks a serialized bundle class this build can construct.
// The catalog maps the bundle's fully-qualified class names onto these.
type componentClass struct {
	name string
}

func init() {
	// Component classes the sherpa backend implements. The bundle decoder
	// only accepts classes that have been discovered and allow-listed at
	// runtime, so these are registered in the catalog, not in SafeGlobals.
	DefaultCatalog.Register("pyannote.audio.pipelines", "SpeakerDiarization", componentClass{"SpeakerDiarization"})
	DefaultCatalog.Register("pyannote.audio.core.task", "Specifications", componentClass{"Specifications"})
	DefaultCatalog.Register("pyannote.audio.models.segmentation", "PyanNet", componentClass{"PyanNet"})
	DefaultCatalog.Register("pyannote.audio.models.embedding", "WeSpeakerResNet34", componentClass{"WeSpeakerResNet34"})
}

// SherpaModelConfig configures the sherpa-onnx diarization backend
type SherpaModelConfig struct {
	SegmentationModelPath string
	EmbeddingModelPath    string
	NumThreads            int
	ClusteringThreshold   float32
	Provider              string // concrete ONNX provider: cpu, cuda, coreml
}

// SherpaModel runs speaker diarization through sherpa-onnx
type SherpaModel struct {
	config   SherpaModelConfig
	diarizer *sherpa.OfflineSpeakerDiarization
	logger   *zap.Logger
	mu       sync.Mutex
}

// NewSherpaModel builds an offline speaker-diarization model from the bundle's
// segmentation and embedding networks. A non-cpu provider that fails to
// initialize falls back to cpu.
func NewSherpaModel(config SherpaModelConfig, logger *zap.Logger) (*SherpaModel, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	provider := config.Provider
	if provider == "" {
		provider = "cpu"
	}

	sherpaConfig := &sherpa.OfflineSpeakerDiarizationConfig{
		Segmentation: sherpa.OfflineSpeakerSegmentationModelConfig{
			Pyannote: sherpa.OfflineSpeakerSegmentationPyannoteModelConfig{
				Model: config.SegmentationModelPath,
			},
			NumThreads: config.NumThreads,
			Provider:   provider,
		},
		Embedding: sherpa.SpeakerEmbeddingExtractorConfig{
			Model:      config.EmbeddingModelPath,
			NumThreads: config.NumThreads,
			Provider:   provider,
		},
		Clustering: sherpa.FastClusteringConfig{
			NumClusters: -1, // infer the speaker count
			Threshold:   config.ClusteringThreshold,
		},
	}

	d := sherpa.NewOfflineSpeakerDiarization(sherpaConfig)
	if d == nil && provider != "cpu" {
		logger.Warn("diarization provider failed, falling back to cpu",
			zap.String("provider", provider))
		sherpaConfig.Segmentation.Provider = "cpu"
		sherpaConfig.Embedding.Provider = "cpu"
		provider = "cpu"
		d = sherpa.NewOfflineSpeakerDiarization(sherpaConfig)
	}
	if d == nil {
		return nil, fmt.Errorf("failed to create sherpa-onnx diarizer (provider %s)", provider)
	}

	logger.Info("diarization model initialized",
		zap.String("provider", provider),
		zap.String("segmentation", config.SegmentationModelPath),
		zap.String("embedding", config.EmbeddingModelPath))

	config.Provider = provider
	return &SherpaModel{config: config, diarizer: d, logger: logger}, nil
}

// SampleRate returns the sample rate the model expects (16kHz)
func (m *SherpaModel) SampleRate() int {
	if m.diarizer != nil {
		return m.diarizer.SampleRate()
	}
	return 16000
}

// Run diarizes the full recording and returns the frame-level annotation.
// sherpa-onnx emits segments in ascending start order, which downstream
// merging relies on.
func (m *SherpaModel) Run(ctx context.Context, samples []float32) (FrameAnnotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.diarizer == nil {
		return nil, fmt.Errorf("diarization model is closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, nil
	}

	segments := m.diarizer.Process(samples)

	annotation := make(FrameAnnotation, 0, len(segments))
	for _, seg := range segments {
		annotation = append(annotation, Frame{
			Start:   float64(seg.Start),
			End:     float64(seg.End),
			Speaker: fmt.Sprintf("SPEAKER_%02d", seg.Speaker),
		})
	}

	m.logger.Debug("diarization run completed",
		zap.Int("frames", len(annotation)))
	return annotation, nil
}

// Close releases the underlying sherpa-onnx resources
func (m *SherpaModel) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.diarizer != nil {
		sherpa.DeleteOfflineSpeakerDiarization(m.diarizer)
		m.diarizer = nil
	}
}
