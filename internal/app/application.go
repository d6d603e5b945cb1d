// Package app wires configuration, model loading, the diarization pipeline
// and the HTTP server into a runnable application.
package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"speakerstream/internal/config"
	"speakerstream/internal/diarizer"
	"speakerstream/internal/gpu"
	"speakerstream/internal/logger"
	"speakerstream/internal/pipeline"
	"speakerstream/internal/server"
	"speakerstream/internal/transcriber"
)

// Application is the top-level orchestrator. Models are loaded lazily, so
// construction is cheap and the process is serving traffic immediately.
type Application struct {
	config     *config.Configuration
	zapLogger  *zap.Logger
	downloader *diarizer.Downloader
	loader     *diarizer.Loader
	whisper    *transcriber.LazyWhisper
	stream     *pipeline.DiarizationStream
	server     *server.Server
}

// NewApplication creates an application instance with all components wired.
// Configuration comes from the file named by CONFIG_PATH when set, otherwise
// from environment variables.
func NewApplication() (*Application, error) {
	var cfg *config.Configuration
	var err error

	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		cfg, err = config.NewConfigurationFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file %s: %w", configPath, err)
		}
	} else {
		cfg, err = config.NewConfigurationFromEnv()
		if err != nil {
			return nil, fmt.Errorf("failed to load config from environment: %w", err)
		}
	}

	return NewApplicationWithConfig(cfg)
}

// NewApplicationWithConfig wires an application around an existing configuration.
func NewApplicationWithConfig(cfg *config.Configuration) (*Application, error) {
	zapLogger := logger.NewLogger()

	detector := gpu.NewDetector(zapLogger)
	provider := detector.SelectProvider(cfg.GetProvider())

	downloader := diarizer.NewDownloader(zapLogger, cfg.GetModelsDir(), cfg.GetHFToken())

	loadFn := newDiarizerLoadFn(cfg, downloader, provider, zapLogger)
	loader := diarizer.NewLoaderWithRetries(loadFn, diarizer.DefaultCatalog, cfg.GetMaxLoadRetries(), zapLogger)

	whisper := transcriber.NewLazyWhisper(transcriber.WhisperEngineConfig{
		EncoderPath: cfg.GetWhisperEncoderPath(),
		DecoderPath: cfg.GetWhisperDecoderPath(),
		TokensPath:  cfg.GetWhisperTokensPath(),
		Language:    cfg.GetWhisperLanguage(),
		NumThreads:  cfg.GetNumThreads(),
		Provider:    provider,
	}, zapLogger)

	stream := pipeline.NewDiarizationStream(loader, whisper, cfg.GetOutputDir(), zapLogger)

	srv := server.NewServer(cfg.GetListenAddr(), stream, loader.Loaded, cfg.GetUploadDir(), zapLogger)

	return &Application{
		config:     cfg,
		zapLogger:  zapLogger,
		downloader: downloader,
		loader:     loader,
		whisper:    whisper,
		stream:     stream,
		server:     srv,
	}, nil
}

// newDiarizerLoadFn builds the load function the lazy loader retries: fetch
// the pretrained bundle, decode it against the process allowlist, then bring
// up the sherpa-onnx diarization model.
func newDiarizerLoadFn(cfg *config.Configuration, downloader *diarizer.Downloader, provider string, zapLogger *zap.Logger) diarizer.LoadFunc {
	return func(ctx context.Context) (diarizer.Model, error) {
		dir, err := downloader.EnsureBundle(ctx, cfg.GetModelID())
		if err != nil {
			return nil, fmt.Errorf("failed to fetch model bundle %s: %w", cfg.GetModelID(), err)
		}

		bundle, err := diarizer.DecodeBundle(dir, diarizer.SafeGlobals)
		if err != nil {
			return nil, err
		}

		threshold := cfg.GetClusteringThreshold()
		if v, ok := bundle.Params["clustering_threshold"].(float64); ok {
			threshold = v
		}

		model, err := diarizer.NewSherpaModel(diarizer.SherpaModelConfig{
			SegmentationModelPath: bundle.SegmentationModel,
			EmbeddingModelPath:    bundle.EmbeddingModel,
			NumThreads:            cfg.GetNumThreads(),
			ClusteringThreshold:   float32(threshold),
			Provider:              provider,
		}, zapLogger)
		if err != nil {
			return nil, err
		}
		return model, nil
	}
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (app *Application) Run(ctx context.Context) error {
	app.zapLogger.Info("starting speaker stream service",
		zap.String("listen_addr", app.config.GetListenAddr()),
		zap.String("model_id", app.config.GetModelID()))

	if err := app.server.Start(ctx); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	<-ctx.Done()
	app.zapLogger.Info("shutdown signal received")

	if err := app.server.Stop(context.Background()); err != nil {
		app.zapLogger.Error("server shutdown failed", zap.Error(err))
	}
	app.Shutdown()
	return nil
}

// StreamFile runs the pipeline over a single audio file and writes one JSON
// line per segment to w. It backs the command line one-shot mode.
func (app *Application) StreamFile(ctx context.Context, audioPath string, w io.Writer) error {
	out := pipeline.NewJSONOutput(w, app.zapLogger)

	it := app.stream.Stream(ctx, audioPath)
	for it.Next() {
		if err := out.WriteResult(it.Result()); err != nil {
			return err
		}
	}
	if err := it.Err(); err != nil {
		return fmt.Errorf("diarization of %s failed: %w", audioPath, err)
	}
	return nil
}

// Shutdown releases the loaded models.
func (app *Application) Shutdown() {
	app.whisper.Close()

	if app.loader.Loaded() {
		if model, err := app.loader.Get(context.Background()); err == nil {
			if closer, ok := model.(*diarizer.SherpaModel); ok {
				closer.Close()
			}
		}
	}

	_ = app.zapLogger.Sync()
}
