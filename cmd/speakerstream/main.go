package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"speakerstream/internal/app"
)

// main is the application entry point
func main() {
	var (
		helpFlag    = flag.Bool("help", false, "Show help message")
		versionFlag = flag.Bool("version", false, "Show version information")
		configFlag  = flag.String("config", "", "Path to configuration file")
		fileFlag    = flag.String("file", "", "Diarize a single audio file and print JSON lines to stdout")
	)
	flag.Parse()

	if *helpFlag {
		printHelp()
		os.Exit(0)
	}

	if *versionFlag {
		printVersion()
		os.Exit(0)
	}

	// A .env file is optional; environment variables win when both are set
	_ = godotenv.Load()

	if *configFlag != "" {
		os.Setenv("CONFIG_PATH", *configFlag)
	}

	if err := run(*fileFlag); err != nil {
		fmt.Fprintf(os.Stderr, "Application error: %v\n", err)
		os.Exit(1)
	}
}

// run builds the application and either diarizes one file or serves HTTP
func run(audioFile string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	application, err := app.NewApplication()
	if err != nil {
		logger.Error("failed to create application", zap.Error(err))
		return fmt.Errorf("failed to create application: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if audioFile != "" {
		defer application.Shutdown()
		if err := application.StreamFile(ctx, audioFile, os.Stdout); err != nil {
			logger.Error("diarization failed", zap.String("file", audioFile), zap.Error(err))
			return err
		}
		return nil
	}

	if err := application.Run(ctx); err != nil {
		logger.Error("application runtime error", zap.Error(err))
		return fmt.Errorf("application runtime error: %w", err)
	}

	logger.Info("speaker stream service stopped")
	return nil
}

// printHelp displays command line usage information
func printHelp() {
	fmt.Println("Speaker Stream - Speaker Diarization and Transcription Service")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("    speakerstream [OPTIONS]")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("    -help           Show this help message")
	fmt.Println("    -version        Show version information")
	fmt.Println("    -config PATH    Load configuration from a YAML file")
	fmt.Println("    -file PATH      Diarize one audio file and print JSON lines")
	fmt.Println()
	fmt.Println("CONFIGURATION:")
	fmt.Println("    Configuration is loaded from environment variables, or from the")
	fmt.Println("    file named by -config / CONFIG_PATH. A .env file in the working")
	fmt.Println("    directory is loaded if present.")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("    speakerstream                     # Serve HTTP on the configured address")
	fmt.Println("    speakerstream -file meeting.wav   # One-shot diarization to stdout")
	fmt.Println("    speakerstream -config conf.yaml   # Serve with a config file")
}

// printVersion displays version and build information
func printVersion() {
	fmt.Println("Speaker Stream")
	fmt.Println("Version: 1.0")
	fmt.Println("Architecture: Go 1.24 + sherpa-onnx (pyannote segmentation + Whisper)")
}
