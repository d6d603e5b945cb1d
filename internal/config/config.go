package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Configuration provides type-safe access to application settings
type Configuration struct {
	viper *viper.Viper
}

// setDefaults applies the default settings shared by all constructors
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen_addr", ":8000")
	v.SetDefault("diarization.model_id", "pyannote/speaker-diarization-3.1")
	v.SetDefault("diarization.models_dir", "./models")
	v.SetDefault("diarization.max_load_retries", 8)
	v.SetDefault("diarization.provider", "auto")
	v.SetDefault("diarization.num_threads", 4)
	v.SetDefault("diarization.clustering_threshold", 0.5)
	v.SetDefault("transcriber.encoder_path", "./models/whisper-encoder.onnx")
	v.SetDefault("transcriber.decoder_path", "./models/whisper-decoder.onnx")
	v.SetDefault("transcriber.tokens_path", "./models/whisper-tokens.txt")
	v.SetDefault("transcriber.language", "en")
	v.SetDefault("pipeline.output_dir", "splits")
	v.SetDefault("pipeline.upload_dir", os.TempDir())
}

// NewConfiguration creates a new Configuration instance with default settings
func NewConfiguration() *Configuration {
	v := viper.New()
	setDefaults(v)
	return &Configuration{viper: v}
}

// NewConfigurationFromFile creates a Configuration instance from a config file
func NewConfigurationFromFile(configFile string) (*Configuration, error) {
	v := viper.New()
	v.SetConfigFile(configFile)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	return &Configuration{viper: v}, nil
}

// NewConfigurationFromEnv creates a Configuration instance that reads from environment variables
func NewConfigurationFromEnv() (*Configuration, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SPEAKERSTREAM")
	v.AutomaticEnv()

	// Map specific environment variables
	v.BindEnv("server.listen_addr", "LISTEN_ADDR")
	v.BindEnv("diarization.model_id", "DIARIZATION_MODEL_ID")
	v.BindEnv("diarization.models_dir", "MODELS_DIR")
	v.BindEnv("diarization.provider", "ONNX_PROVIDER")
	v.BindEnv("transcriber.encoder_path", "WHISPER_ENCODER_PATH")
	v.BindEnv("transcriber.decoder_path", "WHISPER_DECODER_PATH")
	v.BindEnv("transcriber.tokens_path", "WHISPER_TOKENS_PATH")
	v.BindEnv("transcriber.language", "WHISPER_LANG")
	v.BindEnv("pipeline.output_dir", "OUTPUT_DIR")

	return &Configuration{viper: v}, nil
}

// GetListenAddr returns the HTTP listen address
func (c *Configuration) GetListenAddr() string {
	return c.viper.GetString("server.listen_addr")
}

// GetModelID returns the pretrained diarization model identifier
func (c *Configuration) GetModelID() string {
	return c.viper.GetString("diarization.model_id")
}

// GetModelsDir returns the directory model bundles are downloaded into
func (c *Configuration) GetModelsDir() string {
	return c.viper.GetString("diarization.models_dir")
}

// GetMaxLoadRetries returns the retry bound for the model load protocol
func (c *Configuration) GetMaxLoadRetries() int {
	return c.viper.GetInt("diarization.max_load_retries")
}

// GetProvider returns the configured ONNX execution provider
func (c *Configuration) GetProvider() string {
	return c.viper.GetString("diarization.provider")
}

// GetNumThreads returns the inference thread count
func (c *Configuration) GetNumThreads() int {
	return c.viper.GetInt("diarization.num_threads")
}

// GetClusteringThreshold returns the speaker clustering threshold
func (c *Configuration) GetClusteringThreshold() float64 {
	return c.viper.GetFloat64("diarization.clustering_threshold")
}

// GetWhisperEncoderPath returns the Whisper encoder model path
func (c *Configuration) GetWhisperEncoderPath() string {
	return c.viper.GetString("transcriber.encoder_path")
}

// GetWhisperDecoderPath returns the Whisper decoder model path
func (c *Configuration) GetWhisperDecoderPath() string {
	return c.viper.GetString("transcriber.decoder_path")
}

// GetWhisperTokensPath returns the Whisper tokens file path
func (c *Configuration) GetWhisperTokensPath() string {
	return c.viper.GetString("transcriber.tokens_path")
}

// GetWhisperLanguage returns the transcription language hint
func (c *Configuration) GetWhisperLanguage() string {
	return c.viper.GetString("transcriber.language")
}

// GetOutputDir returns the directory per-turn audio clips are written into
func (c *Configuration) GetOutputDir() string {
	return c.viper.GetString("pipeline.output_dir")
}

// GetUploadDir returns the directory uploaded audio files are staged in
func (c *Configuration) GetUploadDir() string {
	return c.viper.GetString("pipeline.upload_dir")
}

// GetHFToken returns the Hugging Face access credential. Two case-variant
// environment names are accepted; the first non-empty one wins.
func (c *Configuration) GetHFToken() string {
	if token := os.Getenv("hf_token"); token != "" {
		return token
	}
	return os.Getenv("HF_TOKEN")
}
