package diarizer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// bundleFiles are the files a pretrained diarization bundle consists of
var bundleFiles = []string{
	"config.yaml",
	"segmentation.onnx",
	"embedding.onnx",
}

// Downloader fetches pretrained model bundles from Hugging Face
type Downloader struct {
	logger    *zap.Logger
	modelsDir string
	token     string
	client    *http.Client
	baseURL   string
}

// NewDownloader creates a new bundle downloader. token may be empty for
// models that do not require authentication.
func NewDownloader(logger *zap.Logger, modelsDir, token string) *Downloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Downloader{
		logger:    logger,
		modelsDir: modelsDir,
		token:     token,
		client: &http.Client{
			Timeout: 10 * time.Minute, // Long timeout for large model downloads
		},
		baseURL: "https://huggingface.co",
	}
}

// BundleDir returns the local directory a model identifier maps to
func (d *Downloader) BundleDir(modelID string) string {
	return filepath.Join(d.modelsDir, strings.ReplaceAll(modelID, "/", "--"))
}

// EnsureBundle checks that every bundle file for modelID exists locally and
// downloads the missing ones. Returns the bundle directory.
func (d *Downloader) EnsureBundle(ctx context.Context, modelID string) (string, error) {
	bundleDir := d.BundleDir(modelID)

	if err := os.MkdirAll(bundleDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create bundle directory: %w", err)
	}

	for _, name := range bundleFiles {
		localPath := filepath.Join(bundleDir, name)
		if _, err := os.Stat(localPath); err == nil {
			d.logger.Debug("bundle file already exists",
				zap.String("model", modelID),
				zap.String("file", name))
			continue
		}

		if err := d.downloadFile(ctx, modelID, name, localPath); err != nil {
			return "", err
		}
	}

	return bundleDir, nil
}

// downloadFile fetches one bundle file from the Hugging Face hub
func (d *Downloader) downloadFile(ctx context.Context, modelID, name, localPath string) error {
	url := fmt.Sprintf("%s/%s/resolve/main/%s", d.baseURL, modelID, name)

	d.logger.Info("downloading bundle file",
		zap.String("model", modelID),
		zap.String("url", url),
		zap.String("destination", localPath))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create download request: %w", err)
	}
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download %s: HTTP %d from %s", name, resp.StatusCode, url)
	}

	// Write to a temp file and rename so a partial download never
	// masquerades as a complete bundle file
	tempPath := localPath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tempPath, err)
	}

	written, err := io.Copy(file, resp.Body)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	if err := os.Rename(tempPath, localPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to finalize %s: %w", name, err)
	}

	d.logger.Info("bundle file downloaded",
		zap.String("file", name),
		zap.Int64("bytes", written))
	return nil
}
