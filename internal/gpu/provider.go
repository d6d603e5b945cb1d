package gpu

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"go.uber.org/zap"
)

// Detector picks the ONNX execution provider for model inference
type Detector struct {
	logger *zap.Logger
}

// Info describes the detected acceleration hardware
type Info struct {
	Available     bool
	DeviceCount   int
	DeviceName    string
	DriverVersion string
}

// NewDetector creates a new provider detector instance
func NewDetector(logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{logger: logger}
}

// SelectProvider resolves the configured provider name to a concrete ONNX
// execution provider. "auto" picks coreml on Apple Silicon, cuda when an
// NVIDIA device is detected, and cpu otherwise. Any other value is passed
// through unchanged.
func (d *Detector) SelectProvider(configured string) string {
	if configured != "" && configured != "auto" {
		return configured
	}

	if runtime.GOOS == "darwin" && runtime.GOARCH == "arm64" {
		d.logger.Info("selected ONNX provider", zap.String("provider", "coreml"))
		return "coreml"
	}

	info := d.DetectCUDA()
	if info.Available {
		d.logger.Info("selected ONNX provider",
			zap.String("provider", "cuda"),
			zap.Int("device_count", info.DeviceCount),
			zap.String("device_name", info.DeviceName))
		return "cuda"
	}

	d.logger.Info("selected ONNX provider", zap.String("provider", "cpu"))
	return "cpu"
}

// DetectCUDA detects available NVIDIA GPU devices
func (d *Detector) DetectCUDA() *Info {
	info := &Info{}

	if err := d.detectWithNvidiaSMI(info); err != nil {
		d.logger.Debug("nvidia-smi detection failed", zap.Error(err))
		if err := d.detectWithCUDAEnv(info); err != nil {
			d.logger.Debug("CUDA environment detection failed", zap.Error(err))
		}
	}

	return info
}

// detectWithNvidiaSMI attempts to detect GPU devices using the nvidia-smi command
func (d *Detector) detectWithNvidiaSMI(info *Info) error {
	countCmd := exec.Command("nvidia-smi", "--list-gpus")
	countOutput, err := countCmd.Output()
	if err != nil {
		return fmt.Errorf("nvidia-smi command failed: %w", err)
	}

	lines := strings.Split(strings.TrimSpace(string(countOutput)), "\n")
	if len(lines) == 0 || (len(lines) == 1 && lines[0] == "") {
		return fmt.Errorf("no GPUs found by nvidia-smi")
	}
	info.DeviceCount = len(lines)

	infoCmd := exec.Command("nvidia-smi", "--query-gpu=name,driver_version", "--format=csv,noheader,nounits", "--id=0")
	infoOutput, err := infoCmd.Output()
	if err != nil {
		return fmt.Errorf("nvidia-smi info query failed: %w", err)
	}

	fields := strings.Split(strings.TrimSpace(string(infoOutput)), ",")
	if len(fields) >= 1 {
		info.DeviceName = strings.TrimSpace(fields[0])
	}
	if len(fields) >= 2 {
		info.DriverVersion = strings.TrimSpace(fields[1])
	}

	info.Available = true
	return nil
}

// detectWithCUDAEnv checks CUDA-related environment variables as a fallback
func (d *Detector) detectWithCUDAEnv(info *Info) error {
	visible := os.Getenv("CUDA_VISIBLE_DEVICES")
	if visible == "" || visible == "-1" {
		return fmt.Errorf("CUDA_VISIBLE_DEVICES not set")
	}

	devices := strings.Split(visible, ",")
	info.Available = true
	info.DeviceCount = len(devices)
	return nil
}
