package gpu

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestDetector_SelectProvider(t *testing.T) {
	t.Run("should pass explicit provider through unchanged", func(t *testing.T) {
		// Arrange
		detector := NewDetector(zap.NewNop())

		// Act & Assert
		assert.Equal(t, "cpu", detector.SelectProvider("cpu"))
		assert.Equal(t, "cuda", detector.SelectProvider("cuda"))
		assert.Equal(t, "coreml", detector.SelectProvider("coreml"))
	})

	t.Run("should resolve auto to a concrete provider", func(t *testing.T) {
		// Arrange
		detector := NewDetector(zap.NewNop())

		// Act
		provider := detector.SelectProvider("auto")

		// Assert
		assert.Contains(t, []string{"cpu", "cuda", "coreml"}, provider)
		if runtime.GOOS == "darwin" && runtime.GOARCH == "arm64" {
			assert.Equal(t, "coreml", provider)
		}
	})

	t.Run("should treat empty string as auto", func(t *testing.T) {
		// Arrange
		detector := NewDetector(nil)

		// Act
		provider := detector.SelectProvider("")

		// Assert
		assert.NotEmpty(t, provider)
	})
}

func TestDetector_DetectCUDA(t *testing.T) {
	t.Run("should detect devices from CUDA_VISIBLE_DEVICES fallback", func(t *testing.T) {
		// Arrange
		detector := NewDetector(zap.NewNop())
		info := &Info{}
		t.Setenv("CUDA_VISIBLE_DEVICES", "0,1")

		// Act
		err := detector.detectWithCUDAEnv(info)

		// Assert
		assert.NoError(t, err)
		assert.True(t, info.Available)
		assert.Equal(t, 2, info.DeviceCount)
	})

	t.Run("should report no devices when CUDA_VISIBLE_DEVICES is -1", func(t *testing.T) {
		// Arrange
		detector := NewDetector(zap.NewNop())
		info := &Info{}
		t.Setenv("CUDA_VISIBLE_DEVICES", "-1")

		// Act
		err := detector.detectWithCUDAEnv(info)

		// Assert
		assert.Error(t, err)
		assert.False(t, info.Available)
	})
}
