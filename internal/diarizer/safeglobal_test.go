package diarizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowlist(t *testing.T) {
	t.Run("should accumulate entries without removal", func(t *testing.T) {
		// Arrange
		allowed := NewAllowlist()

		// Act
		allowed.Add(Global{Name: "a.b.C", Value: 1})
		allowed.Add(Global{Name: "d.e.F", Value: 2})

		// Assert
		assert.True(t, allowed.Contains("a.b.C"))
		assert.True(t, allowed.Contains("d.e.F"))
		assert.False(t, allowed.Contains("g.h.I"))
		assert.Equal(t, []string{"a.b.C", "d.e.F"}, allowed.Names())
	})

	t.Run("should treat duplicate adds as idempotent", func(t *testing.T) {
		// Arrange
		allowed := NewAllowlist()

		// Act
		allowed.Add(Global{Name: "a.b.C"})
		allowed.Add(Global{Name: "a.b.C"})

		// Assert
		assert.Len(t, allowed.Names(), 1)
	})
}

func TestCatalog_Resolve(t *testing.T) {
	t.Run("should resolve a registered module attribute", func(t *testing.T) {
		// Arrange
		catalog := NewCatalog()
		catalog.Register("pyannote.audio.core.task", "Specifications", componentClass{"Specifications"})

		// Act
		global, ok := catalog.Resolve("pyannote.audio.core.task.Specifications")

		// Assert
		require.True(t, ok)
		assert.Equal(t, "pyannote.audio.core.task.Specifications", global.Name)
		assert.Equal(t, componentClass{"Specifications"}, global.Value)
	})

	t.Run("should not resolve unknown module path", func(t *testing.T) {
		// Arrange
		catalog := NewCatalog()
		catalog.Register("known.module", "Attr", nil)

		// Act
		_, ok := catalog.Resolve("unknown.module.Attr")

		// Assert
		assert.False(t, ok)
	})

	t.Run("should not resolve missing attribute", func(t *testing.T) {
		// Arrange
		catalog := NewCatalog()
		catalog.Register("known.module", "Attr", nil)

		// Act
		_, ok := catalog.Resolve("known.module.Other")

		// Assert
		assert.False(t, ok)
	})

	t.Run("should not resolve a name without a dot", func(t *testing.T) {
		// Arrange
		catalog := NewCatalog()

		// Act
		_, ok := catalog.Resolve("bareword")

		// Assert
		assert.False(t, ok)
	})
}

func TestDefaultCatalog(t *testing.T) {
	t.Run("should know the sherpa backend component classes", func(t *testing.T) {
		// Assert
		for _, name := range []string{
			"pyannote.audio.pipelines.SpeakerDiarization",
			"pyannote.audio.core.task.Specifications",
			"pyannote.audio.models.segmentation.PyanNet",
			"pyannote.audio.models.embedding.WeSpeakerResNet34",
		} {
			_, ok := DefaultCatalog.Resolve(name)
			assert.True(t, ok, "catalog should resolve %s", name)
		}
	})
}
