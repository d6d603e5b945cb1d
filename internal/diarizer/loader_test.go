package diarizer

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubModel is a trivial Model for loader tests
type stubModel struct{ id int }

func (s *stubModel) SampleRate() int { return 16000 }
func (s *stubModel) Run(ctx context.Context, samples []float32) (FrameAnnotation, error) {
	return nil, nil
}

// stubResolver resolves every name in its set
type stubResolver struct {
	known map[string]bool
}

func (r *stubResolver) Resolve(name string) (Global, bool) {
	if r.known[name] {
		return Global{Name: name, Value: name}, true
	}
	return Global{}, false
}

func unsupportedGlobalErr(names ...string) error {
	msg := "failed to deserialize model bundle:"
	for _, name := range names {
		msg += fmt.Sprintf("\nUnsupported global: GLOBAL %s was not an allowed global", name)
	}
	return fmt.Errorf("%s", msg)
}

func TestLoader_Get(t *testing.T) {
	t.Run("should cache the handle after first successful load", func(t *testing.T) {
		// Arrange
		loadCount := 0
		model := &stubModel{id: 1}
		loader := NewLoader(func(ctx context.Context) (Model, error) {
			loadCount++
			return model, nil
		}, &stubResolver{}, zap.NewNop())

		// Act
		first, err1 := loader.Get(context.Background())
		second, err2 := loader.Get(context.Background())

		// Assert - same cached instance, load invoked exactly once
		require.NoError(t, err1)
		require.NoError(t, err2)
		assert.Same(t, first.(*stubModel), second.(*stubModel))
		assert.Equal(t, 1, loadCount)
		assert.True(t, loader.Loaded())
	})

	t.Run("should not cache a failed load", func(t *testing.T) {
		// Arrange
		loadCount := 0
		loader := NewLoader(func(ctx context.Context) (Model, error) {
			loadCount++
			if loadCount == 1 {
				return nil, fmt.Errorf("network unreachable")
			}
			return &stubModel{}, nil
		}, &stubResolver{}, zap.NewNop())

		// Act
		_, firstErr := loader.Get(context.Background())
		model, secondErr := loader.Get(context.Background())

		// Assert
		assert.Error(t, firstErr)
		require.NoError(t, secondErr)
		assert.NotNil(t, model)
	})

	t.Run("should serve concurrent first-time callers one load", func(t *testing.T) {
		// Arrange
		loadCount := 0
		loader := NewLoader(func(ctx context.Context) (Model, error) {
			loadCount++
			return &stubModel{}, nil
		}, &stubResolver{}, zap.NewNop())

		// Act
		done := make(chan Model, 8)
		for i := 0; i < 8; i++ {
			go func() {
				m, err := loader.Get(context.Background())
				assert.NoError(t, err)
				done <- m
			}()
		}
		first := <-done
		for i := 1; i < 8; i++ {
			// Assert - every caller converges on the same handle
			assert.Same(t, first.(*stubModel), (<-done).(*stubModel))
		}
		assert.Equal(t, 1, loadCount)
	})
}

func TestLoader_attemptLoad(t *testing.T) {
	t.Run("should fail on first attempt for unparsable message", func(t *testing.T) {
		// Arrange
		loadCount := 0
		loadErr := fmt.Errorf("401 Unauthorized: invalid credential")
		loader := NewLoader(func(ctx context.Context) (Model, error) {
			loadCount++
			return nil, loadErr
		}, &stubResolver{}, zap.NewNop())

		// Act
		_, err := loader.Get(context.Background())

		// Assert - propagated verbatim, no retry burned on an unparsable failure
		assert.Equal(t, loadErr, err)
		assert.Equal(t, 1, loadCount)
	})

	t.Run("should retry after allow-listing a resolved global", func(t *testing.T) {
		// Arrange
		loader := NewLoader(nil, &stubResolver{known: map[string]bool{
			"pyannote.audio.core.task.Specifications": true,
		}}, zap.NewNop())
		loader.allowlist = NewAllowlist()

		loadCount := 0
		loader.loadFn = func(ctx context.Context) (Model, error) {
			loadCount++
			if !loader.allowlist.Contains("pyannote.audio.core.task.Specifications") {
				return nil, unsupportedGlobalErr("pyannote.audio.core.task.Specifications")
			}
			return &stubModel{}, nil
		}

		// Act
		model, err := loader.Get(context.Background())

		// Assert
		require.NoError(t, err)
		assert.NotNil(t, model)
		assert.Equal(t, 2, loadCount)
	})

	t.Run("should stop when reported global cannot be resolved", func(t *testing.T) {
		// Arrange
		loadCount := 0
		loader := NewLoader(func(ctx context.Context) (Model, error) {
			loadCount++
			return nil, unsupportedGlobalErr("some.unknown.Symbol")
		}, &stubResolver{}, zap.NewNop())
		loader.allowlist = NewAllowlist()

		// Act
		_, err := loader.Get(context.Background())

		// Assert
		assert.Error(t, err)
		assert.Equal(t, 1, loadCount)
	})

	t.Run("should stop when message repeats an already-tried global", func(t *testing.T) {
		// Arrange
		loadCount := 0
		loader := NewLoader(func(ctx context.Context) (Model, error) {
			loadCount++
			// Allow-listing never satisfies this stub, same name every time
			return nil, unsupportedGlobalErr("pkg.mod.Thing")
		}, &stubResolver{known: map[string]bool{"pkg.mod.Thing": true}}, zap.NewNop())
		loader.allowlist = NewAllowlist()

		// Act
		_, err := loader.Get(context.Background())

		// Assert - second attempt parses nothing new and gives up
		assert.Error(t, err)
		assert.Equal(t, 2, loadCount)
	})

	t.Run("should exhaust exactly max retries for always-new resolvable names", func(t *testing.T) {
		// Arrange
		resolver := &stubResolver{known: map[string]bool{}}
		for i := 0; i < 20; i++ {
			resolver.known[fmt.Sprintf("pkg.mod.Class%d", i)] = true
		}

		loadCount := 0
		loader := NewLoaderWithRetries(func(ctx context.Context) (Model, error) {
			err := unsupportedGlobalErr(fmt.Sprintf("pkg.mod.Class%d", loadCount))
			loadCount++
			return nil, err
		}, resolver, 5, zap.NewNop())
		loader.allowlist = NewAllowlist()

		// Act
		_, err := loader.Get(context.Background())

		// Assert
		assert.Error(t, err)
		assert.Equal(t, 5, loadCount)
	})
}

func TestParseUnsupportedGlobals(t *testing.T) {
	t.Run("should extract multiple dotted names from one message", func(t *testing.T) {
		// Arrange
		msg := unsupportedGlobalErr("a.b.C", "x.y.z.W").Error()

		// Act
		names := parseUnsupportedGlobals(msg)

		// Assert
		assert.Equal(t, []string{"a.b.C", "x.y.z.W"}, names)
	})

	t.Run("should return nothing for free-form text", func(t *testing.T) {
		// Act
		names := parseUnsupportedGlobals("connection reset by peer")

		// Assert
		assert.Empty(t, names)
	})
}
