package diarizer

import (
	"context"
	"regexp"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// DefaultMaxRetries bounds the allowlist-discovery load protocol
const DefaultMaxRetries = 8

// globalPattern extracts disallowed symbol names from a failed load. The
// message is the only channel by which a missing deserialization dependency
// becomes known, so it is treated as a structured discovery protocol.
var globalPattern = regexp.MustCompile(`Unsupported global: GLOBAL ([\w.]+) was not an allowed global`)

// parseUnsupportedGlobals returns every dotted name the message reports as
// disallowed, in order of appearance
func parseUnsupportedGlobals(msg string) []string {
	matches := globalPattern.FindAllStringSubmatch(msg, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

// LoadFunc performs one attempt to instantiate the diarization model from its
// pretrained identifier and credential
type LoadFunc func(ctx context.Context) (Model, error)

// Loader provides thread-safe, lazy, retrying acquisition of the diarization
// model. The expensive load executes at most once process-wide; a failed load
// is not cached, so a later call may try again.
type Loader struct {
	loadFn     LoadFunc
	resolver   SymbolResolver
	allowlist  *Allowlist
	maxRetries int
	logger     *zap.Logger

	cached atomic.Pointer[modelBox]
	mu     sync.Mutex
}

// modelBox wraps the handle so the fast path can distinguish "not loaded yet"
// from a loaded nil-able interface value
type modelBox struct {
	model Model
}

// NewLoader creates a Loader over the given load routine and symbol resolver.
// Resolved symbols are allow-listed into the process-wide SafeGlobals set.
func NewLoader(loadFn LoadFunc, resolver SymbolResolver, logger *zap.Logger) *Loader {
	return NewLoaderWithRetries(loadFn, resolver, DefaultMaxRetries, logger)
}

// NewLoaderWithRetries creates a Loader with a custom retry bound
func NewLoaderWithRetries(loadFn LoadFunc, resolver SymbolResolver, maxRetries int, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		loadFn:     loadFn,
		resolver:   resolver,
		allowlist:  SafeGlobals,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// Get returns the cached model handle, loading it on first use. Concurrent
// first-time callers are serialized behind a mutex; the unguarded atomic read
// keeps warm calls off the lock entirely.
func (l *Loader) Get(ctx context.Context) (Model, error) {
	if box := l.cached.Load(); box != nil {
		return box.model, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if box := l.cached.Load(); box != nil {
		return box.model, nil
	}

	model, err := l.attemptLoad(ctx)
	if err != nil {
		return nil, err
	}

	l.cached.Store(&modelBox{model: model})
	return model, nil
}

// Loaded reports whether the model is already warm, without triggering a load
func (l *Loader) Loaded() bool {
	return l.cached.Load() != nil
}

// attemptLoad runs the bounded discovery protocol: try the load, harvest any
// disallowed global names from the failure, resolve and allow-list them, and
// retry. It stops as soon as an attempt can make no further progress and
// propagates the most recent failure unwrapped.
func (l *Loader) attemptLoad(ctx context.Context) (Model, error) {
	tried := make(map[string]bool)
	var lastErr error

	for attempt := 0; attempt < l.maxRetries; attempt++ {
		model, err := l.loadFn(ctx)
		if err == nil {
			return model, nil
		}
		lastErr = err

		var newNames []string
		for _, name := range parseUnsupportedGlobals(err.Error()) {
			if !tried[name] {
				newNames = append(newNames, name)
			}
		}
		if len(newNames) == 0 {
			break
		}

		var resolved []Global
		for _, name := range newNames {
			global, ok := l.resolver.Resolve(name)
			if !ok {
				// Unresolvable names are dropped silently
				continue
			}
			resolved = append(resolved, global)
			tried[name] = true
		}
		if len(resolved) == 0 {
			break
		}

		l.allowlist.Add(resolved...)
		l.logger.Info("allow-listed deserialization globals",
			zap.Int("attempt", attempt+1),
			zap.Int("count", len(resolved)))
	}

	return nil, lastErr
}
