package diarizer

import (
	"sort"
	"strings"
	"sync"
)

// Global is a deserialization symbol identified by its fully-qualified dotted
// name, paired with the Go-side value it resolves to.
type Global struct {
	Name  string
	Value any
}

// Allowlist is the set of globals a serialized model bundle is permitted to
// reference. Additions are cumulative; entries are never removed.
type Allowlist struct {
	mu      sync.RWMutex
	entries map[string]Global
}

// NewAllowlist creates an empty allowlist
func NewAllowlist() *Allowlist {
	return &Allowlist{entries: make(map[string]Global)}
}

// Add registers globals as allowed
func (a *Allowlist) Add(globals ...Global) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, g := range globals {
		a.entries[g.Name] = g
	}
}

// Contains reports whether the named global is allowed
func (a *Allowlist) Contains(name string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.entries[name]
	return ok
}

// Names returns the allowed names in sorted order
func (a *Allowlist) Names() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	names := make([]string, 0, len(a.entries))
	for name := range a.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SafeGlobals is the process-wide allowlist consulted by bundle decoding.
// It is shared by all loads and never rolled back.
var SafeGlobals = NewAllowlist()

// SymbolResolver resolves a dotted name to a concrete symbol. Implementations
// return false for names they cannot resolve.
type SymbolResolver interface {
	Resolve(name string) (Global, bool)
}

// Catalog is a registry-backed SymbolResolver: dotted names are split into a
// module path and a trailing attribute, and both must have been registered.
type Catalog struct {
	mu      sync.RWMutex
	modules map[string]map[string]any
}

// NewCatalog creates an empty symbol catalog
func NewCatalog() *Catalog {
	return &Catalog{modules: make(map[string]map[string]any)}
}

// Register adds a symbol under the given module path and attribute name
func (c *Catalog) Register(module, attr string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	attrs, ok := c.modules[module]
	if !ok {
		attrs = make(map[string]any)
		c.modules[module] = attrs
	}
	attrs[attr] = value
}

// Resolve splits name into module path and attribute and looks both up.
// A name without a dot, an unknown module, or a missing attribute all
// resolve to nothing.
func (c *Catalog) Resolve(name string) (Global, bool) {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return Global{}, false
	}
	module, attr := name[:idx], name[idx+1:]

	c.mu.RLock()
	defer c.mu.RUnlock()

	attrs, ok := c.modules[module]
	if !ok {
		return Global{}, false
	}
	value, ok := attrs[attr]
	if !ok {
		return Global{}, false
	}

	return Global{Name: name, Value: value}, true
}

// DefaultCatalog holds the symbols this build knows how to construct.
// Backends register their component classes in init.
var DefaultCatalog = NewCatalog()
