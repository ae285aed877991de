package extract

import (
	"fmt"
	"sort"
	"sync"
)

// FormatDefinition describes one registered input format.
type FormatDefinition struct {
	// Key is the format identifier used in CLI flags and API parameters.
	Key string

	// Label is the human-readable format name.
	Label string

	// New builds a fresh extractor for one conversion. Extractors carry
	// per-stream state (inferred layouts, header maps) and must not be
	// shared between conversions.
	New func(opts Options) Extractor
}

var (
	registry   = make(map[string]FormatDefinition)
	registryMu sync.RWMutex
)

// Register adds an input format to the registry.
// Panics if the key is already taken.
func Register(def FormatDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Key]; exists {
		panic(fmt.Sprintf("input format already registered: %s", def.Key))
	}
	registry[def.Key] = def
}

// Get returns a format definition by key.
// Returns false if not found.
func Get(key string) (FormatDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[key]
	return def, ok
}

// New builds an extractor for the named format.
func New(key string, opts Options) (Extractor, error) {
	def, ok := Get(key)
	if !ok {
		return nil, fmt.Errorf("unknown input format: %s", key)
	}
	return def.New(opts), nil
}

// Keys returns all registered format keys, sorted.
func Keys() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	keys := make([]string, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// All returns all registered format definitions, sorted by key.
func All() []FormatDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	defs := make([]FormatDefinition, 0, len(registry))
	for _, def := range registry {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Key < defs[j].Key })
	return defs
}
