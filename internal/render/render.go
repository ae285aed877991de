// Package render serializes canonical records into output formats.
//
// Renderers stream: Begin writes any prologue, Record appends one record,
// End closes the document. A renderer never buffers the full record set, so
// output size is bounded by one record regardless of stream length.
package render

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"recordconv/internal/record"
)

// Renderer writes one output document. Begin, zero or more Record calls,
// then End. Renderers carry per-document state and must not be reused.
type Renderer interface {
	Begin() error
	Record(rec record.Record) error
	End() error
}

// FormatDefinition describes one registered output format.
type FormatDefinition struct {
	// Key is the format identifier used in CLI flags and API parameters.
	Key string

	// Label is the human-readable format name.
	Label string

	// ContentType is the MIME type served for this format.
	ContentType string

	// New builds a fresh renderer writing to w.
	New func(w io.Writer) Renderer
}

var (
	registry   = make(map[string]FormatDefinition)
	registryMu sync.RWMutex
)

// Register adds an output format to the registry.
// Panics if the key is already taken.
func Register(def FormatDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Key]; exists {
		panic(fmt.Sprintf("output format already registered: %s", def.Key))
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

// New builds a renderer for the named format writing to w.
func New(key string, w io.Writer) (Renderer, error) {
	def, ok := Get(key)
	if !ok {
		return nil, fmt.Errorf("unknown output format: %s", key)
	}
	return def.New(w), nil
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
