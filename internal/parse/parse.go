// Package parse extracts declared module references from source files.
package parse

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Extractor finds the module identifiers a file imports.
type Extractor interface {
	// Extract returns the distinct identifiers declared in content, sorted.
	Extract(content []byte) ([]string, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(content []byte) ([]string, error)

// Extract calls f.
func (f ExtractorFunc) Extract(content []byte) ([]string, error) {
	return f(content)
}

// Registry maps file extensions to extractors.
type Registry struct {
	byExt map[string]Extractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byExt: make(map[string]Extractor)}
}

// Register associates an extension (with or without the leading dot) with
// an extractor, replacing any previous one.
func (r *Registry) Register(ext string, e Extractor) {
	r.byExt[normalizeExt(ext)] = e
}

// For returns the extractor for a file path, or nil when none is registered.
func (r *Registry) For(path string) Extractor {
	if r == nil {
		return nil
	}
	return r.byExt[normalizeExt(filepath.Ext(path))]
}

// Extensions lists registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// languages maps a language name to an extractor constructor per extension.
var languages = map[string]map[string]func() Extractor{
	"zig": {".zig": func() Extractor { return ZigImports{} }},
	"go":  {".go": func() Extractor { return GoImports{} }},
	"js": {
		".js":  func() Extractor { return JSImports{} },
		".mjs": func() Extractor { return JSImports{} },
		".cjs": func() Extractor { return JSImports{} },
		".jsx": func() Extractor { return JSImports{} },
	},
	"ts": {
		".ts":  func() Extractor { return TypeScriptImports() },
		".mts": func() Extractor { return TypeScriptImports() },
		".cts": func() Extractor { return TypeScriptImports() },
		".tsx": func() Extractor { return TSXImports() },
	},
}

// Languages returns the names accepted by NewRegistryFor.
func Languages() []string {
	names := make([]string, 0, len(languages))
	for name := range languages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewRegistryFor builds a registry with the named languages enabled.
func NewRegistryFor(names ...string) (*Registry, error) {
	r := NewRegistry()
	for _, name := range names {
		exts, ok := languages[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("unknown extractor %q (available: %s)", name, strings.Join(Languages(), ", "))
		}
		for ext, newExtractor := range exts {
			r.Register(ext, newExtractor())
		}
	}
	return r, nil
}

// DefaultRegistry handles Zig sources only.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(".zig", ZigImports{})
	return r
}

// distinct sorts ids and removes duplicates and empty strings.
func distinct(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
