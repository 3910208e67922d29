package parse

import "regexp"

var zigImport = regexp.MustCompile(`@import\s*\(\s*"(.*?)"\s*\)`)

// ZigImports extracts the string arguments of @import("...") builtins.
// Identifiers are returned verbatim; no attempt is made to resolve them.
type ZigImports struct{}

// Extract implements Extractor.
func (ZigImports) Extract(content []byte) ([]string, error) {
	matches := zigImport.FindAllSubmatch(content, -1)
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, string(m[1]))
	}
	return distinct(ids), nil
}
