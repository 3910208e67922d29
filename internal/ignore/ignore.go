// Package ignore decides which entries a tree scan leaves out. Rules use
// gitignore syntax and come in layers: optional VCS metadata rules, the
// configured patterns, then the repository's own .minerignore. Later rules
// win, so a repository can re-include what the configuration excludes.
package ignore

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// FileName is the per-repository ignore file.
const FileName = ".minerignore"

// Layer sources reported by Decide.
const (
	SourceVCS    = "vcs"
	SourceConfig = "config"
)

// VCSDirs are version-control metadata directories, skipped only when
// Options.SkipVCS is set.
var VCSDirs = []string{".git/", ".hg/", ".svn/"}

// Rule is one compiled pattern line.
type Rule struct {
	Source  string // layer the rule came from
	Line    int    // 1-based line within the source
	Pattern string // the line as written

	glob    string
	negate  bool
	dirOnly bool
}

// parseRule compiles a pattern line. ok is false for blanks and comments.
func parseRule(source string, line int, text string) (r Rule, ok bool) {
	text = strings.TrimSpace(text)
	if text == "" || text[0] == '#' {
		return Rule{}, false
	}
	r = Rule{Source: source, Line: line, Pattern: text}

	if text[0] == '!' {
		r.negate = true
		text = text[1:]
	}
	if strings.HasSuffix(text, "/") {
		r.dirOnly = true
		text = strings.TrimRight(text, "/")
	}
	anchored := strings.HasPrefix(text, "/")
	text = strings.TrimPrefix(text, "/")
	if text == "" {
		return Rule{}, false
	}

	if !anchored && !strings.Contains(text, "/") {
		text = "**/" + text
	}
	r.glob = text
	return r, true
}

// covers reports whether the rule applies to path or to one of its parent
// directories. Parents are always directories, so dir-only rules hold there.
func (r Rule) covers(path string, isDir bool) bool {
	if !r.dirOnly || isDir {
		if ok, _ := doublestar.Match(r.glob, path); ok {
			return true
		}
	}
	for i := strings.LastIndexByte(path, '/'); i > 0; i = strings.LastIndexByte(path[:i], '/') {
		if ok, _ := doublestar.Match(r.glob, path[:i]); ok {
			return true
		}
	}
	return false
}

// Matcher evaluates rules in the order they were added.
type Matcher struct {
	rules []Rule
}

// NewMatcher creates a matcher with one config layer built from lines.
func NewMatcher(lines ...string) *Matcher {
	m := &Matcher{}
	m.Add(SourceConfig, lines...)
	return m
}

// Add appends a layer of pattern lines attributed to source.
func (m *Matcher) Add(source string, lines ...string) {
	for i, text := range lines {
		if r, ok := parseRule(source, i+1, text); ok {
			m.rules = append(m.rules, r)
		}
	}
}

// AddFile appends the rules of an ignore file, attributed to its path. A
// missing file adds nothing.
func (m *Matcher) AddFile(path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	m.Add(path, lines...)
	return nil
}

// Len returns the number of active rules.
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.rules)
}

// Decide returns the last rule covering a slash-separated path relative to
// the scan root, and whether that rule excludes it. The scan root itself is
// never excluded.
func (m *Matcher) Decide(path string, isDir bool) (Rule, bool) {
	if m == nil {
		return Rule{}, false
	}
	path = strings.TrimPrefix(filepath.ToSlash(path), "./")
	if path == "" || path == "." {
		return Rule{}, false
	}
	for i := len(m.rules) - 1; i >= 0; i-- {
		if r := m.rules[i]; r.covers(path, isDir) {
			return r, !r.negate
		}
	}
	return Rule{}, false
}

// Match reports whether path is excluded.
func (m *Matcher) Match(path string, isDir bool) bool {
	_, ignored := m.Decide(path, isDir)
	return ignored
}

// Options selects the layers stacked beneath a repository's ignore file.
type Options struct {
	SkipVCS  bool
	Patterns []string
}

// ForRepository builds the matcher for one repository rooted at dir.
func ForRepository(dir string, opts Options) (*Matcher, error) {
	m := &Matcher{}
	if opts.SkipVCS {
		m.Add(SourceVCS, VCSDirs...)
	}
	m.Add(SourceConfig, opts.Patterns...)
	if err := m.AddFile(filepath.Join(dir, FileName)); err != nil {
		return nil, err
	}
	return m, nil
}
