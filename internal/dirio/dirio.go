// Package dirio walks a repository's working tree into the graph.
package dirio

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Sposito/zig-repos-data-miner/internal/graph"
	"github.com/Sposito/zig-repos-data-miner/internal/ignore"
	"github.com/Sposito/zig-repos-data-miner/internal/parse"
)

// Report summarizes one scan.
type Report struct {
	Folders    int
	Files      int
	Analyzed   int
	References int
	Skipped    int
}

// Scanner turns a directory tree into folder and file nodes, containment
// edges and reference edges.
type Scanner struct {
	registry *parse.Registry
	ignore   ignore.Options
	matcher  *ignore.Matcher
	log      *slog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets the logger used for skipped entries.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scanner) {
		s.log = l
	}
}

// WithIgnorePatterns adds configured patterns. A repository's own ignore
// file is applied after them.
func WithIgnorePatterns(patterns ...string) Option {
	return func(s *Scanner) {
		s.ignore.Patterns = append(s.ignore.Patterns, patterns...)
	}
}

// WithSkipVCS leaves version-control metadata directories out of the scan.
// By default they are walked like any other directory.
func WithSkipVCS(skip bool) Option {
	return func(s *Scanner) {
		s.ignore.SkipVCS = skip
	}
}

// WithIgnore replaces per-repository rule loading with a fixed matcher.
func WithIgnore(m *ignore.Matcher) Option {
	return func(s *Scanner) {
		s.matcher = m
	}
}

// NewScanner creates a scanner that hands eligible files to reg.
func NewScanner(reg *parse.Registry, opts ...Option) *Scanner {
	s := &Scanner{registry: reg, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan walks root and records everything it finds in g. Node ids are
// absolute paths. Entries that cannot be read are logged and skipped; only
// an unreadable root is an error.
func (s *Scanner) Scan(ctx context.Context, root string, g *graph.Graph) (*Report, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path: %w", err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", absRoot)
	}

	matcher := s.matcher
	if matcher == nil {
		matcher, err = ignore.ForRepository(absRoot, s.ignore)
		if err != nil {
			return nil, fmt.Errorf("loading ignore patterns: %w", err)
		}
	}

	report := &Report{}
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == absRoot {
				return err
			}
			s.log.Warn("skipping unreadable entry", "path", path, "error", err)
			report.Skipped++
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			return fmt.Errorf("getting relative path: %w", err)
		}
		if rule, ignored := matcher.Decide(filepath.ToSlash(relPath), d.IsDir()); ignored {
			s.log.Debug("ignoring entry", "path", path, "rule", rule.Pattern, "source", rule.Source)
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return s.addFolder(g, absRoot, path, report)
		}
		return s.addFile(g, path, report)
	})
	if err != nil {
		return report, fmt.Errorf("scanning %s: %w", absRoot, err)
	}
	return report, nil
}

func (s *Scanner) addFolder(g *graph.Graph, root, path string, report *Report) error {
	if err := g.AddFolder(path); err != nil {
		s.log.Warn("folder id already used by another kind", "path", path, "error", err)
		report.Skipped++
		return filepath.SkipDir
	}
	report.Folders++
	if path == root {
		return nil
	}
	return g.AddEdge(filepath.Dir(path), path, graph.RelContains)
}

func (s *Scanner) addFile(g *graph.Graph, path string, report *Report) error {
	if err := g.AddFileToFolder(path); err != nil {
		s.log.Warn("file id already used by another kind", "path", path, "error", err)
		report.Skipped++
		return nil
	}
	report.Files++

	extractor := s.registry.For(path)
	if extractor == nil {
		return nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		s.log.Warn("skipping unreadable file", "path", path, "error", err)
		report.Skipped++
		return nil
	}
	ids, err := extractor.Extract(content)
	if err != nil {
		s.log.Warn("reference extraction failed", "path", path, "error", err)
		report.Skipped++
		return nil
	}
	report.Analyzed++

	for _, id := range ids {
		if err := g.AddReference(path, id); err != nil {
			s.log.Debug("reference target has another kind", "path", path, "target", id, "error", err)
			continue
		}
		report.References++
	}
	return nil
}
