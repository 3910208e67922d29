// Package build runs the construction pipeline: load the stored graph,
// process every repository under a root, then save.
package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Sposito/zig-repos-data-miner/internal/dirio"
	"github.com/Sposito/zig-repos-data-miner/internal/gitio"
	"github.com/Sposito/zig-repos-data-miner/internal/graph"
	"github.com/Sposito/zig-repos-data-miner/internal/history"
	"github.com/Sposito/zig-repos-data-miner/internal/identity"
)

// DefaultMarker is the entry that marks a directory as a repository.
const DefaultMarker = ".git"

// Persister loads and saves whole graphs.
type Persister interface {
	Load(ctx context.Context) (*graph.Graph, error)
	Save(ctx context.Context, g *graph.Graph) error
}

// Sink receives the graph after it has been persisted.
type Sink interface {
	Save(ctx context.Context, g *graph.Graph) error
}

// Builder processes repositories into a graph.
type Builder struct {
	store     Persister
	inspector gitio.Inspector
	scanner   *dirio.Scanner
	sinks     []Sink
	marker    string
	log       *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the builder's logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		b.log = l
	}
}

// WithSink adds a sink that runs after every successful save.
func WithSink(s Sink) Option {
	return func(b *Builder) {
		b.sinks = append(b.sinks, s)
	}
}

// WithMarker sets the repository marker entry.
func WithMarker(marker string) Option {
	return func(b *Builder) {
		if marker != "" {
			b.marker = marker
		}
	}
}

// New creates a builder.
func New(store Persister, insp gitio.Inspector, scanner *dirio.Scanner, opts ...Option) *Builder {
	b := &Builder{
		store:     store,
		inspector: insp,
		scanner:   scanner,
		marker:    DefaultMarker,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// RepoReport describes one processed repository.
type RepoReport struct {
	ID      string
	Path    string
	Commits int
	Scan    *dirio.Report
}

// ProcessRepository adds one repository to g: its identity, its history and
// its working tree. Processing the same repository twice changes nothing.
func (b *Builder) ProcessRepository(ctx context.Context, g *graph.Graph, repoPath string) (*RepoReport, error) {
	absPath, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path: %w", err)
	}

	id := identity.Resolve(ctx, b.inspector, absPath)
	commits := history.Extract(ctx, b.inspector, absPath)
	linked := history.Attach(g, id, commits, b.log)

	scan, err := b.scanner.Scan(ctx, absPath, g)
	if err != nil {
		return nil, err
	}
	referencesFound.Add(float64(scan.References))

	return &RepoReport{ID: id, Path: absPath, Commits: linked, Scan: scan}, nil
}

// Summary describes a full build.
type Summary struct {
	RunID        string
	Repositories int
	Failed       int
	Nodes        int
	Edges        int
	Duration     time.Duration
}

// Run loads the stored graph, processes every repository under root and
// saves the result. A failing repository is logged and counted; it never
// stops the others. Load and save failures abort the run.
func (b *Builder) Run(ctx context.Context, root string) (*Summary, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := b.log.With("run_id", runID)

	repos, err := Discover(root, b.marker)
	if err != nil {
		return nil, err
	}

	g, err := b.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading graph: %w", err)
	}
	log.Info("build started", "root", root, "repositories", len(repos), "nodes", g.NodeCount())

	summary := &Summary{RunID: runID}
	for _, repo := range repos {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report, err := b.ProcessRepository(ctx, g, repo)
		if err != nil {
			log.Error("error processing repository", "path", repo, "error", err)
			repositoriesProcessed.WithLabelValues("error").Inc()
			summary.Failed++
			continue
		}
		repositoriesProcessed.WithLabelValues("ok").Inc()
		summary.Repositories++
		log.Info("repository processed",
			"id", report.ID,
			"commits", report.Commits,
			"folders", report.Scan.Folders,
			"files", report.Scan.Files,
			"references", report.Scan.References,
			"skipped", report.Scan.Skipped,
		)
	}

	if err := b.store.Save(ctx, g); err != nil {
		return nil, fmt.Errorf("saving graph: %w", err)
	}
	for _, sink := range b.sinks {
		if err := sink.Save(ctx, g); err != nil {
			log.Warn("mirror save failed", "error", err)
		}
	}

	summary.Nodes = g.NodeCount()
	summary.Edges = g.EdgeCount()
	summary.Duration = time.Since(start)

	graphNodes.Set(float64(summary.Nodes))
	graphEdges.Set(float64(summary.Edges))
	buildDuration.Observe(summary.Duration.Seconds())

	log.Info("build finished",
		"repositories", summary.Repositories,
		"failed", summary.Failed,
		"nodes", summary.Nodes,
		"edges", summary.Edges,
		"duration", summary.Duration,
	)
	return summary, nil
}

// Discover returns the direct children of root that contain marker,
// sorted by name.
func Discover(root, marker string) ([]string, error) {
	if marker == "" {
		marker = DefaultMarker
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path: %w", err)
	}

	entries, err := os.ReadDir(absRoot)
	if err != nil {
		return nil, fmt.Errorf("reading repositories root: %w", err)
	}

	var repos []string
	for _, entry := range entries {
		path := filepath.Join(absRoot, entry.Name())
		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(path, marker)); err != nil {
			continue
		}
		repos = append(repos, path)
	}
	sort.Strings(repos)
	return repos, nil
}

// CleanAll resets every repository under root to a pristine working tree.
// Failures are logged and skipped. It returns how many repositories were
// cleaned and how many failed.
func CleanAll(ctx context.Context, r gitio.Resetter, root, marker string, log *slog.Logger) (cleaned, failed int, err error) {
	if log == nil {
		log = slog.Default()
	}
	repos, err := Discover(root, marker)
	if err != nil {
		return 0, 0, err
	}
	for _, repo := range repos {
		if err := ctx.Err(); err != nil {
			return cleaned, failed, err
		}
		if err := r.Reset(ctx, repo); err != nil {
			log.Error("error cleaning repository", "path", repo, "error", err)
			failed++
			continue
		}
		log.Info("repository cleaned", "path", repo)
		cleaned++
	}
	return cleaned, failed, nil
}
