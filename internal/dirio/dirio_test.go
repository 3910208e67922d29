package dirio

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Sposito/zig-repos-data-miner/internal/graph"
	"github.com/Sposito/zig-repos-data-miner/internal/parse"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// recorder wraps an extractor and remembers the content it was given.
type recorder struct {
	mu    sync.Mutex
	calls [][]byte
	inner parse.Extractor
}

func (r *recorder) Extract(content []byte) ([]string, error) {
	r.mu.Lock()
	r.calls = append(r.calls, content)
	r.mu.Unlock()
	return r.inner.Extract(content)
}

func TestScan_Containment(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a")
	b := filepath.Join(a, "b")
	x := filepath.Join(a, "x.txt")
	y := filepath.Join(b, "y.zig")
	writeFile(t, x, "plain text")
	writeFile(t, y, `const core = @import("core");`)

	rec := &recorder{inner: parse.ZigImports{}}
	reg := parse.NewRegistry()
	reg.Register(".zig", rec)

	g := graph.New()
	report, err := NewScanner(reg, WithLogger(quietLogger())).Scan(context.Background(), root, g)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	for _, dir := range []string{root, a, b} {
		n := g.Node(dir)
		if n == nil || n.Kind != graph.KindFolder {
			t.Errorf("expected folder node for %s, got %+v", dir, n)
		}
	}
	for _, file := range []string{x, y} {
		n := g.Node(file)
		if n == nil || n.Kind != graph.KindFile {
			t.Errorf("expected file node for %s, got %+v", file, n)
		}
	}

	edges := []struct{ src, dst string }{
		{a, x},
		{b, y},
		{root, a},
		{a, b},
	}
	for _, e := range edges {
		if !g.HasEdge(e.src, e.dst, graph.RelContains) {
			t.Errorf("missing contains edge %s -> %s", e.src, e.dst)
		}
	}

	if len(rec.calls) != 1 {
		t.Fatalf("expected 1 extractor call, got %d", len(rec.calls))
	}
	if string(rec.calls[0]) != `const core = @import("core");` {
		t.Errorf("extractor got wrong content: %q", rec.calls[0])
	}
	if !g.HasEdge(y, "core", graph.RelReferences) {
		t.Error("missing references edge y.zig -> core")
	}
	if n := g.Node("core"); n == nil || n.Kind != graph.KindFile {
		t.Errorf("reference target should be a file node, got %+v", n)
	}

	want := Report{Folders: 3, Files: 2, Analyzed: 1, References: 1}
	if *report != want {
		t.Errorf("report = %+v, want %+v", *report, want)
	}
}

func TestScan_Idempotent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "main.zig"), `const std = @import("std");`)

	g := graph.New()
	s := NewScanner(parse.DefaultRegistry(), WithLogger(quietLogger()))
	if _, err := s.Scan(context.Background(), root, g); err != nil {
		t.Fatal(err)
	}
	nodes, edges := g.NodeCount(), g.EdgeCount()

	if _, err := s.Scan(context.Background(), root, g); err != nil {
		t.Fatal(err)
	}
	if g.NodeCount() != nodes || g.EdgeCount() != edges {
		t.Errorf("second scan changed graph: %d/%d -> %d/%d", nodes, edges, g.NodeCount(), g.EdgeCount())
	}
}

func TestScan_SkipsUnreadable(t *testing.T) {
	root := t.TempDir()
	good := filepath.Join(root, "good.zig")
	writeFile(t, good, `const a = @import("a");`)

	broken := filepath.Join(root, "broken.zig")
	if err := os.Symlink(filepath.Join(root, "missing.zig"), broken); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	g := graph.New()
	report, err := NewScanner(parse.DefaultRegistry(), WithLogger(quietLogger())).Scan(context.Background(), root, g)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if !g.HasEdge(good, "a", graph.RelReferences) {
		t.Error("readable file should still be analyzed")
	}
	if report.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", report.Skipped)
	}
	if report.Analyzed != 1 {
		t.Errorf("Analyzed = %d, want 1", report.Analyzed)
	}
}

func TestScan_Ignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "zig-out", "bin", "app"), "binary")
	writeFile(t, filepath.Join(root, "notes.tmp"), "scratch")
	writeFile(t, filepath.Join(root, "keep.tmp"), "kept")
	writeFile(t, filepath.Join(root, "build.zig"), `const std = @import("std");`)
	writeFile(t, filepath.Join(root, ".minerignore"), "zig-out/\n!keep.tmp\n")

	g := graph.New()
	s := NewScanner(parse.DefaultRegistry(), WithLogger(quietLogger()), WithIgnorePatterns("*.tmp"))
	if _, err := s.Scan(context.Background(), root, g); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	for _, p := range []string{"zig-out", "zig-out/bin/app", "notes.tmp"} {
		if g.HasNode(filepath.Join(root, filepath.FromSlash(p))) {
			t.Errorf("%s should be ignored", p)
		}
	}
	for _, p := range []string{"build.zig", "keep.tmp", ".minerignore"} {
		if !g.HasNode(filepath.Join(root, p)) {
			t.Errorf("%s should be scanned", p)
		}
	}
}

func TestScan_VCSMetadata(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".git", "HEAD"), "ref: refs/heads/main\n")
	writeFile(t, filepath.Join(root, ".git", "refs", "heads", "main"), "abc\n")
	writeFile(t, filepath.Join(root, "main.zig"), "")

	gitDir := filepath.Join(root, ".git")
	head := filepath.Join(gitDir, "HEAD")

	t.Run("walked by default", func(t *testing.T) {
		g := graph.New()
		if _, err := NewScanner(parse.DefaultRegistry(), WithLogger(quietLogger())).Scan(context.Background(), root, g); err != nil {
			t.Fatalf("Scan: %v", err)
		}
		if n := g.Node(gitDir); n == nil || n.Kind != graph.KindFolder {
			t.Errorf(".git folder node = %+v", n)
		}
		if !g.HasEdge(root, gitDir, graph.RelContains) {
			t.Error("missing root -> .git contains edge")
		}
		if !g.HasEdge(gitDir, head, graph.RelContains) {
			t.Error("missing .git -> HEAD contains edge")
		}
		if !g.HasNode(filepath.Join(gitDir, "refs", "heads", "main")) {
			t.Error("nested ref file should be scanned")
		}
	})

	t.Run("skipped when configured", func(t *testing.T) {
		g := graph.New()
		s := NewScanner(parse.DefaultRegistry(), WithLogger(quietLogger()), WithSkipVCS(true))
		if _, err := s.Scan(context.Background(), root, g); err != nil {
			t.Fatalf("Scan: %v", err)
		}
		if g.HasNode(gitDir) || g.HasNode(head) {
			t.Error(".git should not be scanned")
		}
		if !g.HasNode(filepath.Join(root, "main.zig")) {
			t.Error("main.zig should be scanned")
		}
	})
}

func TestScan_RootErrors(t *testing.T) {
	s := NewScanner(parse.DefaultRegistry(), WithLogger(quietLogger()))

	if _, err := s.Scan(context.Background(), filepath.Join(t.TempDir(), "absent"), graph.New()); err == nil {
		t.Error("expected error for missing root")
	}

	file := filepath.Join(t.TempDir(), "file.zig")
	writeFile(t, file, "")
	if _, err := s.Scan(context.Background(), file, graph.New()); err == nil {
		t.Error("expected error for non-directory root")
	}
}

func TestScan_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.zig"), "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewScanner(parse.DefaultRegistry(), WithLogger(quietLogger())).Scan(ctx, root, graph.New())
	if err == nil {
		t.Fatal("expected cancellation error")
	}
}
