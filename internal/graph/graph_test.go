package graph

import (
	"errors"
	"testing"
)

func TestAddCommit_WriteOnce(t *testing.T) {
	g := New()

	if err := g.AddCommit("commit1", CommitInfo{Timestamp: "123456", Author: "Alice", Message: "Initial commit"}); err != nil {
		t.Fatalf("adding commit: %v", err)
	}
	if err := g.AddCommit("commit1", CommitInfo{Timestamp: "999", Author: "Mallory", Message: "rewritten"}); err != nil {
		t.Fatalf("re-adding commit: %v", err)
	}

	n := g.Node("commit1")
	if n == nil {
		t.Fatal("commit node not found")
	}
	if n.Kind != KindCommit {
		t.Errorf("expected kind commit, got %s", n.Kind)
	}
	if n.Commit.Author != "Alice" || n.Commit.Timestamp != "123456" || n.Commit.Message != "Initial commit" {
		t.Errorf("commit attributes were overwritten: %+v", n.Commit)
	}
	if g.NodeCount() != 1 {
		t.Errorf("expected 1 node, got %d", g.NodeCount())
	}
}

func TestAddFolder(t *testing.T) {
	g := New()
	g.AddFolder("src")

	n := g.Node("src")
	if n == nil || n.Kind != KindFolder {
		t.Fatalf("expected folder node, got %+v", n)
	}
	if n.Commit != nil {
		t.Error("folder node should not carry commit attributes")
	}
}

func TestAddEdge_CreatesEndpoints(t *testing.T) {
	tests := []struct {
		rel     Relation
		srcKind Kind
		dstKind Kind
	}{
		{RelHasCommit, KindRepository, KindCommit},
		{RelContains, KindFolder, KindFile},
		{RelModifies, KindCommit, KindFile},
		{RelReferences, KindFile, KindFile},
	}

	for _, tt := range tests {
		t.Run(string(tt.rel), func(t *testing.T) {
			g := New()
			if err := g.AddEdge("a", "b", tt.rel); err != nil {
				t.Fatalf("adding edge: %v", err)
			}
			if got := g.Node("a").Kind; got != tt.srcKind {
				t.Errorf("src kind: got %s, want %s", got, tt.srcKind)
			}
			if got := g.Node("b").Kind; got != tt.dstKind {
				t.Errorf("dst kind: got %s, want %s", got, tt.dstKind)
			}
			if !g.HasEdge("a", "b", tt.rel) {
				t.Error("edge not found")
			}
		})
	}
}

func TestAddEdge_Idempotent(t *testing.T) {
	g := New()
	for i := 0; i < 3; i++ {
		g.AddEdge("commit1", "file1.zig", RelModifies)
	}

	if g.EdgeCount() != 1 {
		t.Errorf("expected 1 edge, got %d", g.EdgeCount())
	}
	if g.NodeCount() != 2 {
		t.Errorf("expected 2 nodes, got %d", g.NodeCount())
	}
}

func TestAddEdge_SameEndpointsDifferentRelation(t *testing.T) {
	g := New()
	g.AddEdge("a", "b", RelReferences)
	g.AddEdge("a", "b", RelContains)

	if g.EdgeCount() != 2 {
		t.Errorf("expected 2 edges, got %d", g.EdgeCount())
	}
}

func TestAddEdge_KeepsExistingKind(t *testing.T) {
	g := New()
	g.AddFolder("/repo/src")
	g.AddEdge("/repo", "/repo/src", RelContains)

	if got := g.Node("/repo/src").Kind; got != KindFolder {
		t.Errorf("expected existing folder to stay a folder, got %s", got)
	}
}

func TestAddNode_KindConflict(t *testing.T) {
	g := New()
	g.AddFile("shared")

	n, err := g.AddNode("shared", KindRepository, nil)
	if !errors.Is(err, ErrKindConflict) {
		t.Fatalf("expected ErrKindConflict, got %v", err)
	}
	if n.Kind != KindFile {
		t.Errorf("expected original kind to be kept, got %s", n.Kind)
	}
}

func TestAddFileToFolder(t *testing.T) {
	g := New()
	if err := g.AddFileToFolder("/repo/src/main.zig"); err != nil {
		t.Fatalf("adding file: %v", err)
	}

	if n := g.Node("/repo/src"); n == nil || n.Kind != KindFolder {
		t.Error("parent folder node was not created")
	}
	if n := g.Node("/repo/src/main.zig"); n == nil || n.Kind != KindFile {
		t.Error("file node was not created")
	}
	if !g.HasEdge("/repo/src", "/repo/src/main.zig", RelContains) {
		t.Error("file-folder relationship was not established")
	}
}

func TestAddReference(t *testing.T) {
	g := New()
	g.AddReference("file1.zig", "file2.zig")

	if !g.HasEdge("file1.zig", "file2.zig", RelReferences) {
		t.Error("reference edge not found")
	}
	if g.Node("file2.zig").Kind != KindFile {
		t.Error("reference target should be a file")
	}
}

func TestNodesAndEdges_InsertionOrder(t *testing.T) {
	g := New()
	g.AddRepository("user/repo")
	g.AddCommit("c1", CommitInfo{Timestamp: "1"})
	g.AddCommit("c2", CommitInfo{Timestamp: "2"})
	g.AddEdge("user/repo", "c1", RelHasCommit)
	g.AddEdge("user/repo", "c2", RelHasCommit)

	nodes := g.Nodes()
	want := []string{"user/repo", "c1", "c2"}
	if len(nodes) != len(want) {
		t.Fatalf("expected %d nodes, got %d", len(want), len(nodes))
	}
	for i, id := range want {
		if nodes[i].ID != id {
			t.Errorf("node %d: got %s, want %s", i, nodes[i].ID, id)
		}
	}

	edges := g.Edges()
	if len(edges) != 2 || edges[0].Dst != "c1" || edges[1].Dst != "c2" {
		t.Errorf("unexpected edge order: %+v", edges)
	}
	if got := len(g.NodesOfKind(KindCommit)); got != 2 {
		t.Errorf("expected 2 commits, got %d", got)
	}
}

func TestMerge(t *testing.T) {
	a := New()
	a.AddCommit("c1", CommitInfo{Author: "Alice"})
	a.AddFile("x")

	b := New()
	b.AddCommit("c1", CommitInfo{Author: "Bob"})
	b.AddFolder("x")
	b.AddEdge("repo", "c1", RelHasCommit)

	conflicts := a.Merge(b)
	if conflicts != 1 {
		t.Errorf("expected 1 conflict, got %d", conflicts)
	}
	if a.Node("c1").Commit.Author != "Alice" {
		t.Error("merge overwrote commit attributes")
	}
	if a.Node("x").Kind != KindFile {
		t.Error("merge changed existing kind")
	}
	if !a.HasEdge("repo", "c1", RelHasCommit) {
		t.Error("merge dropped edge")
	}
}

func TestParseKindAndRelation(t *testing.T) {
	if k, err := ParseKind("folder"); err != nil || k != KindFolder {
		t.Errorf("ParseKind(folder) = %v, %v", k, err)
	}
	if _, err := ParseKind("symbol"); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
	if r, err := ParseRelation("references"); err != nil || r != RelReferences {
		t.Errorf("ParseRelation(references) = %v, %v", r, err)
	}
	if _, err := ParseRelation("calls"); !errors.Is(err, ErrUnknownRelation) {
		t.Errorf("expected ErrUnknownRelation, got %v", err)
	}
}
